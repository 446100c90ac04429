package dispatch

import (
	"time"

	"github.com/pulsepoint/eris-api/models"
)

// Seed returns the dataset a fresh installation starts with, and the one
// every load falls back to when storage cannot be trusted. Call timestamps
// are laid out relative to now.
func Seed(now time.Time) State {
	onDuty := models.EmtOnDuty
	offDuty := models.EmtOffDuty

	users := []models.User{
		{ID: 1, Username: "dispatch_ana", Role: models.RoleDispatcher},
		{ID: 2, Username: "emt_alex", Role: models.RoleEMT, TeamID: intPtr(1), Status: &onDuty},
		{ID: 3, Username: "emt_jordan", Role: models.RoleEMT, TeamID: intPtr(1), Status: &onDuty},
		{ID: 4, Username: "emt_sam", Role: models.RoleEMT, TeamID: intPtr(2), Status: &onDuty},
		{ID: 5, Username: "emt_casey", Role: models.RoleEMT, TeamID: intPtr(2), Status: &offDuty},
		{ID: 6, Username: "emt_riley", Role: models.RoleEMT, TeamID: intPtr(3), Status: &onDuty},
		{ID: 7, Username: "emt_morgan", Role: models.RoleEMT, Status: &offDuty},
		{ID: 8, Username: "super_lee", Role: models.RoleSupervisor},
		{ID: 9, Username: "coo_patel", Role: models.RoleCOO},
		{ID: 10, Username: "admin", Role: models.RoleAdmin},
	}

	teams := []models.Team{
		{ID: 1, Name: "Medic 1", Grade: models.GradeALS, BaseStation: "Station 1", Status: models.TeamAvailable},
		{ID: 2, Name: "Medic 2", Grade: models.GradeBLS, BaseStation: "Station 2", Status: models.TeamDispatched},
		{ID: 3, Name: "Rescue 3", Grade: models.GradeALS, BaseStation: "Station 3", Status: models.TeamAvailable},
	}

	at := func(d time.Duration) *time.Time {
		t := now.Add(-d)
		return &t
	}
	calls := []models.EmergencyCall{
		{
			ID:                2,
			Timestamp:         *at(25 * time.Minute),
			CallerName:        "Maria Gomez",
			Phone:             "555-0142",
			Location:          "1200 Harbor Blvd",
			Landmark:          "Across from the marina",
			Description:       "Elderly man fell down the stairs, conscious, possible broken hip",
			Priority:          2,
			Status:            models.CallDispatched,
			AssignedTeamID:    intPtr(2),
			DispatchTimestamp: at(22 * time.Minute),
		},
		{
			ID:                 1,
			Timestamp:          *at(3 * time.Hour),
			CallerName:         "Tom Becker",
			Phone:              "555-0199",
			Location:           "48 Elm Street",
			Description:        "Adult female with chest pain and shortness of breath",
			Priority:           1,
			Status:             models.CallCompleted,
			AssignedTeamID:     intPtr(1),
			DispatchTimestamp:  at(3*time.Hour - 2*time.Minute),
			OnSceneTimestamp:   at(3*time.Hour - 11*time.Minute),
			CompletedTimestamp: at(2 * time.Hour),
		},
	}

	schedule := make(models.Schedule, 0, len(models.Weekdays))
	for i, day := range models.Weekdays {
		schedule = append(schedule, models.DaySchedule{
			Day: day,
			Shifts: models.Shifts{
				DayShift:   models.Shift{TeamID: intPtr(i%3 + 1)},
				NightShift: models.Shift{TeamID: intPtr((i+1)%3 + 1)},
			},
		})
	}

	audit := RecordAudit(nil, SystemActor, ActionSystemInitialized, "Seed data loaded", now)

	return State{
		Users:    users,
		Teams:    SyncMembers(users, teams),
		Calls:    calls,
		PCRs:     []models.PatientCareRecord{},
		Schedule: schedule,
		AuditLog: audit,
		Online:   true,
	}
}
