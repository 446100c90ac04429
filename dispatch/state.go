package dispatch

import "github.com/pulsepoint/eris-api/models"

// State is the aggregate the engine owns. Every command produces a new State;
// collections are replaced as a whole and never edited in place, so a State
// handed out to a reader stays consistent while later commands run.
type State struct {
	Users    []models.User              `json:"users"`
	Teams    []models.Team              `json:"teams"`
	Calls    []models.EmergencyCall     `json:"calls"`
	PCRs     []models.PatientCareRecord `json:"pcrs"`
	Schedule models.Schedule            `json:"schedule"`
	AuditLog []models.AuditLogEntry     `json:"auditLog"`
	Online   bool                       `json:"online"`
	DarkMode bool                       `json:"darkMode"`
}

// Clone returns a copy of s that shares no slices with it
func (s State) Clone() State {
	c := s
	c.Users = append([]models.User(nil), s.Users...)
	c.Calls = append([]models.EmergencyCall(nil), s.Calls...)
	c.PCRs = append([]models.PatientCareRecord(nil), s.PCRs...)
	c.Schedule = append(models.Schedule(nil), s.Schedule...)
	c.AuditLog = append([]models.AuditLogEntry(nil), s.AuditLog...)
	c.Teams = make([]models.Team, len(s.Teams))
	for i, t := range s.Teams {
		t.Members = append([]models.User(nil), t.Members...)
		c.Teams[i] = t
	}
	return c
}

// CallByID returns the call with the given id
func (s State) CallByID(id int) (models.EmergencyCall, bool) {
	if i := indexOfCall(s.Calls, id); i >= 0 {
		return s.Calls[i], true
	}
	return models.EmergencyCall{}, false
}

// TeamByID returns the team with the given id
func (s State) TeamByID(id int) (models.Team, bool) {
	if i := indexOfTeam(s.Teams, id); i >= 0 {
		return s.Teams[i], true
	}
	return models.Team{}, false
}

// UserByID returns the user with the given id
func (s State) UserByID(id int) (models.User, bool) {
	if i := indexOfUser(s.Users, id); i >= 0 {
		return s.Users[i], true
	}
	return models.User{}, false
}

// UserByUsername returns the user signed up under username
func (s State) UserByUsername(username string) (models.User, bool) {
	for _, u := range s.Users {
		if u.Username == username {
			return u, true
		}
	}
	return models.User{}, false
}

// AvailableTeams returns the teams free for a new dispatch
func (s State) AvailableTeams() []models.Team {
	var teams []models.Team
	for _, t := range s.Teams {
		if t.Status == models.TeamAvailable {
			teams = append(teams, t)
		}
	}
	return teams
}

// ActiveCallForTeam returns the open call assigned to teamID, if any
func (s State) ActiveCallForTeam(teamID int) (models.EmergencyCall, bool) {
	for _, c := range s.Calls {
		if c.Open() && c.AssignedTeamID != nil && *c.AssignedTeamID == teamID {
			return c, true
		}
	}
	return models.EmergencyCall{}, false
}

// PCRForCall returns the care record filed for callID, if any
func (s State) PCRForCall(callID int) (models.PatientCareRecord, bool) {
	for _, p := range s.PCRs {
		if p.CallID == callID {
			return p, true
		}
	}
	return models.PatientCareRecord{}, false
}

// UnsyncedPCRs counts the care records still waiting for reconciliation
func (s State) UnsyncedPCRs() int {
	n := 0
	for _, p := range s.PCRs {
		if !p.IsSynced {
			n++
		}
	}
	return n
}
