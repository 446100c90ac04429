package dispatch_test

import (
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pulsepoint/eris-api/dispatch"
	"github.com/pulsepoint/eris-api/models"
)

func TestLogCallAndAssignTeam(t *testing.T) {
	e, _ := newTestEngine(fixture())

	call, s, err := e.LogCall("dana", models.CallInput{Location: "5th & Main", Priority: 1})
	require.NoError(t, err)
	assert.Equal(t, 1, call.ID)
	assert.Equal(t, models.CallPending, call.Status)
	assert.Equal(t, t0, call.Timestamp)
	assert.Nil(t, call.AssignedTeamID)
	require.Len(t, s.AuditLog, 1)
	assert.Equal(t, "ID: 1, Loc: 5th & Main", s.AuditLog[0].Details)

	s, err = e.AssignTeam("dana", 1, 7)
	require.NoError(t, err)

	got, ok := s.CallByID(1)
	require.True(t, ok)
	assert.Equal(t, models.CallDispatched, got.Status)
	assert.Equal(t, 7, *got.AssignedTeamID)
	team7, _ := s.TeamByID(7)
	assert.Equal(t, models.TeamDispatched, team7.Status)
	require.Len(t, s.AuditLog, 2)
	assert.Equal(t, dispatch.ActionTeamAssigned, s.AuditLog[0].Action)
	assert.Equal(t, dispatch.ActionCallLogged, s.AuditLog[1].Action)
}

func TestLogCallDefaultsAndValidation(t *testing.T) {
	e, _ := newTestEngine(fixture())

	call, _, err := e.LogCall("dana", models.CallInput{Location: "Pier 9"})
	require.NoError(t, err)
	assert.Equal(t, models.PriorityDefault, call.Priority)

	second, s, err := e.LogCall("dana", models.CallInput{Location: "Dock 2", Priority: 2})
	require.NoError(t, err)
	assert.Equal(t, 2, second.ID)
	assert.Equal(t, 2, s.Calls[0].ID, "newest call first")

	_, s, err = e.LogCall("dana", models.CallInput{Location: "  "})
	assert.ErrorIs(t, err, dispatch.ErrInvalidInput)
	_, _, err = e.LogCall("dana", models.CallInput{Location: "Dock 3", Priority: 9})
	assert.ErrorIs(t, err, dispatch.ErrInvalidInput)
	assert.Len(t, s.AuditLog, 2)
	assert.Len(t, e.Snapshot().Calls, 2)
}

func TestCallLifecycleReleasesTeam(t *testing.T) {
	e, clock := newTestEngine(fixture())

	_, _, err := e.LogCall("dana", models.CallInput{Location: "Route 6", Priority: 2})
	require.NoError(t, err)
	clock.Advance(time.Minute)
	_, err = e.AssignTeam("dana", 1, 7)
	require.NoError(t, err)

	for _, status := range []models.CallStatus{models.CallOnScene, models.CallTransporting, models.CallCompleted} {
		clock.Advance(4 * time.Minute)
		_, err = e.UpdateCallStatus("dana", 1, status, ptr(7))
		require.NoError(t, err, status)
	}

	s := e.Snapshot()
	team7, _ := s.TeamByID(7)
	assert.Equal(t, models.TeamAvailable, team7.Status)

	call, _ := s.CallByID(1)
	require.NotNil(t, call.DispatchTimestamp)
	require.NotNil(t, call.OnSceneTimestamp)
	require.NotNil(t, call.CompletedTimestamp)
	assert.False(t, call.DispatchTimestamp.Before(call.Timestamp))
	assert.False(t, call.OnSceneTimestamp.Before(*call.DispatchTimestamp))
	assert.False(t, call.CompletedTimestamp.Before(*call.OnSceneTimestamp))

	// create, assign, then a call and a team entry per status
	assert.Len(t, s.AuditLog, 8)
}

func TestUpdateCallStatusUsesAssignedTeam(t *testing.T) {
	e, _ := newTestEngine(fixture())
	_, _, err := e.LogCall("dana", models.CallInput{Location: "Mill Rd"})
	require.NoError(t, err)
	_, err = e.AssignTeam("dana", 1, 2)
	require.NoError(t, err)

	s, err := e.UpdateCallStatus("dana", 1, models.CallOnScene, nil)
	require.NoError(t, err)
	team2, _ := s.TeamByID(2)
	assert.Equal(t, models.TeamOnScene, team2.Status)
	assert.Equal(t, []string{dispatch.ActionTeamStatusUpdated, dispatch.ActionCallStatusUpdated}, actions(s.AuditLog[:2]))
}

func TestUpdateCallStatusCancelledLeavesTeam(t *testing.T) {
	e, _ := newTestEngine(fixture())
	_, _, err := e.LogCall("dana", models.CallInput{Location: "Mill Rd"})
	require.NoError(t, err)
	_, err = e.AssignTeam("dana", 1, 2)
	require.NoError(t, err)

	s, err := e.UpdateCallStatus("dana", 1, models.CallCancelled, nil)
	require.NoError(t, err)
	team2, _ := s.TeamByID(2)
	assert.Equal(t, models.TeamDispatched, team2.Status)
	assert.Equal(t, dispatch.ActionCallStatusUpdated, s.AuditLog[0].Action)
	assert.Len(t, s.AuditLog, 3)
}

func TestRejectedCommandsLeaveNoTrace(t *testing.T) {
	e, _ := newTestEngine(fixture())
	_, _, err := e.LogCall("dana", models.CallInput{Location: "Mill Rd"})
	require.NoError(t, err)
	before := e.Snapshot()

	_, err = e.UpdateCallStatus("dana", 99, models.CallOnScene, nil)
	assert.ErrorIs(t, err, dispatch.ErrNotFound)
	_, err = e.UpdateCallStatus("dana", 1, models.CallOnScene, ptr(99))
	assert.ErrorIs(t, err, dispatch.ErrNotFound)
	_, err = e.AssignTeam("dana", 1, 99)
	assert.ErrorIs(t, err, dispatch.ErrNotFound)
	_, err = e.AssignTeam("dana", 99, 1)
	assert.ErrorIs(t, err, dispatch.ErrNotFound)
	_, err = e.UpdateTeamStatus("ivy", 99, models.TeamAvailable)
	assert.ErrorIs(t, err, dispatch.ErrNotFound)
	_, err = e.AssignUserToTeam("ivy", 99, ptr(1))
	assert.ErrorIs(t, err, dispatch.ErrNotFound)
	_, err = e.UpdateUserStatus("ivy", 1, models.EmtOnDuty)
	assert.ErrorIs(t, err, dispatch.ErrInvalidInput)
	assert.Equal(t, before, e.Snapshot())

	_, err = e.UpdateCallStatus("dana", 1, models.CallCompleted, nil)
	require.NoError(t, err)
	before = e.Snapshot()
	_, err = e.UpdateCallStatus("dana", 1, models.CallOnScene, nil)
	assert.ErrorIs(t, err, dispatch.ErrInvalidTransition)

	assert.Equal(t, before, e.Snapshot())
}

func TestFilePCR(t *testing.T) {
	e, _ := newTestEngine(fixture())
	_, _, err := e.LogCall("dana", models.CallInput{Location: "Mill Rd"})
	require.NoError(t, err)

	pcr, s, err := e.FilePCR("eli", 1, models.PCRInput{PatientVitals: "BP 120/80", TransferDestination: "General"})
	require.NoError(t, err)
	assert.Equal(t, 1, pcr.ID)
	assert.True(t, pcr.IsSynced)
	call, _ := s.CallByID(1)
	assert.Equal(t, 1, *call.PCRID)
	assert.Equal(t, "Call ID: 1", s.AuditLog[0].Details)

	_, _, err = e.FilePCR("eli", 1, models.PCRInput{PatientVitals: "again"})
	assert.ErrorIs(t, err, dispatch.ErrDuplicateFiling)
	_, _, err = e.FilePCR("eli", 42, models.PCRInput{})
	assert.ErrorIs(t, err, dispatch.ErrNotFound)
	assert.Len(t, e.Snapshot().PCRs, 1)
}

func TestUpdateTeamMovesMember(t *testing.T) {
	e, _ := newTestEngine(fixture())

	s, err := e.UpdateTeam("ivy", models.TeamUpdate{ID: 2, MemberIDs: []int{4, 3}})
	require.NoError(t, err)

	team1, _ := s.TeamByID(1)
	team2, _ := s.TeamByID(2)
	user3, _ := s.UserByID(3)
	assert.NotContains(t, team1.MemberIDs(), 3)
	assert.Contains(t, team2.MemberIDs(), 3)
	assert.Equal(t, 2, *user3.TeamID)
	require.Len(t, s.AuditLog, 1)
	assert.Equal(t, dispatch.ActionTeamUpdated, s.AuditLog[0].Action)
	assertRosterConsistent(t, s)
}

func TestUserCommands(t *testing.T) {
	e, _ := newTestEngine(fixture())

	s, err := e.AssignUserToTeam("ivy", 5, ptr(7))
	require.NoError(t, err)
	team7, _ := s.TeamByID(7)
	assert.Equal(t, []int{5}, team7.MemberIDs())
	assert.Equal(t, dispatch.ActionUserAssigned, s.AuditLog[0].Action)

	s, err = e.UpdateUserStatus("ivy", 5, models.EmtOnBreak)
	require.NoError(t, err)
	team7, _ = s.TeamByID(7)
	assert.Equal(t, models.EmtOnBreak, *team7.Members[0].Status)

	s, err = e.AssignUserToTeam("ivy", 5, nil)
	require.NoError(t, err)
	team7, _ = s.TeamByID(7)
	assert.Empty(t, team7.Members)
	assert.Equal(t, dispatch.ActionUserUnassigned, s.AuditLog[0].Action)
	assertRosterConsistent(t, s)
}

func TestSignUpLoginLogout(t *testing.T) {
	e, _ := newTestEngine(fixture())

	user, s, err := e.SignUp(models.SignUpInput{Username: "joy", Role: models.RoleEMT, TeamID: ptr(2)})
	require.NoError(t, err)
	assert.Equal(t, 7, user.ID)
	assert.Equal(t, models.EmtOffDuty, *user.Status)
	team2, _ := s.TeamByID(2)
	assert.Contains(t, team2.MemberIDs(), 7)
	assert.Equal(t, "joy", s.AuditLog[0].User)

	_, _, err = e.SignUp(models.SignUpInput{Username: "joy", Role: models.RoleDispatcher})
	assert.ErrorIs(t, err, dispatch.ErrUsernameTaken)
	_, _, err = e.SignUp(models.SignUpInput{Username: "kai", Role: "Pilot"})
	assert.ErrorIs(t, err, dispatch.ErrInvalidInput)
	_, _, err = e.SignUp(models.SignUpInput{Username: "kai", Role: models.RoleEMT, TeamID: ptr(99)})
	assert.ErrorIs(t, err, dispatch.ErrNotFound)

	dana, s, err := e.Login("dana")
	require.NoError(t, err)
	assert.Equal(t, models.RoleDispatcher, dana.Role)
	assert.Equal(t, dispatch.ActionUserLogin, s.AuditLog[0].Action)
	_, _, err = e.Login("nobody")
	assert.ErrorIs(t, err, dispatch.ErrNotFound)

	s, err = e.Logout("dana")
	require.NoError(t, err)
	assert.Equal(t, dispatch.ActionUserLogout, s.AuditLog[0].Action)
}

func TestScheduleBackupAndDarkMode(t *testing.T) {
	e, _ := newTestEngine(fixture())

	schedule := models.Schedule{{Day: models.Monday, Shifts: models.Shifts{DayShift: models.Shift{TeamID: ptr(1)}}}}
	s, err := e.UpdateSchedule("ivy", schedule)
	require.NoError(t, err)
	assert.Equal(t, schedule, s.Schedule)

	s, err = e.Backup("ivy")
	require.NoError(t, err)
	assert.Equal(t, dispatch.ActionBackup, s.AuditLog[0].Action)

	s, err = e.SetDarkMode(true)
	require.NoError(t, err)
	assert.True(t, s.DarkMode)
	assert.Len(t, s.AuditLog, 2)
}

func TestCommitHooksRunInOrder(t *testing.T) {
	var commands []string
	var entries [][]string
	e, _ := newTestEngine(fixture(), dispatch.WithCommitHook(func(c dispatch.Commit) {
		commands = append(commands, c.Command)
		entries = append(entries, actions(c.Entries))
	}))

	_, _, err := e.LogCall("dana", models.CallInput{Location: "Mill Rd"})
	require.NoError(t, err)
	_, err = e.AssignTeam("dana", 99, 1)
	require.Error(t, err)
	_, err = e.AssignTeam("dana", 1, 1)
	require.NoError(t, err)
	_, err = e.UpdateCallStatus("dana", 1, models.CallOnScene, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"LogCall", "AssignTeam", "UpdateCallStatus"}, commands)
	assert.Equal(t, []string{dispatch.ActionCallStatusUpdated, dispatch.ActionTeamStatusUpdated}, entries[2])
}

func TestSnapshotIsIsolated(t *testing.T) {
	e, _ := newTestEngine(fixture())
	s := e.Snapshot()
	s.Teams[0].Members[0].Username = "mallory"
	s.Users[0].Username = "mallory"

	fresh := e.Snapshot()
	assert.Equal(t, "dana", fresh.Users[0].Username)
	assert.Equal(t, "eli", fresh.Teams[0].Members[0].Username)
}

func TestRandomCommandsKeepInvariants(t *testing.T) {
	e, clock := newTestEngine(fixture())
	rng := rand.New(rand.NewSource(7))
	statuses := []models.CallStatus{
		models.CallPending, models.CallDispatched, models.CallOnScene,
		models.CallTransporting, models.CallCompleted, models.CallCancelled,
	}
	teamIDs := []int{1, 2, 7, 9}

	for i := 0; i < 400; i++ {
		clock.Advance(time.Duration(rng.Intn(90)) * time.Second)
		before := e.Snapshot()

		var s dispatch.State
		var err error
		switch rng.Intn(7) {
		case 0:
			_, s, err = e.LogCall("dana", models.CallInput{Location: "Somewhere", Priority: models.Priority(rng.Intn(4) + 1)})
		case 1:
			s, err = e.AssignTeam("dana", rng.Intn(6)+1, teamIDs[rng.Intn(len(teamIDs))])
		case 2:
			s, err = e.UpdateCallStatus("dana", rng.Intn(6)+1, statuses[rng.Intn(len(statuses))], nil)
		case 3:
			_, s, err = e.FilePCR("eli", rng.Intn(6)+1, models.PCRInput{Notes: "n"})
		case 4:
			members := []int{rng.Intn(7) + 1, rng.Intn(7) + 1}
			s, err = e.UpdateTeam("ivy", models.TeamUpdate{ID: teamIDs[rng.Intn(len(teamIDs))], MemberIDs: members})
		case 5:
			var team *int
			if rng.Intn(3) > 0 {
				team = ptr(teamIDs[rng.Intn(len(teamIDs))])
			}
			s, err = e.AssignUserToTeam("ivy", rng.Intn(7)+1, team)
		case 6:
			s = e.SetConnectivity(rng.Intn(2) == 0)
		}

		if err != nil {
			assert.Equal(t, before, s, "step %d rejected command changed state", i)
			continue
		}
		assertRosterConsistent(t, s)
		assert.GreaterOrEqual(t, len(s.AuditLog), len(before.AuditLog))
		for j := 1; j < len(s.AuditLog); j++ {
			assert.Greater(t, s.AuditLog[j-1].ID, s.AuditLog[j].ID)
			assert.False(t, s.AuditLog[j-1].Timestamp.Before(s.AuditLog[j].Timestamp))
		}
		for _, c := range s.Calls {
			if c.DispatchTimestamp != nil {
				assert.False(t, c.DispatchTimestamp.Before(c.Timestamp))
			}
			if c.OnSceneTimestamp != nil && c.DispatchTimestamp != nil {
				assert.False(t, c.OnSceneTimestamp.Before(*c.DispatchTimestamp))
			}
		}
	}
}

func TestReadHoldsCommands(t *testing.T) {
	e, _ := newTestEngine(fixture())

	entered := make(chan struct{})
	release := make(chan struct{})
	read := make(chan error, 1)
	go func() {
		read <- e.Read(func(s dispatch.State) error {
			close(entered)
			<-release
			assert.Empty(t, s.Calls)
			return errors.New("store down")
		})
	}()
	<-entered

	logged := make(chan struct{})
	go func() {
		_, _, err := e.LogCall("dana", models.CallInput{Location: "5th & Main"})
		assert.NoError(t, err)
		close(logged)
	}()

	select {
	case <-logged:
		t.Fatal("command committed while the state was being read")
	case <-time.After(50 * time.Millisecond):
	}
	close(release)

	assert.EqualError(t, <-read, "store down")
	<-logged
	assert.Len(t, e.Snapshot().Calls, 1)
}
