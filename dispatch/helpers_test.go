package dispatch_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/pulsepoint/eris-api/dispatch"
	"github.com/pulsepoint/eris-api/models"
)

var t0 = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

type fakeTimer struct {
	at      time.Time
	f       func()
	stopped bool
	fired   bool
}

func (t *fakeTimer) Stop() bool {
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

// fakeClock only moves when Advance is called and fires due timers inline
type fakeClock struct {
	now    time.Time
	timers []*fakeTimer
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: t0}
}

func (c *fakeClock) Now() time.Time {
	return c.now
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) dispatch.Timer {
	t := &fakeTimer{at: c.now.Add(d), f: f}
	c.timers = append(c.timers, t)
	return t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
	for i := 0; i < len(c.timers); i++ {
		t := c.timers[i]
		if !t.stopped && !t.fired && !t.at.After(c.now) {
			t.fired = true
			t.f()
		}
	}
}

func ptr(i int) *int {
	return &i
}

func emtStatus(s models.EmtStatus) *models.EmtStatus {
	return &s
}

// fixture has a dispatcher, four EMTs on teams 1 and 2 or unassigned, and
// three available teams, 1, 2 and 7
func fixture() dispatch.State {
	users := []models.User{
		{ID: 1, Username: "dana", Role: models.RoleDispatcher},
		{ID: 2, Username: "eli", Role: models.RoleEMT, TeamID: ptr(1), Status: emtStatus(models.EmtOnDuty)},
		{ID: 3, Username: "fay", Role: models.RoleEMT, TeamID: ptr(1), Status: emtStatus(models.EmtOnDuty)},
		{ID: 4, Username: "gus", Role: models.RoleEMT, TeamID: ptr(2), Status: emtStatus(models.EmtOnDuty)},
		{ID: 5, Username: "hal", Role: models.RoleEMT, Status: emtStatus(models.EmtOffDuty)},
		{ID: 6, Username: "ivy", Role: models.RoleSupervisor},
	}
	teams := []models.Team{
		{ID: 1, Name: "Medic 1", Grade: models.GradeALS, BaseStation: "Station 1", Status: models.TeamAvailable},
		{ID: 2, Name: "Medic 2", Grade: models.GradeBLS, BaseStation: "Station 2", Status: models.TeamAvailable},
		{ID: 7, Name: "Medic 7", Grade: models.GradeALS, BaseStation: "Station 7", Status: models.TeamAvailable},
	}
	return dispatch.State{
		Users:  users,
		Teams:  dispatch.SyncMembers(users, teams),
		Online: true,
	}
}

func newTestEngine(s dispatch.State, opts ...dispatch.Option) (*dispatch.Engine, *fakeClock) {
	clock := newFakeClock()
	opts = append([]dispatch.Option{
		dispatch.WithClock(clock),
		dispatch.WithLogger(nopLogger()),
	}, opts...)
	return dispatch.NewEngine(s, opts...), clock
}

// assertRosterConsistent checks that every member list equals the users
// pointing at the team, that every team reference resolves, and that no user
// is listed twice
func assertRosterConsistent(t *testing.T, s dispatch.State) {
	t.Helper()

	teamIDs := map[int]bool{}
	for _, team := range s.Teams {
		teamIDs[team.ID] = true
	}

	listed := map[int]int{}
	for _, team := range s.Teams {
		var want []int
		for _, u := range s.Users {
			if u.InTeam(team.ID) {
				want = append(want, u.ID)
			}
		}
		got := team.MemberIDs()
		if len(want) == 0 {
			assert.Empty(t, got, "team %d members", team.ID)
		} else {
			assert.ElementsMatch(t, want, got, "team %d members", team.ID)
		}
		for _, id := range got {
			listed[id]++
		}
	}

	for id, n := range listed {
		assert.Equal(t, 1, n, "user %d listed in %d teams", id, n)
	}
	for _, u := range s.Users {
		if u.TeamID != nil {
			assert.True(t, teamIDs[*u.TeamID], "user %d references missing team %d", u.ID, *u.TeamID)
		}
	}
}

func actions(entries []models.AuditLogEntry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Action
	}
	return out
}

// capturingClock hands every scheduled function to the test instead of
// running it, so a timer can be fired after it was stopped
type capturingClock struct {
	*fakeClock
	captured *[]func()
}

func (c *capturingClock) AfterFunc(d time.Duration, f func()) dispatch.Timer {
	*c.captured = append(*c.captured, f)
	return &fakeTimer{at: c.now.Add(d)}
}

func nopLogger() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}
