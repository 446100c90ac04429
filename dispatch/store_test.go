package dispatch_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pulsepoint/eris-api/dispatch"
	"github.com/pulsepoint/eris-api/models"
)

type mapGateway struct {
	values  map[string][]byte
	loadErr error
	saveErr map[string]error
}

func newMapGateway() *mapGateway {
	return &mapGateway{values: map[string][]byte{}, saveErr: map[string]error{}}
}

func (g *mapGateway) Load(_ context.Context, key string) ([]byte, bool, error) {
	if g.loadErr != nil {
		return nil, false, g.loadErr
	}
	v, ok := g.values[key]
	return v, ok, nil
}

func (g *mapGateway) Save(_ context.Context, key string, value []byte) error {
	if err := g.saveErr[key]; err != nil {
		return err
	}
	g.values[key] = value
	return nil
}

func TestLoadStateEmptyStoreUsesSeed(t *testing.T) {
	s, err := dispatch.LoadState(context.Background(), newMapGateway(), t0)
	require.NoError(t, err)

	seed := dispatch.Seed(t0)
	assert.Equal(t, len(seed.Users), len(s.Users))
	assert.Equal(t, len(seed.Calls), len(s.Calls))
	assert.True(t, s.Online)
	assertRosterConsistent(t, s)
}

func TestLoadStateFillsOnlyMissingKeys(t *testing.T) {
	gw := newMapGateway()
	gw.values[dispatch.CallsKey] = []byte(`[{"id":5,"timestamp":"2026-02-28T08:15:00.000Z","location":"Quay 1","priority":2,"status":"Pending"}]`)
	gw.values[dispatch.DarkModeKey] = []byte(`true`)

	s, err := dispatch.LoadState(context.Background(), gw, t0)
	require.NoError(t, err)

	require.Len(t, s.Calls, 1)
	assert.Equal(t, time.Date(2026, 2, 28, 8, 15, 0, 0, time.UTC), s.Calls[0].Timestamp.UTC())
	assert.Nil(t, s.Calls[0].AssignedTeamID)
	assert.True(t, s.DarkMode)
	assert.Equal(t, dispatch.Seed(t0).Users, s.Users)
	assert.NotNil(t, s.PCRs)
}

func TestLoadStateCorruptKeyFallsBackToSeed(t *testing.T) {
	gw := newMapGateway()
	gw.values[dispatch.CallsKey] = []byte(`[]`)
	gw.values[dispatch.TeamsKey] = []byte(`{not json`)

	s, err := dispatch.LoadState(context.Background(), gw, t0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), dispatch.TeamsKey)
	assert.Equal(t, dispatch.Seed(t0), s)
}

func TestLoadStateGatewayErrorFallsBackToSeed(t *testing.T) {
	gw := newMapGateway()
	gw.loadErr = errors.New("connection refused")

	s, err := dispatch.LoadState(context.Background(), gw, t0)
	require.Error(t, err)
	assert.Equal(t, dispatch.Seed(t0), s)
}

func TestLoadStateUnassignedSentinel(t *testing.T) {
	gw := newMapGateway()
	gw.values[dispatch.UsersKey] = []byte(`[
		{"id":1,"username":"a","role":"EMT","teamId":null,"status":"On Duty"},
		{"id":2,"username":"b","role":"EMT","status":"On Duty"},
		{"id":3,"username":"c","role":"EMT","teamId":1,"status":"On Duty"}
	]`)
	gw.values[dispatch.TeamsKey] = []byte(`[{"id":1,"name":"One","grade":"ALS","baseStation":"S1","status":"Available","members":[]}]`)

	s, err := dispatch.LoadState(context.Background(), gw, t0)
	require.NoError(t, err)

	a, _ := s.UserByID(1)
	b, _ := s.UserByID(2)
	assert.Nil(t, a.TeamID)
	assert.Nil(t, b.TeamID)
	team, _ := s.TeamByID(1)
	assert.Equal(t, []int{3}, team.MemberIDs())
}

func TestLoadStateRehydratesMembers(t *testing.T) {
	gw := newMapGateway()
	gw.values[dispatch.UsersKey] = []byte(`[
		{"id":1,"username":"a","role":"EMT","status":"On Duty"},
		{"id":2,"username":"b","role":"EMT","teamId":9,"status":"On Duty"},
		{"id":3,"username":"c","role":"EMT","teamId":1,"status":"On Duty"},
		{"id":4,"username":"d","role":"EMT","teamId":null,"status":"On Duty"}
	]`)
	gw.values[dispatch.TeamsKey] = []byte(`[{"id":1,"name":"One","grade":"ALS","baseStation":"S1","status":"Available","members":[{"id":1},{"id":4},{"id":44}]}]`)

	s, err := dispatch.LoadState(context.Background(), gw, t0)
	require.NoError(t, err)

	// stored member lists never assign a team
	a, _ := s.UserByID(1)
	b, _ := s.UserByID(2)
	d, _ := s.UserByID(4)
	assert.Nil(t, a.TeamID)
	assert.Nil(t, b.TeamID)
	assert.Nil(t, d.TeamID)
	team, _ := s.TeamByID(1)
	assert.Equal(t, []int{3}, team.MemberIDs())
	assert.Equal(t, "c", team.Members[0].Username)
}

func TestSaveStateRoundTrip(t *testing.T) {
	gw := newMapGateway()
	e, _ := newTestEngine(fixture())
	_, _, err := e.LogCall("dana", models.CallInput{Location: "Mill Rd", Priority: 1})
	require.NoError(t, err)
	_, err = e.AssignTeam("dana", 1, 2)
	require.NoError(t, err)
	saved := e.Snapshot()

	require.NoError(t, dispatch.SaveState(context.Background(), gw, saved))
	for _, key := range dispatch.Keys {
		assert.Contains(t, gw.values, key)
	}
	var users []map[string]interface{}
	require.NoError(t, json.Unmarshal(gw.values[dispatch.UsersKey], &users))
	assert.NotContains(t, users[0], "teamId")

	loaded, err := dispatch.LoadState(context.Background(), gw, t0.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, saved.Calls[0].ID, loaded.Calls[0].ID)
	assert.Equal(t, saved.AuditLog[0].Action, loaded.AuditLog[0].Action)
	assert.Equal(t, saved.Users, loaded.Users)
	assertRosterConsistent(t, loaded)
}

func TestSaveStateJoinsErrors(t *testing.T) {
	gw := newMapGateway()
	gw.saveErr[dispatch.CallsKey] = errors.New("disk full")
	gw.saveErr[dispatch.PCRsKey] = errors.New("disk full")

	err := dispatch.SaveState(context.Background(), gw, fixture())
	require.Error(t, err)
	assert.Contains(t, err.Error(), dispatch.CallsKey)
	assert.Contains(t, err.Error(), dispatch.PCRsKey)
	assert.Contains(t, gw.values, dispatch.UsersKey)
	assert.Contains(t, gw.values, dispatch.DarkModeKey)
}

func TestPersistHookSavesEveryCommit(t *testing.T) {
	gw := newMapGateway()
	e, _ := newTestEngine(fixture(), dispatch.WithCommitHook(dispatch.PersistHook(gw, time.Second)))

	_, _, err := e.LogCall("dana", models.CallInput{Location: "Mill Rd"})
	require.NoError(t, err)

	var calls []models.EmergencyCall
	require.NoError(t, json.Unmarshal(gw.values[dispatch.CallsKey], &calls))
	require.Len(t, calls, 1)
	assert.Equal(t, "Mill Rd", calls[0].Location)
}
