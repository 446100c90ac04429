package handlers_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pulsepoint/eris-api/api/handlers"
	th "github.com/pulsepoint/eris-api/api/testhelpers"
	"github.com/pulsepoint/eris-api/dispatch"
	"github.com/pulsepoint/eris-api/models"
)

type fixedAdvisor struct {
	priority models.Priority
	ok       bool
	calls    int
}

func (f *fixedAdvisor) Suggest(context.Context, string) (models.Priority, bool) {
	f.calls++
	return f.priority, f.ok
}

func teamByID(t *testing.T, a *handlers.App, id int) models.Team {
	t.Helper()
	team, ok := a.Engine.Snapshot().TeamByID(id)
	require.True(t, ok)
	return team
}

func TestCallLifecycle(t *testing.T) {
	a := th.NewApp(t)
	dispatcher := th.Token(t, a.Router, "dispatch_ana")
	emt := th.Token(t, a.Router, "emt_riley")

	rr := th.Do(t, a.Router, http.MethodPost, "/api/v1/calls", dispatcher, models.CallInput{
		CallerName:  "Jane Doe",
		Phone:       "555-0100",
		Location:    "77 Pine Ave",
		Description: "Cyclist struck by car, conscious",
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var call models.EmergencyCall
	th.Decode(t, rr, &call)
	assert.Equal(t, 3, call.ID)
	assert.Equal(t, models.PriorityDefault, call.Priority)
	assert.Equal(t, models.CallPending, call.Status)

	rr = th.Do(t, a.Router, http.MethodPut, "/api/v1/call/3/assign", dispatcher, handlers.AssignRequest{TeamID: 3})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	th.Decode(t, rr, &call)
	assert.Equal(t, models.CallDispatched, call.Status)
	require.NotNil(t, call.AssignedTeamID)
	assert.Equal(t, 3, *call.AssignedTeamID)
	assert.NotNil(t, call.DispatchTimestamp)
	assert.Equal(t, models.TeamDispatched, teamByID(t, a, 3).Status)

	rr = th.Do(t, a.Router, http.MethodPut, "/api/v1/call/3/status", emt, handlers.StatusRequest{Status: models.CallOnScene})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	th.Decode(t, rr, &call)
	assert.Equal(t, models.CallOnScene, call.Status)
	assert.Equal(t, models.TeamOnScene, teamByID(t, a, 3).Status)

	rr = th.Do(t, a.Router, http.MethodGet, "/api/v1/team/3/active-call", emt, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	th.Decode(t, rr, &call)
	assert.Equal(t, 3, call.ID)

	rr = th.Do(t, a.Router, http.MethodPut, "/api/v1/call/3/status", emt, handlers.StatusRequest{Status: models.CallDispatched})
	assert.Equal(t, http.StatusConflict, rr.Code)

	rr = th.Do(t, a.Router, http.MethodPut, "/api/v1/call/3/status", emt, handlers.StatusRequest{Status: models.CallCompleted})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, models.TeamAvailable, teamByID(t, a, 3).Status)

	rr = th.Do(t, a.Router, http.MethodGet, "/api/v1/team/3/active-call", emt, nil)
	assert.Equal(t, http.StatusNoContent, rr.Code)
}

func TestCallByIDHandler(t *testing.T) {
	a := th.NewApp(t)
	token := th.Token(t, a.Router, "coo_patel")

	rr := th.Do(t, a.Router, http.MethodGet, "/api/v1/call/2", token, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var detail handlers.CallDetail
	th.Decode(t, rr, &detail)
	assert.Equal(t, 2, detail.Call.ID)
	require.NotNil(t, detail.Team)
	assert.Equal(t, "Medic 2", detail.Team.Name)
	assert.Nil(t, detail.PCR)

	rr = th.Do(t, a.Router, http.MethodGet, "/api/v1/call/99", token, nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = th.Do(t, a.Router, http.MethodGet, "/api/v1/call/abc", token, nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "invalid call_id", th.ErrorMessage(t, rr))
}

func TestCallsHandlerFilters(t *testing.T) {
	a := th.NewApp(t)
	token := th.Token(t, a.Router, "dispatch_ana")

	var calls []models.EmergencyCall
	rr := th.Do(t, a.Router, http.MethodGet, "/api/v1/calls", token, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	th.Decode(t, rr, &calls)
	assert.Len(t, calls, 2)

	rr = th.Do(t, a.Router, http.MethodGet, "/api/v1/calls?open=true", token, nil)
	th.Decode(t, rr, &calls)
	require.Len(t, calls, 1)
	assert.Equal(t, 2, calls[0].ID)

	rr = th.Do(t, a.Router, http.MethodGet, "/api/v1/calls?status=Completed", token, nil)
	th.Decode(t, rr, &calls)
	require.Len(t, calls, 1)
	assert.Equal(t, 1, calls[0].ID)

	rr = th.Do(t, a.Router, http.MethodGet, "/api/v1/calls?status=Cancelled", token, nil)
	assert.JSONEq(t, `[]`, rr.Body.String())
}

func TestCreateCallValidation(t *testing.T) {
	a := th.NewApp(t)
	token := th.Token(t, a.Router, "dispatch_ana")
	before := a.Engine.Snapshot()

	rr := th.Do(t, a.Router, http.MethodPost, "/api/v1/calls", token, models.CallInput{Location: " "})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = th.Do(t, a.Router, http.MethodPost, "/api/v1/calls", token, models.CallInput{Location: "x", Priority: 9})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	assert.Equal(t, before, a.Engine.Snapshot())
}

func TestCreateCallUsesSuggestedPriority(t *testing.T) {
	advisor := &fixedAdvisor{priority: 1, ok: true}
	a := th.NewApp(t, func(a *handlers.App) { a.Advisor = advisor })
	token := th.Token(t, a.Router, "dispatch_ana")

	var call models.EmergencyCall
	rr := th.Do(t, a.Router, http.MethodPost, "/api/v1/calls", token, models.CallInput{Location: "x", Description: "not breathing, unresponsive"})
	require.Equal(t, http.StatusCreated, rr.Code)
	th.Decode(t, rr, &call)
	assert.Equal(t, models.Priority(1), call.Priority)
	assert.Equal(t, 1, advisor.calls)

	// an explicit priority always wins
	rr = th.Do(t, a.Router, http.MethodPost, "/api/v1/calls", token, models.CallInput{Location: "x", Description: "sprained ankle", Priority: 4})
	require.Equal(t, http.StatusCreated, rr.Code)
	th.Decode(t, rr, &call)
	assert.Equal(t, models.Priority(4), call.Priority)
	assert.Equal(t, 1, advisor.calls)
}

func TestCreateCallWithoutSuggestion(t *testing.T) {
	a := th.NewApp(t, func(a *handlers.App) { a.Advisor = &fixedAdvisor{} })
	token := th.Token(t, a.Router, "dispatch_ana")

	var call models.EmergencyCall
	rr := th.Do(t, a.Router, http.MethodPost, "/api/v1/calls", token, models.CallInput{Location: "x"})
	require.Equal(t, http.StatusCreated, rr.Code)
	th.Decode(t, rr, &call)
	assert.Equal(t, models.PriorityDefault, call.Priority)
}

func TestSuggestPriorityHandler(t *testing.T) {
	a := th.NewApp(t, func(a *handlers.App) { a.Advisor = &fixedAdvisor{priority: 2, ok: true} })
	token := th.Token(t, a.Router, "dispatch_ana")

	rr := th.Do(t, a.Router, http.MethodPost, "/api/v1/calls/suggest-priority", token, handlers.SuggestRequest{Description: "broken leg after fall"})
	require.Equal(t, http.StatusOK, rr.Code)
	var resp handlers.SuggestResponse
	th.Decode(t, rr, &resp)
	assert.True(t, resp.Suggested)
	assert.Equal(t, models.Priority(2), resp.Priority)
}

func TestAssignTeamErrors(t *testing.T) {
	a := th.NewApp(t)
	token := th.Token(t, a.Router, "dispatch_ana")

	rr := th.Do(t, a.Router, http.MethodPut, "/api/v1/call/2/assign", token, handlers.AssignRequest{TeamID: 99})
	assert.Equal(t, http.StatusNotFound, rr.Code)

	// completed calls cannot be reassigned
	rr = th.Do(t, a.Router, http.MethodPut, "/api/v1/call/1/assign", token, handlers.AssignRequest{TeamID: 3})
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, models.TeamAvailable, teamByID(t, a, 3).Status)
}

func TestFilePCRHandler(t *testing.T) {
	a := th.NewApp(t)
	emt := th.Token(t, a.Router, "emt_sam")
	in := models.PCRInput{PatientVitals: "BP 120/80", TransferDestination: "General"}

	rr := th.Do(t, a.Router, http.MethodPost, "/api/v1/call/2/pcr", emt, in)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var pcr models.PatientCareRecord
	th.Decode(t, rr, &pcr)
	assert.Equal(t, 2, pcr.CallID)
	assert.True(t, pcr.IsSynced)

	rr = th.Do(t, a.Router, http.MethodPost, "/api/v1/call/2/pcr", emt, in)
	assert.Equal(t, http.StatusConflict, rr.Code)

	rr = th.Do(t, a.Router, http.MethodPost, "/api/v1/call/42/pcr", emt, in)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	assert.Len(t, a.Engine.Snapshot().PCRs, 1)
}

func TestOfflineFilingAndSync(t *testing.T) {
	a := th.NewApp(t)
	emt := th.Token(t, a.Router, "emt_sam")
	super := th.Token(t, a.Router, "super_lee")

	rr := th.Do(t, a.Router, http.MethodPut, "/api/v1/connectivity", emt, handlers.ConnectivityRequest{Online: false})
	require.Equal(t, http.StatusOK, rr.Code)

	rr = th.Do(t, a.Router, http.MethodPost, "/api/v1/call/2/pcr", emt, models.PCRInput{Notes: "filed offline"})
	require.Equal(t, http.StatusCreated, rr.Code)
	var pcr models.PatientCareRecord
	th.Decode(t, rr, &pcr)
	assert.False(t, pcr.IsSynced)

	rr = th.Do(t, a.Router, http.MethodPost, "/api/v1/sync", super, nil)
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)

	rr = th.Do(t, a.Router, http.MethodPut, "/api/v1/connectivity", emt, handlers.ConnectivityRequest{Online: true})
	require.Equal(t, http.StatusOK, rr.Code)
	var conn handlers.ConnectivityResponse
	th.Decode(t, rr, &conn)
	assert.Equal(t, handlers.ConnectivityResponse{Online: true, UnsyncedPCRs: 1, SyncPending: true}, conn)

	rr = th.Do(t, a.Router, http.MethodPost, "/api/v1/sync", super, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"synced":1}`, rr.Body.String())
	assert.False(t, a.Engine.SyncPending())

	s := a.Engine.Snapshot()
	assert.Equal(t, 0, s.UnsyncedPCRs())
	assert.Equal(t, dispatch.ActionSystemSync, s.AuditLog[0].Action)
	assert.Equal(t, dispatch.SystemActor, s.AuditLog[0].User)

	rr = th.Do(t, a.Router, http.MethodPost, "/api/v1/sync", super, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"synced":0}`, rr.Body.String())
}
