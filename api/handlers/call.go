package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/pulsepoint/eris-api/advisory"
	"github.com/pulsepoint/eris-api/dispatch"
	"github.com/pulsepoint/eris-api/models"
)

// suggestTimeout bounds the advisory lookup made while logging a call
const suggestTimeout = 5 * time.Second

// Call exported for testing purposes
type Call struct {
	Engine    *dispatch.Engine
	Advisor   advisory.Advisor
	Debouncer *advisory.Debouncer
}

// StatusRequest is the body of a call status update
type StatusRequest struct {
	Status models.CallStatus `json:"status"`
	TeamID *int              `json:"teamId,omitempty"`
}

// AssignRequest is the body of a team assignment
type AssignRequest struct {
	TeamID int `json:"teamId"`
}

// SuggestRequest is the body of a priority suggestion request
type SuggestRequest struct {
	Description string `json:"description"`
}

// SuggestResponse carries the advisory priority, if any
type SuggestResponse struct {
	Priority   models.Priority `json:"priority,omitempty"`
	Suggested  bool            `json:"suggested"`
	Superseded bool            `json:"superseded,omitempty"`
}

// CallDetail is a call with its care record and assigned team
type CallDetail struct {
	Call models.EmergencyCall      `json:"call"`
	PCR  *models.PatientCareRecord `json:"pcr,omitempty"`
	Team *models.Team              `json:"team,omitempty"`
}

// CallsHandler returns all calls, newest first. ?status= filters by status
// and ?open=true keeps the calls still in progress.
func (c Call) CallsHandler(w http.ResponseWriter, r *http.Request) {
	status := models.CallStatus(r.URL.Query().Get("status"))
	openOnly := r.URL.Query().Get("open") == "true"

	calls := []models.EmergencyCall{}
	for _, call := range c.Engine.Snapshot().Calls {
		if status != "" && call.Status != status {
			continue
		}
		if openOnly && !call.Open() {
			continue
		}
		calls = append(calls, call)
	}
	writeJSON(w, http.StatusOK, calls)
}

// CallByIDHandler returns a call by ID
func (c Call) CallByIDHandler(w http.ResponseWriter, r *http.Request) {
	callID, err := strconv.Atoi(mux.Vars(r)["call_id"])
	if err != nil {
		badID("call_id", w, err)
		return
	}

	s := c.Engine.Snapshot()
	call, ok := s.CallByID(callID)
	if !ok {
		commandError("failed to get call by ID", w, dispatch.ErrNotFound)
		return
	}
	detail := CallDetail{Call: call}
	if pcr, ok := s.PCRForCall(callID); ok {
		detail.PCR = &pcr
	}
	if call.AssignedTeamID != nil {
		if team, ok := s.TeamByID(*call.AssignedTeamID); ok {
			detail.Team = &team
		}
	}
	writeJSON(w, http.StatusOK, detail)
}

// CreateCallHandler logs a new call. When no priority is given the advisory
// suggestion is used, if there is one.
func (c Call) CreateCallHandler(w http.ResponseWriter, r *http.Request) {
	var in models.CallInput
	if !decodeBody(w, r, &in) {
		return
	}

	if in.Priority == 0 && c.Advisor != nil {
		ctx, cancel := context.WithTimeout(r.Context(), suggestTimeout)
		if p, ok := c.Advisor.Suggest(ctx, in.Description); ok {
			zap.S().Debugw("using suggested priority", "priority", p)
			in.Priority = p
		}
		cancel()
	}

	call, _, err := c.Engine.LogCall(actor(r), in)
	if err != nil {
		commandError("failed to log call", w, err)
		return
	}
	writeJSON(w, http.StatusCreated, call)
}

// UpdateCallStatusHandler moves a call along its lifecycle
func (c Call) UpdateCallStatusHandler(w http.ResponseWriter, r *http.Request) {
	callID, err := strconv.Atoi(mux.Vars(r)["call_id"])
	if err != nil {
		badID("call_id", w, err)
		return
	}
	var req StatusRequest
	if !decodeBody(w, r, &req) {
		return
	}

	s, err := c.Engine.UpdateCallStatus(actor(r), callID, req.Status, req.TeamID)
	if err != nil {
		commandError("failed to update call status", w, err)
		return
	}
	call, _ := s.CallByID(callID)
	writeJSON(w, http.StatusOK, call)
}

// AssignTeamHandler dispatches a team to a call
func (c Call) AssignTeamHandler(w http.ResponseWriter, r *http.Request) {
	callID, err := strconv.Atoi(mux.Vars(r)["call_id"])
	if err != nil {
		badID("call_id", w, err)
		return
	}
	var req AssignRequest
	if !decodeBody(w, r, &req) {
		return
	}

	s, err := c.Engine.AssignTeam(actor(r), callID, req.TeamID)
	if err != nil {
		commandError("failed to assign team", w, err)
		return
	}
	call, _ := s.CallByID(callID)
	writeJSON(w, http.StatusOK, call)
}

// FilePCRHandler files the patient care record of a call
func (c Call) FilePCRHandler(w http.ResponseWriter, r *http.Request) {
	callID, err := strconv.Atoi(mux.Vars(r)["call_id"])
	if err != nil {
		badID("call_id", w, err)
		return
	}
	var in models.PCRInput
	if !decodeBody(w, r, &in) {
		return
	}

	pcr, _, err := c.Engine.FilePCR(actor(r), callID, in)
	if err != nil {
		commandError("failed to file patient care record", w, err)
		return
	}
	writeJSON(w, http.StatusCreated, pcr)
}

// SuggestPriorityHandler asks the advisory service for a priority. Requests
// from the same user are debounced; a request replaced by a newer one
// answers with superseded set.
func (c Call) SuggestPriorityHandler(w http.ResponseWriter, r *http.Request) {
	var req SuggestRequest
	if !decodeBody(w, r, &req) {
		return
	}

	p, ok, err := c.Debouncer.Suggest(r.Context(), actor(r), req.Description)
	switch {
	case errors.Is(err, advisory.ErrSuperseded):
		writeJSON(w, http.StatusOK, SuggestResponse{Superseded: true})
		return
	case err != nil:
		// the caller went away
		zap.S().Debugw("priority suggestion abandoned", "error", err)
		return
	}
	writeJSON(w, http.StatusOK, SuggestResponse{Priority: p, Suggested: ok})
}
