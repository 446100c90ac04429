package handlers

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/pulsepoint/eris-api/config"
	"github.com/pulsepoint/eris-api/dispatch"
	"github.com/pulsepoint/eris-api/models"
	"github.com/pulsepoint/eris-api/reports"
)

// Team exported for testing purposes
type Team struct {
	Engine *dispatch.Engine
}

// TeamStatusRequest is the body of a direct team status change
type TeamStatusRequest struct {
	Status models.TeamStatus `json:"status"`
}

// TeamsHandler returns all teams, filtered by ?grade= and ?station=
func (t Team) TeamsHandler(w http.ResponseWriter, r *http.Request) {
	teams := t.Engine.Snapshot().Teams
	writeJSON(w, http.StatusOK, filterTeams(r, teams))
}

// AvailableTeamsHandler returns the teams free to be dispatched
func (t Team) AvailableTeamsHandler(w http.ResponseWriter, r *http.Request) {
	teams := t.Engine.Snapshot().AvailableTeams()
	writeJSON(w, http.StatusOK, filterTeams(r, teams))
}

// ActiveCallHandler returns the open call the team is working, if any
func (t Team) ActiveCallHandler(w http.ResponseWriter, r *http.Request) {
	teamID, err := strconv.Atoi(mux.Vars(r)["team_id"])
	if err != nil {
		badID("team_id", w, err)
		return
	}
	s := t.Engine.Snapshot()
	if _, ok := s.TeamByID(teamID); !ok {
		commandError("failed to get team by ID", w, dispatch.ErrNotFound)
		return
	}
	call, ok := s.ActiveCallForTeam(teamID)
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, call)
}

// UpdateTeamHandler edits a team and replaces its roster
func (t Team) UpdateTeamHandler(w http.ResponseWriter, r *http.Request) {
	teamID, err := strconv.Atoi(mux.Vars(r)["team_id"])
	if err != nil {
		badID("team_id", w, err)
		return
	}
	var update models.TeamUpdate
	if !decodeBody(w, r, &update) {
		return
	}
	update.ID = teamID

	s, err := t.Engine.UpdateTeam(actor(r), update)
	if err != nil {
		commandError("failed to update team", w, err)
		return
	}
	team, _ := s.TeamByID(teamID)
	writeJSON(w, http.StatusOK, team)
}

// UpdateTeamStatusHandler sets a team status directly
func (t Team) UpdateTeamStatusHandler(w http.ResponseWriter, r *http.Request) {
	teamID, err := strconv.Atoi(mux.Vars(r)["team_id"])
	if err != nil {
		badID("team_id", w, err)
		return
	}
	var req TeamStatusRequest
	if !decodeBody(w, r, &req) {
		return
	}

	s, err := t.Engine.UpdateTeamStatus(actor(r), teamID, req.Status)
	if err != nil {
		commandError("failed to update team status", w, err)
		return
	}
	team, _ := s.TeamByID(teamID)
	writeJSON(w, http.StatusOK, team)
}

// ScheduleHandler returns the weekly schedule
func (t Team) ScheduleHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, t.Engine.Snapshot().Schedule)
}

// UpdateScheduleHandler replaces the weekly schedule
func (t Team) UpdateScheduleHandler(w http.ResponseWriter, r *http.Request) {
	var schedule models.Schedule
	if !decodeBody(w, r, &schedule) {
		return
	}
	if schedule == nil {
		config.ErrorStatus("schedule is required", http.StatusBadRequest, w, dispatch.ErrInvalidInput)
		return
	}

	s, err := t.Engine.UpdateSchedule(actor(r), schedule)
	if err != nil {
		commandError("failed to update schedule", w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.Schedule)
}

func filterTeams(r *http.Request, teams []models.Team) []models.Team {
	grade := models.TeamGrade(r.URL.Query().Get("grade"))
	station := r.URL.Query().Get("station")
	out := reports.FilterTeams(teams, grade, station)
	if out == nil {
		out = []models.Team{}
	}
	return out
}
