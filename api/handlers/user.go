package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/pulsepoint/eris-api/api"
	"github.com/pulsepoint/eris-api/config"
	"github.com/pulsepoint/eris-api/dispatch"
	"github.com/pulsepoint/eris-api/models"
)

// User exported for testing purposes
type User struct {
	Engine *dispatch.Engine
	Auth   *api.MiddlewareAuth
}

// TokenResponse is returned when signing in
type TokenResponse struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expiresAt"`
	User      models.User `json:"user"`
}

// UserTeamRequest moves a user to a team, or out of any team when TeamID is null
type UserTeamRequest struct {
	TeamID *int `json:"teamId"`
}

// UserStatusRequest sets the duty status of an EMT
type UserStatusRequest struct {
	Status models.EmtStatus `json:"status"`
}

// SignUpHandler creates a user account
func (u User) SignUpHandler(w http.ResponseWriter, r *http.Request) {
	var in models.SignUpInput
	if !decodeBody(w, r, &in) {
		return
	}

	user, _, err := u.Engine.SignUp(in)
	if err != nil {
		commandError("failed to sign up", w, err)
		return
	}
	zap.S().Infow("user signed up", "user", user.Username, "role", user.Role)
	writeJSON(w, http.StatusCreated, user)
}

// CreateTokenHandler signs in the user authenticated by basic auth and
// returns a bearer token
func (u User) CreateTokenHandler(w http.ResponseWriter, r *http.Request) {
	caller, ok := api.ActorFromContext(r.Context())
	if !ok {
		config.ErrorStatus("unauthorized", http.StatusUnauthorized, w, errors.New("no authenticated user"))
		return
	}

	user, _, err := u.Engine.Login(caller.Username)
	if err != nil {
		commandError("failed to sign in", w, err)
		return
	}
	token, expires, err := u.Auth.IssueToken(user, r)
	if err != nil {
		config.ErrorStatus("failed to issue token", http.StatusInternalServerError, w, err)
		return
	}
	writeJSON(w, http.StatusOK, TokenResponse{Token: token, ExpiresAt: expires, User: user})
}

// LogoutHandler revokes the bearer token of the request
func (u User) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	if _, err := u.Auth.RevokeToken(r); err != nil {
		config.ErrorStatus("failed to revoke token", http.StatusBadRequest, w, err)
		return
	}
	if _, err := u.Engine.Logout(actor(r)); err != nil {
		zap.S().Warnw("logout not audited", "user", actor(r), "error", err)
	}
	writeJSON(w, http.StatusOK, models.MessageError{Message: "logged out"})
}

// AssignTeamHandler moves a user to a team or out of any team
func (u User) AssignTeamHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.Atoi(mux.Vars(r)["user_id"])
	if err != nil {
		badID("user_id", w, err)
		return
	}
	var req UserTeamRequest
	if !decodeBody(w, r, &req) {
		return
	}

	s, err := u.Engine.AssignUserToTeam(actor(r), userID, req.TeamID)
	if err != nil {
		commandError("failed to assign user to team", w, err)
		return
	}
	user, _ := s.UserByID(userID)
	writeJSON(w, http.StatusOK, user)
}

// UpdateStatusHandler clocks an EMT in or out. EMTs may only change their
// own status.
func (u User) UpdateStatusHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.Atoi(mux.Vars(r)["user_id"])
	if err != nil {
		badID("user_id", w, err)
		return
	}
	if caller, ok := api.ActorFromContext(r.Context()); ok && caller.Role == models.RoleEMT && caller.ID != userID {
		config.ErrorStatus("forbidden", http.StatusForbidden, w, errors.New("EMTs may only change their own status"))
		return
	}
	var req UserStatusRequest
	if !decodeBody(w, r, &req) {
		return
	}

	s, err := u.Engine.UpdateUserStatus(actor(r), userID, req.Status)
	if err != nil {
		commandError("failed to update user status", w, err)
		return
	}
	user, _ := s.UserByID(userID)
	writeJSON(w, http.StatusOK, user)
}
