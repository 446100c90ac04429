// Package docs PulsePoint ERIS Dispatch API.
//
// Documentation of the PulsePoint ERIS Dispatch API.
//
//	 Schemes: https
//	 BasePath: /
//	 Version: 1.0.0
//
//	 Consumes:
//	 - application/json
//
//	 Produces:
//	 - application/json
//
//	 Security:
//	 - basic
//	 - bearer
//
//	SecurityDefinitions:
//	basic:
//	  type: basic
//	bearer:
//	  type: apiKey
//	  name: Authorization
//	  in: header
//
// swagger:meta
package docs

import (
	"github.com/pulsepoint/eris-api/api/handlers"
	"github.com/pulsepoint/eris-api/dispatch"
	"github.com/pulsepoint/eris-api/models"
)

// swagger:route GET /health health healthEndpointID
// Lists the healthchex of the web service api.
// responses:
//   200: healthResponse

// Shows the current health of the api. true means it is alive, false means it is not.
// swagger:response healthResponse
type healthResponseWrapper struct {
	// in:body
	Body models.HealthCheckResponse
}

// swagger:route POST /api/v1/auth/token auth createToken
// Signs in with basic auth, username only, and returns a bearer token.
// responses:
//   200: tokenResponse
//   401: errorResponse

// A signed bearer token for the authenticated user
// swagger:response tokenResponse
type tokenResponseWrapper struct {
	// in:body
	Body handlers.TokenResponse
}

// swagger:route GET /api/v1/state state getState
// Returns the whole dispatch state.
// responses:
//   200: stateResponse

// The users, teams, calls, care records, schedule and audit log
// swagger:response stateResponse
type stateResponseWrapper struct {
	// in:body
	Body dispatch.State
}

// swagger:route POST /api/v1/calls calls logCall
// Logs a new call. Without a priority the advisory suggestion, else 3, is used.
// responses:
//   201: callResponse
//   400: errorResponse
//   403: errorResponse

// swagger:parameters logCall
type logCallParams struct {
	// in:body
	Body models.CallInput
}

// A single call
// swagger:response callResponse
type callResponseWrapper struct {
	// in:body
	Body models.EmergencyCall
}

// swagger:route PUT /api/v1/call/{call_id}/status calls updateCallStatus
// Moves a call along its lifecycle; the assigned team follows.
// responses:
//   200: callResponse
//   404: errorResponse
//   409: errorResponse

// swagger:parameters updateCallStatus
type updateCallStatusParams struct {
	// in:path
	CallID int `json:"call_id"`
	// in:body
	Body handlers.StatusRequest
}

// swagger:route PUT /api/v1/call/{call_id}/assign calls assignTeam
// Dispatches a team to a pending or dispatched call.
// responses:
//   200: callResponse
//   404: errorResponse
//   409: errorResponse

// swagger:parameters assignTeam
type assignTeamParams struct {
	// in:path
	CallID int `json:"call_id"`
	// in:body
	Body handlers.AssignRequest
}

// swagger:route POST /api/v1/call/{call_id}/pcr calls filePCR
// Files the patient care record of a call, once.
// responses:
//   201: pcrResponse
//   404: errorResponse
//   409: errorResponse

// swagger:parameters filePCR
type filePCRParams struct {
	// in:path
	CallID int `json:"call_id"`
	// in:body
	Body models.PCRInput
}

// A patient care record
// swagger:response pcrResponse
type pcrResponseWrapper struct {
	// in:body
	Body models.PatientCareRecord
}

// swagger:route PUT /api/v1/connectivity sync setConnectivity
// Records whether the central system is reachable.
// responses:
//   200: connectivityResponse

// swagger:parameters setConnectivity
type setConnectivityParams struct {
	// in:body
	Body handlers.ConnectivityRequest
}

// Connectivity after the change
// swagger:response connectivityResponse
type connectivityResponseWrapper struct {
	// in:body
	Body handlers.ConnectivityResponse
}

// An error message
// swagger:response errorResponse
type errorResponseWrapper struct {
	// in:body
	Body models.ErrorMessageResponse
}
