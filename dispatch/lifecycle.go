package dispatch

import (
	"time"

	"github.com/pulsepoint/eris-api/models"
)

// phase is the position of a status in the forward lifecycle
var phase = map[models.CallStatus]int{
	models.CallPending:      0,
	models.CallDispatched:   1,
	models.CallOnScene:      2,
	models.CallTransporting: 3,
	models.CallCompleted:    4,
}

// Terminal reports whether no further transition is possible from s
func Terminal(s models.CallStatus) bool {
	return s == models.CallCompleted || s == models.CallCancelled
}

// ValidCallStatus reports whether s is a known call status
func ValidCallStatus(s models.CallStatus) bool {
	_, ok := phase[s]
	return ok || s == models.CallCancelled
}

// CanTransition reports whether a call in status from may move to status to.
// Moves go forward along Pending, Dispatched, On-Scene, Transporting,
// Completed (phases may be skipped), Cancelled is reachable from any
// non-terminal status, and re-applying the current status is always allowed.
func CanTransition(from, to models.CallStatus) bool {
	if !ValidCallStatus(to) {
		return false
	}
	if from == to {
		return true
	}
	if Terminal(from) {
		return false
	}
	if to == models.CallCancelled {
		return true
	}
	return phase[to] > phase[from]
}

// ApplyStatus returns call moved to status. Entering Dispatched, On-Scene or
// Completed stamps the matching timestamp unless the phase was already
// stamped; earlier stamps are never touched. A stamp is never earlier than
// the previous phase, so creation <= dispatch <= on-scene <= completed holds
// even under clock skew.
func ApplyStatus(call models.EmergencyCall, status models.CallStatus, now time.Time) (models.EmergencyCall, error) {
	if !CanTransition(call.Status, status) {
		return call, ErrInvalidTransition
	}

	next := call
	next.Status = status
	switch status {
	case models.CallDispatched:
		next.DispatchTimestamp = stamp(call.DispatchTimestamp, floor(call), now)
	case models.CallOnScene:
		next.OnSceneTimestamp = stamp(call.OnSceneTimestamp, floor(call), now)
	case models.CallCompleted:
		next.CompletedTimestamp = stamp(call.CompletedTimestamp, floor(call), now)
	}
	return next, nil
}

// AssignTeam returns call assigned to teamID. Assignment forces the call to
// Dispatched and stamps the dispatch time if it was not stamped before. Only
// pending or already dispatched calls can be (re)assigned.
func AssignTeam(call models.EmergencyCall, teamID int, now time.Time) (models.EmergencyCall, error) {
	if call.Status != models.CallPending && call.Status != models.CallDispatched {
		return call, ErrInvalidTransition
	}

	next := call
	next.AssignedTeamID = intPtr(teamID)
	next.Status = models.CallDispatched
	next.DispatchTimestamp = stamp(call.DispatchTimestamp, floor(call), now)
	return next, nil
}

// TeamStatusFor maps a call status to the status its assigned team takes.
// The second value is false when the call status does not affect the team.
func TeamStatusFor(s models.CallStatus) (models.TeamStatus, bool) {
	switch s {
	case models.CallDispatched:
		return models.TeamDispatched, true
	case models.CallOnScene:
		return models.TeamOnScene, true
	case models.CallTransporting:
		return models.TeamTransporting, true
	case models.CallCompleted:
		return models.TeamAvailable, true
	}
	return "", false
}

// floor is the latest time already recorded on the call
func floor(call models.EmergencyCall) time.Time {
	f := call.Timestamp
	for _, t := range []*time.Time{call.DispatchTimestamp, call.OnSceneTimestamp, call.CompletedTimestamp} {
		if t != nil && t.After(f) {
			f = *t
		}
	}
	return f
}

func stamp(existing *time.Time, floor, now time.Time) *time.Time {
	if existing != nil {
		return existing
	}
	if now.Before(floor) {
		now = floor
	}
	return &now
}

func intPtr(i int) *int {
	return &i
}
