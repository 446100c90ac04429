package dispatch

import "errors"

var (
	// ErrNotFound is returned when a referenced call, team, user or record
	// does not exist. Nothing is changed and nothing is audited.
	ErrNotFound = errors.New("not found")
	// ErrDuplicateFiling is returned when a call already has a care record
	ErrDuplicateFiling = errors.New("patient care record already filed for call")
	// ErrInvalidTransition is returned for a status change the call lifecycle does not allow
	ErrInvalidTransition = errors.New("invalid call status transition")
	// ErrUsernameTaken is returned when signing up with a username in use
	ErrUsernameTaken = errors.New("username already taken")
	// ErrInvalidInput is returned for malformed command input
	ErrInvalidInput = errors.New("invalid input")
)

// ErrOffline is returned when reconciliation is requested without connectivity
var ErrOffline = errors.New("no connectivity")

var errNothingToSync = errors.New("nothing to sync")
