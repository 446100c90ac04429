package dispatch

import (
	"time"

	"github.com/pulsepoint/eris-api/models"
)

// SystemActor is recorded when no user is behind a mutation
const SystemActor = "System"

// Audit actions
const (
	ActionCallLogged        = "Call Logged"
	ActionCallStatusUpdated = "Call Status Updated"
	ActionTeamStatusUpdated = "Team Status Updated"
	ActionTeamAssigned      = "Team Assigned"
	ActionPCRFiled          = "PCR Filed"
	ActionTeamUpdated       = "Team Updated"
	ActionUserAssigned      = "User Assigned to Team"
	ActionUserUnassigned    = "User Unassigned from Team"
	ActionUserStatusUpdated = "User Status Updated"
	ActionScheduleUpdated   = "Schedule Updated"
	ActionUserSignedUp      = "User Signed Up"
	ActionUserLogin         = "User Login"
	ActionUserLogout        = "User Logout"
	ActionBackup            = "Manual System Backup Triggered"
	ActionSystemSync        = "System Sync"
	ActionSystemInitialized = "System Initialized"
)

// RecordAudit returns a new log with an entry for the mutation prepended.
// The log is kept newest first. The new id is one past both the entry count
// and the largest id present, and the timestamp never goes backwards, so ids
// and timestamps keep increasing even for a log loaded with gaps. The given
// log is not modified.
func RecordAudit(log []models.AuditLogEntry, actor, action, details string, at time.Time) []models.AuditLogEntry {
	if actor == "" {
		actor = SystemActor
	}

	id := len(log)
	for _, e := range log {
		if e.ID > id {
			id = e.ID
		}
		if at.Before(e.Timestamp) {
			at = e.Timestamp
		}
	}

	entry := models.AuditLogEntry{
		ID:        id + 1,
		Timestamp: at,
		User:      actor,
		Action:    action,
		Details:   details,
	}

	next := make([]models.AuditLogEntry, 0, len(log)+1)
	next = append(next, entry)
	return append(next, log...)
}
