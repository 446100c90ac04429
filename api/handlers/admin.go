package handlers

import (
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/pulsepoint/eris-api/dispatch"
	"github.com/pulsepoint/eris-api/models"
)

// Admin exported for testing purposes
type Admin struct {
	Engine *dispatch.Engine
}

// ConnectivityRequest reports whether the central system is reachable
type ConnectivityRequest struct {
	Online bool `json:"online"`
}

// ConnectivityResponse describes the connectivity after a change
type ConnectivityResponse struct {
	Online       bool `json:"online"`
	UnsyncedPCRs int  `json:"unsyncedPcrs"`
	SyncPending  bool `json:"syncPending"`
}

// SyncResponse reports how many care records a reconciliation synced
type SyncResponse struct {
	Synced int `json:"synced"`
}

// StateHandler returns the whole state
func (a Admin) StateHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.Engine.Snapshot())
}

// ConnectivityHandler records connectivity changes. Coming back online with
// unsynced care records schedules a reconciliation.
func (a Admin) ConnectivityHandler(w http.ResponseWriter, r *http.Request) {
	var req ConnectivityRequest
	if !decodeBody(w, r, &req) {
		return
	}

	s := a.Engine.SetConnectivity(req.Online)
	zap.S().Infow("connectivity changed", "online", s.Online, "by", actor(r))
	writeJSON(w, http.StatusOK, ConnectivityResponse{
		Online:       s.Online,
		UnsyncedPCRs: s.UnsyncedPCRs(),
		SyncPending:  a.Engine.SyncPending(),
	})
}

// SyncHandler reconciles unsynced care records right away
func (a Admin) SyncHandler(w http.ResponseWriter, r *http.Request) {
	n, _, err := a.Engine.Reconcile()
	if err != nil {
		commandError("failed to sync records", w, err)
		return
	}
	writeJSON(w, http.StatusOK, SyncResponse{Synced: n})
}

// AuditLogHandler returns the audit log, newest first. ?limit= caps the entries.
func (a Admin) AuditLogHandler(w http.ResponseWriter, r *http.Request) {
	entries := a.Engine.Snapshot().AuditLog
	if l := r.URL.Query().Get("limit"); l != "" {
		limit, err := strconv.Atoi(l)
		if err != nil || limit < 0 {
			badID("limit", w, err)
			return
		}
		if limit < len(entries) {
			entries = entries[:limit]
		}
	}
	if entries == nil {
		entries = []models.AuditLogEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

// BackupHandler records a manual backup; the state is written out as part of the command
func (a Admin) BackupHandler(w http.ResponseWriter, r *http.Request) {
	s, err := a.Engine.Backup(actor(r))
	if err != nil {
		commandError("failed to back up", w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.AuditLog[0])
}
