package handlers

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/pulsepoint/eris-api/config"
	"github.com/pulsepoint/eris-api/dispatch"
	"github.com/pulsepoint/eris-api/reports"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Report exported for testing purposes
type Report struct {
	Engine *dispatch.Engine
	// Now defaults to time.Now
	Now func() time.Time
}

// OpenIncidentsCSVHandler exports the open incidents as CSV
func (rp Report) OpenIncidentsCSVHandler(w http.ResponseWriter, r *http.Request) {
	s := rp.Engine.Snapshot()
	var buf bytes.Buffer
	if err := reports.OpenIncidentsCSV(&buf, s.Calls, s.Teams); err != nil {
		config.ErrorStatus("failed to export open incidents", http.StatusInternalServerError, w, err)
		return
	}
	attachment(w, "text/csv", rp.filename("open-incidents", "csv"), buf.Bytes())
}

// OpenIncidentsXLSXHandler exports the open incidents as an Excel workbook
func (rp Report) OpenIncidentsXLSXHandler(w http.ResponseWriter, r *http.Request) {
	s := rp.Engine.Snapshot()
	b, err := reports.OpenIncidentsXLSX(s.Calls, s.Teams)
	if err != nil {
		config.ErrorStatus("failed to export open incidents", http.StatusInternalServerError, w, err)
		return
	}
	attachment(w, xlsxContentType, rp.filename("open-incidents", "xlsx"), b)
}

// AuditLogCSVHandler exports the audit log as CSV
func (rp Report) AuditLogCSVHandler(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := reports.AuditLogCSV(&buf, rp.Engine.Snapshot().AuditLog); err != nil {
		config.ErrorStatus("failed to export audit log", http.StatusInternalServerError, w, err)
		return
	}
	attachment(w, "text/csv", rp.filename("audit-log", "csv"), buf.Bytes())
}

// SLAHandler returns response time statistics
func (rp Report) SLAHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, reports.SLAStats(rp.Engine.Snapshot().Calls))
}

// EODHandler returns today's end of day summary
func (rp Report) EODHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, reports.EODReport(rp.Engine.Snapshot().Calls, rp.now()))
}

// SupervisorHandler returns the supervisor board numbers
func (rp Report) SupervisorHandler(w http.ResponseWriter, r *http.Request) {
	s := rp.Engine.Snapshot()
	writeJSON(w, http.StatusOK, reports.SupervisorStats(s.Calls, s.Users, s.Teams))
}

// ExceptionsHandler lists the open incidents with their age
func (rp Report) ExceptionsHandler(w http.ResponseWriter, r *http.Request) {
	s := rp.Engine.Snapshot()
	writeJSON(w, http.StatusOK, reports.ExceptionReport(s.Calls, s.Teams, rp.now()))
}

func (rp Report) now() time.Time {
	if rp.Now != nil {
		return rp.Now()
	}
	return time.Now()
}

func (rp Report) filename(name, ext string) string {
	return fmt.Sprintf("%s-%s.%s", name, rp.now().Format("2006-01-02"), ext)
}

func attachment(w http.ResponseWriter, contentType, filename string, body []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}
