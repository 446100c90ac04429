package reports

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/pulsepoint/eris-api/models"
)

// OpenIncidentsHeader is the column layout of the open incident exports
var OpenIncidentsHeader = []string{"ID", "Timestamp", "Location", "Priority", "Status", "AssignedTeam"}

// AuditLogHeader is the column layout of the audit log export
var AuditLogHeader = []string{"ID", "Timestamp", "User", "Action", "Details"}

const unassigned = "Unassigned"

// OpenIncidents returns the calls that are neither completed nor cancelled
func OpenIncidents(calls []models.EmergencyCall) []models.EmergencyCall {
	var open []models.EmergencyCall
	for _, c := range calls {
		if c.Open() {
			open = append(open, c)
		}
	}
	return open
}

// TeamName returns the name of the team assigned to a call, or Unassigned
func TeamName(teams []models.Team, teamID *int) string {
	if teamID == nil {
		return unassigned
	}
	for _, t := range teams {
		if t.ID == *teamID {
			return t.Name
		}
	}
	return unassigned
}

func openIncidentRows(calls []models.EmergencyCall, teams []models.Team) [][]string {
	open := OpenIncidents(calls)
	rows := make([][]string, 0, len(open))
	for _, c := range open {
		rows = append(rows, []string{
			strconv.Itoa(c.ID),
			c.Timestamp.UTC().Format(time.RFC3339),
			c.Location,
			strconv.Itoa(int(c.Priority)),
			string(c.Status),
			TeamName(teams, c.AssignedTeamID),
		})
	}
	return rows
}

// OpenIncidentsCSV writes the open incidents as CSV
func OpenIncidentsCSV(w io.Writer, calls []models.EmergencyCall, teams []models.Team) error {
	return writeCSV(w, OpenIncidentsHeader, openIncidentRows(calls, teams))
}

// AuditLogCSV writes audit entries as CSV in the order given
func AuditLogCSV(w io.Writer, entries []models.AuditLogEntry) error {
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []string{
			strconv.Itoa(e.ID),
			e.Timestamp.UTC().Format(time.RFC3339),
			e.User,
			e.Action,
			e.Details,
		})
	}
	return writeCSV(w, AuditLogHeader, rows)
}

func writeCSV(w io.Writer, header []string, rows [][]string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	if err := cw.WriteAll(rows); err != nil {
		return fmt.Errorf("failed to write rows: %w", err)
	}
	return nil
}

// OpenIncidentsXLSX renders the open incidents as an Excel workbook
func OpenIncidentsXLSX(calls []models.EmergencyCall, teams []models.Team) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Open Incidents"
	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return nil, fmt.Errorf("failed to name sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6F3FF"}, Pattern: 1},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	rows := append([][]string{OpenIncidentsHeader}, openIncidentRows(calls, teams)...)
	for r, row := range rows {
		for c, value := range row {
			cell, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				return nil, fmt.Errorf("failed to convert coordinates: %w", err)
			}
			var v interface{} = value
			// ID and priority are numbers in the sheet
			if r > 0 && (c == 0 || c == 3) {
				if n, err := strconv.Atoi(value); err == nil {
					v = n
				}
			}
			if err := f.SetCellValue(sheetName, cell, v); err != nil {
				return nil, fmt.Errorf("failed to set cell %s: %w", cell, err)
			}
		}
	}

	last, err := excelize.CoordinatesToCellName(len(OpenIncidentsHeader), 1)
	if err != nil {
		return nil, fmt.Errorf("failed to convert coordinates: %w", err)
	}
	if err := f.SetCellStyle(sheetName, "A1", last, headerStyle); err != nil {
		return nil, fmt.Errorf("failed to set header style: %w", err)
	}
	if err := f.SetColWidth(sheetName, "B", "C", 28); err != nil {
		return nil, fmt.Errorf("failed to set column width: %w", err)
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}
