package reports

import (
	"fmt"
	"math"
	"time"

	"github.com/pulsepoint/eris-api/models"
)

// SLATarget is the response time a call must be reached within
const SLATarget = 15 * time.Minute

// SLA summarizes response times over completed calls
type SLA struct {
	AvgDispatchMin      float64 `json:"avgDispatchMin"`
	AvgOnSceneMin       float64 `json:"avgOnSceneMin"`
	AvgTotalResponseMin float64 `json:"avgTotalResponseMin"`
	CompliancePct       float64 `json:"slaCompliance"`
	TotalCompleted      int     `json:"totalCompleted"`
	TargetMin           float64 `json:"targetMin"`
}

// SLAStats averages response times over completed calls that carry every
// phase timestamp. Total response runs from creation to arrival on scene.
func SLAStats(calls []models.EmergencyCall) SLA {
	out := SLA{TargetMin: SLATarget.Minutes()}

	var dispatch, onScene, total time.Duration
	compliant := 0
	for _, c := range calls {
		if c.Status != models.CallCompleted || c.DispatchTimestamp == nil || c.OnSceneTimestamp == nil || c.CompletedTimestamp == nil {
			continue
		}
		out.TotalCompleted++
		dispatch += c.DispatchTimestamp.Sub(c.Timestamp)
		onScene += c.OnSceneTimestamp.Sub(*c.DispatchTimestamp)
		response := c.OnSceneTimestamp.Sub(c.Timestamp)
		total += response
		if response <= SLATarget {
			compliant++
		}
	}
	if out.TotalCompleted == 0 {
		return out
	}

	n := float64(out.TotalCompleted)
	out.AvgDispatchMin = round1(dispatch.Minutes() / n)
	out.AvgOnSceneMin = round1(onScene.Minutes() / n)
	out.AvgTotalResponseMin = round1(total.Minutes() / n)
	out.CompliancePct = round1(float64(compliant) / n * 100)
	return out
}

// EOD is the end of day summary
type EOD struct {
	Date           string                  `json:"date"`
	TotalCalls     int                     `json:"totalCalls"`
	PriorityCounts map[models.Priority]int `json:"priorityCounts"`
	AvgDispatchMin float64                 `json:"avgDispatchMin"`
}

// EODReport summarizes the calls created since midnight of now's day, in
// now's location
func EODReport(calls []models.EmergencyCall, now time.Time) EOD {
	y, m, d := now.Date()
	midnight := time.Date(y, m, d, 0, 0, 0, 0, now.Location())

	out := EOD{Date: midnight.Format("2006-01-02"), PriorityCounts: map[models.Priority]int{}}
	var dispatch time.Duration
	dispatched := 0
	for _, c := range calls {
		if c.Timestamp.Before(midnight) {
			continue
		}
		out.TotalCalls++
		out.PriorityCounts[c.Priority]++
		if c.DispatchTimestamp != nil {
			dispatched++
			dispatch += c.DispatchTimestamp.Sub(c.Timestamp)
		}
	}
	if dispatched > 0 {
		out.AvgDispatchMin = round1(dispatch.Minutes() / float64(dispatched))
	}
	return out
}

// Summary renders the report as plain text, one figure per line
func (e EOD) Summary() string {
	s := fmt.Sprintf("End of Day Report %s\nTotal calls: %d\nAverage dispatch time: %.1f min\n", e.Date, e.TotalCalls, e.AvgDispatchMin)
	for p := models.PriorityHighest; p <= models.PriorityLowest; p++ {
		s += fmt.Sprintf("Priority %d: %d\n", p, e.PriorityCounts[p])
	}
	return s
}

// Supervisor holds the headline numbers of the supervisor board
type Supervisor struct {
	TotalCalls     int `json:"totalCalls"`
	OpenIncidents  int `json:"openIncidents"`
	PCRsFiled      int `json:"pcrFiled"`
	TotalPersonnel int `json:"totalPersonnel"`
	TeamsOnDuty    int `json:"teamsOnDuty"`
}

// SupervisorStats counts calls, open incidents, filed care records, EMTs and teams
func SupervisorStats(calls []models.EmergencyCall, users []models.User, teams []models.Team) Supervisor {
	out := Supervisor{TotalCalls: len(calls), TeamsOnDuty: len(teams)}
	for _, c := range calls {
		if c.Open() {
			out.OpenIncidents++
		}
		if c.PCRID != nil {
			out.PCRsFiled++
		}
	}
	for _, u := range users {
		if u.Role == models.RoleEMT {
			out.TotalPersonnel++
		}
	}
	return out
}

// Exception is an open incident as listed on the shift handover report
type Exception struct {
	CallID   int               `json:"callId"`
	Location string            `json:"location"`
	Priority models.Priority   `json:"priority"`
	Status   models.CallStatus `json:"status"`
	Team     string            `json:"team"`
	Age      string            `json:"age"`
}

// ExceptionReport lists the open incidents with their age at now
func ExceptionReport(calls []models.EmergencyCall, teams []models.Team, now time.Time) []Exception {
	open := OpenIncidents(calls)
	out := make([]Exception, 0, len(open))
	for _, c := range open {
		out = append(out, Exception{
			CallID:   c.ID,
			Location: c.Location,
			Priority: c.Priority,
			Status:   c.Status,
			Team:     TeamName(teams, c.AssignedTeamID),
			Age:      age(now.Sub(c.Timestamp)),
		})
	}
	return out
}

func age(d time.Duration) string {
	mins := int(math.Round(d.Minutes()))
	if mins < 60 {
		return fmt.Sprintf("%dm", mins)
	}
	return fmt.Sprintf("%.1fh", float64(mins)/60)
}

// FilterTeams keeps the teams matching grade and base station. An empty
// filter matches every team.
func FilterTeams(teams []models.Team, grade models.TeamGrade, station string) []models.Team {
	var out []models.Team
	for _, t := range teams {
		if grade != "" && t.Grade != grade {
			continue
		}
		if station != "" && t.BaseStation != station {
			continue
		}
		out = append(out, t)
	}
	return out
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
