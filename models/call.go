package models

import "time"

// CallStatus is the lifecycle phase of an emergency call
type CallStatus string

// Call statuses, in lifecycle order. Cancelled can be reached from any
// non-terminal status.
const (
	CallPending      CallStatus = "Pending"
	CallDispatched   CallStatus = "Dispatched"
	CallOnScene      CallStatus = "On-Scene"
	CallTransporting CallStatus = "Transporting"
	CallCompleted    CallStatus = "Completed"
	CallCancelled    CallStatus = "Cancelled"
)

// Priority of a call, 1 is the highest and 4 the lowest
type Priority int

// Priority bounds
const (
	PriorityHighest Priority = 1
	PriorityLowest  Priority = 4
	PriorityDefault Priority = 3
)

// Valid reports whether p is within 1-4
func (p Priority) Valid() bool {
	return p >= PriorityHighest && p <= PriorityLowest
}

// EmergencyCall holds the structure for a single incident report
type EmergencyCall struct {
	ID                 int        `json:"id"`
	Timestamp          time.Time  `json:"timestamp"`
	CallerName         string     `json:"callerName"`
	Phone              string     `json:"phone"`
	Location           string     `json:"location"`
	Landmark           string     `json:"landmark,omitempty"`
	Description        string     `json:"description"`
	Priority           Priority   `json:"priority"`
	Status             CallStatus `json:"status"`
	AssignedTeamID     *int       `json:"assignedTeamId,omitempty"`
	DispatchTimestamp  *time.Time `json:"dispatchTimestamp,omitempty"`
	OnSceneTimestamp   *time.Time `json:"onSceneTimestamp,omitempty"`
	CompletedTimestamp *time.Time `json:"completedTimestamp,omitempty"`
	PCRID              *int       `json:"pcrId,omitempty"`
}

// Open reports whether the call has not reached a terminal status
func (c EmergencyCall) Open() bool {
	return c.Status != CallCompleted && c.Status != CallCancelled
}

// CallInput is the intake form for a new call
type CallInput struct {
	CallerName  string   `json:"callerName"`
	Phone       string   `json:"phone"`
	Location    string   `json:"location"`
	Landmark    string   `json:"landmark,omitempty"`
	Description string   `json:"description"`
	Priority    Priority `json:"priority,omitempty"`
}
