package models

// TeamGrade is the level of care a team can provide
type TeamGrade string

// Team grades
const (
	GradeALS TeamGrade = "Advanced Life Support"
	GradeBLS TeamGrade = "Basic Life Support"
)

// TeamStatus is the availability of a team. It is a projection of the status
// of the call the team is currently assigned to.
type TeamStatus string

// Team statuses
const (
	TeamAvailable    TeamStatus = "Available"
	TeamDispatched   TeamStatus = "Dispatched"
	TeamOnScene      TeamStatus = "On-Scene"
	TeamTransporting TeamStatus = "Transporting"
)

// Valid reports whether s is one of the known team statuses
func (s TeamStatus) Valid() bool {
	switch s {
	case TeamAvailable, TeamDispatched, TeamOnScene, TeamTransporting:
		return true
	}
	return false
}

// Team holds the structure for a field unit.
// Members is derived from the users whose TeamID equals ID and is never
// edited on its own.
type Team struct {
	ID          int        `json:"id"`
	Name        string     `json:"name"`
	Grade       TeamGrade  `json:"grade"`
	BaseStation string     `json:"baseStation"`
	Status      TeamStatus `json:"status"`
	Members     []User     `json:"members"`
}

// MemberIDs returns the ids of the team members in member order
func (t Team) MemberIDs() []int {
	ids := make([]int, 0, len(t.Members))
	for _, m := range t.Members {
		ids = append(ids, m.ID)
	}
	return ids
}

// TeamUpdate is a supervisor edit of a team: its header fields and the
// complete desired member list. Empty header fields keep their value.
type TeamUpdate struct {
	ID          int       `json:"id"`
	Name        string    `json:"name,omitempty"`
	Grade       TeamGrade `json:"grade,omitempty"`
	BaseStation string    `json:"baseStation,omitempty"`
	MemberIDs   []int     `json:"memberIds"`
}
