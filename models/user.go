package models

// UserRole is the role a user signs in with. It decides which dashboard and
// which commands the user is allowed to issue.
type UserRole string

// Roles known to the dispatch center
const (
	RoleDispatcher UserRole = "Dispatcher"
	RoleEMT        UserRole = "EMT"
	RoleSupervisor UserRole = "Supervisor"
	RoleCOO        UserRole = "COO"
	RoleAdmin      UserRole = "Admin"
)

// Valid reports whether r is one of the known roles
func (r UserRole) Valid() bool {
	switch r {
	case RoleDispatcher, RoleEMT, RoleSupervisor, RoleCOO, RoleAdmin:
		return true
	}
	return false
}

// EmtStatus is the duty status of an EMT
type EmtStatus string

// Duty statuses, only meaningful for EMTs
const (
	EmtOnDuty  EmtStatus = "On Duty"
	EmtOffDuty EmtStatus = "Off Duty"
	EmtOnBreak EmtStatus = "On Break"
)

// Valid reports whether s is one of the known duty statuses
func (s EmtStatus) Valid() bool {
	switch s {
	case EmtOnDuty, EmtOffDuty, EmtOnBreak:
		return true
	}
	return false
}

// User holds the structure for a dispatch center user.
// TeamID is the only writable link between a user and a team; a nil TeamID
// means the user is not assigned to any team.
type User struct {
	ID       int        `json:"id"`
	Username string     `json:"username"`
	Role     UserRole   `json:"role"`
	TeamID   *int       `json:"teamId,omitempty"`
	Status   *EmtStatus `json:"status"`
}

// InTeam reports whether the user is currently assigned to teamID
func (u User) InTeam(teamID int) bool {
	return u.TeamID != nil && *u.TeamID == teamID
}

// SignUpInput is the form a new user signs up with
type SignUpInput struct {
	Username string   `json:"username"`
	Role     UserRole `json:"role"`
	TeamID   *int     `json:"teamId,omitempty"`
}
