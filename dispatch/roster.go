package dispatch

import (
	"sort"

	"github.com/pulsepoint/eris-api/models"
)

// MemberIndex groups users by the team they reference. Users are kept in id
// order within each team; unassigned users are left out.
func MemberIndex(users []models.User) map[int][]models.User {
	index := make(map[int][]models.User)
	for _, u := range users {
		if u.TeamID == nil {
			continue
		}
		index[*u.TeamID] = append(index[*u.TeamID], u)
	}
	for id := range index {
		members := index[id]
		sort.SliceStable(members, func(i, j int) bool { return members[i].ID < members[j].ID })
	}
	return index
}

// SyncMembers returns teams with every member list rebuilt from users. All
// teams are rebuilt, never a single one, so a user who moved between teams
// leaves the old list in the same step that adds them to the new one.
func SyncMembers(users []models.User, teams []models.Team) []models.Team {
	index := MemberIndex(users)
	next := make([]models.Team, len(teams))
	for i, t := range teams {
		t.Members = append([]models.User{}, index[t.ID]...)
		next[i] = t
	}
	return next
}

// ReassignUser points userID at teamID, or unassigns the user when teamID is
// nil, and rebuilds every member list.
func ReassignUser(users []models.User, teams []models.Team, userID int, teamID *int) ([]models.User, []models.Team, error) {
	if indexOfUser(users, userID) < 0 {
		return users, teams, ErrNotFound
	}
	if teamID != nil && indexOfTeam(teams, *teamID) < 0 {
		return users, teams, ErrNotFound
	}

	nextUsers := make([]models.User, len(users))
	for i, u := range users {
		if u.ID == userID {
			if teamID == nil {
				u.TeamID = nil
			} else {
				u.TeamID = intPtr(*teamID)
			}
		}
		nextUsers[i] = u
	}
	return nextUsers, SyncMembers(nextUsers, teams), nil
}

// ReplaceTeamRoster applies a supervisor edit. The difference between the
// team's current and desired member sets is written to the users first:
// added users point at the team (leaving whatever team they were on) and
// removed users are unassigned. Every member list is then rebuilt from the
// users. Member ids that match no user are ignored.
func ReplaceTeamRoster(users []models.User, teams []models.Team, update models.TeamUpdate) ([]models.User, []models.Team, error) {
	ti := indexOfTeam(teams, update.ID)
	if ti < 0 {
		return users, teams, ErrNotFound
	}

	current := make(map[int]bool)
	for _, u := range users {
		if u.InTeam(update.ID) {
			current[u.ID] = true
		}
	}
	desired := make(map[int]bool)
	for _, id := range update.MemberIDs {
		if indexOfUser(users, id) >= 0 {
			desired[id] = true
		}
	}

	nextUsers := make([]models.User, len(users))
	for i, u := range users {
		switch {
		case desired[u.ID] && !current[u.ID]:
			u.TeamID = intPtr(update.ID)
		case current[u.ID] && !desired[u.ID]:
			u.TeamID = nil
		}
		nextUsers[i] = u
	}

	nextTeams := make([]models.Team, len(teams))
	copy(nextTeams, teams)
	edited := nextTeams[ti]
	if update.Name != "" {
		edited.Name = update.Name
	}
	if update.Grade != "" {
		edited.Grade = update.Grade
	}
	if update.BaseStation != "" {
		edited.BaseStation = update.BaseStation
	}
	nextTeams[ti] = edited

	return nextUsers, SyncMembers(nextUsers, nextTeams), nil
}

// Rehydrate rebuilds member lists for teams loaded from storage. Stored
// member lists are ignored: a user's own team reference is the only source,
// so a listed user without one stays unassigned. Team references to teams
// that no longer exist are cleared.
func Rehydrate(users []models.User, teams []models.Team) ([]models.User, []models.Team) {
	teamIDs := make(map[int]bool, len(teams))
	for _, t := range teams {
		teamIDs[t.ID] = true
	}

	nextUsers := make([]models.User, len(users))
	for i, u := range users {
		if u.TeamID != nil && !teamIDs[*u.TeamID] {
			u.TeamID = nil
		}
		nextUsers[i] = u
	}
	return nextUsers, SyncMembers(nextUsers, teams)
}

func indexOfUser(users []models.User, id int) int {
	for i, u := range users {
		if u.ID == id {
			return i
		}
	}
	return -1
}

func indexOfTeam(teams []models.Team, id int) int {
	for i, t := range teams {
		if t.ID == id {
			return i
		}
	}
	return -1
}

func indexOfCall(calls []models.EmergencyCall, id int) int {
	for i, c := range calls {
		if c.ID == id {
			return i
		}
	}
	return -1
}
