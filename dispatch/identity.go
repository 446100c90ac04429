package dispatch

import "github.com/pulsepoint/eris-api/models"

// NextID returns the identifier for a new entity given the ids already in
// use: the largest existing id plus one, or 1 for an empty collection.
// The collection length is never used, so ids stay unique after filtering.
func NextID(ids []int) int {
	max := 0
	for _, id := range ids {
		if id > max {
			max = id
		}
	}
	return max + 1
}

// NextUserID returns the id for a new user
func NextUserID(users []models.User) int {
	ids := make([]int, len(users))
	for i, u := range users {
		ids[i] = u.ID
	}
	return NextID(ids)
}

// NextCallID returns the id for a new call
func NextCallID(calls []models.EmergencyCall) int {
	ids := make([]int, len(calls))
	for i, c := range calls {
		ids[i] = c.ID
	}
	return NextID(ids)
}

// NextPCRID returns the id for a new patient care record
func NextPCRID(pcrs []models.PatientCareRecord) int {
	ids := make([]int, len(pcrs))
	for i, p := range pcrs {
		ids[i] = p.ID
	}
	return NextID(ids)
}
