package models

// Day of the week as shown on the schedule
type Day string

// Days of the week, Monday first
const (
	Monday    Day = "Monday"
	Tuesday   Day = "Tuesday"
	Wednesday Day = "Wednesday"
	Thursday  Day = "Thursday"
	Friday    Day = "Friday"
	Saturday  Day = "Saturday"
	Sunday    Day = "Sunday"
)

// Weekdays lists the days in schedule order
var Weekdays = []Day{Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday}

// Shift holds the team covering a shift, nil when uncovered
type Shift struct {
	TeamID *int `json:"teamId"`
}

// Shifts holds the two shifts of a day
type Shifts struct {
	DayShift   Shift `json:"dayShift"`
	NightShift Shift `json:"nightShift"`
}

// DaySchedule holds the shifts of one day
type DaySchedule struct {
	Day    Day    `json:"day"`
	Shifts Shifts `json:"shifts"`
}

// Schedule is the weekly shift table. The dispatch engine stores it as given.
type Schedule []DaySchedule
