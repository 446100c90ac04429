package dispatch

import "time"

// Timer is a scheduled function that can be cancelled
type Timer interface {
	Stop() bool
}

// Clock supplies the current time and one-shot timers to the engine
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

type systemClock struct{}

func (systemClock) Now() time.Time {
	return time.Now().UTC()
}

func (systemClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}
