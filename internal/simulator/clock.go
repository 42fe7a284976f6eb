package simulator

import "time"

// Timer is a pending callback that can be cancelled.
type Timer interface {
	Stop() bool
}

// Clock schedules callbacks. Callbacks may run on any goroutine.
type Clock interface {
	AfterFunc(d time.Duration, f func()) Timer
}

// RealClock schedules with time.AfterFunc.
type RealClock struct{}

// AfterFunc implements Clock.
func (RealClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}
