package contact

import "time"

// Timer is the part of *time.Timer the controller needs.
type Timer interface {
	Stop() bool
}

// Clock schedules deferred callbacks. The real clock uses time.AfterFunc;
// tests substitute a manual clock.
type Clock interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type realClock struct{}

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// SystemClock returns the wall-clock implementation.
func SystemClock() Clock {
	return realClock{}
}
