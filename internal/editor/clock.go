package editor

import "time"

// Timer is the part of *time.Timer the form needs.
type Timer interface {
	Stop() bool
}

// Clock lets tests drive the provider error timeout.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}
