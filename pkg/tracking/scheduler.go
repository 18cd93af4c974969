package tracking

import "time"

// Task is a deferred call that can be cancelled.
type Task interface {
	// Stop cancels the call and reports whether it was still pending.
	Stop() bool
}

// Scheduler runs f once after d.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Task
}

type timeScheduler struct{}

func (timeScheduler) AfterFunc(d time.Duration, f func()) Task {
	return time.AfterFunc(d, f)
}

// RealScheduler schedules on the runtime timers.
var RealScheduler Scheduler = timeScheduler{}
