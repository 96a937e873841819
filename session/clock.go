package session

import "time"

// Clock abstracts wall-clock access so the timeout manager and the
// engine's timing fields can run against a simulated clock in tests.
// Production code uses SystemClock.
type Clock interface {
	// Now returns the current time.
	Now() time.Time

	// AfterFunc schedules f to run on its own goroutine after d has
	// elapsed and returns a handle that can cancel the call.
	AfterFunc(d time.Duration, f func()) Timer
}

// Timer is a cancelable pending call created by Clock.AfterFunc.
type Timer interface {
	// Stop cancels the pending call. It reports whether the call was
	// still pending; stopping an expired timer is a no-op.
	Stop() bool
}

// SystemClock returns the real-time clock backed by the time package.
func SystemClock() Clock { return systemClock{} }

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

func (systemClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}
