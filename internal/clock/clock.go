// Package clock abstracts timers so reconnect delays and approval
// timeouts can be driven deterministically in tests.
//
// Production code uses Real(). Tests use Fake(t0), register timers from
// the code under test, call WaitForTimers to synchronize, and then
// Advance to fire them.
package clock

import "time"

// Clock is the subset of the time package the session core needs.
type Clock interface {
	Now() time.Time

	// NewTimer returns a Timer whose C channel receives once after d.
	NewTimer(d time.Duration) *Timer

	// AfterFunc calls f in its own goroutine (real) or synchronously
	// during Advance (fake) once d has elapsed. The returned Timer has a
	// nil C.
	AfterFunc(d time.Duration, f func()) *Timer
}

// Timer is a cancellable one-shot timer.
type Timer struct {
	C <-chan time.Time

	stop func() bool
}

// Stop prevents the timer from firing. It reports whether the call
// stopped the timer; false means it already fired or was stopped.
func (t *Timer) Stop() bool { return t.stop() }

// Real returns a Clock backed by the time package.
func Real() Clock { return realClock{} }

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) NewTimer(d time.Duration) *Timer {
	t := time.NewTimer(d)
	return &Timer{C: t.C, stop: t.Stop}
}

func (realClock) AfterFunc(d time.Duration, f func()) *Timer {
	t := time.AfterFunc(d, f)
	return &Timer{stop: t.Stop}
}
