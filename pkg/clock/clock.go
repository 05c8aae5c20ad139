// Package clock provides an injectable time source. Production code uses
// Real(); tests use Fake() and move time forward with Advance.
package clock

import "time"

// Clock abstracts the time operations the call lifecycle depends on.
type Clock interface {
	Now() time.Time
	// After behaves like time.After. If d <= 0 the channel is ready immediately.
	After(d time.Duration) <-chan time.Time
	// AfterFunc behaves like time.AfterFunc.
	AfterFunc(d time.Duration, f func()) *Timer
	// NewTicker behaves like time.NewTicker and panics if d <= 0.
	NewTicker(d time.Duration) *Ticker
}

// Timer is a pending AfterFunc call.
type Timer struct {
	stopFunc func() bool
}

// Stop prevents the timer from firing. It reports whether the call
// stopped the timer.
func (t *Timer) Stop() bool { return t.stopFunc() }

// Ticker delivers ticks on C until stopped.
type Ticker struct {
	C <-chan time.Time

	stopFunc func()
}

// Stop turns off the ticker. C is not closed.
func (t *Ticker) Stop() { t.stopFunc() }

// Sleep blocks until d elapses on c or ctxDone is closed. It reports
// whether the full duration elapsed.
func Sleep(c Clock, d time.Duration, ctxDone <-chan struct{}) bool {
	select {
	case <-c.After(d):
		return true
	case <-ctxDone:
		return false
	}
}
