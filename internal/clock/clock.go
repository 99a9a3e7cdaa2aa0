// Package clock abstracts timers so debounce windows, fade delays and
// polling intervals can be driven deterministically in tests.
package clock

import "time"

// Clock is the subset of the time package the console components use.
// Production code injects Real(); tests inject a Fake.
type Clock interface {
	Now() time.Time

	// AfterFunc waits for d, then calls f in its own goroutine (real) or
	// synchronously during Advance (fake).
	AfterFunc(d time.Duration, f func()) *Timer

	// NewTicker panics if d <= 0, matching time.NewTicker.
	NewTicker(d time.Duration) *Ticker
}

// Timer is a pending AfterFunc call.
type Timer struct {
	stopFunc func() bool
}

// Stop prevents the timer from firing. It returns false if the timer
// already fired or was stopped.
func (t *Timer) Stop() bool { return t.stopFunc() }

// Ticker delivers ticks on C. Ticks are dropped when the consumer falls
// behind.
type Ticker struct {
	C <-chan time.Time

	stopFunc func()
}

// Stop turns off the ticker. It does not close C.
func (t *Ticker) Stop() { t.stopFunc() }

// Real returns a Clock backed by the time package.
func Real() Clock { return realClock{} }

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) AfterFunc(d time.Duration, f func()) *Timer {
	timer := time.AfterFunc(d, f)
	return &Timer{stopFunc: timer.Stop}
}

func (realClock) NewTicker(d time.Duration) *Ticker {
	ticker := time.NewTicker(d)
	return &Ticker{C: ticker.C, stopFunc: ticker.Stop}
}
