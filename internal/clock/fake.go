package clock

import (
	"sort"
	"sync"
	"time"
)

// Fake is a deterministic Clock. Time only moves when Advance is called.
// AfterFunc callbacks run synchronously inside Advance, in deadline order.
// Do not call Advance from within a callback.
type Fake struct {
	mu      sync.Mutex
	current time.Time
	waiters []*fakeWaiter
	changed *sync.Cond
}

type fakeWaiter struct {
	deadline time.Time
	callback func()         // AfterFunc waiters
	channel  chan time.Time // ticker waiters
	interval time.Duration  // non-zero for tickers
	stopped  bool
	fired    bool
}

// NewFake returns a Fake clock set to initial.
func NewFake(initial time.Time) *Fake {
	f := &Fake{current: initial}
	f.changed = sync.NewCond(&f.mu)
	return f
}

func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.current
}

func (f *Fake) AfterFunc(d time.Duration, fn func()) *Timer {
	f.mu.Lock()
	if d <= 0 {
		f.mu.Unlock()
		fn()
		return &Timer{stopFunc: func() bool { return false }}
	}
	w := &fakeWaiter{deadline: f.current.Add(d), callback: fn}
	f.waiters = append(f.waiters, w)
	f.changed.Broadcast()
	f.mu.Unlock()

	return &Timer{stopFunc: func() bool {
		f.mu.Lock()
		defer f.mu.Unlock()
		if w.stopped || w.fired {
			return false
		}
		w.stopped = true
		return true
	}}
}

func (f *Fake) NewTicker(d time.Duration) *Ticker {
	if d <= 0 {
		panic("clock: non-positive interval for NewTicker")
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	ch := make(chan time.Time, 1)
	w := &fakeWaiter{deadline: f.current.Add(d), channel: ch, interval: d}
	f.waiters = append(f.waiters, w)
	f.changed.Broadcast()

	return &Ticker{C: ch, stopFunc: func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		w.stopped = true
	}}
}

// Advance moves the clock forward by d and fires every waiter whose
// deadline is reached. Tickers fire once per elapsed interval; ticks
// that do not fit the channel buffer are dropped.
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	f.current = f.current.Add(d)
	target := f.current
	f.mu.Unlock()

	for {
		due := f.collectDue(target)
		if len(due) == 0 {
			return
		}
		for _, w := range due {
			if w.callback != nil {
				w.callback()
				continue
			}
			select {
			case w.channel <- target:
			default:
			}
		}
	}
}

func (f *Fake) collectDue(target time.Time) []*fakeWaiter {
	f.mu.Lock()
	defer f.mu.Unlock()

	var due, remaining []*fakeWaiter
	for _, w := range f.waiters {
		switch {
		case w.stopped:
		case !w.deadline.After(target):
			due = append(due, w)
		default:
			remaining = append(remaining, w)
		}
	}
	for _, w := range due {
		if w.interval > 0 {
			w.deadline = w.deadline.Add(w.interval)
			remaining = append(remaining, w)
		} else {
			w.fired = true
		}
	}
	f.waiters = remaining

	sort.SliceStable(due, func(i, j int) bool {
		return due[i].deadline.Before(due[j].deadline)
	})
	return due
}

// WaitForTimers blocks until at least n timers or tickers are pending.
// It closes the race between a goroutine registering a timer and the
// test advancing the clock.
func (f *Fake) WaitForTimers(n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for f.pendingLocked() < n {
		f.changed.Wait()
	}
}

// Pending returns the number of active waiters.
func (f *Fake) Pending() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pendingLocked()
}

func (f *Fake) pendingLocked() int {
	n := 0
	for _, w := range f.waiters {
		if !w.stopped {
			n++
		}
	}
	return n
}
