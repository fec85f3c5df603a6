// SPDX-License-Identifier: MPL-2.0

// Package clock abstracts wall-clock time so the engine's timeout strategies
// (spec.md §4.8) can be driven deterministically in tests instead of racing
// real goroutine sleeps against real deadlines.
package clock

import (
	"sync"
	"time"
)

// Clock is the time source the engine's Simple/Aggressive/Graceful timeout
// strategies read from instead of calling the time package directly.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
	Since(t time.Time) time.Duration
}

// RealClock is the production Clock, a thin pass-through to the time package.
type RealClock struct{}

func (RealClock) Now() time.Time                         { return time.Now() }
func (RealClock) After(d time.Duration) <-chan time.Time  { return time.After(d) }
func (RealClock) Since(t time.Time) time.Duration         { return time.Since(t) }

// waiter is one pending After() call: it fires once current reaches target.
type waiter struct {
	target time.Time
	ch     chan time.Time
}

// FakeClock is a manually-advanced Clock for deterministic timeout-strategy
// tests: Advance/Set move the clock forward and fire any waiter whose target
// has been reached, instead of the test sleeping in real time.
type FakeClock struct {
	mu      sync.Mutex
	current time.Time
	waiters []waiter
}

// NewFakeClock creates a FakeClock starting at initial, or 2020-01-01 UTC if
// initial is the zero time.
func NewFakeClock(initial time.Time) *FakeClock {
	if initial.IsZero() {
		initial = time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	}
	return &FakeClock{current: initial}
}

// Now returns the current fake time.
func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Since returns the elapsed fake duration since t.
func (c *FakeClock) Since(t time.Time) time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current.Sub(t)
}

// After returns a channel that fires once the fake clock reaches current+d.
// Zero or negative durations fire immediately.
func (c *FakeClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	ch := make(chan time.Time, 1)
	target := c.current.Add(d)
	if !target.After(c.current) {
		ch <- c.current
		return ch
	}
	c.waiters = append(c.waiters, waiter{target: target, ch: ch})
	return ch
}

// Advance moves the fake clock forward by d, firing any waiters whose
// target has now been reached.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.current = c.current.Add(d)
	c.notifyWaiters()
	c.mu.Unlock()
}

// Set moves the fake clock to t, firing any waiters whose target has now
// been reached (or rearming nothing if t moves backward).
func (c *FakeClock) Set(t time.Time) {
	c.mu.Lock()
	c.current = t
	c.notifyWaiters()
	c.mu.Unlock()
}

// notifyWaiters must be called with mu held.
func (c *FakeClock) notifyWaiters() {
	remaining := c.waiters[:0]
	for _, w := range c.waiters {
		if !w.target.After(c.current) {
			w.ch <- c.current
		} else {
			remaining = append(remaining, w)
		}
	}
	c.waiters = remaining
}
