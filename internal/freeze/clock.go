// Package freeze implements the system-wide login freeze gate.
//
// The clock is process-local by design: a freeze triggered in one process is
// not visible to a sibling process sharing the same credential store. A
// file-backed implementation following the session-registry pattern could
// close that gap without changing any caller, since consumers only hold a
// *Clock.
package freeze

import (
	"sync"
	"time"
)

// Clock holds an optional frozen-until deadline. Expiry is lazy: every
// check compares the deadline against the current time, and no background
// timer ever fires.
type Clock struct {
	mu    sync.Mutex
	until time.Time
}

func NewClock() *Clock {
	return &Clock{}
}

// IsFrozen reports whether the freeze deadline is still in the future.
func (c *Clock) IsFrozen() bool {
	_, frozen := c.Remaining()
	return frozen
}

// Remaining returns the time left on the freeze, if any.
func (c *Clock) Remaining() (time.Duration, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.until.IsZero() {
		return 0, false
	}
	d := time.Until(c.until)
	if d <= 0 {
		return 0, false
	}
	return d, true
}

// FreezeFor starts a freeze window and returns its duration. If a freeze is
// already running it does nothing and returns the existing remainder:
// freezes never stack or extend.
func (c *Clock) FreezeFor(d time.Duration) time.Duration {
	if remaining, frozen := c.Remaining(); frozen {
		return remaining
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.until = time.Now().Add(d)
	return d
}

// Clear drops the freeze unconditionally.
func (c *Clock) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.until = time.Time{}
}

// ClearExpired clears a deadline that has already passed and reports
// whether it did so, letting callers log the transition exactly once.
func (c *Clock) ClearExpired() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.until.IsZero() || time.Now().Before(c.until) {
		return false
	}
	c.until = time.Time{}
	return true
}
