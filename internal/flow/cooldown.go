package flow

import (
	"sync"
	"time"

	"verify-backend/internal/timeutil"
)

// Cooldown counts down from an initial number of seconds at 1 Hz, floors at
// zero, and can be reset or stopped. At most one ticking interval is active at
// a time; Reset replaces the cadence instead of stacking a second one.
type Cooldown struct {
	mu        sync.Mutex
	clock     timeutil.Clock
	remaining int
	stop      chan struct{}
}

// NewCooldown creates a cooldown gate and starts ticking if initialSeconds > 0
func NewCooldown(clock timeutil.Clock, initialSeconds int) *Cooldown {
	c := &Cooldown{clock: clock}
	c.Reset(initialSeconds)
	return c
}

// Remaining returns the seconds left before the gate opens
func (c *Cooldown) Remaining() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.remaining
}

// Reset replaces the remaining value and restarts the cadence. Any previous
// ticking run is cancelled first so ticks are never double-counted.
func (c *Cooldown) Reset(seconds int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.cancelLocked()
	if seconds < 0 {
		seconds = 0
	}
	c.remaining = seconds
	if seconds == 0 {
		return
	}

	stop := make(chan struct{})
	c.stop = stop
	go c.run(stop)
}

// Stop cancels the countdown. Called on screen teardown so no timer callback
// outlives its owner.
func (c *Cooldown) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cancelLocked()
}

func (c *Cooldown) cancelLocked() {
	if c.stop != nil {
		close(c.stop)
		c.stop = nil
	}
}

func (c *Cooldown) run(stop chan struct{}) {
	ticker := c.clock.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C():
			c.mu.Lock()
			// A Reset may have raced this tick; only the current run decrements.
			if c.stop != stop {
				c.mu.Unlock()
				return
			}
			if c.remaining > 0 {
				c.remaining--
			}
			if c.remaining == 0 {
				c.cancelLocked()
				c.mu.Unlock()
				return
			}
			c.mu.Unlock()
		}
	}
}
