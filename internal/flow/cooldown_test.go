package flow

import (
	"testing"
	"time"
)

func TestCooldownCountsDownToZero(t *testing.T) {
	clock := newFakeClock()
	c := NewCooldown(clock, 3)

	if got := c.Remaining(); got != 3 {
		t.Fatalf("initial remaining = %d, want 3", got)
	}

	for want := 2; want >= 0; want-- {
		clock.tick()
		waitFor(t, func() bool { return c.Remaining() == want })
	}

	// Further ticks after reaching zero must not take it negative. The run
	// has already stopped, so just confirm the value holds.
	time.Sleep(5 * time.Millisecond)
	if got := c.Remaining(); got != 0 {
		t.Fatalf("remaining after expiry = %d, want 0", got)
	}
}

func TestCooldownZeroStart(t *testing.T) {
	clock := newFakeClock()
	c := NewCooldown(clock, 0)
	if got := c.Remaining(); got != 0 {
		t.Fatalf("remaining = %d, want 0", got)
	}
	if len(clock.tickers) != 0 {
		t.Fatalf("no ticker should be scheduled for a zero cooldown")
	}
}

func TestCooldownNegativeClampedToZero(t *testing.T) {
	clock := newFakeClock()
	c := NewCooldown(clock, -5)
	if got := c.Remaining(); got != 0 {
		t.Fatalf("remaining = %d, want 0", got)
	}
}

func TestCooldownResetReplacesCadence(t *testing.T) {
	clock := newFakeClock()
	c := NewCooldown(clock, 10)

	clock.tick()
	waitFor(t, func() bool { return c.Remaining() == 9 })

	c.Reset(5)
	if got := c.Remaining(); got != 5 {
		t.Fatalf("remaining after reset = %d, want 5", got)
	}

	// Ticks delivered to the cancelled run must not decrement anything.
	clock.tickOld(0)
	time.Sleep(5 * time.Millisecond)
	if got := c.Remaining(); got != 5 {
		t.Fatalf("old ticker leaked into new run: remaining = %d, want 5", got)
	}

	// Only the new ticker drives the countdown.
	clock.tick()
	waitFor(t, func() bool { return c.Remaining() == 4 })
}

func TestCooldownStop(t *testing.T) {
	clock := newFakeClock()
	c := NewCooldown(clock, 10)

	c.Stop()
	clock.tickOld(0)
	time.Sleep(5 * time.Millisecond)
	if got := c.Remaining(); got != 10 {
		t.Fatalf("remaining after stop = %d, want 10 (frozen)", got)
	}
}
