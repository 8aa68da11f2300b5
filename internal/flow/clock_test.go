package flow

import (
	"sync"
	"testing"
	"time"

	"verify-backend/internal/timeutil"
)

// fakeClock drives cooldowns with manually pushed ticks so tests run on
// simulated time.
type fakeClock struct {
	mu      sync.Mutex
	tickers []*fakeTicker
}

func newFakeClock() *fakeClock { return &fakeClock{} }

func (c *fakeClock) Now() time.Time { return time.Unix(0, 0) }

func (c *fakeClock) NewTicker(d time.Duration) timeutil.Ticker {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTicker{ch: make(chan time.Time, 64)}
	c.tickers = append(c.tickers, t)
	return t
}

// tick delivers one tick to the most recently created ticker, waiting for
// one to appear first since tickers are created on a goroutine.
func (c *fakeClock) tick() {
	var t *fakeTicker
	for t == nil {
		c.mu.Lock()
		if n := len(c.tickers); n > 0 {
			t = c.tickers[n-1]
		}
		c.mu.Unlock()
		if t == nil {
			time.Sleep(time.Millisecond)
		}
	}
	t.ch <- time.Unix(0, 0)
}

// tickOld delivers one tick to an earlier ticker, for reset races. It waits
// for ticker i to appear, since tickers are created on a goroutine.
func (c *fakeClock) tickOld(i int) {
	var t *fakeTicker
	for t == nil {
		c.mu.Lock()
		if len(c.tickers) > i {
			t = c.tickers[i]
		}
		c.mu.Unlock()
		if t == nil {
			time.Sleep(time.Millisecond)
		}
	}
	select {
	case t.ch <- time.Unix(0, 0):
	default:
	}
}

type fakeTicker struct {
	ch chan time.Time
}

func (t *fakeTicker) C() <-chan time.Time { return t.ch }
func (t *fakeTicker) Stop()               {}

// waitFor polls cond until it holds or the deadline passes
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition not reached in time")
}
