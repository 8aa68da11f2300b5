package timeutil

import "time"

// Now returns the current time in UTC. All timestamps stored or compared by
// the service go through here so they are comparable across pods.
func Now() time.Time {
	return time.Now().UTC()
}

// Ticker delivers ticks on a channel and can be stopped
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// Clock abstracts wall-clock time so countdown logic can be driven by
// simulated time in tests.
type Clock interface {
	Now() time.Time
	NewTicker(d time.Duration) Ticker
}

// System returns a Clock backed by the real wall clock
func System() Clock {
	return systemClock{}
}

type systemClock struct{}

func (systemClock) Now() time.Time { return Now() }

func (systemClock) NewTicker(d time.Duration) Ticker {
	return &systemTicker{t: time.NewTicker(d)}
}

type systemTicker struct {
	t *time.Ticker
}

func (s *systemTicker) C() <-chan time.Time { return s.t.C }
func (s *systemTicker) Stop()               { s.t.Stop() }

// Common layouts for display formatting
const (
	DateLayout     = "2006-01-02"
	TimeLayout     = "15:04:05"
	DateTimeLayout = "2006-01-02 15:04:05"
)
