// Package clock separates wall-clock time and periodic ticks from the code
// that consumes them, so detection logic can run against logical time in tests.
package clock

import "time"

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

// System is the real wall clock.
type System struct{}

func (System) Now() time.Time { return time.Now() }

// TickSource delivers periodic ticks on a channel.
type TickSource interface {
	C() <-chan time.Time
	Stop()
}

// Ticker wraps time.Ticker as a TickSource.
type Ticker struct {
	t *time.Ticker
}

// NewTicker returns a TickSource backed by a real time.Ticker.
func NewTicker(d time.Duration) *Ticker {
	return &Ticker{t: time.NewTicker(d)}
}

func (tk *Ticker) C() <-chan time.Time { return tk.t.C }
func (tk *Ticker) Stop()               { tk.t.Stop() }

// Manual is a TickSource driven by explicit Tick calls. Used in tests and
// offline replay to advance detection without real delays.
type Manual struct {
	ch chan time.Time
}

// NewManual returns a Manual tick source. The channel is buffered so a tick
// can be queued before a consumer is listening.
func NewManual() *Manual {
	return &Manual{ch: make(chan time.Time, 16)}
}

func (m *Manual) C() <-chan time.Time { return m.ch }
func (m *Manual) Stop()               {}

// Tick queues one tick stamped at t.
func (m *Manual) Tick(t time.Time) {
	m.ch <- t
}
