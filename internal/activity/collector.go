package activity

import (
	"time"

	"github.com/johns/flowsense/internal/clock"
)

// Collector aggregates raw interaction events into per-period Metrics.
//
// It is not safe for concurrent use: the owning detector applies events,
// flushes, and stops on a single goroutine, so the counters need no locking.
// Record is O(1) and never materializes a metric itself.
type Collector struct {
	clk clock.Clock

	running bool

	keystrokes uint
	mouseMoves uint
	switches   uint
	idleSecs   float64
	idleStart  time.Time // zero while focused
	context    string
}

// NewCollector returns a stopped collector reading time from clk.
func NewCollector(clk clock.Clock) *Collector {
	return &Collector{clk: clk}
}

// Start begins accepting events. Calling Start on a running collector is a
// no-op.
func (c *Collector) Start() {
	c.running = true
}

// Running reports whether the collector is accepting events.
func (c *Collector) Running() bool { return c.running }

// Record applies one event to the current period's counters. Events arriving
// while stopped are dropped. A signal the host never emits simply leaves its
// counter at zero.
func (c *Collector) Record(ev Event) {
	if !c.running {
		return
	}
	switch ev.Kind {
	case KindKeyPress:
		c.keystrokes++
	case KindPointerMove:
		c.mouseMoves++
	case KindFocusLoss:
		if c.idleStart.IsZero() {
			c.idleStart = ev.Time
		}
	case KindFocusGain:
		if !c.idleStart.IsZero() {
			if d := ev.Time.Sub(c.idleStart); d > 0 {
				c.idleSecs += d.Seconds()
			}
			c.idleStart = time.Time{}
		}
		c.switches++
		if ev.Context != "" {
			c.context = ev.Context
		}
	}
}

// Flush materializes the accumulated counters into a Metric stamped at the
// current time and resets them for the next period. An open idle interval is
// left running: its full span is credited to the period in which focus
// returns.
func (c *Collector) Flush() Metric {
	m := Metric{
		Timestamp:      c.clk.Now(),
		Keystrokes:     c.keystrokes,
		MouseMoves:     c.mouseMoves,
		WindowSwitches: c.switches,
		IdleSeconds:    c.idleSecs,
		Context:        c.context,
	}
	c.keystrokes = 0
	c.mouseMoves = 0
	c.switches = 0
	c.idleSecs = 0
	return m
}

// Stop flushes the partial period as a final metric and stops accepting
// events. The second return is false if the collector was already stopped.
func (c *Collector) Stop() (Metric, bool) {
	if !c.running {
		return Metric{}, false
	}
	m := c.Flush()
	c.running = false
	return m, true
}
