// Package detect turns a stream of interaction events into a flow-state
// signal and a history of completed flow sessions.
package detect

import (
	"errors"
	"sync"
	"time"

	"github.com/johns/flowsense/internal/activity"
	"github.com/johns/flowsense/internal/clock"
	"github.com/johns/flowsense/internal/ledger"
	"github.com/johns/flowsense/internal/score"
)

// ErrNotStarted is returned when a detector operation requires Start first.
var ErrNotStarted = errors.New("detector not started")

const eventBuffer = 256

// request asks the detector goroutine to run a step synchronously.
type request struct {
	collect bool // materialize the current period before replying
	reply   chan State
}

// Detector is the single-owner actor for the whole pipeline: event callbacks
// and both periodic sources feed one goroutine, which applies them in arrival
// order. The metric window, state machine, and ledger are only ever touched
// from that goroutine; readers get snapshots.
type Detector struct {
	params Params
	clk    clock.Clock

	collectTicks clock.TickSource
	detectTicks  clock.TickSource
	ownTickers   bool

	onEnter func(State)
	onExit  func(ledger.Session)

	events   chan activity.Event
	requests chan request
	quit     chan struct{}
	done     chan struct{}

	collector *activity.Collector
	window    *activity.Window
	machine   *Machine
	sessions  *ledger.Ledger

	lastContext string

	mu      sync.Mutex
	started bool
	stopped bool
	snap    State
}

// Option customizes a Detector.
type Option func(*Detector)

// WithClock substitutes the time source. Tests use this to run against
// logical time.
func WithClock(c clock.Clock) Option {
	return func(d *Detector) { d.clk = c }
}

// WithTickSources substitutes the periodic collection and evaluation sources.
// When unset, Start creates real tickers from the configured periods.
func WithTickSources(collect, detect clock.TickSource) Option {
	return func(d *Detector) {
		d.collectTicks = collect
		d.detectTicks = detect
	}
}

// WithOnEnter registers a callback invoked from the detector goroutine when
// flow begins. The callback must not block.
func WithOnEnter(fn func(State)) Option {
	return func(d *Detector) { d.onEnter = fn }
}

// WithOnExit registers a callback invoked from the detector goroutine with
// each finalized session. The callback must not block.
func WithOnExit(fn func(ledger.Session)) Option {
	return func(d *Detector) { d.onExit = fn }
}

// New builds a detector from params. The detector is idle until Start.
func New(p Params, opts ...Option) (*Detector, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	d := &Detector{
		params:   p,
		clk:      clock.System{},
		events:   make(chan activity.Event, eventBuffer),
		requests: make(chan request),
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
		window:   activity.NewWindow(p.WindowCapacity),
		sessions: ledger.New(p.LedgerCapacity),
		snap:     State{Method: MethodHybrid},
	}
	for _, opt := range opts {
		opt(d)
	}

	d.collector = activity.NewCollector(d.clk)
	d.machine = NewMachine(p, d.clk)
	return d, nil
}

// Start launches the detector goroutine. Calling Start on a running or
// stopped detector is a no-op.
func (d *Detector) Start() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started || d.stopped {
		return
	}
	d.started = true

	if d.collectTicks == nil {
		d.collectTicks = clock.NewTicker(d.params.CollectPeriod)
		d.detectTicks = clock.NewTicker(d.params.TickPeriod)
		d.ownTickers = true
	}

	d.collector.Start()
	go d.loop()
}

// Stop halts the detector. The partial collection period is flushed as a
// final metric, and an in-progress flow session is finalized at the stop
// instant and written to the ledger, so no session is silently lost on
// shutdown. Calling Stop on a stopped (or never started) detector is a no-op.
func (d *Detector) Stop() {
	d.mu.Lock()
	if !d.started || d.stopped {
		d.mu.Unlock()
		return
	}
	d.stopped = true
	d.mu.Unlock()

	close(d.quit)
	<-d.done
}

// HandleEvent enqueues one interaction event. It never blocks: if the
// detector is saturated or not running, the event is dropped.
func (d *Detector) HandleEvent(ev activity.Event) {
	if ev.Time.IsZero() {
		ev.Time = d.clk.Now()
	}
	select {
	case d.events <- ev:
	default:
	}
}

// Collect forces the current period to materialize into a metric, then
// returns the refreshed state. Primarily for tests and offline drivers; the
// periodic source does this on its own cadence.
func (d *Detector) Collect() (State, error) {
	return d.request(request{collect: true, reply: make(chan State, 1)})
}

// Tick runs one evaluation step and returns the resulting state.
func (d *Detector) Tick() (State, error) {
	return d.request(request{reply: make(chan State, 1)})
}

func (d *Detector) request(req request) (State, error) {
	d.mu.Lock()
	running := d.started && !d.stopped
	d.mu.Unlock()
	if !running {
		return State{}, ErrNotStarted
	}

	select {
	case d.requests <- req:
	case <-d.done:
		return State{}, ErrNotStarted
	}
	select {
	case st := <-req.reply:
		return st, nil
	case <-d.done:
		return State{}, ErrNotStarted
	}
}

// State returns the latest flow-state snapshot.
func (d *Detector) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.snap
}

// CurrentScore returns the most recent flow score.
func (d *Detector) CurrentScore() float64 { return d.State().Score }

// InFlow reports whether flow is currently detected.
func (d *Detector) InFlow() bool { return d.State().InFlow }

// FlowDuration returns how long the current flow session has lasted, or 0
// when out of flow.
func (d *Detector) FlowDuration() time.Duration {
	st := d.State()
	if !st.InFlow {
		return 0
	}
	return d.clk.Now().Sub(st.StartedAt)
}

// Sessions returns the ledger of completed flow sessions.
func (d *Detector) Sessions() *ledger.Ledger { return d.sessions }

// WithinLast returns completed sessions that ended within the past duration,
// newest first.
func (d *Detector) WithinLast(dur time.Duration) []ledger.Session {
	return d.sessions.Since(d.clk.Now().Add(-dur))
}

func (d *Detector) loop() {
	defer close(d.done)

	for {
		select {
		case <-d.quit:
			d.shutdown()
			return
		case ev := <-d.events:
			d.collector.Record(ev)
		case <-d.collectTicks.C():
			d.collect()
		case <-d.detectTicks.C():
			d.evaluate()
		case req := <-d.requests:
			if req.collect {
				d.collect()
				req.reply <- d.machine.State()
				continue
			}
			req.reply <- d.evaluate()
		}
	}
}

// drainEvents applies all queued events. Collection and evaluation drain
// first so events that arrived before a period boundary land in that period.
func (d *Detector) drainEvents() {
	for {
		select {
		case ev := <-d.events:
			d.collector.Record(ev)
		default:
			return
		}
	}
}

func (d *Detector) collect() {
	d.drainEvents()
	m := d.collector.Flush()
	d.lastContext = m.Context
	d.window.Append(m)
}

func (d *Detector) evaluate() State {
	d.drainEvents()
	s := score.Score(d.window.Recent(d.params.ScoreWindow))

	wasInFlow := d.machine.State().InFlow
	sess, ended := d.machine.Observe(s)
	st := d.machine.State()

	if ended {
		sess.Context = d.lastContext
		d.sessions.Append(sess)
		if d.onExit != nil {
			d.onExit(sess)
		}
	} else if st.InFlow && !wasInFlow && d.onEnter != nil {
		d.onEnter(st)
	}

	d.setSnapshot(st)
	return st
}

// shutdown flushes the partial period and finalizes any active session.
func (d *Detector) shutdown() {
	d.drainEvents()

	if m, ok := d.collector.Stop(); ok {
		d.lastContext = m.Context
		d.window.Append(m)
	}

	if sess, ended := d.machine.ForceExit(); ended {
		sess.Context = d.lastContext
		d.sessions.Append(sess)
		if d.onExit != nil {
			d.onExit(sess)
		}
	}
	d.setSnapshot(d.machine.State())

	if d.ownTickers {
		d.collectTicks.Stop()
		d.detectTicks.Stop()
	}
}

func (d *Detector) setSnapshot(st State) {
	d.mu.Lock()
	d.snap = st
	d.mu.Unlock()
}
