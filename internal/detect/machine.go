package detect

import (
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/johns/flowsense/internal/clock"
	"github.com/johns/flowsense/internal/ledger"
)

// Confidence blends how much data backs the decision with how steady the
// score is across the last two samples.
const (
	confidenceQualityWeight   = 0.6
	confidenceStabilityWeight = 0.4
	qualitySampleTarget       = 5
)

type sample struct {
	at    time.Time
	score float64
}

// Machine is the asymmetric-hysteresis flow state machine. Entering flow
// requires ConfirmSamples consecutive qualifying scores; a single score below
// the exit threshold ends it immediately. Not safe for concurrent use: the
// owning detector serializes all observations.
type Machine struct {
	p   Params
	clk clock.Clock

	state   State
	samples []sample // newest last, bounded by p.SampleBuffer
	peak    float64  // highest score of the current session
}

// NewMachine returns a machine in the out-of-flow state.
func NewMachine(p Params, clk clock.Clock) *Machine {
	return &Machine{
		p:     p,
		clk:   clk,
		state: State{Method: MethodHybrid},
	}
}

// State returns the current flow-state snapshot.
func (m *Machine) State() State { return m.state }

// Observe records a new score sample and applies the transition rules.
// When the observation ends a session, the finalized session is returned
// with ended = true.
func (m *Machine) Observe(s float64) (sess ledger.Session, ended bool) {
	now := m.clk.Now()

	prev := s
	if n := len(m.samples); n > 0 {
		prev = m.samples[n-1].score
	}
	m.samples = append(m.samples, sample{at: now, score: s})
	if len(m.samples) > m.p.SampleBuffer {
		m.samples = m.samples[len(m.samples)-m.p.SampleBuffer:]
	}

	// Score and confidence refresh on every observation, including ones that
	// leave the flow flag unchanged.
	m.state.Score = s
	m.state.Confidence = m.confidence(s, prev)

	if m.state.InFlow {
		if s < m.p.ExitThreshold() {
			return m.exit(now), true
		}
		if s > m.peak {
			m.peak = s
		}
		m.state.Duration = now.Sub(m.state.StartedAt)
		return ledger.Session{}, false
	}

	if m.confirmed() {
		m.state.InFlow = true
		m.state.StartedAt = now
		m.state.Duration = 0
		m.peak = s
	}
	return ledger.Session{}, false
}

// ForceExit finalizes an in-progress session at the current instant, as on
// shutdown. Returns ended = false if no session was active.
func (m *Machine) ForceExit() (ledger.Session, bool) {
	if !m.state.InFlow {
		return ledger.Session{}, false
	}
	return m.exit(m.clk.Now()), true
}

// confirmed reports whether the most recent ConfirmSamples scores all reached
// the enter threshold.
func (m *Machine) confirmed() bool {
	if len(m.samples) < m.p.ConfirmSamples {
		return false
	}
	for _, sm := range m.samples[len(m.samples)-m.p.ConfirmSamples:] {
		if sm.score < m.p.EnterThreshold {
			return false
		}
	}
	return true
}

func (m *Machine) confidence(current, previous float64) float64 {
	quality := math.Min(1, float64(len(m.samples))/qualitySampleTarget)
	stability := 1 - math.Abs(current-previous)
	c := quality*confidenceQualityWeight + stability*confidenceStabilityWeight
	if c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}

func (m *Machine) exit(now time.Time) ledger.Session {
	sess := ledger.Session{
		ID:        uuid.NewString(),
		StartedAt: m.state.StartedAt,
		EndedAt:   now,
		Duration:  now.Sub(m.state.StartedAt),
		PeakScore: m.peak,
	}
	m.state.InFlow = false
	m.state.StartedAt = time.Time{}
	m.state.Duration = 0
	m.peak = 0
	return sess
}
