// Package ledger keeps the bounded, append-only history of completed flow
// sessions.
package ledger

import (
	"sync"
	"time"
)

// DefaultCapacity bounds the in-memory session history.
const DefaultCapacity = 100

// Session is one completed flow session. Sessions are immutable: they are
// created at the instant flow ends and never updated.
type Session struct {
	ID        string        `json:"id"`
	StartedAt time.Time     `json:"started_at"`
	EndedAt   time.Time     `json:"ended_at"`
	Duration  time.Duration `json:"duration"`
	PeakScore float64       `json:"peak_score"`
	Context   string        `json:"context,omitempty"`
}

// Ledger is a capacity-bounded FIFO of sessions. Only the detector's exit
// transition appends; readers get copies. Safe for concurrent use.
type Ledger struct {
	mu       sync.Mutex
	cap      int
	sessions []Session // oldest first
}

// New returns an empty ledger holding at most capacity sessions.
// A capacity below 1 falls back to DefaultCapacity.
func New(capacity int) *Ledger {
	if capacity < 1 {
		capacity = DefaultCapacity
	}
	return &Ledger{cap: capacity}
}

// Append adds a completed session, evicting the oldest once at capacity.
func (l *Ledger) Append(s Session) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.sessions) == l.cap {
		copy(l.sessions, l.sessions[1:])
		l.sessions[len(l.sessions)-1] = s
		return
	}
	l.sessions = append(l.sessions, s)
}

// Len returns the number of sessions held.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.sessions)
}

// Recent returns up to n sessions, newest first.
func (l *Ledger) Recent(n int) []Session {
	l.mu.Lock()
	defer l.mu.Unlock()

	if n > len(l.sessions) {
		n = len(l.sessions)
	}
	if n <= 0 {
		return nil
	}
	out := make([]Session, n)
	for i := 0; i < n; i++ {
		out[i] = l.sessions[len(l.sessions)-1-i]
	}
	return out
}

// Since returns sessions that ended at or after cutoff, newest first.
func (l *Ledger) Since(cutoff time.Time) []Session {
	l.mu.Lock()
	defer l.mu.Unlock()

	var out []Session
	for i := len(l.sessions) - 1; i >= 0; i-- {
		if l.sessions[i].EndedAt.Before(cutoff) {
			continue
		}
		out = append(out, l.sessions[i])
	}
	return out
}
