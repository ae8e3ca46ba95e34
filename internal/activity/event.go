// Package activity models raw interaction events and the per-period metrics
// aggregated from them.
package activity

import "time"

// EventKind identifies one of the four interaction signals the detector
// consumes. The set is closed; unknown kinds are rejected at parse time.
type EventKind string

const (
	KindKeyPress    EventKind = "key_press"
	KindPointerMove EventKind = "pointer_move"
	KindFocusGain   EventKind = "focus_gain"
	KindFocusLoss   EventKind = "focus_loss"
)

// Valid reports whether k is one of the known event kinds.
func (k EventKind) Valid() bool {
	switch k {
	case KindKeyPress, KindPointerMove, KindFocusGain, KindFocusLoss:
		return true
	}
	return false
}

// Event is a single timestamped interaction signal. Focus-gain events may
// carry the context (window/tab title) that became active.
type Event struct {
	Kind    EventKind `json:"kind"`
	Time    time.Time `json:"time"`
	Context string    `json:"context,omitempty"`
}
