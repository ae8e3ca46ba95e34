package detect

import "time"

// Method identifies the detection algorithm. Only one is implemented; the
// closed type keeps callers from inventing values.
type Method string

// MethodHybrid blends activity, focus, and rhythm signals with hysteresis.
const MethodHybrid Method = "hybrid"

// State is the live flow-state snapshot. Exactly one current State exists per
// detector; it is refreshed on every evaluation whether or not flow flips.
type State struct {
	InFlow     bool
	Score      float64
	Confidence float64
	StartedAt  time.Time     // zero while out of flow
	Duration   time.Duration // zero while out of flow
	Method     Method
}
