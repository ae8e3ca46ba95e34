package activity

import "time"

// Metric is one collection period's aggregated interaction counts.
// Metrics are immutable once materialized.
type Metric struct {
	Timestamp      time.Time
	Keystrokes     uint
	MouseMoves     uint
	WindowSwitches uint
	IdleSeconds    float64
	Context        string
}
