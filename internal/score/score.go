// Package score computes a flow score in [0,1] from a window of activity
// metrics. The function is pure and total: any input yields a valid score.
package score

import (
	"math"

	"github.com/johns/flowsense/internal/activity"
)

// Component weights. Focus outweighs raw activity volume: flow is steadiness,
// not intensity.
const (
	weightActivity = 0.3
	weightFocus    = 0.4
	weightRhythm   = 0.3

	weightKeyConsistency   = 0.4
	weightMouseConsistency = 0.3
	weightActivityLevel    = 0.3

	weightIdle   = 0.7
	weightSwitch = 0.3
)

// Normalization ceilings.
const (
	activityLevelDivisor = 50.0 // combined mean keys+mouse for a full activity level
	idleCeilingSeconds   = 60.0 // mean idle at which idleScore bottoms out
	switchCeiling        = 5.0  // mean switches at which switchScore bottoms out

	collectPeriodSeconds = 30.0 // keystroke-rate denominator

	neutralRhythm = 0.5 // prior when fewer than 3 windows exist
)

// Breakdown holds the component scores behind a flow score. Useful for debug
// displays; Flow is the clamped weighted sum.
type Breakdown struct {
	Activity float64
	Focus    float64
	Rhythm   float64
	Flow     float64
}

// Score returns the flow score for a window of recent metrics. Windows with
// fewer than 2 metrics score 0: a single sample is never enough to guess from.
func Score(window []activity.Metric) float64 {
	return Compute(window).Flow
}

// Compute returns the full component breakdown for a window.
func Compute(window []activity.Metric) Breakdown {
	if len(window) < 2 {
		return Breakdown{}
	}

	a := activityScore(window)
	f := focusScore(window)
	r := rhythmScore(window)

	flow := clamp(weightActivity*a + weightFocus*f + weightRhythm*r)
	return Breakdown{Activity: a, Focus: f, Rhythm: r, Flow: flow}
}

// activityScore blends keystroke and mouse consistency with overall volume.
func activityScore(window []activity.Metric) float64 {
	keys := make([]float64, len(window))
	mouse := make([]float64, len(window))
	for i, m := range window {
		keys[i] = float64(m.Keystrokes)
		mouse[i] = float64(m.MouseMoves)
	}

	keyCons := consistency(keys)
	mouseCons := consistency(mouse)
	level := math.Min(1, (mean(keys)+mean(mouse))/activityLevelDivisor)

	return weightKeyConsistency*keyCons + weightMouseConsistency*mouseCons + weightActivityLevel*level
}

// focusScore rewards low idle time and few window switches.
func focusScore(window []activity.Metric) float64 {
	idle := make([]float64, len(window))
	switches := make([]float64, len(window))
	for i, m := range window {
		idle[i] = m.IdleSeconds
		switches[i] = float64(m.WindowSwitches)
	}

	idleScore := math.Max(0, 1-mean(idle)/idleCeilingSeconds)
	switchScore := math.Max(0, 1-mean(switches)/switchCeiling)

	return weightIdle*idleScore + weightSwitch*switchScore
}

// rhythmScore measures how uniform successive keystroke-rate changes are.
// Steady typing rhythm is a proxy for sustained engagement.
func rhythmScore(window []activity.Metric) float64 {
	if len(window) < 3 {
		return neutralRhythm
	}

	rates := make([]float64, len(window))
	for i, m := range window {
		rates[i] = float64(m.Keystrokes) / collectPeriodSeconds
	}

	deltas := make([]float64, len(rates)-1)
	for i := 1; i < len(rates); i++ {
		deltas[i-1] = math.Abs(rates[i] - rates[i-1])
	}

	return math.Max(0, 1-variance(deltas)/math.Max(0.1, mean(deltas)))
}

// consistency maps count variance to [0,1]: 1 for perfectly steady counts,
// falling toward 0 as variance outgrows the mean.
func consistency(values []float64) float64 {
	return math.Max(0, 1-variance(values)/math.Max(1, mean(values)))
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// variance is the population variance.
func variance(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	m := mean(values)
	sum := 0.0
	for _, v := range values {
		d := v - m
		sum += d * d
	}
	return sum / float64(len(values))
}

// clamp limits a value to [0, 1].
func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
