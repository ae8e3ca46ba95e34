package detect

import (
	"fmt"
	"time"

	"github.com/johns/flowsense/internal/activity"
	"github.com/johns/flowsense/internal/ledger"
)

// Default detection parameters. The exit ratio and confirmation count come
// straight from the tuned values the scoring model was calibrated against;
// both are overridable rather than derived.
const (
	DefaultCollectPeriod  = 30 * time.Second
	DefaultTickPeriod     = 10 * time.Second
	DefaultScoreWindow    = 5
	DefaultSampleBuffer   = 10
	DefaultEnterThreshold = 0.6
	DefaultExitRatio      = 0.8
	DefaultConfirmSamples = 3
)

// Params configures a detector. Zero values are invalid; start from
// DefaultParams and override fields.
type Params struct {
	CollectPeriod  time.Duration // metric materialization cadence
	TickPeriod     time.Duration // evaluation cadence, independent of collection
	WindowCapacity int           // metric history bound
	ScoreWindow    int           // metrics fed to the scorer per evaluation
	SampleBuffer   int           // rolling score samples kept for hysteresis
	EnterThreshold float64       // all confirmation samples must reach this
	ExitRatio      float64       // exit threshold = EnterThreshold * ExitRatio
	ConfirmSamples int           // consecutive qualifying samples to enter flow
	LedgerCapacity int           // completed-session history bound
}

// DefaultParams returns the standard detection parameters.
func DefaultParams() Params {
	return Params{
		CollectPeriod:  DefaultCollectPeriod,
		TickPeriod:     DefaultTickPeriod,
		WindowCapacity: activity.DefaultWindowCapacity,
		ScoreWindow:    DefaultScoreWindow,
		SampleBuffer:   DefaultSampleBuffer,
		EnterThreshold: DefaultEnterThreshold,
		ExitRatio:      DefaultExitRatio,
		ConfirmSamples: DefaultConfirmSamples,
		LedgerCapacity: ledger.DefaultCapacity,
	}
}

// ExitThreshold returns the score below which flow ends immediately.
func (p Params) ExitThreshold() float64 {
	return p.EnterThreshold * p.ExitRatio
}

// Validate checks that the parameters describe a runnable detector.
func (p Params) Validate() error {
	if p.CollectPeriod <= 0 {
		return fmt.Errorf("collect period must be positive, got %v", p.CollectPeriod)
	}
	if p.TickPeriod <= 0 {
		return fmt.Errorf("tick period must be positive, got %v", p.TickPeriod)
	}
	if p.ScoreWindow < 2 {
		return fmt.Errorf("score window must be at least 2, got %d", p.ScoreWindow)
	}
	if p.EnterThreshold <= 0 || p.EnterThreshold > 1 {
		return fmt.Errorf("enter threshold must be in (0,1], got %v", p.EnterThreshold)
	}
	if p.ExitRatio <= 0 || p.ExitRatio >= 1 {
		return fmt.Errorf("exit ratio must be in (0,1), got %v", p.ExitRatio)
	}
	if p.ConfirmSamples < 1 {
		return fmt.Errorf("confirm samples must be at least 1, got %d", p.ConfirmSamples)
	}
	if p.SampleBuffer < p.ConfirmSamples {
		return fmt.Errorf("sample buffer (%d) must hold at least confirm samples (%d)",
			p.SampleBuffer, p.ConfirmSamples)
	}
	return nil
}
