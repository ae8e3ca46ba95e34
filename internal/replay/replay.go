// Package replay drives a recorded event stream through the full detection
// pipeline against logical time. It backs the offline `flowd score` command
// and end-to-end tests; no real delays are involved.
package replay

import (
	"sort"
	"time"

	"github.com/johns/flowsense/internal/activity"
	"github.com/johns/flowsense/internal/detect"
	"github.com/johns/flowsense/internal/ledger"
	"github.com/johns/flowsense/internal/score"
)

// Result summarizes one replay.
type Result struct {
	Metrics  int
	Ticks    int
	Final    detect.State
	Scores   []float64 // one per tick, in order
	Sessions []ledger.Session
}

// cursor is a clock whose time the replay loop sets explicitly.
type cursor struct {
	now time.Time
}

func (c *cursor) Now() time.Time { return c.now }

// Run replays events through collection, scoring, and the state machine.
// Events without timestamps are dropped; logical time comes entirely from
// the recording. The trailing partial period is flushed and any open session
// force-exited, mirroring detector shutdown.
func Run(events []activity.Event, p detect.Params) (Result, error) {
	if err := p.Validate(); err != nil {
		return Result{}, err
	}

	var timed []activity.Event
	for _, ev := range events {
		if !ev.Time.IsZero() {
			timed = append(timed, ev)
		}
	}
	if len(timed) == 0 {
		return Result{}, nil
	}
	sort.SliceStable(timed, func(i, j int) bool { return timed[i].Time.Before(timed[j].Time) })

	start := timed[0].Time
	end := timed[len(timed)-1].Time

	clk := &cursor{now: start}
	col := activity.NewCollector(clk)
	col.Start()
	win := activity.NewWindow(p.WindowCapacity)
	mach := detect.NewMachine(p, clk)

	var res Result
	lastCollect := start
	i := 0

	for t := start.Add(p.TickPeriod); ; t = t.Add(p.TickPeriod) {
		clk.now = t

		for i < len(timed) && !timed[i].Time.After(t) {
			col.Record(timed[i])
			i++
		}

		if t.Sub(lastCollect) >= p.CollectPeriod {
			win.Append(col.Flush())
			lastCollect = t
			res.Metrics++
		}

		s := score.Score(win.Recent(p.ScoreWindow))
		res.Scores = append(res.Scores, s)
		res.Ticks++
		if sess, ended := mach.Observe(s); ended {
			res.Sessions = append(res.Sessions, sess)
		}

		if !t.Before(end) {
			break
		}
	}

	if m, ok := col.Stop(); ok {
		win.Append(m)
		res.Metrics++
	}
	if sess, ended := mach.ForceExit(); ended {
		res.Sessions = append(res.Sessions, sess)
	}
	res.Final = mach.State()

	return res, nil
}
