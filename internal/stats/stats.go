// Package stats computes aggregate metrics over completed flow sessions.
package stats

import (
	"sort"
	"time"

	"github.com/johns/flowsense/internal/ledger"
)

// Summary holds aggregate metrics computed from session history.
type Summary struct {
	TotalSessions int
	TotalFlowTime time.Duration

	AvgDuration     time.Duration
	LongestDuration time.Duration
	AvgPeakScore    float64
	BestPeakScore   float64

	Daily    []DayStats     // most recent first
	Contexts []ContextStats // by flow time, descending
}

// DayStats holds per-day aggregates.
type DayStats struct {
	Date     string // YYYY-MM-DD, local time
	Sessions int
	FlowTime time.Duration
}

// ContextStats holds per-context aggregates.
type ContextStats struct {
	Name     string
	Sessions int
	FlowTime time.Duration
}

// Compute builds a summary from sessions. Order of input does not matter.
func Compute(sessions []ledger.Session) Summary {
	var s Summary
	s.TotalSessions = len(sessions)
	if len(sessions) == 0 {
		return s
	}

	dayMap := make(map[string]*DayStats)
	ctxMap := make(map[string]*ContextStats)
	var peakSum float64

	for _, sess := range sessions {
		s.TotalFlowTime += sess.Duration
		if sess.Duration > s.LongestDuration {
			s.LongestDuration = sess.Duration
		}
		peakSum += sess.PeakScore
		if sess.PeakScore > s.BestPeakScore {
			s.BestPeakScore = sess.PeakScore
		}

		date := sess.StartedAt.Local().Format("2006-01-02")
		d, ok := dayMap[date]
		if !ok {
			d = &DayStats{Date: date}
			dayMap[date] = d
		}
		d.Sessions++
		d.FlowTime += sess.Duration

		name := sess.Context
		if name == "" {
			name = "(unknown)"
		}
		c, ok := ctxMap[name]
		if !ok {
			c = &ContextStats{Name: name}
			ctxMap[name] = c
		}
		c.Sessions++
		c.FlowTime += sess.Duration
	}

	s.AvgDuration = s.TotalFlowTime / time.Duration(len(sessions))
	s.AvgPeakScore = peakSum / float64(len(sessions))

	for _, d := range dayMap {
		s.Daily = append(s.Daily, *d)
	}
	sort.Slice(s.Daily, func(i, j int) bool { return s.Daily[i].Date > s.Daily[j].Date })

	for _, c := range ctxMap {
		s.Contexts = append(s.Contexts, *c)
	}
	sort.Slice(s.Contexts, func(i, j int) bool {
		if s.Contexts[i].FlowTime != s.Contexts[j].FlowTime {
			return s.Contexts[i].FlowTime > s.Contexts[j].FlowTime
		}
		return s.Contexts[i].Name < s.Contexts[j].Name
	})

	return s
}
