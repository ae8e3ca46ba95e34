package stats

import (
	"strings"
	"testing"
	"time"

	"github.com/johns/flowsense/internal/ledger"
)

func session(start time.Time, dur time.Duration, peak float64, context string) ledger.Session {
	return ledger.Session{
		ID:        start.Format(time.RFC3339),
		StartedAt: start,
		EndedAt:   start.Add(dur),
		Duration:  dur,
		PeakScore: peak,
		Context:   context,
	}
}

func TestCompute_Empty(t *testing.T) {
	s := Compute(nil)
	if s.TotalSessions != 0 {
		t.Errorf("TotalSessions = %d", s.TotalSessions)
	}
	if s.TotalFlowTime != 0 {
		t.Errorf("TotalFlowTime = %v", s.TotalFlowTime)
	}
}

func TestCompute_Totals(t *testing.T) {
	day1 := time.Date(2026, 3, 1, 9, 0, 0, 0, time.Local)
	day2 := time.Date(2026, 3, 2, 9, 0, 0, 0, time.Local)

	s := Compute([]ledger.Session{
		session(day1, 30*time.Minute, 0.9, "editor"),
		session(day1.Add(2*time.Hour), 10*time.Minute, 0.7, "editor"),
		session(day2, 20*time.Minute, 0.8, "terminal"),
	})

	if s.TotalSessions != 3 {
		t.Errorf("TotalSessions = %d, want 3", s.TotalSessions)
	}
	if s.TotalFlowTime != 60*time.Minute {
		t.Errorf("TotalFlowTime = %v, want 1h", s.TotalFlowTime)
	}
	if s.AvgDuration != 20*time.Minute {
		t.Errorf("AvgDuration = %v, want 20m", s.AvgDuration)
	}
	if s.LongestDuration != 30*time.Minute {
		t.Errorf("LongestDuration = %v, want 30m", s.LongestDuration)
	}
	if s.BestPeakScore != 0.9 {
		t.Errorf("BestPeakScore = %v, want 0.9", s.BestPeakScore)
	}
	want := (0.9 + 0.7 + 0.8) / 3
	if s.AvgPeakScore < want-1e-9 || s.AvgPeakScore > want+1e-9 {
		t.Errorf("AvgPeakScore = %v, want %v", s.AvgPeakScore, want)
	}
}

func TestCompute_DailyBuckets(t *testing.T) {
	day1 := time.Date(2026, 3, 1, 9, 0, 0, 0, time.Local)
	day2 := time.Date(2026, 3, 2, 9, 0, 0, 0, time.Local)

	s := Compute([]ledger.Session{
		session(day1, 30*time.Minute, 0.9, ""),
		session(day1.Add(time.Hour), 15*time.Minute, 0.7, ""),
		session(day2, 20*time.Minute, 0.8, ""),
	})

	if len(s.Daily) != 2 {
		t.Fatalf("Daily has %d buckets, want 2", len(s.Daily))
	}
	if s.Daily[0].Date != "2026-03-02" {
		t.Errorf("Daily[0].Date = %s, want most recent first", s.Daily[0].Date)
	}
	if s.Daily[1].Sessions != 2 || s.Daily[1].FlowTime != 45*time.Minute {
		t.Errorf("day1 bucket = %+v", s.Daily[1])
	}
}

func TestCompute_ContextsSortedByFlowTime(t *testing.T) {
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.Local)

	s := Compute([]ledger.Session{
		session(base, 10*time.Minute, 0.7, "terminal"),
		session(base.Add(time.Hour), 40*time.Minute, 0.8, "editor"),
		session(base.Add(2*time.Hour), 5*time.Minute, 0.6, ""),
	})

	if len(s.Contexts) != 3 {
		t.Fatalf("Contexts has %d entries, want 3", len(s.Contexts))
	}
	if s.Contexts[0].Name != "editor" {
		t.Errorf("Contexts[0] = %s, want editor (most flow time)", s.Contexts[0].Name)
	}
	if s.Contexts[2].Name != "(unknown)" {
		t.Errorf("blank context = %q, want (unknown)", s.Contexts[2].Name)
	}
}

func TestFormat_Empty(t *testing.T) {
	out := Format(Summary{})
	if !strings.Contains(out, "No flow sessions") {
		t.Errorf("empty format = %q", out)
	}
}

func TestFormat_RendersSections(t *testing.T) {
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.Local)
	s := Compute([]ledger.Session{
		session(base, 90*time.Minute, 0.9, "editor"),
	})

	out := Format(s)
	for _, want := range []string{"Overview", "time in flow", "1h 30m", "Recent days", "Contexts", "editor"} {
		if !strings.Contains(out, want) {
			t.Errorf("Format output missing %q:\n%s", want, out)
		}
	}
}
