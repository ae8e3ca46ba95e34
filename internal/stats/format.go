package stats

import (
	"fmt"
	"strings"
	"time"
)

// Format renders a Summary as aligned terminal output.
func Format(s Summary) string {
	if s.TotalSessions == 0 {
		return "flowd stats\n\n  No flow sessions recorded yet.\n"
	}

	var b strings.Builder
	b.WriteString("flowd stats\n")

	b.WriteString("\nOverview\n")
	fmt.Fprintf(&b, "  %-20s %d\n", "sessions", s.TotalSessions)
	fmt.Fprintf(&b, "  %-20s %s\n", "time in flow", formatDuration(s.TotalFlowTime))
	fmt.Fprintf(&b, "  %-20s %s\n", "avg session", formatDuration(s.AvgDuration))
	fmt.Fprintf(&b, "  %-20s %s\n", "longest session", formatDuration(s.LongestDuration))
	fmt.Fprintf(&b, "  %-20s %.2f\n", "avg peak score", s.AvgPeakScore)
	fmt.Fprintf(&b, "  %-20s %.2f\n", "best peak score", s.BestPeakScore)

	if len(s.Daily) > 0 {
		b.WriteString("\nRecent days\n")
		limit := 7
		if len(s.Daily) < limit {
			limit = len(s.Daily)
		}
		for _, d := range s.Daily[:limit] {
			fmt.Fprintf(&b, "  %s   %2d sessions   %s\n", d.Date, d.Sessions, formatDuration(d.FlowTime))
		}
	}

	if len(s.Contexts) > 0 {
		b.WriteString("\nContexts\n")
		limit := 5
		if len(s.Contexts) < limit {
			limit = len(s.Contexts)
		}
		for _, c := range s.Contexts[:limit] {
			fmt.Fprintf(&b, "  %-24s %3d sessions   %s\n", c.Name, c.Sessions, formatDuration(c.FlowTime))
		}
		if len(s.Contexts) > limit {
			fmt.Fprintf(&b, "  ... and %d more\n", len(s.Contexts)-limit)
		}
	}

	return b.String()
}

func formatDuration(d time.Duration) string {
	d = d.Round(time.Minute)
	h := d / time.Hour
	m := (d % time.Hour) / time.Minute
	if h > 0 {
		return fmt.Sprintf("%dh %02dm", h, m)
	}
	return fmt.Sprintf("%dm", m)
}
