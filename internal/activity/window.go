package activity

// DefaultWindowCapacity bounds the metric history kept in memory.
const DefaultWindowCapacity = 1000

// Window is a capacity-bounded history of metrics. Once full, each append
// evicts exactly one entry, the oldest. The collector is the only writer;
// downstream consumers read via Recent.
type Window struct {
	buf   []Metric
	head  int // index of the oldest entry
	count int
}

// NewWindow returns an empty window holding at most capacity metrics.
// A capacity below 1 falls back to DefaultWindowCapacity.
func NewWindow(capacity int) *Window {
	if capacity < 1 {
		capacity = DefaultWindowCapacity
	}
	return &Window{buf: make([]Metric, capacity)}
}

// Append adds a metric as the newest entry, evicting the oldest when full.
func (w *Window) Append(m Metric) {
	if w.count < len(w.buf) {
		w.buf[(w.head+w.count)%len(w.buf)] = m
		w.count++
		return
	}
	w.buf[w.head] = m
	w.head = (w.head + 1) % len(w.buf)
}

// Len returns the number of metrics currently held.
func (w *Window) Len() int { return w.count }

// Recent returns up to n metrics, newest first.
func (w *Window) Recent(n int) []Metric {
	if n > w.count {
		n = w.count
	}
	if n <= 0 {
		return nil
	}
	out := make([]Metric, n)
	for i := 0; i < n; i++ {
		out[i] = w.buf[(w.head+w.count-1-i)%len(w.buf)]
	}
	return out
}
