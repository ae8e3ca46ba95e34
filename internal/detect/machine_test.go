package detect

import (
	"testing"
	"time"
)

// fakeClock returns a settable time.
type fakeClock struct {
	now time.Time
}

func (f *fakeClock) Now() time.Time { return f.now }

func (f *fakeClock) advance(d time.Duration) { f.now = f.now.Add(d) }

func newTestMachine() (*Machine, *fakeClock) {
	clk := &fakeClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	return NewMachine(DefaultParams(), clk), clk
}

// observe feeds scores 10s apart, failing the test if any ends a session.
func observe(t *testing.T, m *Machine, clk *fakeClock, scores ...float64) {
	t.Helper()
	for _, s := range scores {
		clk.advance(10 * time.Second)
		if _, ended := m.Observe(s); ended {
			t.Fatalf("Observe(%v) unexpectedly ended a session", s)
		}
	}
}

func TestMachine_EntersAfterConfirmation(t *testing.T) {
	m, clk := newTestMachine()

	observe(t, m, clk, 0.7, 0.7)
	if m.State().InFlow {
		t.Fatal("in flow after 2 qualifying samples, confirmation requires 3")
	}

	observe(t, m, clk, 0.7)
	st := m.State()
	if !st.InFlow {
		t.Fatal("not in flow after 3 qualifying samples")
	}
	if !st.StartedAt.Equal(clk.now) {
		t.Errorf("StartedAt = %v, want %v (the confirming tick)", st.StartedAt, clk.now)
	}
	if st.Confidence <= 0.6 {
		t.Errorf("Confidence = %v, want > 0.6", st.Confidence)
	}
}

func TestMachine_NonConsecutiveQualifiersDoNotEnter(t *testing.T) {
	m, clk := newTestMachine()

	observe(t, m, clk, 0.7, 0.3, 0.7, 0.7)
	if m.State().InFlow {
		t.Fatal("entered flow without 3 consecutive qualifying samples")
	}

	observe(t, m, clk, 0.7)
	if !m.State().InFlow {
		t.Fatal("not in flow after the streak completed")
	}
}

func TestMachine_ThresholdBoundaryQualifies(t *testing.T) {
	m, clk := newTestMachine()

	// Exactly at the enter threshold counts as qualifying.
	observe(t, m, clk, 0.6, 0.6, 0.6)
	if !m.State().InFlow {
		t.Error("scores exactly at the enter threshold should qualify")
	}
}

func TestMachine_SingleLowScoreExitsImmediately(t *testing.T) {
	m, clk := newTestMachine()
	observe(t, m, clk, 0.7, 0.7, 0.7)
	start := m.State().StartedAt

	clk.advance(10 * time.Second)
	sess, ended := m.Observe(0.4)
	if !ended {
		t.Fatal("score below exit threshold did not end the session")
	}
	if m.State().InFlow {
		t.Error("still in flow after exit")
	}
	if !sess.StartedAt.Equal(start) {
		t.Errorf("session StartedAt = %v, want %v", sess.StartedAt, start)
	}
	if !sess.EndedAt.Equal(clk.now) {
		t.Errorf("session EndedAt = %v, want %v", sess.EndedAt, clk.now)
	}
	if sess.Duration != sess.EndedAt.Sub(sess.StartedAt) {
		t.Errorf("Duration = %v, want EndedAt-StartedAt = %v",
			sess.Duration, sess.EndedAt.Sub(sess.StartedAt))
	}
	if sess.ID == "" {
		t.Error("session ID not set")
	}
}

func TestMachine_ScoreAtExitThresholdStaysInFlow(t *testing.T) {
	m, clk := newTestMachine()
	observe(t, m, clk, 0.7, 0.7, 0.7)

	// Exit triggers strictly below the threshold.
	observe(t, m, clk, DefaultParams().ExitThreshold())
	if !m.State().InFlow {
		t.Error("score exactly at the exit threshold should not end the session")
	}
}

func TestMachine_PeakScoreIsSessionMaximum(t *testing.T) {
	m, clk := newTestMachine()
	observe(t, m, clk, 0.7, 0.7, 0.7, 0.65, 0.9, 0.7)

	clk.advance(10 * time.Second)
	sess, ended := m.Observe(0.2)
	if !ended {
		t.Fatal("expected exit")
	}
	if sess.PeakScore != 0.9 {
		t.Errorf("PeakScore = %v, want 0.9", sess.PeakScore)
	}
}

func TestMachine_PeakResetsBetweenSessions(t *testing.T) {
	m, clk := newTestMachine()
	observe(t, m, clk, 0.7, 0.7, 0.95)

	clk.advance(10 * time.Second)
	if _, ended := m.Observe(0.1); !ended {
		t.Fatal("expected first exit")
	}

	observe(t, m, clk, 0.7, 0.7, 0.7)
	clk.advance(10 * time.Second)
	sess, ended := m.Observe(0.1)
	if !ended {
		t.Fatal("expected second exit")
	}
	if sess.PeakScore != 0.7 {
		t.Errorf("second session PeakScore = %v, want 0.7 (peak must reset)", sess.PeakScore)
	}
}

func TestMachine_FieldsRefreshWithoutTransition(t *testing.T) {
	m, clk := newTestMachine()

	observe(t, m, clk, 0.5)
	st := m.State()
	if st.Score != 0.5 {
		t.Errorf("Score = %v, want 0.5", st.Score)
	}
	if st.Confidence == 0 {
		t.Error("Confidence not refreshed")
	}
	if st.InFlow {
		t.Error("single sample must not enter flow")
	}
}

func TestMachine_DurationTracksWhileInFlow(t *testing.T) {
	m, clk := newTestMachine()
	observe(t, m, clk, 0.7, 0.7, 0.7)

	observe(t, m, clk, 0.7, 0.7)
	if got := m.State().Duration; got != 20*time.Second {
		t.Errorf("Duration = %v, want 20s", got)
	}
}

func TestMachine_ForceExitFinalizesActiveSession(t *testing.T) {
	m, clk := newTestMachine()
	observe(t, m, clk, 0.7, 0.7, 0.8)
	start := m.State().StartedAt

	clk.advance(42 * time.Second)
	sess, ended := m.ForceExit()
	if !ended {
		t.Fatal("ForceExit did not finalize the active session")
	}
	if sess.Duration != clk.now.Sub(start) {
		t.Errorf("Duration = %v, want %v", sess.Duration, clk.now.Sub(start))
	}
	if sess.PeakScore != 0.8 {
		t.Errorf("PeakScore = %v, want 0.8", sess.PeakScore)
	}
	if m.State().InFlow {
		t.Error("still in flow after ForceExit")
	}
}

func TestMachine_ForceExitWhenOutOfFlow(t *testing.T) {
	m, _ := newTestMachine()
	if _, ended := m.ForceExit(); ended {
		t.Error("ForceExit out of flow should be a no-op")
	}
}

func TestMachine_SampleBufferBounded(t *testing.T) {
	m, clk := newTestMachine()
	for i := 0; i < 25; i++ {
		clk.advance(10 * time.Second)
		m.Observe(0.1)
	}
	if len(m.samples) != DefaultParams().SampleBuffer {
		t.Errorf("sample buffer length = %d, want %d", len(m.samples), DefaultParams().SampleBuffer)
	}
}

func TestMachine_StateClearedOnExit(t *testing.T) {
	m, clk := newTestMachine()
	observe(t, m, clk, 0.7, 0.7, 0.7)

	clk.advance(10 * time.Second)
	m.Observe(0.1)

	st := m.State()
	if !st.StartedAt.IsZero() {
		t.Errorf("StartedAt = %v after exit, want zero", st.StartedAt)
	}
	if st.Duration != 0 {
		t.Errorf("Duration = %v after exit, want 0", st.Duration)
	}
}
