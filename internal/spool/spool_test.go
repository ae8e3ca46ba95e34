package spool

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/johns/flowsense/internal/activity"
)

func TestParseEvent_Valid(t *testing.T) {
	line := `{"kind":"key_press","time":"2026-03-01T09:00:00Z"}`
	ev, err := ParseEvent([]byte(line))
	if err != nil {
		t.Fatalf("ParseEvent: %v", err)
	}
	if ev.Kind != activity.KindKeyPress {
		t.Errorf("Kind = %q", ev.Kind)
	}
	if ev.Time.IsZero() {
		t.Error("Time not parsed")
	}
}

func TestParseEvent_WithContext(t *testing.T) {
	line := `{"kind":"focus_gain","time":"2026-03-01T09:00:00Z","context":"editor"}`
	ev, err := ParseEvent([]byte(line))
	if err != nil {
		t.Fatalf("ParseEvent: %v", err)
	}
	if ev.Context != "editor" {
		t.Errorf("Context = %q", ev.Context)
	}
}

func TestParseEvent_MissingTimeAllowed(t *testing.T) {
	ev, err := ParseEvent([]byte(`{"kind":"pointer_move"}`))
	if err != nil {
		t.Fatalf("ParseEvent: %v", err)
	}
	if !ev.Time.IsZero() {
		t.Error("missing time should stay zero for the consumer to stamp")
	}
}

func TestParseEvent_UnknownKind(t *testing.T) {
	if _, err := ParseEvent([]byte(`{"kind":"teleport"}`)); err == nil {
		t.Error("unknown kind accepted")
	}
}

func TestParseEvent_BrokenJSON(t *testing.T) {
	if _, err := ParseEvent([]byte(`{"kind":`)); err == nil {
		t.Error("broken JSON accepted")
	}
}

func TestReadAll_SkipsMalformedLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.jsonl")
	content := `{"kind":"key_press","time":"2026-03-01T09:00:00Z"}
not json at all

{"kind":"teleport"}
{"kind":"focus_gain","time":"2026-03-01T09:00:05Z"}
`
	os.WriteFile(path, []byte(content), 0o644)

	events, err := ReadAll(path)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("ReadAll returned %d events, want 2", len(events))
	}
	if events[0].Kind != activity.KindKeyPress || events[1].Kind != activity.KindFocusGain {
		t.Errorf("wrong events: %+v", events)
	}
}

func TestReadAll_MissingFile(t *testing.T) {
	if _, err := ReadAll(filepath.Join(t.TempDir(), "absent.jsonl")); err == nil {
		t.Error("expected error for missing file")
	}
}

func waitForEvents(t *testing.T, ch <-chan activity.Event, n int) []activity.Event {
	t.Helper()
	var got []activity.Event
	deadline := time.After(5 * time.Second)
	for len(got) < n {
		select {
		case ev := <-ch:
			got = append(got, ev)
		case <-deadline:
			t.Fatalf("timed out with %d of %d events", len(got), n)
		}
	}
	return got
}

func TestReader_TailsAppendedLines(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "events.jsonl")
	os.WriteFile(path, []byte(`{"kind":"key_press","time":"2026-03-01T08:59:59Z"}`+"\n"), 0o644)

	r, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer r.Close()

	// Pre-existing content must be skipped; only appended lines arrive.
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("open for append: %v", err)
	}
	f.WriteString(`{"kind":"pointer_move","time":"2026-03-01T09:00:00Z"}` + "\n")
	f.WriteString("garbage line\n")
	f.WriteString(`{"kind":"focus_gain","time":"2026-03-01T09:00:01Z","context":"editor"}` + "\n")
	f.Close()

	got := waitForEvents(t, r.Events(), 2)
	if got[0].Kind != activity.KindPointerMove {
		t.Errorf("first event = %q", got[0].Kind)
	}
	if got[1].Kind != activity.KindFocusGain || got[1].Context != "editor" {
		t.Errorf("second event = %+v", got[1])
	}
}

func TestReader_PicksUpCreatedFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "events.jsonl")

	r, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer r.Close()

	if err := os.WriteFile(path, []byte(`{"kind":"key_press","time":"2026-03-01T09:00:00Z"}`+"\n"), 0o644); err != nil {
		t.Fatalf("write spool: %v", err)
	}

	got := waitForEvents(t, r.Events(), 1)
	if got[0].Kind != activity.KindKeyPress {
		t.Errorf("event = %q", got[0].Kind)
	}
}

func TestReader_CloseEndsStream(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.jsonl")
	r, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	r.Close()

	select {
	case _, ok := <-r.Events():
		if ok {
			t.Error("expected closed channel, got event")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("event channel not closed after Close")
	}
}
