// Package spool reads interaction events from the JSONL spool file the
// frontend appends to. Reader tails the file live via fsnotify; ReadAll
// slurps a recorded spool for offline replay.
package spool

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/johns/flowsense/internal/activity"
)

const eventBuffer = 256

// ParseEvent parses one spool line into an event. Lines with unknown kinds
// or broken JSON are rejected; a missing timestamp is allowed and left zero
// for the consumer to stamp.
func ParseEvent(line []byte) (activity.Event, error) {
	var ev activity.Event
	if err := json.Unmarshal(line, &ev); err != nil {
		return activity.Event{}, fmt.Errorf("parse event: %w", err)
	}
	if !ev.Kind.Valid() {
		return activity.Event{}, fmt.Errorf("unknown event kind %q", ev.Kind)
	}
	return ev, nil
}

// ReadAll reads every event from a recorded spool file. Blank and
// unparseable lines are skipped rather than failing the whole file.
func ReadAll(path string) ([]activity.Event, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open spool: %w", err)
	}
	defer f.Close()

	var events []activity.Event
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		ev, err := ParseEvent([]byte(line))
		if err != nil {
			continue
		}
		events = append(events, ev)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan spool: %w", err)
	}
	return events, nil
}

// Reader tails a spool file and emits parsed events. The file does not need
// to exist yet: the reader watches its directory and picks the file up on
// creation. A frontend that never writes simply produces no events.
type Reader struct {
	path    string
	watcher *fsnotify.Watcher
	events  chan activity.Event
	done    chan struct{}

	file    *os.File
	offset  int64
	partial []byte
}

// Open starts tailing path. Existing content is skipped; only lines appended
// after Open are emitted.
func Open(path string) (*Reader, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create spool dir: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watch spool dir: %w", err)
	}

	r := &Reader{
		path:    path,
		watcher: watcher,
		events:  make(chan activity.Event, eventBuffer),
		done:    make(chan struct{}),
	}

	if f, err := os.Open(path); err == nil {
		r.file = f
		if end, err := f.Seek(0, io.SeekEnd); err == nil {
			r.offset = end
		}
	}

	go r.loop()
	return r, nil
}

// Events returns the stream of parsed events.
func (r *Reader) Events() <-chan activity.Event { return r.events }

// Close stops tailing and closes the event channel.
func (r *Reader) Close() error {
	close(r.done)
	return r.watcher.Close()
}

func (r *Reader) loop() {
	defer func() {
		if r.file != nil {
			r.file.Close()
		}
		close(r.events)
	}()

	for {
		select {
		case <-r.done:
			return
		case ev, ok := <-r.watcher.Events:
			if !ok {
				return
			}
			if ev.Name != r.path {
				continue
			}
			if ev.Op.Has(fsnotify.Create) {
				r.reopen()
			}
			if ev.Op.Has(fsnotify.Write) || ev.Op.Has(fsnotify.Create) {
				r.readNew()
			}
		case _, ok := <-r.watcher.Errors:
			if !ok {
				return
			}
			// Watch errors are transient; keep tailing.
		}
	}
}

// reopen picks up a newly created (or recreated) spool file from the start.
func (r *Reader) reopen() {
	if r.file != nil {
		r.file.Close()
		r.file = nil
	}
	f, err := os.Open(r.path)
	if err != nil {
		return
	}
	r.file = f
	r.offset = 0
	r.partial = nil
}

// readNew consumes appended bytes, emitting each complete line as an event.
func (r *Reader) readNew() {
	if r.file == nil {
		r.reopen()
		if r.file == nil {
			return
		}
	}

	// A shrunken file means truncation; start over from the top.
	if info, err := r.file.Stat(); err == nil && info.Size() < r.offset {
		r.offset = 0
		r.partial = nil
	}

	if _, err := r.file.Seek(r.offset, io.SeekStart); err != nil {
		return
	}
	data, err := io.ReadAll(r.file)
	if err != nil {
		return
	}
	r.offset += int64(len(data))

	buf := append(r.partial, data...)
	for {
		idx := bytes.IndexByte(buf, '\n')
		if idx < 0 {
			break
		}
		line := bytes.TrimSpace(buf[:idx])
		buf = buf[idx+1:]
		if len(line) == 0 {
			continue
		}
		ev, err := ParseEvent(line)
		if err != nil {
			continue
		}
		select {
		case r.events <- ev:
		case <-r.done:
			return
		}
	}
	r.partial = append([]byte(nil), buf...)
}
