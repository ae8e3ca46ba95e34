// Package archive exports session history as JSONL, optionally
// zstd-compressed.
package archive

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/johns/flowsense/internal/ledger"
	"github.com/klauspost/compress/zstd"
)

// ExportPath returns the deterministic archive path for an export taken at t.
func ExportPath(dir string, t time.Time, compress bool) string {
	name := "sessions-" + t.UTC().Format("20060102T150405") + ".jsonl"
	if compress {
		name += ".zst"
	}
	return filepath.Join(dir, name)
}

// Export writes sessions to destPath as one JSON object per line. A
// .zst destination is compressed.
func Export(sessions []ledger.Session, destPath string) error {
	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return fmt.Errorf("create archive dir: %w", err)
	}

	dest, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("create archive: %w", err)
	}
	defer dest.Close()

	var w io.Writer = dest
	var encoder *zstd.Encoder
	if strings.HasSuffix(destPath, ".zst") {
		encoder, err = zstd.NewWriter(dest)
		if err != nil {
			return fmt.Errorf("create zstd encoder: %w", err)
		}
		w = encoder
	}

	bw := bufio.NewWriter(w)
	for _, sess := range sessions {
		line, err := json.Marshal(sess)
		if err != nil {
			return fmt.Errorf("marshal session %s: %w", sess.ID, err)
		}
		if _, err := bw.Write(append(line, '\n')); err != nil {
			return fmt.Errorf("write archive: %w", err)
		}
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("flush archive: %w", err)
	}

	if encoder != nil {
		if err := encoder.Close(); err != nil {
			return fmt.Errorf("finalize compression: %w", err)
		}
	}
	return nil
}

// Read loads sessions back from an archive written by Export.
func Read(path string) ([]ledger.Session, error) {
	src, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	defer src.Close()

	var r io.Reader = src
	if strings.HasSuffix(path, ".zst") {
		decoder, err := zstd.NewReader(src)
		if err != nil {
			return nil, fmt.Errorf("create zstd decoder: %w", err)
		}
		defer decoder.Close()
		r = decoder
	}

	var sessions []ledger.Session
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var sess ledger.Session
		if err := json.Unmarshal([]byte(line), &sess); err != nil {
			return nil, fmt.Errorf("parse archive line: %w", err)
		}
		sessions = append(sessions, sess)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan archive: %w", err)
	}
	return sessions, nil
}
