// Package history persists completed flow sessions to SQLite. The in-memory
// ledger is the detector's source of truth; this store is the daemon's
// durable sink for stats and export across restarts.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/johns/flowsense/internal/ledger"
	_ "modernc.org/sqlite"
)

const timeLayout = "2006-01-02T15:04:05.999999999Z07:00"

// Store wraps the session database.
type Store struct {
	db *sql.DB
}

// Open creates the database (and its directory) if needed and ensures the
// schema exists.
func Open(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	s := &Store{db: db}
	if err := s.ensureSchema(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) ensureSchema(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS sessions (
  id TEXT PRIMARY KEY,
  started_at TEXT NOT NULL,
  ended_at TEXT NOT NULL,
  duration_ms INTEGER NOT NULL,
  peak_score REAL NOT NULL,
  context TEXT NOT NULL DEFAULT ''
);
`
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create sessions table: %w", err)
	}
	const idx = `CREATE INDEX IF NOT EXISTS idx_sessions_ended_at ON sessions(ended_at);`
	if _, err := s.db.ExecContext(ctx, idx); err != nil {
		return fmt.Errorf("create sessions index: %w", err)
	}
	return nil
}

// Insert writes one completed session. Sessions are immutable, so a
// duplicate ID is ignored rather than updated.
func (s *Store) Insert(ctx context.Context, sess ledger.Session) error {
	const stmt = `
INSERT INTO sessions (id, started_at, ended_at, duration_ms, peak_score, context)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO NOTHING;
`
	_, err := s.db.ExecContext(ctx, stmt,
		sess.ID,
		sess.StartedAt.UTC().Format(timeLayout),
		sess.EndedAt.UTC().Format(timeLayout),
		sess.Duration.Milliseconds(),
		sess.PeakScore,
		sess.Context,
	)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

// Recent returns up to n sessions, newest first.
func (s *Store) Recent(ctx context.Context, n int) ([]ledger.Session, error) {
	const query = `
SELECT id, started_at, ended_at, duration_ms, peak_score, context
FROM sessions ORDER BY ended_at DESC LIMIT ?;
`
	rows, err := s.db.QueryContext(ctx, query, n)
	if err != nil {
		return nil, fmt.Errorf("query recent sessions: %w", err)
	}
	defer rows.Close()
	return scanSessions(rows)
}

// Since returns sessions that ended at or after cutoff, newest first.
func (s *Store) Since(ctx context.Context, cutoff time.Time) ([]ledger.Session, error) {
	const query = `
SELECT id, started_at, ended_at, duration_ms, peak_score, context
FROM sessions WHERE ended_at >= ? ORDER BY ended_at DESC;
`
	rows, err := s.db.QueryContext(ctx, query, cutoff.UTC().Format(timeLayout))
	if err != nil {
		return nil, fmt.Errorf("query sessions since: %w", err)
	}
	defer rows.Close()
	return scanSessions(rows)
}

// All returns every stored session, newest first.
func (s *Store) All(ctx context.Context) ([]ledger.Session, error) {
	const query = `
SELECT id, started_at, ended_at, duration_ms, peak_score, context
FROM sessions ORDER BY ended_at DESC;
`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query all sessions: %w", err)
	}
	defer rows.Close()
	return scanSessions(rows)
}

func scanSessions(rows *sql.Rows) ([]ledger.Session, error) {
	var sessions []ledger.Session
	for rows.Next() {
		var (
			sess       ledger.Session
			started    string
			ended      string
			durationMS int64
		)
		if err := rows.Scan(&sess.ID, &started, &ended, &durationMS, &sess.PeakScore, &sess.Context); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		var err error
		if sess.StartedAt, err = time.Parse(timeLayout, started); err != nil {
			return nil, fmt.Errorf("parse started_at: %w", err)
		}
		if sess.EndedAt, err = time.Parse(timeLayout, ended); err != nil {
			return nil, fmt.Errorf("parse ended_at: %w", err)
		}
		sess.Duration = time.Duration(durationMS) * time.Millisecond
		sessions = append(sessions, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return sessions, nil
}
