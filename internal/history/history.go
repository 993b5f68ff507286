// Package history persists task executions to SQLite so past runs can be
// inspected with the history command.
package history

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	ferrors "git.home.luguber.info/inful/assetbuilder/internal/foundation/errors"
)

// Record is one task target execution.
type Record struct {
	ID       int64
	RunID    string
	Task     string
	Target   string
	Result   string
	Duration time.Duration
	Error    string
	Time     time.Time
}

// RunSummary aggregates the records of one run.
type RunSummary struct {
	RunID    string
	Started  time.Time
	Targets  int
	Failed   int
	Duration time.Duration
}

// Store is a SQLite-backed execution history.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// Open opens (and creates when missing) the history database at path.
// Use ":memory:" for an in-memory database.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, ferrors.FileSystemError("failed to create history directory").
				WithContext("path", path).WithCause(err).Build()
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, ferrors.HistoryError("open sqlite database").WithContext("path", path).WithCause(err).Build()
	}
	// One connection: an in-memory database exists per connection.
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.initialize(); err != nil {
		_ = db.Close()
		return nil, ferrors.HistoryError("initialize schema").WithContext("path", path).WithCause(err).Build()
	}
	return s, nil
}

func (s *Store) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS executions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		task TEXT NOT NULL,
		target TEXT NOT NULL,
		result TEXT NOT NULL,
		duration_ms INTEGER NOT NULL,
		error TEXT,
		timestamp INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_executions_run_id ON executions(run_id);
	CREATE INDEX IF NOT EXISTS idx_executions_timestamp ON executions(timestamp);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Record appends one execution. A zero Time is replaced with now.
func (s *Store) Record(ctx context.Context, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec.Time.IsZero() {
		rec.Time = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO executions (run_id, task, target, result, duration_ms, error, timestamp) VALUES (?, ?, ?, ?, ?, ?, ?)",
		rec.RunID, rec.Task, rec.Target, rec.Result, rec.Duration.Milliseconds(), rec.Error, rec.Time.UnixMilli(),
	)
	if err != nil {
		return ferrors.HistoryError("insert execution").WithContext("run_id", rec.RunID).WithCause(err).Build()
	}
	return nil
}

// Recent returns the latest executions, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, run_id, task, target, result, duration_ms, error, timestamp FROM executions ORDER BY id DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, ferrors.HistoryError("query executions").WithCause(err).Build()
	}
	defer func() { _ = rows.Close() }()

	var out []Record
	for rows.Next() {
		var (
			rec      Record
			duration int64
			errText  sql.NullString
			ts       int64
		)
		if err := rows.Scan(&rec.ID, &rec.RunID, &rec.Task, &rec.Target, &rec.Result, &duration, &errText, &ts); err != nil {
			return nil, ferrors.HistoryError("scan execution").WithCause(err).Build()
		}
		rec.Duration = time.Duration(duration) * time.Millisecond
		rec.Error = errText.String
		rec.Time = time.UnixMilli(ts)
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, ferrors.HistoryError("iterate executions").WithCause(err).Build()
	}
	return out, nil
}

// Runs summarizes the latest runs, newest first.
func (s *Store) Runs(ctx context.Context, limit int) ([]RunSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, MIN(timestamp), COUNT(*),
		       SUM(CASE WHEN result = 'failed' THEN 1 ELSE 0 END),
		       SUM(duration_ms)
		FROM executions
		GROUP BY run_id
		ORDER BY MAX(id) DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, ferrors.HistoryError("query runs").WithCause(err).Build()
	}
	defer func() { _ = rows.Close() }()

	var out []RunSummary
	for rows.Next() {
		var (
			sum      RunSummary
			started  int64
			duration int64
		)
		if err := rows.Scan(&sum.RunID, &started, &sum.Targets, &sum.Failed, &duration); err != nil {
			return nil, ferrors.HistoryError("scan run").WithCause(err).Build()
		}
		sum.Started = time.UnixMilli(started)
		sum.Duration = time.Duration(duration) * time.Millisecond
		out = append(out, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, ferrors.HistoryError("iterate runs").WithCause(err).Build()
	}
	return out, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
