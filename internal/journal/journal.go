// Package journal keeps a SQLite history of processed files.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // pure Go driver
)

// Entry is one processed file.
type Entry struct {
	ID          int64         `json:"id"`
	Input       string        `json:"input"`
	Output      string        `json:"output"`
	Approach    string        `json:"approach"`
	HDRFormat   string        `json:"hdr_format"`
	DVProfile   string        `json:"dv_profile,omitempty"`
	Outcome     string        `json:"outcome"`
	Success     bool          `json:"success"`
	Error       string        `json:"error,omitempty"`
	InputBytes  uint64        `json:"input_bytes"`
	OutputBytes uint64        `json:"output_bytes"`
	Duration    time.Duration `json:"duration"`
	FinishedAt  time.Time     `json:"finished_at"`
}

// Summary aggregates the journal.
type Summary struct {
	Files      int
	Succeeded  int
	Injected   int
	BytesSaved int64
}

// Journal is a handle on the history database. It is safe for concurrent
// use.
type Journal struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	input         TEXT NOT NULL,
	output        TEXT NOT NULL,
	approach      TEXT NOT NULL,
	hdr_format    TEXT NOT NULL,
	dv_profile    TEXT NOT NULL DEFAULT '',
	outcome       TEXT NOT NULL,
	success       INTEGER NOT NULL CHECK(success IN (0, 1)),
	error         TEXT NOT NULL DEFAULT '',
	input_bytes   INTEGER NOT NULL DEFAULT 0,
	output_bytes  INTEGER NOT NULL DEFAULT 0,
	duration_ms   INTEGER NOT NULL DEFAULT 0,
	finished_at   TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_runs_finished_at ON runs(finished_at);
CREATE INDEX IF NOT EXISTS idx_runs_input ON runs(input);
`

// Open opens or creates the journal at path.
func Open(path string) (*Journal, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create journal directory: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	// Batch workers write concurrently; one connection serialises them.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping journal: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create journal schema: %w", err)
	}
	return &Journal{db: db}, nil
}

// Close closes the database.
func (j *Journal) Close() error {
	return j.db.Close()
}

// Record appends e and returns its id. A zero FinishedAt is set to now.
func (j *Journal) Record(ctx context.Context, e Entry) (int64, error) {
	if e.FinishedAt.IsZero() {
		e.FinishedAt = time.Now()
	}
	res, err := j.db.ExecContext(ctx, `
	INSERT INTO runs (input, output, approach, hdr_format, dv_profile, outcome, success, error,
		input_bytes, output_bytes, duration_ms, finished_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.Input, e.Output, e.Approach, e.HDRFormat, e.DVProfile, e.Outcome, e.Success, e.Error,
		int64(e.InputBytes), int64(e.OutputBytes), e.Duration.Milliseconds(),
		e.FinishedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return 0, fmt.Errorf("record %s: %w", e.Input, err)
	}
	return res.LastInsertId()
}

// Recent returns up to limit entries, newest first.
func (j *Journal) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := j.db.QueryContext(ctx, `
	SELECT id, input, output, approach, hdr_format, dv_profile, outcome, success, error,
		input_bytes, output_bytes, duration_ms, finished_at
	FROM runs
	ORDER BY finished_at DESC, id DESC
	LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query journal: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []Entry
	for rows.Next() {
		var (
			e        Entry
			inBytes  int64
			outBytes int64
			durMS    int64
			finished string
		)
		if err := rows.Scan(&e.ID, &e.Input, &e.Output, &e.Approach, &e.HDRFormat, &e.DVProfile,
			&e.Outcome, &e.Success, &e.Error, &inBytes, &outBytes, &durMS, &finished); err != nil {
			return nil, fmt.Errorf("scan journal row: %w", err)
		}
		e.InputBytes = uint64(inBytes)
		e.OutputBytes = uint64(outBytes)
		e.Duration = time.Duration(durMS) * time.Millisecond
		if e.FinishedAt, err = time.Parse(time.RFC3339Nano, finished); err != nil {
			return nil, fmt.Errorf("parse finished_at %q: %w", finished, err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Summarize aggregates every recorded run.
func (j *Journal) Summarize(ctx context.Context) (Summary, error) {
	var s Summary
	err := j.db.QueryRowContext(ctx, `
	SELECT COUNT(*),
		COALESCE(SUM(success), 0),
		COALESCE(SUM(CASE WHEN outcome = 'injected' THEN 1 ELSE 0 END), 0),
		COALESCE(SUM(CASE WHEN success = 1 THEN input_bytes - output_bytes ELSE 0 END), 0)
	FROM runs`).Scan(&s.Files, &s.Succeeded, &s.Injected, &s.BytesSaved)
	if err != nil {
		return Summary{}, fmt.Errorf("summarize journal: %w", err)
	}
	return s, nil
}
