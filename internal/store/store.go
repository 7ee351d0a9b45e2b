package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS runs (
    id          TEXT PRIMARY KEY,
    created_at  TEXT NOT NULL,
    input       TEXT NOT NULL,
    title       TEXT NOT NULL DEFAULT '',
    artists     TEXT NOT NULL DEFAULT '',
    provider    TEXT NOT NULL DEFAULT '',
    output_dir  TEXT NOT NULL DEFAULT '',
    video       TEXT NOT NULL DEFAULT '',
    subtitles   TEXT NOT NULL DEFAULT '',
    lines       INTEGER NOT NULL DEFAULT 0,
    status      TEXT NOT NULL,
    error       TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at);
`

const (
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

// Run is one karaoke packaging attempt.
type Run struct {
	ID        string
	CreatedAt time.Time
	Input     string
	Title     string
	Artists   string
	Provider  string
	OutputDir string
	Video     string
	Subtitles string
	Lines     int
	Status    string
	Error     string
}

// Store keeps run history in SQLite.
type Store struct {
	db   *sql.DB
	path string
}

func Open(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("ensure db dir: %w", err)
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{db: db, path: dbPath}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) Path() string { return s.path }

func (s *Store) Record(ctx context.Context, r Run) error {
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (
            id, created_at, input, title, artists, provider,
            output_dir, video, subtitles, lines, status, error
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID,
		r.CreatedAt.UTC().Format(time.RFC3339Nano),
		r.Input,
		r.Title,
		r.Artists,
		r.Provider,
		r.OutputDir,
		r.Video,
		r.Subtitles,
		r.Lines,
		r.Status,
		r.Error,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// List returns the most recent runs first. A non-positive limit returns all.
func (s *Store) List(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, created_at, input, title, artists, provider,
                output_dir, video, subtitles, lines, status, error
           FROM runs
          ORDER BY created_at DESC, id
          LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var (
			r       Run
			created string
		)
		if err := rows.Scan(&r.ID, &created, &r.Input, &r.Title, &r.Artists, &r.Provider,
			&r.OutputDir, &r.Video, &r.Subtitles, &r.Lines, &r.Status, &r.Error); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		if ts, err := time.Parse(time.RFC3339Nano, created); err == nil {
			r.CreatedAt = ts
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
