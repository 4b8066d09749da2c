// Package journal keeps a local SQLite record of bootstrap runs and the
// items each run created.
//
// Items are written as soon as they are seeded, so a run that aborts midway
// still shows what it left behind on the tracker. The journal is for operator
// triage only; runs never read it to skip work.
package journal

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 1 - Initial schema
const currentSchemaVersion = 1

// Run statuses.
const (
	StatusRunning   = "running"
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

// Run is one bootstrap attempt.
type Run struct {
	ID         string
	Owner      string
	Repo       string
	Title      string
	BoardURL   string
	Status     string
	Error      string
	StartedAt  time.Time
	FinishedAt time.Time
}

// Item is an item created by a run.
type Item struct {
	RunID string
	Seq   int
	Title string
	URL   string
}

// Store is the run journal.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open creates or opens the journal at path. Safe to call repeatedly.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to journal: %w", err)
	}

	// SQLite only supports one writer at a time
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &Store{db: db, now: time.Now}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// StartRun records a new run in the running state.
func (s *Store) StartRun(ctx context.Context, id, owner, repo, title string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, owner, repo, title, status, started_at) VALUES (?, ?, ?, ?, ?, ?)`,
		id, owner, repo, title, StatusRunning, s.timestamp())
	if err != nil {
		return fmt.Errorf("start run %s: %w", id, err)
	}
	return nil
}

// SetBoard records the board created by a run.
func (s *Store) SetBoard(ctx context.Context, runID, boardURL string) error {
	return s.update(ctx, runID, `UPDATE runs SET board_url = ? WHERE id = ?`, boardURL, runID)
}

// RecordItem records an item created by a run. seq is the item's position
// in the run's input.
func (s *Store) RecordItem(ctx context.Context, runID string, seq int, title, url string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO items (run_id, seq, title, url) VALUES (?, ?, ?, ?)`,
		runID, seq, title, url)
	if err != nil {
		return fmt.Errorf("record item %d of run %s: %w", seq, runID, err)
	}
	return nil
}

// FinishRun marks a run succeeded, or failed with runErr's message.
func (s *Store) FinishRun(ctx context.Context, runID string, runErr error) error {
	status, msg := StatusSucceeded, ""
	if runErr != nil {
		status, msg = StatusFailed, runErr.Error()
	}
	return s.update(ctx, runID,
		`UPDATE runs SET status = ?, error = ?, finished_at = ? WHERE id = ?`,
		status, msg, s.timestamp(), runID)
}

// Runs returns the most recent runs, newest first. limit <= 0 returns all.
func (s *Store) Runs(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, owner, repo, title, board_url, status, error, started_at, finished_at
		FROM runs
		ORDER BY started_at DESC, rowid DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var started, finished string
		if err := rows.Scan(&r.ID, &r.Owner, &r.Repo, &r.Title, &r.BoardURL, &r.Status, &r.Error, &started, &finished); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.StartedAt = parseTimestamp(started)
		r.FinishedAt = parseTimestamp(finished)
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Items returns the items of a run in seq order.
func (s *Store) Items(ctx context.Context, runID string) ([]Item, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, seq, title, url FROM items WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, fmt.Errorf("query items: %w", err)
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.RunID, &it.Seq, &it.Title, &it.URL); err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (s *Store) update(ctx context.Context, runID, query string, args ...any) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update run %s: %w", runID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update run %s: %w", runID, err)
	}
	if n == 0 {
		return fmt.Errorf("update run %s: %w", runID, ErrUnknownRun)
	}
	return nil
}

// ErrUnknownRun is returned when updating a run that was never started.
var ErrUnknownRun = errors.New("unknown run")

func (s *Store) timestamp() string {
	return s.now().UTC().Format(time.RFC3339Nano)
}

func parseTimestamp(v string) time.Time {
	if v == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return time.Time{}
	}
	return t
}

// applyPragmas sets required SQLite configuration.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	return nil
}

// applySchema creates tables if they don't exist and records the schema version.
func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}
	if version > currentSchemaVersion {
		return fmt.Errorf("journal schema version %d is newer than supported %d", version, currentSchemaVersion)
	}
	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}
	return nil
}
