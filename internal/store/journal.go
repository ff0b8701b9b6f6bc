// Package store persists run metadata in SQLite. The journal is write-mostly:
// the pipeline only appends to it and nothing it stores feeds back into
// generation.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"facetforge/internal/ideation"
	"facetforge/internal/logging"
)

// ErrRunNotFound is returned by GetRun for unknown IDs.
var ErrRunNotFound = errors.New("run not found")

// Journal records finished pipeline runs.
//
// It implements ideation.RunRecorder. Safe for concurrent use.
type Journal struct {
	db     *sql.DB
	mu     sync.RWMutex
	dbPath string
}

// OpenJournal opens or creates the journal database at path. The special
// path ":memory:" keeps the journal in memory.
func OpenJournal(path string) (*Journal, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// In-memory databases exist per connection.
	db.SetMaxOpenConns(1)

	j := &Journal{db: db, dbPath: path}
	if err := j.ensureSchema(); err != nil {
		db.Close()
		logging.StoreError("Failed to ensure journal schema: %v", err)
		return nil, fmt.Errorf("failed to ensure journal schema: %w", err)
	}

	logging.StoreDebug("Run journal opened at %s", path)
	return j, nil
}

func (j *Journal) ensureSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		started_at INTEGER NOT NULL,
		expert_role TEXT NOT NULL,
		target_subject TEXT NOT NULL,
		outcome TEXT NOT NULL,
		error_code TEXT,
		category_count INTEGER NOT NULL DEFAULT 0,
		option_count INTEGER NOT NULL DEFAULT 0,
		fallback_count INTEGER NOT NULL DEFAULT 0,
		duration_ms INTEGER NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);
	CREATE INDEX IF NOT EXISTS idx_runs_outcome ON runs(outcome);
	`
	_, err := j.db.Exec(schema)
	return err
}

// Path returns the database location.
func (j *Journal) Path() string { return j.dbPath }

// Close closes the database.
func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.db.Close()
}

// RecordRun appends rec. Recording the same ID twice replaces the entry.
func (j *Journal) RecordRun(ctx context.Context, rec ideation.RunRecord) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	logging.StoreDebug("Recording run: id=%s outcome=%s code=%s", rec.ID, rec.Outcome, rec.ErrorCode)

	_, err := j.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO runs
		(id, started_at, expert_role, target_subject, outcome, error_code,
		 category_count, option_count, fallback_count, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.StartedAt.UnixMilli(), rec.ExpertRole, rec.TargetSubject,
		rec.Outcome, string(rec.ErrorCode),
		rec.CategoryCount, rec.OptionCount, rec.FallbackCount, rec.Duration.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("failed to record run %s: %w", rec.ID, err)
	}
	return nil
}

const selectRuns = `
	SELECT id, started_at, expert_role, target_subject, outcome, error_code,
	       category_count, option_count, fallback_count, duration_ms
	FROM runs`

// ListRuns returns up to limit runs, newest first. limit <= 0 means 20.
func (j *Journal) ListRuns(ctx context.Context, limit int) ([]ideation.RunRecord, error) {
	if limit <= 0 {
		limit = 20
	}

	j.mu.RLock()
	defer j.mu.RUnlock()

	rows, err := j.db.QueryContext(ctx, selectRuns+` ORDER BY started_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var out []ideation.RunRecord
	for rows.Next() {
		rec, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read runs: %w", err)
	}
	return out, nil
}

// GetRun returns the run with the given ID or ErrRunNotFound.
func (j *Journal) GetRun(ctx context.Context, id string) (ideation.RunRecord, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()

	rec, err := scanRun(j.db.QueryRowContext(ctx, selectRuns+` WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return ideation.RunRecord{}, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return rec, err
}

// RunStats summarizes the journal.
type RunStats struct {
	Total     int
	Succeeded int
	Failed    int
	Fallbacks int
	// ByCode counts failed runs per error code.
	ByCode map[ideation.ErrorCode]int
}

// Stats aggregates every recorded run.
func (j *Journal) Stats(ctx context.Context) (RunStats, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()

	stats := RunStats{ByCode: map[ideation.ErrorCode]int{}}
	rows, err := j.db.QueryContext(ctx, `
		SELECT outcome, COALESCE(error_code, ''), COUNT(*), COALESCE(SUM(fallback_count), 0)
		FROM runs GROUP BY outcome, error_code`)
	if err != nil {
		return stats, fmt.Errorf("failed to query run stats: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			outcome, code string
			n, fallbacks  int
		)
		if err := rows.Scan(&outcome, &code, &n, &fallbacks); err != nil {
			return stats, fmt.Errorf("failed to scan run stats: %w", err)
		}
		stats.Total += n
		stats.Fallbacks += fallbacks
		if outcome == ideation.OutcomeSuccess {
			stats.Succeeded += n
			continue
		}
		stats.Failed += n
		if code != "" {
			stats.ByCode[ideation.ErrorCode(code)] += n
		}
	}
	return stats, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (ideation.RunRecord, error) {
	var (
		rec              ideation.RunRecord
		startedMs, durMs int64
		code             sql.NullString
	)
	err := s.Scan(&rec.ID, &startedMs, &rec.ExpertRole, &rec.TargetSubject, &rec.Outcome, &code,
		&rec.CategoryCount, &rec.OptionCount, &rec.FallbackCount, &durMs)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return rec, err
		}
		return rec, fmt.Errorf("failed to scan run: %w", err)
	}
	rec.StartedAt = time.UnixMilli(startedMs).UTC()
	rec.ErrorCode = ideation.ErrorCode(code.String)
	rec.Duration = time.Duration(durMs) * time.Millisecond
	return rec, nil
}
