package adapter

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver

	m "github.com/openshift-eng/mutest/internal/model"
)

// ResultStore persists run identity and per-mutant outcomes so an
// interrupted run can resume without re-testing mutants that already
// finished.
type ResultStore interface {
	// OpenRun finds an unfinished run matching root and manifestDigest and
	// returns it together with its recorded results. When none exists, or
	// fresh is set, a new run row is created with an empty result set.
	OpenRun(ctx context.Context, root m.Path, manifestDigest string, total int, fresh bool) (m.Run, map[string]m.MutantResult, error)

	// RecordResult appends the outcome of a single mutant to the run.
	RecordResult(ctx context.Context, runID string, res m.MutantResult) error

	// CompleteRun marks the run as finished.
	CompleteRun(ctx context.Context, runID string) error

	// Close releases the underlying connection.
	Close() error
}

const createRunsTable = `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		root TEXT NOT NULL,
		manifest_digest TEXT NOT NULL,
		total INTEGER NOT NULL,
		started_at TEXT NOT NULL,
		completed_at TEXT
	);
`

const createResultsTable = `
	CREATE TABLE IF NOT EXISTS results (
		run_id TEXT NOT NULL,
		mutation_id TEXT NOT NULL,
		category TEXT NOT NULL,
		file TEXT NOT NULL,
		line INTEGER NOT NULL,
		status TEXT NOT NULL,
		exit_code INTEGER NOT NULL,
		duration_ms INTEGER NOT NULL,
		output_ref TEXT NOT NULL DEFAULT '',
		recorded_at TEXT NOT NULL,
		PRIMARY KEY (run_id, mutation_id)
	);
`

// SQLiteResultStore is the sqlite-backed ResultStore.
type SQLiteResultStore struct {
	db *sql.DB
}

// NewSQLiteResultStore opens (creating if needed) the results database at
// dbPath and ensures its schema exists.
func NewSQLiteResultStore(dbPath string) (*SQLiteResultStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open results database at %q: %w. Check that the directory is writable", dbPath, err)
	}

	// Limit SQLite to a single open connection to avoid "database is locked" errors
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping results database: %w", err)
	}

	for _, query := range []string{createRunsTable, createResultsTable} {
		if _, err := db.Exec(query); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to create results schema: %w", err)
		}
	}

	return &SQLiteResultStore{db: db}, nil
}

// OpenRun resumes the most recent unfinished run for (root, manifestDigest)
// or creates a new one.
func (s *SQLiteResultStore) OpenRun(ctx context.Context, root m.Path, manifestDigest string, total int, fresh bool) (m.Run, map[string]m.MutantResult, error) {
	if !fresh {
		run, err := s.findResumableRun(ctx, root, manifestDigest)
		switch {
		case err == nil:
			results, err := s.loadResults(ctx, run.ID)
			if err != nil {
				return m.Run{}, nil, err
			}

			return run, results, nil
		case !errors.Is(err, sql.ErrNoRows):
			return m.Run{}, nil, err
		}
	}

	run := m.Run{
		ID:             uuid.NewString(),
		Root:           root,
		ManifestDigest: manifestDigest,
		Total:          total,
		StartedAt:      time.Now().UTC(),
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, root, manifest_digest, total, started_at) VALUES (?, ?, ?, ?, ?)`,
		run.ID, string(run.Root), run.ManifestDigest, run.Total, run.StartedAt.Format(time.RFC3339Nano))
	if err != nil {
		return m.Run{}, nil, fmt.Errorf("failed to insert run: %w", err)
	}

	return run, map[string]m.MutantResult{}, nil
}

func (s *SQLiteResultStore) findResumableRun(ctx context.Context, root m.Path, manifestDigest string) (m.Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, total, started_at FROM runs
		 WHERE root = ? AND manifest_digest = ? AND completed_at IS NULL
		 ORDER BY started_at DESC LIMIT 1`,
		string(root), manifestDigest)

	var (
		run       m.Run
		startedAt string
	)

	if err := row.Scan(&run.ID, &run.Total, &startedAt); err != nil {
		return m.Run{}, err
	}

	run.Root = root
	run.ManifestDigest = manifestDigest

	parsed, err := time.Parse(time.RFC3339Nano, startedAt)
	if err != nil {
		return m.Run{}, fmt.Errorf("failed to parse started_at: %w", err)
	}

	run.StartedAt = parsed

	return run, nil
}

func (s *SQLiteResultStore) loadResults(ctx context.Context, runID string) (map[string]m.MutantResult, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT mutation_id, category, file, line, status, exit_code, duration_ms, output_ref
		 FROM results WHERE run_id = ?`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query results: %w", err)
	}

	defer func() { _ = rows.Close() }()

	results := make(map[string]m.MutantResult)

	for rows.Next() {
		var (
			res                    m.MutantResult
			category, file, status string
		)

		if err := rows.Scan(&res.MutationID, &category, &file, &res.Line, &status, &res.ExitCode, &res.DurationMs, &res.OutputRef); err != nil {
			return nil, fmt.Errorf("failed to scan result: %w", err)
		}

		res.Category = m.Category(category)
		res.File = m.Path(file)
		res.Status = m.Status(status)
		results[res.MutationID] = res
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating results: %w", err)
	}

	return results, nil
}

// RecordResult appends one outcome. INSERT OR REPLACE keeps re-tested
// mutants idempotent.
func (s *SQLiteResultStore) RecordResult(ctx context.Context, runID string, res m.MutantResult) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO results
		 (run_id, mutation_id, category, file, line, status, exit_code, duration_ms, output_ref, recorded_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, res.MutationID, string(res.Category), string(res.File), res.Line,
		string(res.Status), res.ExitCode, res.DurationMs, res.OutputRef,
		time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("failed to record result for %s: %w", res.MutationID, err)
	}

	return nil
}

// CompleteRun marks the run as finished.
func (s *SQLiteResultStore) CompleteRun(ctx context.Context, runID string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE runs SET completed_at = ? WHERE id = ?`,
		time.Now().UTC().Format(time.RFC3339Nano), runID)
	if err != nil {
		return fmt.Errorf("failed to complete run %s: %w", runID, err)
	}

	return nil
}

// Close closes the underlying DB connection.
func (s *SQLiteResultStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}

	return nil
}
