package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/roach88/t262/internal/engine"
	"github.com/roach88/t262/internal/verdict"
)

// ErrRunNotFound is returned when a run ID has no record.
var ErrRunNotFound = errors.New("run not found")

// RunSummary is a run without its per-test results.
type RunSummary struct {
	ID          string    `json:"id"`
	Interpreter string    `json:"interpreter"`
	Root        string    `json:"root"`
	StartedAt   time.Time `json:"started_at"`
	FinishedAt  time.Time `json:"finished_at"`
	Passed      int       `json:"passed"`
	Failed      int       `json:"failed"`
	Skipped     int       `json:"skipped"`
	Ignored     int       `json:"ignored"`
	Total       int       `json:"total"`
}

const runColumns = `id, interpreter, root, started_at, finished_at, passed, failed, skipped, ignored, total`

// ListRuns returns recorded runs, newest first. limit <= 0 returns all.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	query := `SELECT ` + runColumns + ` FROM runs ORDER BY started_at DESC, id COLLATE BINARY DESC`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []RunSummary{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}

	return runs, nil
}

// ReadRun returns the summary of one run.
// Returns ErrRunNotFound if the ID is unknown.
func (s *Store) ReadRun(ctx context.Context, id string) (RunSummary, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return RunSummary{}, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return run, err
}

// ReadResults returns the results of one run, ordered by path.
// An empty status returns every result.
func (s *Store) ReadResults(ctx context.Context, runID string, status verdict.Status) ([]engine.Result, error) {
	var where strings.Builder
	where.WriteString(`WHERE run_id = ?`)
	args := []any{runID}
	if status != "" {
		where.WriteString(` AND status = ?`)
		args = append(args, string(status))
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT path, negative, status, reason, note, output, duration_ns
		FROM results
		`+where.String()+`
		ORDER BY path COLLATE BINARY ASC, seq ASC
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("query results: %w", err)
	}
	defer rows.Close()

	results := []engine.Result{}
	for rows.Next() {
		var (
			r        engine.Result
			negative int
			status   string
			duration int64
		)
		if err := rows.Scan(&r.Path, &negative, &status, &r.Reason, &r.Note, &r.Output, &duration); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		r.Negative = negative != 0
		r.Status = verdict.Status(status)
		r.Duration = time.Duration(duration)
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate results: %w", err)
	}

	return results, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (RunSummary, error) {
	var (
		run               RunSummary
		started, finished int64
	)
	if err := row.Scan(
		&run.ID, &run.Interpreter, &run.Root, &started, &finished,
		&run.Passed, &run.Failed, &run.Skipped, &run.Ignored, &run.Total,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return RunSummary{}, err
		}
		return RunSummary{}, fmt.Errorf("scan run: %w", err)
	}
	run.StartedAt = time.Unix(0, started).UTC()
	run.FinishedAt = time.Unix(0, finished).UTC()
	return run, nil
}
