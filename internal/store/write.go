package store

import (
	"context"
	"fmt"

	"github.com/roach88/t262/internal/engine"
)

// WriteReport records a run and all of its results in one transaction.
// Writing the same run ID twice replaces the earlier record.
func (s *Store) WriteReport(ctx context.Context, report *engine.Report) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write report: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	if _, err := tx.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, report.ID); err != nil {
		return fmt.Errorf("write report: clear run: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs
		(id, interpreter, root, started_at, finished_at, passed, failed, skipped, ignored, total)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		report.ID,
		report.Interpreter,
		report.Root,
		report.StartedAt.UnixNano(),
		report.FinishedAt.UnixNano(),
		report.Passed,
		report.Failed,
		report.Skipped,
		report.Ignored,
		report.Total,
	)
	if err != nil {
		return fmt.Errorf("write report: insert run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO results
		(run_id, seq, path, negative, status, reason, note, output, duration_ns)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("write report: prepare: %w", err)
	}
	defer stmt.Close()

	for i, r := range report.Results {
		if _, err := stmt.ExecContext(ctx,
			report.ID,
			i+1,
			r.Path,
			boolToInt(r.Negative),
			string(r.Status),
			r.Reason,
			r.Note,
			r.Output,
			int64(r.Duration),
		); err != nil {
			return fmt.Errorf("write report: insert result %s: %w", r.Path, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("write report: commit: %w", err)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
