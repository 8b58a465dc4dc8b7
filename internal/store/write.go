package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// RecordRun inserts a run with its rule results and estimates in a single
// transaction. Uses ON CONFLICT(id) DO NOTHING on the run row for
// idempotency: re-recording an existing run ID writes nothing.
func (s *Store) RecordRun(ctx context.Context, run Run) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("record run: begin: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO runs
		(id, input_hash, integrand, a, b, tolerance, max_doublings, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		run.ID,
		run.InputHash,
		run.Integrand,
		run.A,
		run.B,
		run.Tolerance,
		run.MaxDoublings,
		run.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("record run: %w", err)
	}

	inserted, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("record run: %w", err)
	}
	if inserted == 0 {
		return nil
	}

	for pos, rr := range run.Rules {
		if err := writeRuleResult(ctx, tx, run.ID, pos, rr); err != nil {
			return fmt.Errorf("record run: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("record run: commit: %w", err)
	}
	return nil
}

func writeRuleResult(ctx context.Context, tx *sql.Tx, runID string, pos int, rr RuleResult) error {
	var finalN sql.NullInt64
	if rr.FinalN > 0 {
		finalN = sql.NullInt64{Int64: int64(rr.FinalN), Valid: true}
	}

	_, err := tx.ExecContext(ctx, `
		INSERT INTO rule_results
		(run_id, position, rule, status, final_n, error_code, error)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, runID, pos, rr.Rule, rr.Status, finalN, rr.ErrorCode, rr.Error)
	if err != nil {
		return fmt.Errorf("write rule result %s: %w", rr.Rule, err)
	}

	for seq, est := range rr.Estimates {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO estimates
			(run_id, rule, seq, n, value, is_final)
			VALUES (?, ?, ?, ?, ?, ?)
		`, runID, rr.Rule, seq, est.N, est.Value, est.Final)
		if err != nil {
			return fmt.Errorf("write estimate %s[%d]: %w", rr.Rule, seq, err)
		}
	}
	return nil
}
