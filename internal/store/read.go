package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ListRuns returns the most recent runs, newest first, without rule
// results. A limit <= 0 returns all runs.
//
// Returns an empty slice (not nil) if no runs exist.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	query := `
		SELECT id, input_hash, integrand, a, b, tolerance, max_doublings, created_at
		FROM runs
		ORDER BY seq DESC
	`
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
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

// ReadRun returns a run with all rule results and estimates.
// Returns an error wrapping ErrRunNotFound if the ID is unknown.
func (s *Store) ReadRun(ctx context.Context, id string) (*Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, input_hash, integrand, a, b, tolerance, max_doublings, created_at
		FROM runs
		WHERE id = ?
	`, id)

	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, err
	}

	rules, err := s.readRuleResults(ctx, id)
	if err != nil {
		return nil, err
	}
	run.Rules = rules
	return &run, nil
}

// RunsByInputHash returns IDs of all runs of the same problem, oldest first.
func (s *Store) RunsByInputHash(ctx context.Context, hash string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id FROM runs WHERE input_hash = ? ORDER BY seq ASC
	`, hash)
	if err != nil {
		return nil, fmt.Errorf("query runs by hash: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan run id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs by hash: %w", err)
	}
	return ids, nil
}

func (s *Store) readRuleResults(ctx context.Context, runID string) ([]RuleResult, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT rule, status, final_n, error_code, error
		FROM rule_results
		WHERE run_id = ?
		ORDER BY position ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query rule results: %w", err)
	}
	defer rows.Close()

	results := []RuleResult{}
	for rows.Next() {
		var rr RuleResult
		var finalN sql.NullInt64
		if err := rows.Scan(&rr.Rule, &rr.Status, &finalN, &rr.ErrorCode, &rr.Error); err != nil {
			return nil, fmt.Errorf("scan rule result: %w", err)
		}
		if finalN.Valid {
			rr.FinalN = int(finalN.Int64)
		}
		results = append(results, rr)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rule results: %w", err)
	}
	rows.Close()

	for i := range results {
		ests, err := s.readEstimates(ctx, runID, results[i].Rule)
		if err != nil {
			return nil, err
		}
		results[i].Estimates = ests
	}
	return results, nil
}

func (s *Store) readEstimates(ctx context.Context, runID, rule string) ([]Estimate, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT n, value, is_final
		FROM estimates
		WHERE run_id = ? AND rule = ?
		ORDER BY seq ASC
	`, runID, rule)
	if err != nil {
		return nil, fmt.Errorf("query estimates: %w", err)
	}
	defer rows.Close()

	ests := []Estimate{}
	for rows.Next() {
		var e Estimate
		if err := rows.Scan(&e.N, &e.Value, &e.Final); err != nil {
			return nil, fmt.Errorf("scan estimate: %w", err)
		}
		ests = append(ests, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate estimates: %w", err)
	}
	return ests, nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (Run, error) {
	var run Run
	var createdAt string
	err := row.Scan(
		&run.ID,
		&run.InputHash,
		&run.Integrand,
		&run.A,
		&run.B,
		&run.Tolerance,
		&run.MaxDoublings,
		&createdAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return run, err
		}
		return run, fmt.Errorf("scan run: %w", err)
	}

	run.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return run, fmt.Errorf("parse created_at %q: %w", createdAt, err)
	}
	return run, nil
}
