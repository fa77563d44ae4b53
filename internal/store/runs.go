// LocalRecs - Local Content-Based Recommendations for Jellyfin
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/localrecs

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/tomtom215/localrecs/internal/logging"
	"github.com/tomtom215/localrecs/internal/recommend/pipeline"
)

const runColumns = `run_id, started_at, finished_at, items, vocabulary, users,
	users_with_interactions, top_picks_rows, because_rows, failures,
	cf_blended, dry_run, error`

// RecordRun stores a run summary and applies retention. It implements
// pipeline.RunRecorder.
func (s *Store) RecordRun(ctx context.Context, summary *pipeline.RunSummary) (err error) {
	start := time.Now()
	defer func() { observe("insert", "runs", start, err) }()

	var runErr sql.NullString
	if summary.Error != "" {
		runErr = sql.NullString{String: summary.Error, Valid: true}
	}

	_, err = s.conn.ExecContext(ctx, `INSERT OR REPLACE INTO runs (`+runColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		summary.RunID, summary.StartedAt.UTC(), summary.FinishedAt.UTC(),
		summary.Items, summary.Vocabulary, summary.Users, summary.UsersWithInteractions,
		summary.TopPicksRows, summary.BecauseRows, summary.Failures,
		summary.CFBlended, summary.DryRun, runErr,
	)
	if err != nil {
		return fmt.Errorf("failed to insert run %s: %w", summary.RunID, err)
	}

	if s.retainRuns > 0 {
		if err := s.prune(ctx); err != nil {
			// History is still consistent; the next run retries.
			logging.Ctx(ctx).Warn().Err(err).Msg("Failed to prune run history")
		}
	}
	return nil
}

// prune deletes runs beyond the retention limit and rows without a run.
func (s *Store) prune(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { observe("delete", "runs", start, err) }()

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx, `
		DELETE FROM runs WHERE run_id NOT IN (
			SELECT run_id FROM runs ORDER BY started_at DESC LIMIT ?
		)`, s.retainRuns)
	if err != nil {
		return fmt.Errorf("failed to prune runs: %w", err)
	}
	if _, err = tx.ExecContext(ctx, `
		DELETE FROM recommendation_rows
		WHERE run_id NOT IN (SELECT run_id FROM runs)`); err != nil {
		return fmt.Errorf("failed to prune rows: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit prune: %w", err)
	}

	if n, _ := res.RowsAffected(); n > 0 {
		logging.Ctx(ctx).Debug().Int64("runs", n).Msg("Pruned run history")
	}
	return nil
}

// ListRuns returns run summaries, newest first.
func (s *Store) ListRuns(ctx context.Context, limit, offset int) (runs []pipeline.RunSummary, err error) {
	start := time.Now()
	defer func() { observe("select", "runs", start, err) }()

	rows, err := s.conn.QueryContext(ctx,
		`SELECT `+runColumns+` FROM runs ORDER BY started_at DESC LIMIT ? OFFSET ?`,
		limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer closeQuietly(rows)

	runs = []pipeline.RunSummary{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate runs: %w", err)
	}
	return runs, nil
}

// CountRuns returns the number of stored runs.
func (s *Store) CountRuns(ctx context.Context) (int, error) {
	var n int
	if err := s.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM runs`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count runs: %w", err)
	}
	return n, nil
}

// GetRun returns one run summary or ErrNotFound.
func (s *Store) GetRun(ctx context.Context, runID string) (*pipeline.RunSummary, error) {
	row := s.conn.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE run_id = ?`, runID)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (pipeline.RunSummary, error) {
	var (
		run    pipeline.RunSummary
		runErr sql.NullString
	)
	err := sc.Scan(
		&run.RunID, &run.StartedAt, &run.FinishedAt,
		&run.Items, &run.Vocabulary, &run.Users, &run.UsersWithInteractions,
		&run.TopPicksRows, &run.BecauseRows, &run.Failures,
		&run.CFBlended, &run.DryRun, &runErr,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return run, err
	}
	if err != nil {
		return run, fmt.Errorf("failed to scan run: %w", err)
	}
	run.StartedAt = run.StartedAt.UTC()
	run.FinishedAt = run.FinishedAt.UTC()
	run.Error = runErr.String
	return run, nil
}
