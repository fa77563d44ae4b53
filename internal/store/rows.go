// LocalRecs - Local Content-Based Recommendations for Jellyfin
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/localrecs

package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/localrecs/internal/recommend"
)

// Upsert appends a row to the history. It implements pipeline.ResultConsumer.
func (s *Store) Upsert(ctx context.Context, row recommend.Row) (err error) {
	start := time.Now()
	defer func() { observe("insert", "recommendation_rows", start, err) }()

	items, err := json.Marshal(row.Items)
	if err != nil {
		return fmt.Errorf("failed to encode row items: %w", err)
	}

	var anchor sql.NullString
	if row.AnchorID != "" {
		anchor = sql.NullString{String: row.AnchorID, Valid: true}
	}

	_, err = s.conn.ExecContext(ctx, `
		INSERT INTO recommendation_rows (
			run_id, user_id, user_name, kind, anchor_id, label, items, dry_run, generated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		row.RunID, row.User.ID, row.User.Name, string(row.Kind), anchor, row.Label,
		string(items), row.DryRun, row.GeneratedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert row %q: %w", row.Label, err)
	}
	return nil
}

// LatestRows returns the rows of the most recent run that produced anything
// for the user: top picks first, then because-you-watched rows by label.
// ErrNotFound is returned when the user has no rows.
func (s *Store) LatestRows(ctx context.Context, userID string) (rows []recommend.Row, err error) {
	start := time.Now()
	defer func() { observe("select", "recommendation_rows", start, err) }()

	result, err := s.conn.QueryContext(ctx, `
		SELECT run_id, user_id, user_name, kind, anchor_id, label, items, dry_run, generated_at
		FROM recommendation_rows
		WHERE user_id = ? AND run_id = (
			SELECT run_id FROM recommendation_rows
			WHERE user_id = ?
			ORDER BY generated_at DESC
			LIMIT 1
		)
		ORDER BY CASE kind WHEN 'top_picks' THEN 0 ELSE 1 END, label`,
		userID, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query rows: %w", err)
	}
	defer closeQuietly(result)

	for result.Next() {
		row, err := scanRow(result)
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	if err := result.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rows: %w", err)
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	return rows, nil
}

func scanRow(result *sql.Rows) (recommend.Row, error) {
	var (
		row    recommend.Row
		kind   string
		anchor sql.NullString
		items  string
	)
	if err := result.Scan(
		&row.RunID, &row.User.ID, &row.User.Name, &kind, &anchor, &row.Label,
		&items, &row.DryRun, &row.GeneratedAt,
	); err != nil {
		return row, fmt.Errorf("failed to scan row: %w", err)
	}
	row.Kind = recommend.RowKind(kind)
	row.AnchorID = anchor.String
	row.GeneratedAt = row.GeneratedAt.UTC()
	if err := json.Unmarshal([]byte(items), &row.Items); err != nil {
		return row, fmt.Errorf("failed to decode items of row %q: %w", row.Label, err)
	}
	return row, nil
}
