// LocalRecs - Local Content-Based Recommendations for Jellyfin
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/localrecs

package store

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/tomtom215/localrecs/internal/config"
	"github.com/tomtom215/localrecs/internal/recommend"
	"github.com/tomtom215/localrecs/internal/recommend/pipeline"
)

// testDBSemaphore serializes DuckDB usage across tests; concurrent CGO
// connections can hang under CI resource pressure.
var testDBSemaphore = make(chan struct{}, 1)

func setupTestStore(t *testing.T, retain int) *Store {
	t.Helper()

	testDBSemaphore <- struct{}{}
	t.Cleanup(func() { <-testDBSemaphore })

	s, err := Open(&config.DatabaseConfig{Path: ":memory:", MaxMemory: "256MB", RetainRuns: retain})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("Close() error = %v", err)
		}
	})
	return s
}

var baseTime = time.Date(2026, 3, 1, 4, 0, 0, 0, time.UTC)

func summary(id string, offset time.Duration) *pipeline.RunSummary {
	return &pipeline.RunSummary{
		RunID:        id,
		StartedAt:    baseTime.Add(offset),
		FinishedAt:   baseTime.Add(offset + time.Minute),
		Items:        120,
		Vocabulary:   900,
		Users:        3,
		TopPicksRows: 2,
	}
}

func row(runID, userID string, kind recommend.RowKind, label string, at time.Time, ids ...string) recommend.Row {
	items := make([]recommend.ScoredItem, len(ids))
	for i, id := range ids {
		items[i] = recommend.ScoredItem{ItemID: id, Score: 0.9 - float64(i)*0.1}
	}
	return recommend.Row{
		RunID:       runID,
		User:        recommend.User{ID: userID, Name: "user-" + userID},
		Kind:        kind,
		Label:       label,
		Items:       items,
		GeneratedAt: at,
	}
}

func TestOpen_File(t *testing.T) {
	testDBSemaphore <- struct{}{}
	defer func() { <-testDBSemaphore }()

	path := filepath.Join(t.TempDir(), "nested", "history.duckdb")
	s, err := Open(&config.DatabaseConfig{Path: path})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if err := s.Ping(context.Background()); err != nil {
		t.Errorf("Ping() error = %v", err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}

	// Reopening keeps the schema.
	s, err = Open(&config.DatabaseConfig{Path: path})
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	_ = s.Close()
}

func TestStore_RecordAndGetRun(t *testing.T) {
	s := setupTestStore(t, 0)
	ctx := context.Background()

	in := summary("run-1", 0)
	in.Failures = 1
	in.DryRun = true
	in.Error = "context deadline exceeded"
	if err := s.RecordRun(ctx, in); err != nil {
		t.Fatalf("RecordRun() error = %v", err)
	}

	got, err := s.GetRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("GetRun() error = %v", err)
	}
	if got.RunID != "run-1" || !got.StartedAt.Equal(in.StartedAt) || !got.FinishedAt.Equal(in.FinishedAt) {
		t.Errorf("GetRun() times = %+v", got)
	}
	if got.Items != 120 || got.Vocabulary != 900 || got.Failures != 1 || !got.DryRun {
		t.Errorf("GetRun() counters = %+v", got)
	}
	if got.Error != in.Error {
		t.Errorf("Error = %q, want %q", got.Error, in.Error)
	}

	// Recording the same run again replaces it.
	in.Failures = 0
	if err := s.RecordRun(ctx, in); err != nil {
		t.Fatalf("RecordRun() replace error = %v", err)
	}
	if n, _ := s.CountRuns(ctx); n != 1 {
		t.Errorf("CountRuns() = %d, want 1", n)
	}

	if _, err := s.GetRun(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetRun(missing) error = %v, want ErrNotFound", err)
	}
}

func TestStore_ListRuns(t *testing.T) {
	s := setupTestStore(t, 0)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if err := s.RecordRun(ctx, summary(fmt.Sprintf("run-%d", i), time.Duration(i)*time.Hour)); err != nil {
			t.Fatalf("RecordRun() error = %v", err)
		}
	}

	tests := []struct {
		name   string
		limit  int
		offset int
		want   []string
	}{
		{name: "newest first", limit: 2, offset: 0, want: []string{"run-4", "run-3"}},
		{name: "offset", limit: 2, offset: 3, want: []string{"run-1", "run-0"}},
		{name: "past end", limit: 10, offset: 10, want: []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runs, err := s.ListRuns(ctx, tt.limit, tt.offset)
			if err != nil {
				t.Fatalf("ListRuns() error = %v", err)
			}
			if len(runs) != len(tt.want) {
				t.Fatalf("ListRuns() len = %d, want %d", len(runs), len(tt.want))
			}
			for i, id := range tt.want {
				if runs[i].RunID != id {
					t.Errorf("runs[%d] = %s, want %s", i, runs[i].RunID, id)
				}
			}
		})
	}
}

func TestStore_LatestRows(t *testing.T) {
	s := setupTestStore(t, 0)
	ctx := context.Background()

	old := baseTime
	recent := baseTime.Add(24 * time.Hour)
	inputs := []recommend.Row{
		row("run-1", "u1", recommend.RowTopPicks, "Top picks for user-u1", old, "a"),
		row("run-2", "u1", recommend.RowBecauseYouWatched, "Because you watched Heat", recent, "c", "d"),
		row("run-2", "u1", recommend.RowTopPicks, "Top picks for user-u1", recent, "b", "c"),
		row("run-2", "u2", recommend.RowTopPicks, "Top picks for user-u2", recent, "z"),
	}
	inputs[1].AnchorID = "m6"
	inputs[1].DryRun = true
	for _, r := range inputs {
		if err := s.Upsert(ctx, r); err != nil {
			t.Fatalf("Upsert() error = %v", err)
		}
	}

	rows, err := s.LatestRows(ctx, "u1")
	if err != nil {
		t.Fatalf("LatestRows() error = %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("LatestRows() len = %d, want 2", len(rows))
	}
	if rows[0].Kind != recommend.RowTopPicks || rows[0].RunID != "run-2" {
		t.Errorf("rows[0] = %s from %s, want top picks from run-2", rows[0].Kind, rows[0].RunID)
	}
	if ids := rows[0].ItemIDs(); len(ids) != 2 || ids[0] != "b" || ids[1] != "c" {
		t.Errorf("rows[0] items = %v, want [b c]", ids)
	}
	if rows[0].Items[0].Score != 0.9 {
		t.Errorf("rows[0] score = %v, want 0.9", rows[0].Items[0].Score)
	}
	because := rows[1]
	if because.AnchorID != "m6" || !because.DryRun || because.User.Name != "user-u1" {
		t.Errorf("because row = %+v", because)
	}
	if !because.GeneratedAt.Equal(recent) {
		t.Errorf("GeneratedAt = %v, want %v", because.GeneratedAt, recent)
	}

	if _, err := s.LatestRows(ctx, "nobody"); !errors.Is(err, ErrNotFound) {
		t.Errorf("LatestRows(nobody) error = %v, want ErrNotFound", err)
	}
}

func TestStore_Retention(t *testing.T) {
	s := setupTestStore(t, 2)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		id := fmt.Sprintf("run-%d", i)
		at := baseTime.Add(time.Duration(i) * time.Hour)
		if err := s.Upsert(ctx, row(id, "u1", recommend.RowTopPicks, "Top picks", at, "x")); err != nil {
			t.Fatalf("Upsert() error = %v", err)
		}
		if err := s.RecordRun(ctx, summary(id, time.Duration(i)*time.Hour)); err != nil {
			t.Fatalf("RecordRun() error = %v", err)
		}
	}

	if n, err := s.CountRuns(ctx); err != nil || n != 2 {
		t.Fatalf("CountRuns() = %d, %v; want 2", n, err)
	}
	if _, err := s.GetRun(ctx, "run-0"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetRun(run-0) error = %v, want pruned", err)
	}

	var rows int
	if err := s.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM recommendation_rows`).Scan(&rows); err != nil {
		t.Fatalf("count rows: %v", err)
	}
	if rows != 2 {
		t.Errorf("recommendation_rows = %d, want 2 after pruning", rows)
	}
}

func TestStore_ImplementsPipelineInterfaces(t *testing.T) {
	var s any = &Store{}
	if _, ok := s.(pipeline.ResultConsumer); !ok {
		t.Error("Store does not implement pipeline.ResultConsumer")
	}
	if _, ok := s.(pipeline.RunRecorder); !ok {
		t.Error("Store does not implement pipeline.RunRecorder")
	}
}
