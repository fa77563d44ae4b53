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
	"io"
	"os"
	"path/filepath"
	"runtime"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"

	"github.com/tomtom215/localrecs/internal/config"
	"github.com/tomtom215/localrecs/internal/logging"
	"github.com/tomtom215/localrecs/internal/metrics"
)

// ErrNotFound is returned when a run or a user's rows do not exist.
var ErrNotFound = errors.New("not found")

// Store wraps the DuckDB connection holding run history.
type Store struct {
	conn       *sql.DB
	retainRuns int
}

// Open opens (or creates) the DuckDB database and its schema. An empty path
// keeps history in memory.
func Open(cfg *config.DatabaseConfig) (*Store, error) {
	path := cfg.Path
	if path == "" {
		path = ":memory:"
	}

	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o750); err != nil {
				return nil, fmt.Errorf("failed to create database directory %s: %w", dir, err)
			}
		}
	}

	maxMemory := cfg.MaxMemory
	if maxMemory == "" {
		maxMemory = "512MB"
	}

	// No extension is used; never auto-install one.
	connStr := fmt.Sprintf("%s?access_mode=read_write&threads=%d&max_memory=%s&autoinstall_known_extensions=false&autoload_known_extensions=false",
		path, max(1, runtime.NumCPU()/2), maxMemory)

	conn, err := sql.Open("duckdb", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	conn.SetMaxOpenConns(runtime.NumCPU())
	conn.SetMaxIdleConns(2)
	conn.SetConnMaxLifetime(time.Hour)
	conn.SetConnMaxIdleTime(5 * time.Minute)

	s := &Store{conn: conn, retainRuns: cfg.RetainRuns}
	if err := s.createTables(); err != nil {
		closeQuietly(conn)
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	logging.Info().Str("path", path).Int("retain_runs", cfg.RetainRuns).Msg("Run history database opened")
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.conn.Close()
}

// Ping checks that the database answers.
func (s *Store) Ping(ctx context.Context) error {
	return s.conn.PingContext(ctx)
}

// schemaContext returns a context with timeout for schema operations
func schemaContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 30*time.Second)
}

func (s *Store) createTables() error {
	ctx, cancel := schemaContext()
	defer cancel()

	queries := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			run_id VARCHAR PRIMARY KEY,
			started_at TIMESTAMP NOT NULL,
			finished_at TIMESTAMP NOT NULL,
			items INTEGER NOT NULL,
			vocabulary INTEGER NOT NULL,
			users INTEGER NOT NULL,
			users_with_interactions INTEGER NOT NULL,
			top_picks_rows INTEGER NOT NULL,
			because_rows INTEGER NOT NULL,
			failures INTEGER NOT NULL,
			cf_blended BOOLEAN NOT NULL,
			dry_run BOOLEAN NOT NULL,
			error VARCHAR
		)`,
		`CREATE TABLE IF NOT EXISTS recommendation_rows (
			run_id VARCHAR NOT NULL,
			user_id VARCHAR NOT NULL,
			user_name VARCHAR NOT NULL,
			kind VARCHAR NOT NULL,
			anchor_id VARCHAR,
			label VARCHAR NOT NULL,
			items VARCHAR NOT NULL,
			dry_run BOOLEAN NOT NULL,
			generated_at TIMESTAMP NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at)`,
		`CREATE INDEX IF NOT EXISTS idx_rows_user ON recommendation_rows(user_id, generated_at)`,
	}

	for _, query := range queries {
		if _, err := s.conn.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to execute query: %s: %w", query, err)
		}
	}
	return nil
}

// observe records a query metric.
func observe(operation, table string, start time.Time, err error) {
	metrics.RecordDBQuery(operation, table, time.Since(start), err)
}

// closeQuietly closes a resource in error paths where Close errors are not
// actionable.
func closeQuietly(closer io.Closer) {
	if closer != nil {
		_ = closer.Close()
	}
}
