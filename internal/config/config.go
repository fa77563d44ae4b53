// LocalRecs - Local Content-Based Recommendations for Jellyfin
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/localrecs

package config

import (
	"net"
	"strconv"
	"time"

	"github.com/tomtom215/localrecs/internal/recommend"
)

// Config holds all application configuration.
type Config struct {
	Jellyfin  JellyfinConfig  `koanf:"jellyfin"`
	Recommend RecommendConfig `koanf:"recommend"`
	Schedule  ScheduleConfig  `koanf:"schedule"`
	Database  DatabaseConfig  `koanf:"database"`
	Server    ServerConfig    `koanf:"server"`
	Security  SecurityConfig  `koanf:"security"`
	Logging   LoggingConfig   `koanf:"logging"`
}

// JellyfinConfig holds the media server connection and write settings.
type JellyfinConfig struct {
	// URL is the Jellyfin base URL, e.g. http://jellyfin:8096.
	URL string `koanf:"url"`

	// APIKey is sent as X-Emby-Token on every request.
	APIKey string `koanf:"api_key"`

	// Timeout bounds a single HTTP request.
	// Default: 30s
	Timeout time.Duration `koanf:"timeout"`

	// ItemTypes selects which library item types form the catalog.
	// Default: Movie, Series
	ItemTypes []string `koanf:"item_types"`

	// RequestsPerSecond paces outgoing requests. Zero disables pacing.
	// Default: 20
	RequestsPerSecond float64 `koanf:"requests_per_second"`

	// Burst is the limiter bucket size.
	// Default: 10
	Burst int `koanf:"burst"`

	// CollectionNameTemplate builds the collection name from a row.
	// Placeholders: {label}, {user}, {user_id}, {kind}.
	// Default: "{label} ({user})"
	CollectionNameTemplate string `koanf:"collection_name_template"`

	// CircuitBreakerEnabled wraps the client in a circuit breaker.
	// Default: true
	CircuitBreakerEnabled bool `koanf:"circuit_breaker_enabled"`
}

// RecommendConfig mirrors recommend.Config with koanf tags.
type RecommendConfig struct {
	MaxItemsPerRow         int           `koanf:"max_items_per_row"`
	RecentItemsToLearnFrom int           `koanf:"recent_items_to_learn_from"`
	HalfLifeDays           int           `koanf:"half_life_days"`
	FinishedWeight         float64       `koanf:"finished_weight"`
	PartialOver40Weight    float64       `koanf:"partial_over_40_weight"`
	FavoriteOrLikeWeight   float64       `koanf:"favorite_or_like_weight"`
	RatingWeight           float64       `koanf:"rating_weight"`
	MinimumScoreThreshold  float64       `koanf:"minimum_score_threshold"`
	CreateTopPicksRow      bool          `koanf:"create_top_picks_row"`
	CreateBecauseRows      bool          `koanf:"create_because_rows"`
	BecauseRowsPerUser     int           `koanf:"because_rows_per_user"`
	DryRun                 bool          `koanf:"dry_run"`
	Concurrency            int           `koanf:"concurrency"`
	UserFilter             string        `koanf:"user_filter"`
	RunTimeout             time.Duration `koanf:"run_timeout"`
	CF                     CFConfig      `koanf:"cf"`
}

// CFConfig mirrors recommend.CFConfig.
type CFConfig struct {
	Enabled        bool    `koanf:"enabled"`
	BlendWeight    float64 `koanf:"blend_weight"`
	Factors        int     `koanf:"factors"`
	Iterations     int     `koanf:"iterations"`
	Regularization float64 `koanf:"regularization"`
	Alpha          float64 `koanf:"alpha"`
}

// ToEngineConfig converts to the engine configuration type.
func (r RecommendConfig) ToEngineConfig() *recommend.Config {
	return &recommend.Config{
		MaxItemsPerRow:         r.MaxItemsPerRow,
		RecentItemsToLearnFrom: r.RecentItemsToLearnFrom,
		HalfLifeDays:           r.HalfLifeDays,
		FinishedWeight:         r.FinishedWeight,
		PartialOver40Weight:    r.PartialOver40Weight,
		FavoriteOrLikeWeight:   r.FavoriteOrLikeWeight,
		RatingWeight:           r.RatingWeight,
		MinimumScoreThreshold:  r.MinimumScoreThreshold,
		CreateTopPicksRow:      r.CreateTopPicksRow,
		CreateBecauseRows:      r.CreateBecauseRows,
		BecauseRowsPerUser:     r.BecauseRowsPerUser,
		DryRun:                 r.DryRun,
		Concurrency:            r.Concurrency,
		UserFilter:             r.UserFilter,
		RunTimeout:             r.RunTimeout,
		CF: recommend.CFConfig{
			Enabled:        r.CF.Enabled,
			BlendWeight:    r.CF.BlendWeight,
			Factors:        r.CF.Factors,
			Iterations:     r.CF.Iterations,
			Regularization: r.CF.Regularization,
			Alpha:          r.CF.Alpha,
		},
	}
}

// fromEngineConfig is the inverse of ToEngineConfig, used to seed defaults.
func fromEngineConfig(c *recommend.Config) RecommendConfig {
	return RecommendConfig{
		MaxItemsPerRow:         c.MaxItemsPerRow,
		RecentItemsToLearnFrom: c.RecentItemsToLearnFrom,
		HalfLifeDays:           c.HalfLifeDays,
		FinishedWeight:         c.FinishedWeight,
		PartialOver40Weight:    c.PartialOver40Weight,
		FavoriteOrLikeWeight:   c.FavoriteOrLikeWeight,
		RatingWeight:           c.RatingWeight,
		MinimumScoreThreshold:  c.MinimumScoreThreshold,
		CreateTopPicksRow:      c.CreateTopPicksRow,
		CreateBecauseRows:      c.CreateBecauseRows,
		BecauseRowsPerUser:     c.BecauseRowsPerUser,
		DryRun:                 c.DryRun,
		Concurrency:            c.Concurrency,
		UserFilter:             c.UserFilter,
		RunTimeout:             c.RunTimeout,
		CF: CFConfig{
			Enabled:        c.CF.Enabled,
			BlendWeight:    c.CF.BlendWeight,
			Factors:        c.CF.Factors,
			Iterations:     c.CF.Iterations,
			Regularization: c.CF.Regularization,
			Alpha:          c.CF.Alpha,
		},
	}
}

// ScheduleConfig controls when the recommendation task runs.
type ScheduleConfig struct {
	// Enabled turns the built-in scheduler on. When false runs are only
	// triggered through the API.
	// Default: true
	Enabled bool `koanf:"enabled"`

	// DailyAt is the local wall-clock time (HH:MM) of the nightly run.
	// Default: "04:00"
	DailyAt string `koanf:"daily_at"`

	// Interval replaces the daily schedule with a fixed period when non-zero.
	Interval time.Duration `koanf:"interval"`

	// RunOnStartup triggers one run as soon as the service starts.
	// Default: false
	RunOnStartup bool `koanf:"run_on_startup"`
}

// DatabaseConfig holds DuckDB settings for run history.
type DatabaseConfig struct {
	// Path is the DuckDB file. Empty keeps run history in memory.
	// Default: /data/localrecs.duckdb
	Path string `koanf:"path"`

	// MaxMemory is passed to DuckDB's memory_limit.
	// Default: 512MB
	MaxMemory string `koanf:"max_memory"`

	// RetainRuns is how many runs of history are kept. Zero keeps all.
	// Default: 30
	RetainRuns int `koanf:"retain_runs"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Enabled starts the status API.
	// Default: true
	Enabled bool `koanf:"enabled"`

	// Port is the listen port.
	// Default: 8097
	Port int `koanf:"port"`

	// Host is the bind address.
	// Default: 0.0.0.0
	Host string `koanf:"host"`

	// Timeout is used for read and write timeouts.
	// Default: 30s
	Timeout time.Duration `koanf:"timeout"`

	// ShutdownTimeout bounds graceful shutdown.
	// Default: 10s
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// SecurityConfig holds CORS and rate limiting for the API.
type SecurityConfig struct {
	// CORSOrigins lists allowed origins.
	// Default: ["*"]
	CORSOrigins []string `koanf:"cors_origins"`

	// RateLimitReqs is the per-IP request budget per window.
	// Default: 100
	RateLimitReqs int `koanf:"rate_limit_requests"`

	// RateLimitWindow is the rate limit window.
	// Default: 1m
	RateLimitWindow time.Duration `koanf:"rate_limit_window"`

	// RateLimitDisabled turns rate limiting off.
	// Default: false
	RateLimitDisabled bool `koanf:"rate_limit_disabled"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level: trace, debug, info, warn, error.
	// Default: info
	Level string `koanf:"level"`

	// Format is json or console.
	// Default: json
	Format string `koanf:"format"`

	// Caller adds file:line to each entry.
	// Default: false
	Caller bool `koanf:"caller"`
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}
