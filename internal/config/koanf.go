// LocalRecs - Local Content-Based Recommendations for Jellyfin
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/localrecs

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/tomtom215/localrecs/internal/recommend"
)

// DefaultConfigPaths lists the paths where config files are searched in order of priority.
// The first file found will be used.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/localrecs/config.yaml",
	"/etc/localrecs/config.yml",
}

// ConfigPathEnvVar is the environment variable that can override the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfig returns a Config struct with all default values.
// These are applied first, then overridden by config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Jellyfin: JellyfinConfig{
			URL:                    "",
			APIKey:                 "",
			Timeout:                30 * time.Second,
			ItemTypes:              []string{"Movie", "Series"},
			RequestsPerSecond:      20,
			Burst:                  10,
			CollectionNameTemplate: "{label} ({user})",
			CircuitBreakerEnabled:  true,
		},
		Recommend: fromEngineConfig(recommend.DefaultConfig()),
		Schedule: ScheduleConfig{
			Enabled:      true,
			DailyAt:      "04:00",
			Interval:     0,
			RunOnStartup: false,
		},
		Database: DatabaseConfig{
			Path:       "/data/localrecs.duckdb",
			MaxMemory:  "512MB",
			RetainRuns: 30,
		},
		Server: ServerConfig{
			Enabled:         true,
			Port:            8097,
			Host:            "0.0.0.0",
			Timeout:         30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Security: SecurityConfig{
			CORSOrigins:       []string{"*"},
			RateLimitReqs:     100,
			RateLimitWindow:   time.Minute,
			RateLimitDisabled: false,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// LoadWithKoanf loads configuration using the layered approach:
//  1. Struct defaults
//  2. Optional YAML config file
//  3. Environment variables (highest priority)
func LoadWithKoanf() (*Config, error) {
	k := koanf.New(".")

	// Layer 1: Load defaults from struct
	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// Layer 2: Load config file (optional)
	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// Layer 3: Environment variables
	// JELLYFIN_URL -> jellyfin.url
	// RECS_MAX_ITEMS_PER_ROW -> recommend.max_items_per_row
	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile returns the first existing config file, or "" if none.
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// sliceConfigPaths defines which config paths are parsed as comma-separated slices.
var sliceConfigPaths = []string{
	"jellyfin.item_types",
	"security.cors_origins",
}

// processSliceFields converts comma-separated string values to slices for known slice fields.
// Env vars arrive as strings while the config expects slices.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok || strVal == "" {
			continue
		}

		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) == 0 {
			continue
		}
		if err := k.Set(path, trimmed); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

// envMappings maps lowercase environment variable names to koanf paths.
var envMappings = map[string]string{
	// Jellyfin
	"jellyfin_url":                      "jellyfin.url",
	"jellyfin_api_key":                  "jellyfin.api_key",
	"jellyfin_timeout":                  "jellyfin.timeout",
	"jellyfin_item_types":               "jellyfin.item_types",
	"jellyfin_requests_per_second":      "jellyfin.requests_per_second",
	"jellyfin_burst":                    "jellyfin.burst",
	"jellyfin_collection_name_template": "jellyfin.collection_name_template",
	"jellyfin_circuit_breaker_enabled":  "jellyfin.circuit_breaker_enabled",

	// Recommendation engine
	"recs_max_items_per_row":          "recommend.max_items_per_row",
	"recs_recent_items_to_learn_from": "recommend.recent_items_to_learn_from",
	"recs_half_life_days":             "recommend.half_life_days",
	"recs_finished_weight":            "recommend.finished_weight",
	"recs_partial_over_40_weight":     "recommend.partial_over_40_weight",
	"recs_favorite_or_like_weight":    "recommend.favorite_or_like_weight",
	"recs_rating_weight":              "recommend.rating_weight",
	"recs_minimum_score_threshold":    "recommend.minimum_score_threshold",
	"recs_create_top_picks_row":       "recommend.create_top_picks_row",
	"recs_create_because_rows":        "recommend.create_because_rows",
	"recs_because_rows_per_user":      "recommend.because_rows_per_user",
	"recs_dry_run":                    "recommend.dry_run",
	"recs_concurrency":                "recommend.concurrency",
	"recs_user_filter":                "recommend.user_filter",
	"recs_run_timeout":                "recommend.run_timeout",

	// Collaborative filtering
	"recs_cf_enabled":        "recommend.cf.enabled",
	"recs_cf_blend_weight":   "recommend.cf.blend_weight",
	"recs_cf_factors":        "recommend.cf.factors",
	"recs_cf_iterations":     "recommend.cf.iterations",
	"recs_cf_regularization": "recommend.cf.regularization",
	"recs_cf_alpha":          "recommend.cf.alpha",

	// Scheduler
	"schedule_enabled":  "schedule.enabled",
	"schedule_daily_at": "schedule.daily_at",
	"schedule_interval": "schedule.interval",
	"run_on_startup":    "schedule.run_on_startup",

	// Database
	"duckdb_path":        "database.path",
	"duckdb_max_memory":  "database.max_memory",
	"duckdb_retain_runs": "database.retain_runs",

	// HTTP server
	"http_enabled":          "server.enabled",
	"http_port":             "server.port",
	"http_host":             "server.host",
	"http_timeout":          "server.timeout",
	"http_shutdown_timeout": "server.shutdown_timeout",

	// Security
	"cors_origins":        "security.cors_origins",
	"rate_limit_requests": "security.rate_limit_requests",
	"rate_limit_window":   "security.rate_limit_window",
	"disable_rate_limit":  "security.rate_limit_disabled",

	// Logging
	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",
}

// envTransformFunc transforms environment variable names to koanf paths.
// Unmapped keys return "" and are skipped so unrelated variables never
// leak into the configuration.
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}
