// LocalRecs - Local Content-Based Recommendations for Jellyfin
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/localrecs

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// setRequiredEnv sets the minimum environment for a valid configuration and
// points CONFIG_PATH at a file that does not exist.
func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv(ConfigPathEnvVar, filepath.Join(t.TempDir(), "missing.yaml"))
	t.Setenv("JELLYFIN_URL", "http://jellyfin:8096")
	t.Setenv("JELLYFIN_API_KEY", "secret")
}

func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()

	if cfg.Jellyfin.URL != "" {
		t.Errorf("Jellyfin.URL should be empty by default, got %q", cfg.Jellyfin.URL)
	}
	if cfg.Jellyfin.CollectionNameTemplate != "{label} ({user})" {
		t.Errorf("Jellyfin.CollectionNameTemplate = %q, want {label} ({user})", cfg.Jellyfin.CollectionNameTemplate)
	}
	if len(cfg.Jellyfin.ItemTypes) != 2 {
		t.Errorf("Jellyfin.ItemTypes = %v, want [Movie Series]", cfg.Jellyfin.ItemTypes)
	}

	r := cfg.Recommend
	if r.MaxItemsPerRow != 30 {
		t.Errorf("Recommend.MaxItemsPerRow = %d, want 30", r.MaxItemsPerRow)
	}
	if r.RecentItemsToLearnFrom != 50 {
		t.Errorf("Recommend.RecentItemsToLearnFrom = %d, want 50", r.RecentItemsToLearnFrom)
	}
	if r.HalfLifeDays != 30 {
		t.Errorf("Recommend.HalfLifeDays = %d, want 30", r.HalfLifeDays)
	}
	if r.FinishedWeight != 1.0 || r.PartialOver40Weight != 0.5 || r.FavoriteOrLikeWeight != 0.25 || r.RatingWeight != 0.1 {
		t.Errorf("Recommend weights = %v/%v/%v/%v, want 1/0.5/0.25/0.1",
			r.FinishedWeight, r.PartialOver40Weight, r.FavoriteOrLikeWeight, r.RatingWeight)
	}
	if r.MinimumScoreThreshold != 0.05 {
		t.Errorf("Recommend.MinimumScoreThreshold = %v, want 0.05", r.MinimumScoreThreshold)
	}
	if r.CF.Enabled {
		t.Error("Recommend.CF.Enabled should be false by default")
	}

	if cfg.Schedule.DailyAt != "04:00" {
		t.Errorf("Schedule.DailyAt = %q, want 04:00", cfg.Schedule.DailyAt)
	}
	if cfg.Schedule.RunOnStartup {
		t.Error("Schedule.RunOnStartup should be false by default")
	}
	if cfg.Server.Port != 8097 {
		t.Errorf("Server.Port = %d, want 8097", cfg.Server.Port)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("Logging.Level = %q, want info", cfg.Logging.Level)
	}
}

func TestLoadWithKoanf_Defaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := LoadWithKoanf()
	if err != nil {
		t.Fatalf("LoadWithKoanf() error = %v", err)
	}

	if cfg.Jellyfin.URL != "http://jellyfin:8096" {
		t.Errorf("Jellyfin.URL = %q, want http://jellyfin:8096", cfg.Jellyfin.URL)
	}
	if cfg.Jellyfin.Timeout != 30*time.Second {
		t.Errorf("Jellyfin.Timeout = %v, want 30s", cfg.Jellyfin.Timeout)
	}
	if cfg.Recommend.RunTimeout != 30*time.Minute {
		t.Errorf("Recommend.RunTimeout = %v, want 30m", cfg.Recommend.RunTimeout)
	}
	if !cfg.Recommend.CreateTopPicksRow || !cfg.Recommend.CreateBecauseRows {
		t.Error("row toggles should default to true")
	}
}

func TestLoadWithKoanf_EnvOverrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("RECS_MAX_ITEMS_PER_ROW", "12")
	t.Setenv("RECS_HALF_LIFE_DAYS", "7")
	t.Setenv("RECS_MINIMUM_SCORE_THRESHOLD", "0.2")
	t.Setenv("RECS_DRY_RUN", "true")
	t.Setenv("RECS_USER_FILTER", "!user.is_disabled")
	t.Setenv("RECS_CF_ENABLED", "true")
	t.Setenv("RECS_CF_BLEND_WEIGHT", "0.3")
	t.Setenv("SCHEDULE_INTERVAL", "6h")
	t.Setenv("HTTP_PORT", "9000")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := LoadWithKoanf()
	if err != nil {
		t.Fatalf("LoadWithKoanf() error = %v", err)
	}

	if cfg.Recommend.MaxItemsPerRow != 12 {
		t.Errorf("Recommend.MaxItemsPerRow = %d, want 12", cfg.Recommend.MaxItemsPerRow)
	}
	if cfg.Recommend.HalfLifeDays != 7 {
		t.Errorf("Recommend.HalfLifeDays = %d, want 7", cfg.Recommend.HalfLifeDays)
	}
	if cfg.Recommend.MinimumScoreThreshold != 0.2 {
		t.Errorf("Recommend.MinimumScoreThreshold = %v, want 0.2", cfg.Recommend.MinimumScoreThreshold)
	}
	if !cfg.Recommend.DryRun {
		t.Error("Recommend.DryRun should be true")
	}
	if cfg.Recommend.UserFilter != "!user.is_disabled" {
		t.Errorf("Recommend.UserFilter = %q", cfg.Recommend.UserFilter)
	}
	if !cfg.Recommend.CF.Enabled || cfg.Recommend.CF.BlendWeight != 0.3 {
		t.Errorf("Recommend.CF = %+v, want enabled with blend 0.3", cfg.Recommend.CF)
	}
	if cfg.Schedule.Interval != 6*time.Hour {
		t.Errorf("Schedule.Interval = %v, want 6h", cfg.Schedule.Interval)
	}
	if cfg.Server.Port != 9000 {
		t.Errorf("Server.Port = %d, want 9000", cfg.Server.Port)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want debug", cfg.Logging.Level)
	}
}

func TestLoadWithKoanf_SliceFields(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("JELLYFIN_ITEM_TYPES", "Movie, ")
	t.Setenv("CORS_ORIGINS", "http://a.example, http://b.example")

	cfg, err := LoadWithKoanf()
	if err != nil {
		t.Fatalf("LoadWithKoanf() error = %v", err)
	}

	if len(cfg.Jellyfin.ItemTypes) != 1 || cfg.Jellyfin.ItemTypes[0] != "Movie" {
		t.Errorf("Jellyfin.ItemTypes = %v, want [Movie]", cfg.Jellyfin.ItemTypes)
	}
	want := []string{"http://a.example", "http://b.example"}
	if len(cfg.Security.CORSOrigins) != len(want) {
		t.Fatalf("Security.CORSOrigins = %v, want %v", cfg.Security.CORSOrigins, want)
	}
	for i := range want {
		if cfg.Security.CORSOrigins[i] != want[i] {
			t.Errorf("Security.CORSOrigins[%d] = %q, want %q", i, cfg.Security.CORSOrigins[i], want[i])
		}
	}
}

func TestLoadWithKoanf_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
jellyfin:
  url: https://media.example.com
  api_key: from-file
  collection_name_template: "{label} [{user_id}]"
recommend:
  max_items_per_row: 20
  because_rows_per_user: 2
  cf:
    enabled: true
    factors: 16
schedule:
  daily_at: "03:30"
  run_on_startup: true
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv(ConfigPathEnvVar, path)
	// Env wins over the file.
	t.Setenv("RECS_BECAUSE_ROWS_PER_USER", "3")

	cfg, err := LoadWithKoanf()
	if err != nil {
		t.Fatalf("LoadWithKoanf() error = %v", err)
	}

	if cfg.Jellyfin.APIKey != "from-file" {
		t.Errorf("Jellyfin.APIKey = %q, want from-file", cfg.Jellyfin.APIKey)
	}
	if cfg.Jellyfin.CollectionNameTemplate != "{label} [{user_id}]" {
		t.Errorf("Jellyfin.CollectionNameTemplate = %q", cfg.Jellyfin.CollectionNameTemplate)
	}
	if cfg.Recommend.MaxItemsPerRow != 20 {
		t.Errorf("Recommend.MaxItemsPerRow = %d, want 20", cfg.Recommend.MaxItemsPerRow)
	}
	if cfg.Recommend.BecauseRowsPerUser != 3 {
		t.Errorf("Recommend.BecauseRowsPerUser = %d, want 3", cfg.Recommend.BecauseRowsPerUser)
	}
	if !cfg.Recommend.CF.Enabled || cfg.Recommend.CF.Factors != 16 {
		t.Errorf("Recommend.CF = %+v, want enabled with 16 factors", cfg.Recommend.CF)
	}
	// Values absent from the file keep their defaults.
	if cfg.Recommend.CF.Iterations != 10 {
		t.Errorf("Recommend.CF.Iterations = %d, want 10", cfg.Recommend.CF.Iterations)
	}
	if cfg.Schedule.DailyAt != "03:30" || !cfg.Schedule.RunOnStartup {
		t.Errorf("Schedule = %+v, want 03:30 with run on startup", cfg.Schedule)
	}
}

func TestLoadWithKoanf_MissingRequired(t *testing.T) {
	t.Setenv(ConfigPathEnvVar, filepath.Join(t.TempDir(), "missing.yaml"))
	t.Setenv("JELLYFIN_URL", "")
	t.Setenv("JELLYFIN_API_KEY", "")

	_, err := LoadWithKoanf()
	if err == nil {
		t.Fatal("LoadWithKoanf() expected error without JELLYFIN_URL")
	}
	if !strings.Contains(err.Error(), "JELLYFIN_URL") {
		t.Errorf("error = %v, want mention of JELLYFIN_URL", err)
	}
}

func TestEnvTransformFunc(t *testing.T) {
	tests := []struct {
		key  string
		want string
	}{
		{"JELLYFIN_URL", "jellyfin.url"},
		{"RECS_CF_ALPHA", "recommend.cf.alpha"},
		{"RUN_ON_STARTUP", "schedule.run_on_startup"},
		{"DISABLE_RATE_LIMIT", "security.rate_limit_disabled"},
		{"PATH", ""},
		{"HOME", ""},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			if got := envTransformFunc(tt.key); got != tt.want {
				t.Errorf("envTransformFunc(%q) = %q, want %q", tt.key, got, tt.want)
			}
		})
	}
}

func TestRecommendConfig_RoundTrip(t *testing.T) {
	cfg := defaultConfig()
	engine := cfg.Recommend.ToEngineConfig()

	if err := engine.Validate(); err != nil {
		t.Fatalf("default engine config invalid: %v", err)
	}
	if got := fromEngineConfig(engine); got != cfg.Recommend {
		t.Errorf("fromEngineConfig(ToEngineConfig()) = %+v, want %+v", got, cfg.Recommend)
	}
}

func TestServerConfig_Addr(t *testing.T) {
	s := ServerConfig{Host: "127.0.0.1", Port: 8097}
	if got := s.Addr(); got != "127.0.0.1:8097" {
		t.Errorf("Addr() = %q, want 127.0.0.1:8097", got)
	}
}
