// LocalRecs - Local Content-Based Recommendations for Jellyfin
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/localrecs

/*
Package config provides centralized configuration management for LocalRecs.

Configuration is layered with koanf:

 1. Struct defaults (defaultConfig)
 2. Optional YAML file from CONFIG_PATH, ./config.yaml or /etc/localrecs/config.yaml
 3. Environment variables

Only explicitly mapped environment variables are read.

# Sections

  - jellyfin: server URL, API key, request pacing, collection naming
  - recommend: ranking parameters, row toggles, dry run, CF blend (recommend.cf)
  - schedule: nightly time or fixed interval, run on startup
  - database: DuckDB run history
  - server: status API listener
  - security: CORS and rate limiting for the API
  - logging: level, format, caller

# Environment Variables

Jellyfin:
  - JELLYFIN_URL: Base URL (required)
  - JELLYFIN_API_KEY: API key (required)
  - JELLYFIN_TIMEOUT: Per-request timeout (default: 30s)
  - JELLYFIN_ITEM_TYPES: Comma-separated item types (default: Movie,Series)
  - JELLYFIN_REQUESTS_PER_SECOND: Request pacing, 0 disables (default: 20)
  - JELLYFIN_COLLECTION_NAME_TEMPLATE: Collection name (default: {label} ({user}))

Recommendations:
  - RECS_MAX_ITEMS_PER_ROW (default: 30)
  - RECS_RECENT_ITEMS_TO_LEARN_FROM (default: 50)
  - RECS_HALF_LIFE_DAYS (default: 30)
  - RECS_FINISHED_WEIGHT (default: 1.0)
  - RECS_PARTIAL_OVER_40_WEIGHT (default: 0.5)
  - RECS_FAVORITE_OR_LIKE_WEIGHT (default: 0.25)
  - RECS_RATING_WEIGHT (default: 0.1)
  - RECS_MINIMUM_SCORE_THRESHOLD (default: 0.05)
  - RECS_DRY_RUN (default: false)
  - RECS_USER_FILTER: CEL expression over user
  - RECS_CF_ENABLED (default: false)

Schedule:
  - SCHEDULE_DAILY_AT (default: 04:00)
  - SCHEDULE_INTERVAL: Fixed period overriding the daily time
  - RUN_ON_STARTUP (default: false)

Example:

	cfg, err := config.LoadWithKoanf()
	if err != nil {
	    log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	engineCfg := cfg.Recommend.ToEngineConfig()
*/
package config
