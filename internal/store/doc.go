// LocalRecs - Local Content-Based Recommendations for Jellyfin
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/localrecs

/*
Package store keeps recommendation run history in DuckDB.

The store is both a pipeline.ResultConsumer and a pipeline.RunRecorder:
every row a run produces is appended to recommendation_rows, and the run
summary is written to runs once the run finishes. Dry-run rows are stored
too, so a dry run can be inspected through the HTTP API without touching
Jellyfin.

Tables:
  - runs: one row per run summary, keyed by run_id
  - recommendation_rows: ranked items per user, row kind and label, with the
    items encoded as JSON text

Retention:
After each recorded run, runs beyond DatabaseConfig.RetainRuns (newest kept)
are deleted together with their rows. Zero keeps everything.

Thread Safety:
Store is safe for concurrent use; database/sql pools the DuckDB connections.
*/
package store
