// LocalRecs - Local Content-Based Recommendations for Jellyfin
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/localrecs

// Package recommend defines the shared types and configuration of the local
// content-based recommendation engine.
//
// # Architecture
//
// A recommendation run is a batch job over the whole library:
//
//   - vectorize: catalog metadata is tokenized and fitted into TF-IDF vectors
//   - algorithms: watch history is folded into a time-decayed user profile,
//     then unseen items are ranked against it (Top picks) and against single
//     finished items (Because you watched)
//   - pipeline: orchestrates a run across all users and hands every row to
//     result consumers (Jellyfin collections, run history)
//
// # Design Principles
//
//   - Deterministic: the same catalog and history produce the same rows
//   - Stateless between runs: vectors and vocabularies are rebuilt every run
//   - Local: no data leaves the server; no external model is consulted
//   - Fail-soft: missing vectors and empty inputs are skipped, never fatal
//
// # Usage
//
//	cfg := recommend.DefaultConfig()
//	engine, err := pipeline.NewEngine(cfg, logger, catalog, history, consumers...)
//	summary, err := engine.Run(ctx)
//
// # Thread Safety
//
// Types in this package are plain values. Config is read-only once a run has
// started; callers that change settings between runs should Clone first.
package recommend
