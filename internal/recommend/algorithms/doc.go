// LocalRecs - Local Content-Based Recommendations for Jellyfin
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/localrecs

// Package algorithms implements the scoring stages of a recommendation run.
//
// # Stages
//
//   - BuildProfile: folds a user's recent interactions into one normalized
//     interest vector with exponential time decay
//   - Rank: scores every candidate against a profile
//   - NearestNeighbors: scores every candidate against a single anchor item
//   - ALS: optional implicit-feedback matrix factorization whose scores can be
//     blended into a content ranking
//
// # Thread Safety
//
// BuildProfile, Rank and NearestNeighbors are pure functions over read-only
// inputs and may run concurrently. ALS training acquires an exclusive lock
// while prediction uses a shared lock.
package algorithms
