// LocalRecs - Local Content-Based Recommendations for Jellyfin
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/localrecs

/*
Package jellyfin connects LocalRecs to a Jellyfin server over its REST API.

Components:

  - Client: HTTP client with X-Emby-Token auth, request pacing
    (golang.org/x/time/rate) and HTTP 429 backoff
  - CircuitBreakerClient: sony/gobreaker wrapper exporting breaker metrics
  - Source: catalog, users and per-user watch signals for the pipeline
  - CollectionsWriter: writes ranked rows as BoxSet collections

Watch signals are derived from each item's UserData: Played marks an item
finished, PlaybackPositionTicks over RunTimeTicks gives the played fraction,
IsFavorite and Rating (0..10, mapped to [0, 1]) add their own weights.
*/
package jellyfin
