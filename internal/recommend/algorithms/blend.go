// LocalRecs - Local Content-Based Recommendations for Jellyfin
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/localrecs

package algorithms

import "github.com/tomtom215/localrecs/internal/recommend"

// Blend mixes collaborative scores into a content ranking:
//
//	score = (1-w)*content + w*cf
//
// Only items present in content are considered. Items without a CF score keep
// their content score. The result is re-sorted (stable) and truncated to
// max(1, maxItems). content is not modified.
func Blend(content []recommend.ScoredItem, cf map[string]float64, w float64, maxItems int) []recommend.ScoredItem {
	w = min(max(w, 0), 1)
	out := make([]recommend.ScoredItem, len(content))
	for i, it := range content {
		out[i] = it
		if s, ok := cf[it.ItemID]; ok {
			out[i].Score = (1-w)*it.Score + w*s
		}
	}
	sortByScore(out)
	return truncate(out, maxItems)
}
