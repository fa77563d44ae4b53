// LocalRecs - Local Content-Based Recommendations for Jellyfin
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/localrecs

package algorithms

import (
	"cmp"
	"slices"

	"github.com/tomtom215/localrecs/internal/recommend"
	"github.com/tomtom215/localrecs/internal/recommend/vectorize"
)

// Rank scores every candidate against a user profile by cosine similarity.
//
// Excluded ids are skipped and scores below minScore are dropped. The result
// is sorted by descending score; equal scores keep their candidate order. At
// most max(1, maxItems) items are returned.
func Rank(
	profile vectorize.SparseVector,
	candidates []vectorize.ItemVector,
	exclude map[string]struct{},
	minScore float64,
	maxItems int,
) []recommend.ScoredItem {
	return rankAgainst(profile, "", candidates, exclude, minScore, maxItems)
}

// NearestNeighbors scores every candidate against a single anchor item. It
// behaves like Rank, and the anchor itself is never returned.
func NearestNeighbors(
	anchor vectorize.ItemVector,
	candidates []vectorize.ItemVector,
	exclude map[string]struct{},
	maxItems int,
	minScore float64,
) []recommend.ScoredItem {
	return rankAgainst(anchor.Vector, anchor.ItemID, candidates, exclude, minScore, maxItems)
}

func rankAgainst(
	target vectorize.SparseVector,
	selfID string,
	candidates []vectorize.ItemVector,
	exclude map[string]struct{},
	minScore float64,
	maxItems int,
) []recommend.ScoredItem {
	scored := make([]recommend.ScoredItem, 0, len(candidates))
	for i := range candidates {
		c := &candidates[i]
		if selfID != "" && c.ItemID == selfID {
			continue
		}
		if _, skip := exclude[c.ItemID]; skip {
			continue
		}
		score := vectorize.Cosine(target, c.Vector)
		if score < minScore {
			continue
		}
		scored = append(scored, recommend.ScoredItem{ItemID: c.ItemID, Score: score})
	}

	sortByScore(scored)
	return truncate(scored, maxItems)
}

// sortByScore orders items by descending score, keeping input order on ties.
func sortByScore(items []recommend.ScoredItem) {
	slices.SortStableFunc(items, func(a, b recommend.ScoredItem) int {
		return cmp.Compare(b.Score, a.Score)
	})
}

func truncate(items []recommend.ScoredItem, maxItems int) []recommend.ScoredItem {
	limit := max(1, maxItems)
	if len(items) > limit {
		return items[:limit]
	}
	return items
}
