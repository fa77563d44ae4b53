// LocalRecs - Local Content-Based Recommendations for Jellyfin
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/localrecs

package algorithms

import (
	"math"
	"time"

	"github.com/tomtom215/localrecs/internal/recommend"
	"github.com/tomtom215/localrecs/internal/recommend/vectorize"
)

// BuildProfile folds interactions into a single L2-normalized interest vector.
//
// Each interaction contributes signal * decay * v[t] for every token t of its
// item vector, where
//
//	decay = exp(-age_days / max(1, half_life_days))
//
// and age is measured from now. Future timestamps count as age 0.
// Interactions whose item has no vector, or whose signal is not positive, are
// skipped. With nothing to accumulate the profile is empty.
func BuildProfile(
	interactions []recommend.Interaction,
	vectors map[string]vectorize.SparseVector,
	w recommend.SignalWeights,
	now time.Time,
) vectorize.SparseVector {
	halfLife := float64(max(1, w.HalfLifeDays))
	acc := make(map[int]float64)

	for i := range interactions {
		in := &interactions[i]

		vec, ok := vectors[in.ItemID]
		if !ok {
			continue
		}

		signal := in.Signal(w)
		if signal <= 0 {
			continue
		}

		ageDays := now.Sub(in.When).Hours() / 24
		if ageDays < 0 {
			ageDays = 0
		}
		weight := signal * math.Exp(-ageDays/halfLife)

		for id, v := range vec {
			acc[id] += weight * float64(v)
		}
	}

	return vectorize.Normalize(acc)
}
