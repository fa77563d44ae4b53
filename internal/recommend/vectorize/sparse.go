// LocalRecs - Local Content-Based Recommendations for Jellyfin
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/localrecs

package vectorize

import "math"

// SparseVector maps vocabulary ids to weights. Absent ids are zero.
type SparseVector map[int]float32

// ItemVector pairs a catalog item id with its feature vector.
type ItemVector struct {
	ItemID string
	Vector SparseVector
}

// Norm returns the Euclidean norm of v.
func (v SparseVector) Norm() float64 {
	var sum float64
	for _, w := range v {
		f := float64(w)
		sum += f * f
	}
	return math.Sqrt(sum)
}

// Normalize divides every accumulated weight by the L2 norm of acc and drops
// entries that end up exactly zero. A zero norm is treated as 1.0, so an
// all-zero accumulator yields an empty vector. acc is not modified.
func Normalize(acc map[int]float64) SparseVector {
	var sum float64
	for _, w := range acc {
		sum += w * w
	}
	norm := math.Sqrt(sum)
	if norm <= 0 {
		norm = 1.0
	}

	out := make(SparseVector, len(acc))
	for id, w := range acc {
		nw := float32(w / norm)
		if nw == 0 {
			continue
		}
		out[id] = nw
	}
	return out
}
