// LocalRecs - Local Content-Based Recommendations for Jellyfin
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/localrecs

package vectorize

import "math"

// Cosine returns the cosine similarity of a and b.
//
// The dot product walks the smaller map and probes the larger one; each norm
// is taken over its own vector's entries. Empty vectors and zero norms give 0.
// Negative similarities are returned as-is.
func Cosine(a, b SparseVector) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	small, large := a, b
	if len(large) < len(small) {
		small, large = large, small
	}

	var dot float64
	for id, w := range small {
		if x, ok := large[id]; ok {
			dot += float64(w) * float64(x)
		}
	}

	na, nb := a.Norm(), b.Norm()
	if na == 0 || nb == 0 {
		return 0
	}
	s := dot / (na * nb)
	if math.IsNaN(s) {
		return 0
	}
	return s
}
