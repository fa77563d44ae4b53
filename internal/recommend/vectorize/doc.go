// LocalRecs - Local Content-Based Recommendations for Jellyfin
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/localrecs

// Package vectorize turns catalog metadata into sparse TF-IDF feature vectors.
//
// # Tokens
//
// Every item is reduced to a stream of namespaced tokens:
//
//	genre:science fiction
//	tag:time travel
//	person:jane doe
//	studio:a24
//	title:arrival
//	overview:linguist
//
// List fields are trimmed and lowercased verbatim. Title and overview text is
// split into keywords; short words and stopwords are dropped and overviews
// contribute at most ten keywords.
//
// # Weighting
//
// FitTransform builds a vocabulary in first-seen order, computes smoothed
// inverse document frequency
//
//	idf(t) = ln(N / (1 + df(t)))
//
// and emits one L2-normalized vector per item. The idf is not clamped, so a
// token present in every item carries a small negative weight.
//
// # Ownership
//
// A Model is produced by a single FitTransform call and owned by the caller.
// There is no package-level vocabulary; two fits never share token ids. Once
// returned, a Model and its vectors are read-only and safe for concurrent use.
package vectorize
