// LocalRecs - Local Content-Based Recommendations for Jellyfin
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/localrecs

package vectorize

import (
	"iter"
	"math"
)

// Document is one item's token stream as fed to FitTransform.
type Document struct {
	ItemID string
	Tokens iter.Seq[string]
}

// Vocabulary maps tokens to dense ids assigned in first-seen order.
type Vocabulary struct {
	ids   map[string]int
	terms []string
}

func newVocabulary() *Vocabulary {
	return &Vocabulary{ids: make(map[string]int)}
}

// add returns the id for token, assigning the next id if it is new.
func (v *Vocabulary) add(token string) int {
	if id, ok := v.ids[token]; ok {
		return id
	}
	id := len(v.terms)
	v.ids[token] = id
	v.terms = append(v.terms, token)
	return id
}

// ID returns the id of token and whether it is known.
func (v *Vocabulary) ID(token string) (int, bool) {
	id, ok := v.ids[token]
	return id, ok
}

// Token returns the token for id, or "" when id is out of range.
func (v *Vocabulary) Token(id int) string {
	if id < 0 || id >= len(v.terms) {
		return ""
	}
	return v.terms[id]
}

// Len returns the number of distinct tokens.
func (v *Vocabulary) Len() int {
	return len(v.terms)
}

// Model is the result of a single fit: the vocabulary, its idf table and the
// vector of every fitted document in input order.
type Model struct {
	vocab   *Vocabulary
	idf     []float64
	vectors []ItemVector
	byID    map[string]SparseVector
}

// Vocabulary returns the fitted vocabulary.
func (m *Model) Vocabulary() *Vocabulary { return m.vocab }

// IDF returns the inverse document frequency for id, or 0 for unknown ids.
func (m *Model) IDF(id int) float64 {
	if id < 0 || id >= len(m.idf) {
		return 0
	}
	return m.idf[id]
}

// Vectors returns the item vectors in the order the documents were given.
// Callers must not modify the returned slice or its vectors.
func (m *Model) Vectors() []ItemVector { return m.vectors }

// VectorsByID returns the vectors keyed by item id. When an id appears more
// than once in the input, the last occurrence wins.
func (m *Model) VectorsByID() map[string]SparseVector { return m.byID }

// Vector returns the vector for itemID.
func (m *Model) Vector(itemID string) (SparseVector, bool) {
	v, ok := m.byID[itemID]
	return v, ok
}

// FitTransform builds a vocabulary over docs and returns the TF-IDF vector of
// every document.
//
// Document frequency counts each token once per document. Term frequency is
// the raw count in the (non-deduplicated) stream. Weights are tf*idf with
// idf = ln(N/(1+df)), N = max(1, len(docs)), then L2-normalized with exact
// zeros pruned. A document with no tokens gets an empty vector.
func FitTransform(docs []Document) *Model {
	vocab := newVocabulary()

	// Materialize each stream once; sequences may be single-use.
	counts := make([]map[int]int, len(docs))
	var df []int
	for i, d := range docs {
		tf := make(map[int]int)
		if d.Tokens != nil {
			for tok := range d.Tokens {
				id := vocab.add(tok)
				if id == len(df) {
					df = append(df, 0)
				}
				if tf[id] == 0 {
					df[id]++
				}
				tf[id]++
			}
		}
		counts[i] = tf
	}

	n := float64(max(1, len(docs)))
	idf := make([]float64, len(df))
	for id, f := range df {
		idf[id] = math.Log(n / (1.0 + float64(f)))
	}

	vectors := make([]ItemVector, len(docs))
	byID := make(map[string]SparseVector, len(docs))
	for i, d := range docs {
		acc := make(map[int]float64, len(counts[i]))
		for id, c := range counts[i] {
			acc[id] = float64(c) * idf[id]
		}
		vec := Normalize(acc)
		vectors[i] = ItemVector{ItemID: d.ItemID, Vector: vec}
		byID[d.ItemID] = vec
	}

	return &Model{
		vocab:   vocab,
		idf:     idf,
		vectors: vectors,
		byID:    byID,
	}
}
