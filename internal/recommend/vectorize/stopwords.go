// LocalRecs - Local Content-Based Recommendations for Jellyfin
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/localrecs

package vectorize

// stopwords are dropped from title and overview keywords.
var stopwords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "and": {}, "or": {}, "of": {}, "to": {},
	"in": {}, "on": {}, "for": {}, "with": {}, "by": {}, "at": {}, "from": {},
	"as": {}, "is": {}, "it": {}, "this": {}, "that": {}, "these": {}, "those": {},
}

// IsStopword reports whether word (already lowercased) is a stopword.
func IsStopword(word string) bool {
	_, ok := stopwords[word]
	return ok
}
