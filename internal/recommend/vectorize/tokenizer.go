// LocalRecs - Local Content-Based Recommendations for Jellyfin
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/localrecs

package vectorize

import (
	"iter"
	"strings"
	"unicode"
)

// Token namespaces.
const (
	PrefixGenre    = "genre:"
	PrefixTag      = "tag:"
	PrefixPerson   = "person:"
	PrefixStudio   = "studio:"
	PrefixTitle    = "title:"
	PrefixOverview = "overview:"
)

const (
	// MinKeywordLength is the shortest title/overview keyword kept.
	MinKeywordLength = 3

	// MaxOverviewKeywords caps the overview contribution per item.
	MaxOverviewKeywords = 10
)

// Fields is the metadata subset the tokenizer reads from a catalog item.
type Fields struct {
	Genres   []string
	Tags     []string
	People   []string
	Studios  []string
	Title    string
	Overview string
}

// Tokenize returns the item's token stream in a fixed order: genres, tags,
// people, studios, title keywords, overview keywords. Duplicates are kept.
// The sequence is lazy and may be iterated more than once.
func Tokenize(f Fields) iter.Seq[string] {
	return func(yield func(string) bool) {
		lists := [...]struct {
			prefix string
			values []string
		}{
			{PrefixGenre, f.Genres},
			{PrefixTag, f.Tags},
			{PrefixPerson, f.People},
			{PrefixStudio, f.Studios},
		}
		for _, l := range lists {
			for _, v := range l.values {
				c := canonical(v)
				if c == "" {
					continue
				}
				if !yield(l.prefix + c) {
					return
				}
			}
		}

		for kw := range Keywords(f.Title, 0) {
			if !yield(PrefixTitle + kw) {
				return
			}
		}
		for kw := range Keywords(f.Overview, MaxOverviewKeywords) {
			if !yield(PrefixOverview + kw) {
				return
			}
		}
	}
}

// Keywords extracts lowercase keywords from free text. Every rune that is not
// a letter or digit separates words; words shorter than MinKeywordLength and
// stopwords are dropped. A limit <= 0 means unlimited.
func Keywords(text string, limit int) iter.Seq[string] {
	return func(yield func(string) bool) {
		if strings.TrimSpace(text) == "" {
			return
		}
		words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		})
		n := 0
		for _, w := range words {
			if len([]rune(w)) < MinKeywordLength || IsStopword(w) {
				continue
			}
			if !yield(w) {
				return
			}
			n++
			if limit > 0 && n >= limit {
				return
			}
		}
	}
}

func canonical(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
