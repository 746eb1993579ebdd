// Package parser turns a flat boolean query ("go AND concurrency NOT java")
// into a QueryPlan.
package parser

import (
	"slices"
	"strings"
	"unicode"
)

type QueryType int

const (
	QueryAND QueryType = iota
	QueryOR
)

func (q QueryType) String() string {
	if q == QueryOR {
		return "or"
	}
	return "and"
}

type QueryPlan struct {
	Terms        []string
	Type         QueryType
	ExcludeTerms []string
	RawQuery     string
}

// Parse reads whitespace-separated words. AND and OR (any case) select the
// combinator for the whole query, the last one wins; NOT excludes the word
// after it. Terms are lower-cased, stripped of surrounding punctuation and
// kept once.
func Parse(query string) *QueryPlan {
	plan := &QueryPlan{
		Terms:        make([]string, 0),
		ExcludeTerms: make([]string, 0),
		Type:         QueryAND,
		RawQuery:     query,
	}
	excludeNext := false
	for _, word := range strings.Fields(query) {
		switch strings.ToUpper(word) {
		case "AND":
			plan.Type = QueryAND
			continue
		case "OR":
			plan.Type = QueryOR
			continue
		case "NOT":
			excludeNext = true
			continue
		}
		term := NormalizeTerm(word)
		if term == "" {
			continue
		}
		if excludeNext {
			plan.ExcludeTerms = appendUnique(plan.ExcludeTerms, term)
			excludeNext = false
		} else {
			plan.Terms = appendUnique(plan.Terms, term)
		}
	}
	return plan
}

// NormalizeTerm lower-cases term and trims leading and trailing characters
// that are neither letters nor digits.
func NormalizeTerm(term string) string {
	return strings.TrimFunc(strings.ToLower(term), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// Canonical renders the plan with sorted terms, so that equivalent queries
// share one form.
func (p *QueryPlan) Canonical() string {
	terms := slices.Sorted(slices.Values(p.Terms))
	parts := []string{p.Type.String(), strings.Join(terms, ",")}
	if len(p.ExcludeTerms) > 0 {
		excludes := slices.Sorted(slices.Values(p.ExcludeTerms))
		parts = append(parts, "not:"+strings.Join(excludes, ","))
	}
	return strings.Join(parts, "|")
}

func appendUnique(terms []string, term string) []string {
	if slices.Contains(terms, term) {
		return terms
	}
	return append(terms, term)
}
