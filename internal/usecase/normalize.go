package usecase

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/cloudmatch/backend/internal/domain"
)

// Package-level compiled regex patterns for performance
var (
	nonAlphanumericRegex = regexp.MustCompile(`[^a-z0-9\s]`)
	multipleSpacesRegex  = regexp.MustCompile(`\s+`)
)

// stopWords are common English words ignored during token comparison
var stopWords = map[string]bool{
	"a": true, "an": true, "the": true, "and": true, "or": true,
	"of": true, "in": true, "on": true, "at": true, "to": true,
	"for": true, "with": true, "by": true, "from": true, "is": true,
	"it": true, "as": true, "be": true, "was": true, "are": true,
	"this": true, "that": true, "your": true, "our": true, "you": true,
	"not": true, "can": true, "will": true, "all": true, "any": true,
}

// normalizeText lowercases, strips non-alphanumerics, and collapses
// whitespace
func normalizeText(s string) string {
	result := strings.ToLower(s)
	result = nonAlphanumericRegex.ReplaceAllString(result, " ")
	result = multipleSpacesRegex.ReplaceAllString(result, " ")
	return strings.TrimSpace(result)
}

// tokenize splits normalized text into tokens with stop words removed and
// each token lemmatized
func tokenize(s string) []string {
	words := strings.Fields(normalizeText(s))
	var tokens []string
	for _, word := range words {
		if len(word) <= 1 || stopWords[word] {
			continue
		}
		tokens = append(tokens, lemmatize(word))
	}
	return tokens
}

// lemmatize reduces common English inflections to a base form. A handful of
// suffix rules covers the plural/participle variation that product listings
// actually exhibit.
func lemmatize(word string) string {
	switch {
	case len(word) > 4 && strings.HasSuffix(word, "ies"):
		return word[:len(word)-3] + "y"
	case len(word) > 4 && strings.HasSuffix(word, "sses"):
		return word[:len(word)-2]
	case len(word) > 3 && strings.HasSuffix(word, "es") && !strings.HasSuffix(word, "ses"):
		return word[:len(word)-2]
	case len(word) > 3 && strings.HasSuffix(word, "s") && !strings.HasSuffix(word, "ss"):
		return word[:len(word)-1]
	case len(word) > 5 && strings.HasSuffix(word, "ing"):
		return word[:len(word)-3]
	default:
		return word
	}
}

// tokenSet builds a set from a token slice
func tokenSet(tokens []string) map[string]bool {
	set := make(map[string]bool, len(tokens))
	for _, t := range tokens {
		set[t] = true
	}
	return set
}

// CacheKey builds the normalized lookup key for a (vendor, solution,
// marketplace) tuple. Keys are compared fuzzily on read, so the
// normalization only needs to be stable, not collision-free.
func CacheKey(vendor, solution string, marketplace domain.Marketplace) string {
	return fmt.Sprintf("%s|%s|%s",
		normalizeText(vendor),
		normalizeText(solution),
		strings.ToLower(string(marketplace)))
}
