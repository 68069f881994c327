package domain

import "time"

// Marketplace identifies one of the cloud marketplaces we search
type Marketplace string

const (
	MarketplaceAWS   Marketplace = "AWS"
	MarketplaceAzure Marketplace = "Azure"
	MarketplaceGCP   Marketplace = "GCP"
)

// AllMarketplaces returns the marketplaces in their display order
func AllMarketplaces() []Marketplace {
	return []Marketplace{MarketplaceAWS, MarketplaceAzure, MarketplaceGCP}
}

// CatalogEntry is one vendor/solution row from the source spreadsheet
type CatalogEntry struct {
	Vendor   string `json:"vendor"`
	Solution string `json:"solution"`
}

// SearchQuery represents a vendor/solution search request
type SearchQuery struct {
	Vendor   string `json:"vendor" binding:"required"`
	Solution string `json:"solution"`
}

// Candidate is a single scraped marketplace listing considered for matching.
// URL is set only when the scraper found a concrete product page; SearchURL
// always points at the marketplace search results for the query and is the
// fallback link when no product page exists.
type Candidate struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	URL         string `json:"url,omitempty"`
	SearchURL   string `json:"searchUrl,omitempty"`
}

// MatchResult is a scored candidate
type MatchResult struct {
	Title       string             `json:"title"`
	Description string             `json:"description,omitempty"`
	URL         string             `json:"url,omitempty"`
	SearchURL   string             `json:"searchUrl,omitempty"`
	Marketplace Marketplace        `json:"marketplace"`
	Score       float64            `json:"score"`
	Breakdown   map[string]float64 `json:"scoreBreakdown"`
	Band        string             `json:"band"`
}

// Confidence bands (inclusive lower bounds) used for UI coloring and the
// suggestion fallback trigger
const (
	BandExact    = 95.0
	BandVeryHigh = 85.0
	BandHigh     = 70.0
	BandMedium   = 50.0
	BandLow      = 30.0
)

// ConfidenceBand names the band a score falls into
func ConfidenceBand(score float64) string {
	switch {
	case score >= BandExact:
		return "exact"
	case score >= BandVeryHigh:
		return "very-high"
	case score >= BandHigh:
		return "high"
	case score >= BandMedium:
		return "medium"
	case score >= BandLow:
		return "low"
	default:
		return "no-match"
	}
}

// CacheEntry is the persisted result set for one (vendor, solution,
// marketplace) key. Entries are never mutated in place; a Put replaces the
// row and Clear removes everything.
type CacheEntry struct {
	Key          string        `json:"key"`
	Marketplace  Marketplace   `json:"marketplace"`
	Results      []MatchResult `json:"results"`
	CreatedAt    time.Time     `json:"createdAt"`
	LastAccessed time.Time     `json:"lastAccessed,omitempty"`
	AccessCount  int           `json:"accessCount,omitempty"`
}

// Suggestion is one LLM-proposed alternative product
type Suggestion struct {
	Name      string `json:"name"`
	Rationale string `json:"rationale,omitempty"`
}

// MarketplaceResult groups one marketplace's scored listings.
// Unavailable marks a marketplace whose scrape failed or timed out; its
// Results are empty and the other marketplaces' results still stand.
type MarketplaceResult struct {
	Marketplace Marketplace   `json:"marketplace"`
	Results     []MatchResult `json:"results"`
	Unavailable bool          `json:"unavailable,omitempty"`
	FromCache   bool          `json:"fromCache,omitempty"`
}

// SearchResponse is the full result of a marketplace search
type SearchResponse struct {
	Vendor           string              `json:"vendor"`
	Solution         string              `json:"solution,omitempty"`
	ResolvedVendor   string              `json:"resolvedVendor,omitempty"`
	ResolvedSolution string              `json:"resolvedSolution,omitempty"`
	InCatalog        bool                `json:"inCatalog"`
	Marketplaces     []MarketplaceResult `json:"marketplaces"`
	BestMatches      []MatchResult       `json:"bestMatches"`
	NoMatch          bool                `json:"noMatch"`
	Suggestions      []Suggestion        `json:"suggestions,omitempty"`
}
