package domain

import "errors"

var (
	// ErrInvalidQuery is returned when a search request is empty or malformed
	ErrInvalidQuery = errors.New("invalid search query")

	// ErrVendorNotFound is returned when a vendor has no rows in the catalog
	ErrVendorNotFound = errors.New("vendor not found in catalog")

	// ErrCacheMiss is returned when no cached entry matches the lookup key
	ErrCacheMiss = errors.New("cache miss")

	// ErrCacheUnavailable is returned when the cache store cannot be reached;
	// callers treat it as a miss and skip persistence for the request
	ErrCacheUnavailable = errors.New("cache unavailable")

	// ErrScrapeFailure is returned when a marketplace scrape fails
	ErrScrapeFailure = errors.New("marketplace scrape failed")

	// ErrSuggestionFailure is returned when the suggestion backend fails
	ErrSuggestionFailure = errors.New("suggestion request failed")
)
