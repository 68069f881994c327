package domain

import "context"

// CacheStore defines the fuzzy-key result cache.
//
// Get is approximate: a stored entry is a hit when its key's similarity to
// the lookup key meets the store's threshold, best match winning. Put is
// exact and replaces any entry under the same key.
type CacheStore interface {
	Get(ctx context.Context, key string) (*CacheEntry, error)
	Put(ctx context.Context, key string, entry *CacheEntry) error
	Clear(ctx context.Context) error
	Inspect(ctx context.Context) ([]CacheEntry, error)
}

// Scraper searches one marketplace for product listings
type Scraper interface {
	Marketplace() Marketplace
	Search(ctx context.Context, query string, maxResults int) ([]Candidate, error)
}

// Suggester proposes alternative products from the catalog when no
// marketplace listing clears the no-match threshold
type Suggester interface {
	Suggest(ctx context.Context, vendor, solution string, products []string) ([]Suggestion, error)
}
