package usecase

import (
	"context"
	"errors"
	"log"
	"math"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/cloudmatch/backend/internal/catalog"
	"github.com/cloudmatch/backend/internal/domain"
)

// maxSuggestionProducts caps the catalog excerpt sent to the suggestion model
const maxSuggestionProducts = 100

// SearchServiceConfig holds configuration for the search service
type SearchServiceConfig struct {
	MarketplaceTimeout time.Duration // per-marketplace scrape budget
	OverallTimeout     time.Duration // whole-query wall-clock budget
	MaxResults         int
	NoMatchThreshold   float64
	ResolveThreshold   float64
	EnableDebugLogging bool
}

// SearchService orchestrates a marketplace search: resolve the query
// against the catalog, consult the fuzzy cache, fan out to the scrapers,
// score, persist, and fall back to LLM suggestions when nothing matches.
type SearchService struct {
	catalog   *catalog.Catalog
	store     domain.CacheStore
	scrapers  []domain.Scraper
	suggester domain.Suggester
	scorer    *Scorer
	cfg       SearchServiceConfig
}

// NewSearchService creates a search service with dependencies. suggester
// may be nil, which disables the fallback.
func NewSearchService(
	cat *catalog.Catalog,
	store domain.CacheStore,
	scrapers []domain.Scraper,
	suggester domain.Suggester,
	cfg SearchServiceConfig,
) *SearchService {
	if cfg.MarketplaceTimeout <= 0 {
		cfg.MarketplaceTimeout = 30 * time.Second
	}
	if cfg.OverallTimeout <= 0 {
		cfg.OverallTimeout = 90 * time.Second
	}
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = 10
	}
	if cfg.NoMatchThreshold <= 0 {
		cfg.NoMatchThreshold = domain.BandLow
	}
	if cfg.ResolveThreshold <= 0 {
		cfg.ResolveThreshold = 50
	}

	return &SearchService{
		catalog:   cat,
		store:     store,
		scrapers:  scrapers,
		suggester: suggester,
		scorer:    NewScorer(cfg.EnableDebugLogging),
		cfg:       cfg,
	}
}

// Search runs the full pipeline for one vendor/solution query.
//
// The three marketplace scrapes run concurrently, each with its own
// timeout. A failed or timed-out marketplace degrades to an empty,
// unavailable-marked result set and never aborts its siblings. Cache
// failures degrade to a miss on read and to skipped persistence on write.
func (s *SearchService) Search(ctx context.Context, req *domain.SearchQuery) (*domain.SearchResponse, error) {
	if req == nil || strings.TrimSpace(req.Vendor) == "" {
		return nil, domain.ErrInvalidQuery
	}

	vendor := strings.TrimSpace(req.Vendor)
	solution := strings.TrimSpace(req.Solution)

	resolvedVendor, vendorScore := s.catalog.ResolveVendor(vendor, s.cfg.ResolveThreshold)
	searchVendor := vendor
	if vendorScore > 0 {
		searchVendor = resolvedVendor
	}
	resolvedSolution, solutionScore := s.catalog.ResolveSolution(searchVendor, solution, s.cfg.ResolveThreshold)
	searchSolution := solution
	if solutionScore > 0 {
		searchSolution = resolvedSolution
	}

	log.Printf("[SEARCH] %q / %q resolved to %q / %q (vendor: %.0f%%, solution: %.0f%%)",
		vendor, solution, searchVendor, searchSolution, vendorScore, solutionScore)

	searchText := strings.TrimSpace(searchVendor + " " + searchSolution)

	searchCtx, cancel := context.WithTimeout(ctx, s.cfg.OverallTimeout)
	defer cancel()

	marketplaces := make([]domain.MarketplaceResult, len(s.scrapers))
	g, gctx := errgroup.WithContext(searchCtx)

	for i, scraper := range s.scrapers {
		marketplaces[i].Marketplace = scraper.Marketplace()

		key := CacheKey(searchVendor, searchSolution, scraper.Marketplace())
		if entry, err := s.store.Get(searchCtx, key); err == nil {
			marketplaces[i].Results = entry.Results
			marketplaces[i].FromCache = true
			continue
		} else if !errors.Is(err, domain.ErrCacheMiss) {
			log.Printf("[CACHE] Read failed for %q, treating as miss: %v", key, err)
		}

		g.Go(func() error {
			tctx, cancel := context.WithTimeout(gctx, s.cfg.MarketplaceTimeout)
			defer cancel()

			candidates, err := scraper.Search(tctx, searchText, s.cfg.MaxResults)
			if err != nil {
				log.Printf("[SEARCH] %s unavailable: %v", scraper.Marketplace(), err)
				marketplaces[i].Unavailable = true
				return nil // a failed marketplace never cancels its siblings
			}

			marketplaces[i].Results = s.scorer.ScoreAll(searchVendor, searchSolution, scraper.Marketplace(), candidates)
			if marketplaces[i].Results == nil {
				marketplaces[i].Results = []domain.MatchResult{}
			}

			entry := &domain.CacheEntry{
				Key:         key,
				Marketplace: scraper.Marketplace(),
				Results:     marketplaces[i].Results,
				CreatedAt:   time.Now().UTC(),
			}
			if err := s.store.Put(tctx, key, entry); err != nil {
				log.Printf("[CACHE] Write failed for %q, skipping persistence: %v", key, err)
			}
			return nil
		})
	}

	// Goroutines only ever return nil; Wait is just the join point
	_ = g.Wait()

	resp := &domain.SearchResponse{
		Vendor:           vendor,
		Solution:         solution,
		ResolvedVendor:   resolvedVendor,
		ResolvedSolution: resolvedSolution,
		InCatalog:        s.catalog.Has(searchVendor, searchSolution),
		Marketplaces:     marketplaces,
		BestMatches:      bestMatches(marketplaces, s.cfg.NoMatchThreshold),
	}
	resp.NoMatch = len(resp.BestMatches) == 0

	if resp.NoMatch && s.suggester != nil {
		suggestions, err := s.suggester.Suggest(ctx, searchVendor, searchSolution, s.suggestionProducts())
		if err != nil {
			log.Printf("[SUGGEST] Fallback failed, omitting suggestions: %v", err)
		} else {
			resp.Suggestions = suggestions
		}
	}

	return resp, nil
}

// bestMatches collects results above the threshold across all marketplaces,
// sorted by descending score with the scorer's tie-break
func bestMatches(marketplaces []domain.MarketplaceResult, threshold float64) []domain.MatchResult {
	var best []domain.MatchResult
	for _, mr := range marketplaces {
		for _, r := range mr.Results {
			if r.Score > threshold {
				best = append(best, r)
			}
		}
	}
	sort.SliceStable(best, func(i, j int) bool {
		a, b := best[i], best[j]
		if math.Abs(a.Score-b.Score) > scoreEpsilon {
			return a.Score > b.Score
		}
		if (a.URL != "") != (b.URL != "") {
			return a.URL != ""
		}
		return a.Breakdown[SignalFuzzy] > b.Breakdown[SignalFuzzy]
	})
	return best
}

// suggestionProducts flattens the catalog into "Vendor Solution" strings for
// the suggestion prompt, deduplicated and capped
func (s *SearchService) suggestionProducts() []string {
	seen := make(map[string]bool)
	var products []string
	for _, e := range s.catalog.Entries() {
		name := strings.TrimSpace(e.Vendor + " " + e.Solution)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		products = append(products, name)
		if len(products) == maxSuggestionProducts {
			break
		}
	}
	return products
}
