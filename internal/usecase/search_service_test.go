package usecase

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloudmatch/backend/internal/catalog"
	"github.com/cloudmatch/backend/internal/domain"
)

// fakeScraper returns canned candidates or a fixed error
type fakeScraper struct {
	marketplace domain.Marketplace
	candidates  []domain.Candidate
	err         error
	calls       atomic.Int32
}

func (f *fakeScraper) Marketplace() domain.Marketplace { return f.marketplace }

func (f *fakeScraper) Search(ctx context.Context, query string, maxResults int) ([]domain.Candidate, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	return f.candidates, nil
}

// fakeStore is an in-memory CacheStore with injectable failures. Search
// reads it from the request goroutine while the scrape goroutines write, so
// it carries the same mutex discipline as the real stores.
type fakeStore struct {
	mu      sync.Mutex
	entries map[string]*domain.CacheEntry
	getErr  error
	putErr  error
	puts    atomic.Int32
}

func newFakeStore() *fakeStore {
	return &fakeStore{entries: make(map[string]*domain.CacheEntry)}
}

func (f *fakeStore) Get(ctx context.Context, key string) (*domain.CacheEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	entry, ok := f.entries[key]
	if !ok {
		return nil, domain.ErrCacheMiss
	}
	return entry, nil
}

func (f *fakeStore) Put(ctx context.Context, key string, entry *domain.CacheEntry) error {
	f.puts.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.putErr != nil {
		return f.putErr
	}
	f.entries[key] = entry
	return nil
}

func (f *fakeStore) Clear(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = make(map[string]*domain.CacheEntry)
	return nil
}

func (f *fakeStore) Inspect(ctx context.Context) ([]domain.CacheEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.CacheEntry
	for _, e := range f.entries {
		out = append(out, *e)
	}
	return out, nil
}

// fakeSuggester records invocations
type fakeSuggester struct {
	suggestions []domain.Suggestion
	err         error
	calls       atomic.Int32
}

func (f *fakeSuggester) Suggest(ctx context.Context, vendor, solution string, products []string) ([]domain.Suggestion, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	return f.suggestions, nil
}

func testCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	path := filepath.Join(t.TempDir(), "catalog.csv")
	content := "vendor,solution_name\nAtlassian,Jira Software\nAtlassian,Confluence\nRed Hat,OpenShift\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}
	cat, err := catalog.Load(path)
	require.NoError(t, err)
	return cat
}

func matchingScrapers() []domain.Scraper {
	jira := []domain.Candidate{
		{Title: "Jira Software", URL: "https://example.com/pp/jira", SearchURL: "https://example.com/search?q=jira"},
		{Title: "Unrelated Backup Appliance", SearchURL: "https://example.com/search?q=jira"},
	}
	return []domain.Scraper{
		&fakeScraper{marketplace: domain.MarketplaceAWS, candidates: jira},
		&fakeScraper{marketplace: domain.MarketplaceAzure, candidates: jira},
		&fakeScraper{marketplace: domain.MarketplaceGCP, candidates: jira},
	}
}

func TestSearch(t *testing.T) {
	ctx := context.Background()

	t.Run("nil query is rejected", func(t *testing.T) {
		service := NewSearchService(testCatalog(t), newFakeStore(), nil, nil, SearchServiceConfig{})
		_, err := service.Search(ctx, nil)
		assert.True(t, errors.Is(err, domain.ErrInvalidQuery))
	})

	t.Run("blank vendor is rejected before any scrape", func(t *testing.T) {
		scrapers := matchingScrapers()
		service := NewSearchService(testCatalog(t), newFakeStore(), scrapers, nil, SearchServiceConfig{})

		_, err := service.Search(ctx, &domain.SearchQuery{Vendor: "   "})
		assert.True(t, errors.Is(err, domain.ErrInvalidQuery))
		for _, s := range scrapers {
			assert.Equal(t, int32(0), s.(*fakeScraper).calls.Load())
		}
	})

	t.Run("resolves fuzzy vendor and solution against the catalog", func(t *testing.T) {
		service := NewSearchService(testCatalog(t), newFakeStore(), matchingScrapers(), nil, SearchServiceConfig{})

		resp, err := service.Search(ctx, &domain.SearchQuery{Vendor: "atlassian", Solution: "jira"})
		require.NoError(t, err)
		assert.Equal(t, "Atlassian", resp.ResolvedVendor)
		assert.Equal(t, "Jira Software", resp.ResolvedSolution)
		assert.True(t, resp.InCatalog)
	})

	t.Run("matches across all marketplaces", func(t *testing.T) {
		service := NewSearchService(testCatalog(t), newFakeStore(), matchingScrapers(), nil, SearchServiceConfig{})

		resp, err := service.Search(ctx, &domain.SearchQuery{Vendor: "Atlassian", Solution: "Jira Software"})
		require.NoError(t, err)
		require.Len(t, resp.Marketplaces, 3)
		assert.False(t, resp.NoMatch)
		require.NotEmpty(t, resp.BestMatches)
		assert.Equal(t, "Jira Software", resp.BestMatches[0].Title)
		assert.GreaterOrEqual(t, resp.BestMatches[0].Score, domain.BandExact)
	})

	t.Run("scrape results are persisted and served from cache on repeat", func(t *testing.T) {
		store := newFakeStore()
		scrapers := matchingScrapers()
		service := NewSearchService(testCatalog(t), store, scrapers, nil, SearchServiceConfig{})

		_, err := service.Search(ctx, &domain.SearchQuery{Vendor: "Atlassian", Solution: "Jira Software"})
		require.NoError(t, err)
		assert.Equal(t, int32(3), store.puts.Load())

		resp, err := service.Search(ctx, &domain.SearchQuery{Vendor: "Atlassian", Solution: "Jira Software"})
		require.NoError(t, err)
		for _, mr := range resp.Marketplaces {
			assert.True(t, mr.FromCache)
		}
		for _, s := range scrapers {
			assert.Equal(t, int32(1), s.(*fakeScraper).calls.Load())
		}
	})

	t.Run("concurrent searches share the store safely", func(t *testing.T) {
		store := newFakeStore()
		service := NewSearchService(testCatalog(t), store, matchingScrapers(), nil, SearchServiceConfig{})

		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := service.Search(ctx, &domain.SearchQuery{Vendor: "Atlassian", Solution: "Jira Software"})
				assert.NoError(t, err)
			}()
		}
		wg.Wait()
	})

	t.Run("one failed marketplace degrades without aborting the others", func(t *testing.T) {
		jira := []domain.Candidate{{Title: "Jira Software"}}
		scrapers := []domain.Scraper{
			&fakeScraper{marketplace: domain.MarketplaceAWS, candidates: jira},
			&fakeScraper{marketplace: domain.MarketplaceAzure, err: fmt.Errorf("%w: status 503", domain.ErrScrapeFailure)},
			&fakeScraper{marketplace: domain.MarketplaceGCP, candidates: jira},
		}
		service := NewSearchService(testCatalog(t), newFakeStore(), scrapers, nil, SearchServiceConfig{})

		resp, err := service.Search(ctx, &domain.SearchQuery{Vendor: "Atlassian", Solution: "Jira Software"})
		require.NoError(t, err)
		require.Len(t, resp.Marketplaces, 3)

		byMarketplace := make(map[domain.Marketplace]domain.MarketplaceResult)
		for _, mr := range resp.Marketplaces {
			byMarketplace[mr.Marketplace] = mr
		}
		assert.True(t, byMarketplace[domain.MarketplaceAzure].Unavailable)
		assert.False(t, byMarketplace[domain.MarketplaceAWS].Unavailable)
		assert.NotEmpty(t, byMarketplace[domain.MarketplaceAWS].Results)
		assert.False(t, resp.NoMatch)
	})

	t.Run("cache read failure degrades to a miss", func(t *testing.T) {
		store := newFakeStore()
		store.getErr = fmt.Errorf("%w: disk error", domain.ErrCacheUnavailable)
		scrapers := matchingScrapers()
		service := NewSearchService(testCatalog(t), store, scrapers, nil, SearchServiceConfig{})

		resp, err := service.Search(ctx, &domain.SearchQuery{Vendor: "Atlassian", Solution: "Jira Software"})
		require.NoError(t, err)
		assert.False(t, resp.NoMatch)
		for _, s := range scrapers {
			assert.Equal(t, int32(1), s.(*fakeScraper).calls.Load())
		}
	})

	t.Run("cache write failure is swallowed", func(t *testing.T) {
		store := newFakeStore()
		store.putErr = fmt.Errorf("%w: disk full", domain.ErrCacheUnavailable)
		service := NewSearchService(testCatalog(t), store, matchingScrapers(), nil, SearchServiceConfig{})

		resp, err := service.Search(ctx, &domain.SearchQuery{Vendor: "Atlassian", Solution: "Jira Software"})
		require.NoError(t, err)
		assert.False(t, resp.NoMatch)
	})

	t.Run("no match triggers one suggestion call", func(t *testing.T) {
		suggester := &fakeSuggester{suggestions: []domain.Suggestion{
			{Name: "Confluence", Rationale: "Same vendor collaboration suite"},
		}}
		scrapers := []domain.Scraper{
			&fakeScraper{marketplace: domain.MarketplaceAWS},
			&fakeScraper{marketplace: domain.MarketplaceAzure},
			&fakeScraper{marketplace: domain.MarketplaceGCP},
		}
		service := NewSearchService(testCatalog(t), newFakeStore(), scrapers, suggester, SearchServiceConfig{})

		resp, err := service.Search(ctx, &domain.SearchQuery{Vendor: "Atlassian", Solution: "Jira Software"})
		require.NoError(t, err)
		assert.True(t, resp.NoMatch)
		assert.Empty(t, resp.BestMatches)
		assert.Equal(t, int32(1), suggester.calls.Load())
		require.Len(t, resp.Suggestions, 1)
		assert.Equal(t, "Confluence", resp.Suggestions[0].Name)
	})

	t.Run("suggestion failure omits suggestions", func(t *testing.T) {
		suggester := &fakeSuggester{err: fmt.Errorf("%w: model offline", domain.ErrSuggestionFailure)}
		scrapers := []domain.Scraper{&fakeScraper{marketplace: domain.MarketplaceAWS}}
		service := NewSearchService(testCatalog(t), newFakeStore(), scrapers, suggester, SearchServiceConfig{})

		resp, err := service.Search(ctx, &domain.SearchQuery{Vendor: "Atlassian", Solution: "Jira Software"})
		require.NoError(t, err)
		assert.True(t, resp.NoMatch)
		assert.Empty(t, resp.Suggestions)
	})

	t.Run("suggester is not consulted when matches exist", func(t *testing.T) {
		suggester := &fakeSuggester{}
		service := NewSearchService(testCatalog(t), newFakeStore(), matchingScrapers(), suggester, SearchServiceConfig{})

		resp, err := service.Search(ctx, &domain.SearchQuery{Vendor: "Atlassian", Solution: "Jira Software"})
		require.NoError(t, err)
		assert.False(t, resp.NoMatch)
		assert.Equal(t, int32(0), suggester.calls.Load())
	})

	t.Run("unknown vendor is searched as given", func(t *testing.T) {
		service := NewSearchService(testCatalog(t), newFakeStore(), matchingScrapers(), nil, SearchServiceConfig{})

		resp, err := service.Search(ctx, &domain.SearchQuery{Vendor: "Zzyzx Quantum", Solution: "Warp Drive"})
		require.NoError(t, err)
		assert.Equal(t, "Zzyzx Quantum", resp.ResolvedVendor)
		assert.Equal(t, "Warp Drive", resp.ResolvedSolution)
		assert.False(t, resp.InCatalog)
	})

	t.Run("overall timeout is bounded", func(t *testing.T) {
		slow := &slowScraper{marketplace: domain.MarketplaceAWS, delay: 5 * time.Second}
		service := NewSearchService(testCatalog(t), newFakeStore(), []domain.Scraper{slow}, nil, SearchServiceConfig{
			MarketplaceTimeout: 50 * time.Millisecond,
			OverallTimeout:     100 * time.Millisecond,
		})

		start := time.Now()
		resp, err := service.Search(ctx, &domain.SearchQuery{Vendor: "Atlassian", Solution: "Jira Software"})
		require.NoError(t, err)
		assert.Less(t, time.Since(start), 2*time.Second)
		assert.True(t, resp.Marketplaces[0].Unavailable)
	})
}

// slowScraper blocks until its delay elapses or the context is done
type slowScraper struct {
	marketplace domain.Marketplace
	delay       time.Duration
}

func (s *slowScraper) Marketplace() domain.Marketplace { return s.marketplace }

func (s *slowScraper) Search(ctx context.Context, query string, maxResults int) ([]domain.Candidate, error) {
	select {
	case <-time.After(s.delay):
		return nil, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %v", domain.ErrScrapeFailure, ctx.Err())
	}
}

func TestSuggestionProducts(t *testing.T) {
	service := NewSearchService(testCatalog(t), newFakeStore(), nil, nil, SearchServiceConfig{})

	products := service.suggestionProducts()
	assert.Equal(t, []string{
		"Atlassian Jira Software",
		"Atlassian Confluence",
		"Red Hat OpenShift",
	}, products)
}
