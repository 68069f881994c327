// Package marketplace implements the AWS, Azure, and GCP listing scrapers.
package marketplace

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/time/rate"

	"github.com/cloudmatch/backend/internal/domain"
)

// Config configures a marketplace scraper
type Config struct {
	Timeout       time.Duration
	UserAgent     string
	RatePerSecond float64
	// HTTPClient overrides the default client; used by tests
	HTTPClient *http.Client
}

// NewAll builds one scraper per known marketplace, in display order
func NewAll(cfg Config) []domain.Scraper {
	var scrapers []domain.Scraper
	for _, m := range domain.AllMarketplaces() {
		switch m {
		case domain.MarketplaceAWS:
			scrapers = append(scrapers, NewAWS(cfg))
		case domain.MarketplaceAzure:
			scrapers = append(scrapers, NewAzure(cfg))
		case domain.MarketplaceGCP:
			scrapers = append(scrapers, NewGCP(cfg))
		}
	}
	return scrapers
}

// fetcher is the shared HTTP machinery behind all three scrapers: a rate
// limiter, a browser-like User-Agent, and a short retry loop for transient
// failures.
type fetcher struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	userAgent  string
}

func newFetcher(cfg Config) *fetcher {
	rps := cfg.RatePerSecond
	if rps <= 0 {
		rps = 1.0
	}

	client := cfg.HTTPClient
	if client == nil {
		timeout := cfg.Timeout
		if timeout == 0 {
			timeout = 30 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}

	return &fetcher{
		httpClient: client,
		limiter:    rate.NewLimiter(rate.Limit(rps), 3),
		userAgent:  cfg.UserAgent,
	}
}

// getDocument fetches reqURL and parses it, retrying transient failures
func (f *fetcher) getDocument(ctx context.Context, reqURL string) (*goquery.Document, error) {
	var lastErr error
	for attempt := 1; attempt <= 3; attempt++ {
		if err := f.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter error: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		if f.userAgent != "" {
			req.Header.Set("User-Agent", f.userAgent)
		}

		resp, err := f.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("%w: %v", domain.ErrScrapeFailure, err)
			if ctx.Err() != nil {
				return nil, lastErr
			}
			log.Printf("[SCRAPE] Request error (attempt %d) for %s: %v", attempt, reqURL, err)
			sleepBackoff(ctx, attempt)
			continue
		}

		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			lastErr = fmt.Errorf("%w: status %d", domain.ErrScrapeFailure, resp.StatusCode)
			log.Printf("[SCRAPE] HTTP %d (attempt %d) for %s", resp.StatusCode, attempt, reqURL)
			sleepBackoff(ctx, attempt)
			continue
		}

		doc, err := goquery.NewDocumentFromReader(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("%w: parse: %v", domain.ErrScrapeFailure, err)
		}
		return doc, nil
	}
	return nil, lastErr
}

func sleepBackoff(ctx context.Context, attempt int) {
	select {
	case <-time.After(time.Duration(attempt*500) * time.Millisecond):
	case <-ctx.Done():
	}
}

// absoluteURL resolves href against base when it is relative
func absoluteURL(base, href string) string {
	if href == "" {
		return ""
	}
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return baseURL.ResolveReference(ref).String()
}

// titleMatchesQuery keeps only listings sharing at least one word with the
// query; marketplace search pages pad results with unrelated promotions
func titleMatchesQuery(title, query string) bool {
	titleLower := strings.ToLower(title)
	for _, word := range strings.Fields(strings.ToLower(query)) {
		if strings.Contains(titleLower, word) {
			return true
		}
	}
	return false
}

func truncate(candidates []domain.Candidate, max int) []domain.Candidate {
	if max > 0 && len(candidates) > max {
		return candidates[:max]
	}
	return candidates
}
