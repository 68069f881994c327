package marketplace

import (
	"context"
	"log"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/cloudmatch/backend/internal/domain"
)

const gcpBaseURL = "https://console.cloud.google.com"

// GCPScraper searches the Google Cloud Marketplace
type GCPScraper struct {
	f *fetcher
}

// NewGCP creates the GCP Marketplace scraper
func NewGCP(cfg Config) *GCPScraper {
	return &GCPScraper{f: newFetcher(cfg)}
}

// Marketplace implements domain.Scraper
func (s *GCPScraper) Marketplace() domain.Marketplace {
	return domain.MarketplaceGCP
}

// SearchURL returns the human-facing search results page for a query
func (s *GCPScraper) SearchURL(query string) string {
	return gcpBaseURL + "/marketplace/search?q=" + url.QueryEscape(query)
}

// Search fetches the GCP Marketplace search page and extracts listings from
// its Angular result items, with a bare-heading fallback for server-rendered
// variants.
func (s *GCPScraper) Search(ctx context.Context, query string, maxResults int) ([]domain.Candidate, error) {
	searchURL := s.SearchURL(query)
	doc, err := s.f.getDocument(ctx, searchURL)
	if err != nil {
		return nil, err
	}

	var candidates []domain.Candidate
	seen := make(map[string]bool)

	doc.Find("mp-search-results-list-item").Each(func(_ int, item *goquery.Selection) {
		title := strings.TrimSpace(item.Find("h3.cfc-truncated-text").First().Text())
		if title == "" || seen[title] || !titleMatchesQuery(title, query) {
			return
		}

		provider := strings.TrimSpace(item.Find("h4.cfc-truncated-text").First().Text())
		description := strings.TrimSpace(item.Find("p.cfc-truncated-text-multi-line-3").First().Text())
		if description == "" && provider != "" {
			description = "By " + provider
		}

		href, _ := item.Find("a.mp-search-results-list-item-link").First().Attr("href")

		seen[title] = true
		candidates = append(candidates, domain.Candidate{
			Title:       title,
			Description: description,
			URL:         absoluteURL(gcpBaseURL, href),
			SearchURL:   searchURL,
		})
	})

	if len(candidates) == 0 {
		doc.Find("h3").Each(func(_ int, titleElem *goquery.Selection) {
			title := strings.TrimSpace(titleElem.Text())
			if title == "" || seen[title] || !titleMatchesQuery(title, query) {
				return
			}
			href, _ := titleElem.Closest("a").Attr("href")

			seen[title] = true
			candidates = append(candidates, domain.Candidate{
				Title:     title,
				URL:       absoluteURL(gcpBaseURL, href),
				SearchURL: searchURL,
			})
		})
	}

	log.Printf("[SCRAPE] GCP: found %d results for %q", len(candidates), query)
	return truncate(candidates, maxResults), nil
}
