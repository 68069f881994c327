package marketplace

import (
	"context"
	"log"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/cloudmatch/backend/internal/domain"
)

const azureBaseURL = "https://azuremarketplace.microsoft.com"

// AzureScraper searches the Azure Marketplace apps gallery
type AzureScraper struct {
	f *fetcher
}

// NewAzure creates the Azure Marketplace scraper
func NewAzure(cfg Config) *AzureScraper {
	return &AzureScraper{f: newFetcher(cfg)}
}

// Marketplace implements domain.Scraper
func (s *AzureScraper) Marketplace() domain.Marketplace {
	return domain.MarketplaceAzure
}

// SearchURL returns the human-facing search results page for a query
func (s *AzureScraper) SearchURL(query string) string {
	return azureBaseURL + "/en-us/marketplace/apps?search=" + url.QueryEscape(query) + "&page=1"
}

// Search fetches the Azure gallery search page and extracts listing tiles.
// Tiles render as div.tileContent with an h3.title heading; the heading's
// title attribute carries the untruncated name.
func (s *AzureScraper) Search(ctx context.Context, query string, maxResults int) ([]domain.Candidate, error) {
	searchURL := s.SearchURL(query)
	doc, err := s.f.getDocument(ctx, searchURL)
	if err != nil {
		return nil, err
	}

	var candidates []domain.Candidate
	seen := make(map[string]bool)

	doc.Find("div.tileContent").Each(func(_ int, tile *goquery.Selection) {
		titleElem := tile.Find("h3.title").First()
		if titleElem.Length() == 0 {
			return
		}
		title := strings.TrimSpace(titleElem.Text())
		if attr, ok := titleElem.Attr("title"); ok && strings.TrimSpace(attr) != "" {
			title = strings.TrimSpace(attr)
		}
		if title == "" || seen[title] || !titleMatchesQuery(title, query) {
			return
		}

		description := strings.TrimSpace(tile.Find("div.description").First().Text())

		href, _ := tile.Find("a").First().Attr("href")
		if href == "" {
			// Some tiles wrap the heading in the anchor instead
			href, _ = titleElem.Closest("a").Attr("href")
		}

		seen[title] = true
		candidates = append(candidates, domain.Candidate{
			Title:       title,
			Description: description,
			URL:         absoluteURL(azureBaseURL, href),
			SearchURL:   searchURL,
		})
	})

	// Older gallery markup drops the tile wrapper; fall back to bare headings
	if len(candidates) == 0 {
		doc.Find("h3.title").Each(func(_ int, titleElem *goquery.Selection) {
			title := strings.TrimSpace(titleElem.Text())
			if attr, ok := titleElem.Attr("title"); ok && strings.TrimSpace(attr) != "" {
				title = strings.TrimSpace(attr)
			}
			if title == "" || seen[title] || !titleMatchesQuery(title, query) {
				return
			}
			href, _ := titleElem.Closest("a").Attr("href")

			seen[title] = true
			candidates = append(candidates, domain.Candidate{
				Title:     title,
				URL:       absoluteURL(azureBaseURL, href),
				SearchURL: searchURL,
			})
		})
	}

	log.Printf("[SCRAPE] Azure: found %d results for %q", len(candidates), query)
	return truncate(candidates, maxResults), nil
}
