package marketplace

import (
	"context"
	"log"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/cloudmatch/backend/internal/domain"
)

const awsBaseURL = "https://aws.amazon.com"

// AWSScraper searches the AWS Marketplace listing site
type AWSScraper struct {
	f *fetcher
}

// NewAWS creates the AWS Marketplace scraper
func NewAWS(cfg Config) *AWSScraper {
	return &AWSScraper{f: newFetcher(cfg)}
}

// Marketplace implements domain.Scraper
func (s *AWSScraper) Marketplace() domain.Marketplace {
	return domain.MarketplaceAWS
}

// SearchURL returns the human-facing search results page for a query
func (s *AWSScraper) SearchURL(query string) string {
	return awsBaseURL + "/marketplace/search/results?searchTerms=" + url.QueryEscape(query)
}

// Search fetches the AWS Marketplace search page and extracts listings.
// Product cards do not have stable class names, so extraction walks a list
// of card-like selectors and reads the first heading/anchor inside each.
func (s *AWSScraper) Search(ctx context.Context, query string, maxResults int) ([]domain.Candidate, error) {
	searchURL := s.SearchURL(query)
	doc, err := s.f.getDocument(ctx, searchURL)
	if err != nil {
		return nil, err
	}

	var cards *goquery.Selection
	for _, sel := range []string{
		"div[class*='product']",
		"div[class*='card']",
		"div[class*='listing']",
		"article",
	} {
		if found := doc.Find(sel); found.Length() > 0 {
			cards = found
			break
		}
	}
	if cards == nil {
		log.Printf("[SCRAPE] AWS: no product cards found for %q", query)
		return nil, nil
	}

	var candidates []domain.Candidate
	seen := make(map[string]bool)
	cards.Each(func(_ int, card *goquery.Selection) {
		titleElem := card.Find("h1, h2, h3, h4, a").First()
		if titleElem.Length() == 0 {
			return
		}
		title := strings.TrimSpace(titleElem.Text())
		if title == "" || seen[title] || !titleMatchesQuery(title, query) {
			return
		}

		href, _ := titleElem.Attr("href")
		if href == "" {
			href, _ = card.Find("a[href*='/marketplace/pp/']").First().Attr("href")
		}
		if href == "" {
			href, _ = card.Find("a").First().Attr("href")
		}

		description := strings.TrimSpace(card.Find("p, span[class*='description'], div[class*='description']").First().Text())

		seen[title] = true
		candidates = append(candidates, domain.Candidate{
			Title:       title,
			Description: description,
			URL:         absoluteURL(awsBaseURL, href),
			SearchURL:   searchURL,
		})
	})

	log.Printf("[SCRAPE] AWS: found %d results for %q", len(candidates), query)
	return truncate(candidates, maxResults), nil
}
