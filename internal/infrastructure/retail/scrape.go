package retail

import (
	"context"
	"fmt"
	"net/http"

	"github.com/drape/backend/internal/domain"
)

// ScrapeStrategy fetches a retailer's public search page and runs an Extractor over it.
// Markup changes on the retailer side break extraction silently; the chain treats that as "no results".
type ScrapeStrategy struct {
	platform  domain.Platform
	fetcher   *Fetcher
	searchURL func(query string) string
	extractor Extractor
}

// NewScrapeStrategy creates a scrape strategy
func NewScrapeStrategy(platform domain.Platform, fetcher *Fetcher, searchURL func(string) string, extractor Extractor) *ScrapeStrategy {
	return &ScrapeStrategy{
		platform:  platform,
		fetcher:   fetcher,
		searchURL: searchURL,
		extractor: extractor,
	}
}

// Name implements Strategy
func (s *ScrapeStrategy) Name() string { return "scrape" }

// Attempt implements Strategy
func (s *ScrapeStrategy) Attempt(ctx context.Context, query string, limit int) ([]domain.RealProductResult, error) {
	header := http.Header{}
	header.Set("Accept", "text/html,application/xhtml+xml")
	header.Set("Accept-Language", "en-IN,en;q=0.9")

	page, err := s.fetcher.Get(ctx, s.searchURL(query), header)
	if err != nil {
		return nil, err
	}

	products, err := s.extractor.Extract(page)
	if err != nil {
		return nil, fmt.Errorf("extracting %s page: %w", s.platform, err)
	}
	return collect(s.platform, limit, products), nil
}
