package retail

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/drape/backend/internal/domain"
)

type serpShoppingResult struct {
	Title             string     `json:"title"`
	Link              string     `json:"link"`
	ProductLink       string     `json:"product_link"`
	ProductID         flexString `json:"product_id"`
	Source            string     `json:"source"`
	Price             string     `json:"price"`
	ExtractedPrice    float64    `json:"extracted_price"`
	OldPrice          string     `json:"old_price"`
	ExtractedOldPrice float64    `json:"extracted_old_price"`
	Thumbnail         string     `json:"thumbnail"`
	Rating            float64    `json:"rating"`
	Reviews           int        `json:"reviews"`
}

type serpOrganicResult struct {
	Title       string `json:"title"`
	Link        string `json:"link"`
	Snippet     string `json:"snippet"`
	Thumbnail   string `json:"thumbnail"`
	RichSnippet struct {
		Bottom struct {
			DetectedExtensions struct {
				Price   float64 `json:"price"`
				Rating  float64 `json:"rating"`
				Reviews int     `json:"reviews"`
			} `json:"detected_extensions"`
		} `json:"bottom"`
	} `json:"rich_snippet"`
}

type serpResponse struct {
	Error           string               `json:"error"`
	ShoppingResults []serpShoppingResult `json:"shopping_results"`
	OrganicResults  []serpOrganicResult  `json:"organic_results"`
}

var snippetPrice = regexp.MustCompile(`(?:₹|Rs\.?|INR)\s*([\d,]+(?:\.\d+)?)`)

// SerpAPIStrategy asks a search-engine results API for listings restricted to one retailer's domain
type SerpAPIStrategy struct {
	platform   domain.Platform
	fetcher    *Fetcher
	apiKey     string
	baseURL    string
	siteDomain string
}

// NewSerpAPIStrategy creates a SerpAPI strategy for one platform
func NewSerpAPIStrategy(platform domain.Platform, fetcher *Fetcher, apiKey, baseURL, siteDomain string) *SerpAPIStrategy {
	return &SerpAPIStrategy{
		platform:   platform,
		fetcher:    fetcher,
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		siteDomain: siteDomain,
	}
}

// Name implements Strategy
func (s *SerpAPIStrategy) Name() string { return "serpapi" }

// Attempt implements Strategy
func (s *SerpAPIStrategy) Attempt(ctx context.Context, query string, limit int) ([]domain.RealProductResult, error) {
	if s.apiKey == "" {
		return nil, ErrStrategyUnavailable
	}

	params := url.Values{}
	params.Set("engine", "google")
	params.Set("q", fmt.Sprintf("site:%s %s", s.siteDomain, query))
	params.Set("api_key", s.apiKey)
	params.Set("gl", "in")
	params.Set("hl", "en")
	params.Set("num", strconv.Itoa(limit))

	var resp serpResponse
	if err := s.fetcher.GetJSON(ctx, s.baseURL+"/search.json?"+params.Encode(), nil, &resp); err != nil {
		return nil, err
	}
	if resp.Error != "" && len(resp.ShoppingResults) == 0 && len(resp.OrganicResults) == 0 {
		return nil, fmt.Errorf("%w: serpapi: %s", domain.ErrUpstreamFailure, resp.Error)
	}

	mapped := make([]domain.RealProductResult, 0, len(resp.ShoppingResults)+len(resp.OrganicResults))
	for _, r := range resp.ShoppingResults {
		link := r.Link
		if link == "" {
			link = r.ProductLink
		}
		if !hostMatches(link, s.siteDomain) {
			continue
		}
		mapped = append(mapped, s.mapShopping(link, r))
	}
	for _, r := range resp.OrganicResults {
		if !hostMatches(r.Link, s.siteDomain) {
			continue
		}
		mapped = append(mapped, s.mapOrganic(r))
	}
	return collect(s.platform, limit, mapped), nil
}

func (s *SerpAPIStrategy) mapShopping(link string, r serpShoppingResult) domain.RealProductResult {
	price := priceFromFloat(r.ExtractedPrice)
	if price == 0 {
		price = ParsePriceDefault(r.Price, DefaultListingPrice)
	}
	original := priceFromFloat(r.ExtractedOldPrice)
	if original == 0 {
		original = ParsePrice(r.OldPrice)
	}
	return domain.RealProductResult{
		ID:            string(r.ProductID),
		Name:          r.Title,
		Price:         price,
		OriginalPrice: optionalPrice(original),
		ImageURL:      r.Thumbnail,
		ProductURL:    link,
		Rating:        optionalRating(r.Rating),
		ReviewCount:   optionalCount(r.Reviews),
		InStock:       true,
	}
}

func (s *SerpAPIStrategy) mapOrganic(r serpOrganicResult) domain.RealProductResult {
	ext := r.RichSnippet.Bottom.DetectedExtensions
	price := priceFromFloat(ext.Price)
	if price == 0 {
		var raw string
		if m := snippetPrice.FindStringSubmatch(r.Snippet); m != nil {
			raw = m[1]
		}
		price = ParsePriceDefault(raw, DefaultListingPrice)
	}
	return domain.RealProductResult{
		Name:        trimSiteSuffix(r.Title),
		Price:       price,
		ImageURL:    r.Thumbnail,
		ProductURL:  r.Link,
		Rating:      optionalRating(ext.Rating),
		ReviewCount: optionalCount(ext.Reviews),
		InStock:     true,
		Description: r.Snippet,
	}
}

// trimSiteSuffix drops trailing " | Myntra" style suffixes from page titles
func trimSiteSuffix(title string) string {
	for _, sep := range []string{" | ", " - ", " : "} {
		if i := strings.LastIndex(title, sep); i > 0 {
			tail := strings.ToLower(title[i+len(sep):])
			if strings.Contains(tail, "myntra") || strings.Contains(tail, "amazon") || strings.Contains(tail, "flipkart") {
				return strings.TrimSpace(title[:i])
			}
		}
	}
	return title
}
