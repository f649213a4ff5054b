package retail

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/drape/backend/internal/domain"
	"github.com/rs/zerolog"
)

// flexString accepts JSON strings, numbers and null
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0 || bytes.Equal(data, []byte("null")):
		*f = ""
	case data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexString(s)
	case data[0] == '{' || data[0] == '[':
		*f = ""
	default:
		*f = flexString(data)
	}
	return nil
}

func firstFlex(values ...flexString) string {
	for _, v := range values {
		if s := strings.TrimSpace(string(v)); s != "" {
			return s
		}
	}
	return ""
}

// rapidItem covers the field spellings used by the Myntra, Amazon and Flipkart scraping APIs on RapidAPI
type rapidItem struct {
	ASIN      flexString `json:"asin"`
	ProductID flexString `json:"product_id"`
	ID        flexString `json:"id"`
	PID       flexString `json:"productId"`

	ProductTitle flexString `json:"product_title"`
	Title        flexString `json:"title"`
	Name         flexString `json:"name"`
	ProductName  flexString `json:"productName"`

	Brand        flexString `json:"brand"`
	ProductBrand flexString `json:"product_brand"`

	ProductPrice flexString `json:"product_price"`
	Price        flexString `json:"price"`
	CurrentPrice flexString `json:"current_price"`
	SellingPrice flexString `json:"selling_price"`

	ProductOriginalPrice flexString `json:"product_original_price"`
	OriginalPrice        flexString `json:"original_price"`
	MRP                  flexString `json:"mrp"`

	Currency flexString `json:"currency"`

	ProductPhoto flexString `json:"product_photo"`
	Image        flexString `json:"image"`
	Thumbnail    flexString `json:"thumbnail"`
	ImageURL     flexString `json:"image_url"`
	SearchImage  flexString `json:"searchImage"`

	ProductURL flexString `json:"product_url"`
	URL        flexString `json:"url"`
	Link       flexString `json:"link"`

	ProductStarRating flexString `json:"product_star_rating"`
	Rating            flexString `json:"rating"`

	ProductNumRatings flexString `json:"product_num_ratings"`
	ReviewsCount      flexString `json:"reviews_count"`
	RatingCount       flexString `json:"ratingCount"`

	Category flexString `json:"category"`
	InStock  *bool      `json:"in_stock"`
}

func mapRapidItem(siteURL string, it rapidItem) domain.RealProductResult {
	p := domain.RealProductResult{
		ID:            firstFlex(it.ASIN, it.ProductID, it.PID, it.ID),
		Name:          firstFlex(it.ProductTitle, it.Title, it.Name, it.ProductName),
		Brand:         firstFlex(it.Brand, it.ProductBrand),
		Price:         ParsePrice(firstFlex(it.ProductPrice, it.Price, it.CurrentPrice, it.SellingPrice)),
		OriginalPrice: optionalPrice(ParsePrice(firstFlex(it.ProductOriginalPrice, it.OriginalPrice, it.MRP))),
		Currency:      firstFlex(it.Currency),
		ImageURL:      firstFlex(it.ProductPhoto, it.Image, it.Thumbnail, it.ImageURL, it.SearchImage),
		ProductURL:    absoluteURL(siteURL, firstFlex(it.ProductURL, it.URL, it.Link)),
		Rating:        parseRating(firstFlex(it.ProductStarRating, it.Rating)),
		ReviewCount:   parseCount(firstFlex(it.ProductNumRatings, it.ReviewsCount, it.RatingCount)),
		InStock:       true,
		Category:      firstFlex(it.Category),
	}
	if it.InStock != nil {
		p.InStock = *it.InStock
	}
	return p
}

// rapidEnvelope accepts {"data":{"products":[...]}}, {"data":[...]}, {"products":[...]} and {"results":[...]}
type rapidEnvelope struct {
	Data     json.RawMessage `json:"data"`
	Products []rapidItem     `json:"products"`
	Results  []rapidItem     `json:"results"`
}

func (e rapidEnvelope) items() []rapidItem {
	if len(e.Products) > 0 {
		return e.Products
	}
	if len(e.Results) > 0 {
		return e.Results
	}
	data := bytes.TrimSpace(e.Data)
	if len(data) == 0 {
		return nil
	}
	if data[0] == '[' {
		var items []rapidItem
		if json.Unmarshal(data, &items) == nil {
			return items
		}
		return nil
	}
	var inner rapidEnvelope
	if json.Unmarshal(data, &inner) == nil {
		return inner.items()
	}
	return nil
}

// RapidAPIStrategy tries an ordered list of RapidAPI endpoints and keeps the first non-empty answer
type RapidAPIStrategy struct {
	platform domain.Platform
	fetcher  *Fetcher
	apiKey   string
	urls     []string
	siteURL  string
	logger   zerolog.Logger
}

// NewRapidAPIStrategy creates a RapidAPI strategy for one platform
func NewRapidAPIStrategy(platform domain.Platform, fetcher *Fetcher, apiKey string, urls []string, siteURL string, logger zerolog.Logger) *RapidAPIStrategy {
	return &RapidAPIStrategy{
		platform: platform,
		fetcher:  fetcher,
		apiKey:   apiKey,
		urls:     urls,
		siteURL:  siteURL,
		logger:   logger,
	}
}

// Name implements Strategy
func (r *RapidAPIStrategy) Name() string { return "rapidapi" }

// Attempt implements Strategy
func (r *RapidAPIStrategy) Attempt(ctx context.Context, query string, limit int) ([]domain.RealProductResult, error) {
	if r.apiKey == "" || len(r.urls) == 0 {
		return nil, ErrStrategyUnavailable
	}

	var lastErr error
	for _, endpoint := range r.urls {
		products, err := r.attemptURL(ctx, endpoint, query, limit)
		if err != nil {
			r.logger.Debug().Err(err).Str("platform", string(r.platform)).Str("endpoint", endpoint).Msg("rapidapi endpoint failed")
			lastErr = err
			continue
		}
		if len(products) > 0 {
			return products, nil
		}
	}
	return nil, lastErr
}

func (r *RapidAPIStrategy) attemptURL(ctx context.Context, endpoint, query string, limit int) ([]domain.RealProductResult, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid endpoint %q: %w", endpoint, err)
	}
	params := u.Query()
	params.Set("query", query)
	params.Set("page", "1")
	params.Set("country", "IN")
	params.Set("limit", strconv.Itoa(limit))
	u.RawQuery = params.Encode()

	header := http.Header{}
	header.Set("X-RapidAPI-Key", r.apiKey)
	header.Set("X-RapidAPI-Host", u.Host)

	var env rapidEnvelope
	if err := r.fetcher.GetJSON(ctx, u.String(), header, &env); err != nil {
		return nil, err
	}

	items := env.items()
	mapped := make([]domain.RealProductResult, len(items))
	for i, it := range items {
		mapped[i] = mapRapidItem(r.siteURL, it)
	}
	return collect(r.platform, limit, mapped), nil
}
