package domain

import (
	"strconv"
	"strings"
)

// Platform identifies a retailer the search aggregator talks to
type Platform string

const (
	PlatformMyntra   Platform = "myntra"
	PlatformAmazon   Platform = "amazon"
	PlatformFlipkart Platform = "flipkart"
)

// Platforms lists retailers in merge order
var Platforms = []Platform{PlatformMyntra, PlatformAmazon, PlatformFlipkart}

// SortBy selects the ordering applied after merging platform results
type SortBy string

const (
	SortByRelevance SortBy = "relevance"
	SortByPrice     SortBy = "price"
	SortByRating    SortBy = "rating"
)

// Gender narrows a product search
type Gender string

const (
	GenderMen    Gender = "men"
	GenderWomen  Gender = "women"
	GenderUnisex Gender = "unisex"
)

// DefaultMaxResults is used when a search does not ask for a specific count
const DefaultMaxResults = 20

// DefaultCurrency is assumed when a source omits the currency
const DefaultCurrency = "INR"

// ProductSearchOptions is the immutable input to a product search.
// Nil pointers mean "not set".
type ProductSearchOptions struct {
	MaxResults int      `json:"maxResults,omitempty"`
	MinPrice   *float64 `json:"minPrice,omitempty"`
	MaxPrice   *float64 `json:"maxPrice,omitempty"`
	SortBy     SortBy   `json:"sortBy,omitempty"`
	Gender     Gender   `json:"gender,omitempty"`
	Category   string   `json:"category,omitempty"`
}

// Limit returns the effective result cap
func (o ProductSearchOptions) Limit() int {
	if o.MaxResults <= 0 {
		return DefaultMaxResults
	}
	return o.MaxResults
}

// Validate checks the enumerated fields
func (o ProductSearchOptions) Validate() error {
	switch o.SortBy {
	case "", SortByRelevance, SortByPrice, SortByRating:
	default:
		return ErrInvalidRequest
	}
	switch o.Gender {
	case "", GenderMen, GenderWomen, GenderUnisex:
	default:
		return ErrInvalidRequest
	}
	if o.MinPrice != nil && o.MaxPrice != nil && *o.MinPrice > *o.MaxPrice {
		return ErrInvalidRequest
	}
	return nil
}

// RealProductResult is a product listing normalized from whichever upstream answered.
// Price is a whole number in the listing unit of Currency (rupees for INR).
type RealProductResult struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	Brand         string   `json:"brand"`
	Price         int64    `json:"price"`
	OriginalPrice *int64   `json:"originalPrice,omitempty"`
	Currency      string   `json:"currency"`
	ImageURL      string   `json:"imageUrl"`
	ProductURL    string   `json:"productUrl"`
	Platform      Platform `json:"platform"`
	Rating        *float64 `json:"rating,omitempty"`
	ReviewCount   *int     `json:"reviewCount,omitempty"`
	InStock       bool     `json:"inStock"`
	Category      string   `json:"category"`
	Description   string   `json:"description,omitempty"`
	Sizes         []string `json:"sizes,omitempty"`
	Colors        []string `json:"colors,omitempty"`
}

// RatingValue returns the rating or 0 when the source gave none
func (p RealProductResult) RatingValue() float64 {
	if p.Rating == nil {
		return 0
	}
	return *p.Rating
}

// SearchKey renders the options in a stable form for cache keys
func (o ProductSearchOptions) SearchKey() string {
	var b strings.Builder
	b.WriteString(string(o.SortBy))
	b.WriteString("|")
	b.WriteString(string(o.Gender))
	b.WriteString("|")
	b.WriteString(strings.ToLower(strings.TrimSpace(o.Category)))
	b.WriteString("|")
	if o.MinPrice != nil {
		b.WriteString(formatFloat(*o.MinPrice))
	}
	b.WriteString("|")
	if o.MaxPrice != nil {
		b.WriteString(formatFloat(*o.MaxPrice))
	}
	return b.String()
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
