package retail

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/drape/backend/internal/domain"
)

// amazonItem is one entry of a Product Advertising API SearchItems response
type amazonItem struct {
	ASIN          string `json:"ASIN"`
	DetailPageURL string `json:"DetailPageURL"`
	ItemInfo      struct {
		Title struct {
			DisplayValue string `json:"DisplayValue"`
		} `json:"Title"`
		ByLineInfo struct {
			Brand struct {
				DisplayValue string `json:"DisplayValue"`
			} `json:"Brand"`
		} `json:"ByLineInfo"`
		Classifications struct {
			ProductGroup struct {
				DisplayValue string `json:"DisplayValue"`
			} `json:"ProductGroup"`
		} `json:"Classifications"`
		Features struct {
			DisplayValues []string `json:"DisplayValues"`
		} `json:"Features"`
	} `json:"ItemInfo"`
	Offers struct {
		Listings []struct {
			Price struct {
				Amount   float64 `json:"Amount"`
				Currency string  `json:"Currency"`
			} `json:"Price"`
			SavingBasis struct {
				Amount float64 `json:"Amount"`
			} `json:"SavingBasis"`
			Availability struct {
				Type string `json:"Type"`
			} `json:"Availability"`
		} `json:"Listings"`
	} `json:"Offers"`
	Images struct {
		Primary struct {
			Large struct {
				URL string `json:"URL"`
			} `json:"Large"`
		} `json:"Primary"`
	} `json:"Images"`
	CustomerReviews struct {
		StarRating struct {
			Value float64 `json:"Value"`
		} `json:"StarRating"`
		Count int `json:"Count"`
	} `json:"CustomerReviews"`
}

type amazonSearchResponse struct {
	SearchResult struct {
		Items []amazonItem `json:"Items"`
	} `json:"SearchResult"`
	Errors []struct {
		Code    string `json:"Code"`
		Message string `json:"Message"`
	} `json:"Errors"`
}

type amazonSearchRequest struct {
	Keywords    string   `json:"Keywords"`
	PartnerTag  string   `json:"PartnerTag"`
	PartnerType string   `json:"PartnerType"`
	Marketplace string   `json:"Marketplace"`
	SearchIndex string   `json:"SearchIndex"`
	ItemCount   int      `json:"ItemCount"`
	Resources   []string `json:"Resources"`
}

var amazonResources = []string{
	"ItemInfo.Title",
	"ItemInfo.ByLineInfo",
	"ItemInfo.Classifications",
	"ItemInfo.Features",
	"Offers.Listings.Price",
	"Offers.Listings.SavingBasis",
	"Offers.Listings.Availability.Type",
	"Images.Primary.Large",
	"CustomerReviews.StarRating",
	"CustomerReviews.Count",
}

// amazonMaxItemCount is the SearchItems page size ceiling
const amazonMaxItemCount = 10

func mapAmazonItem(it amazonItem) domain.RealProductResult {
	p := domain.RealProductResult{
		ID:          it.ASIN,
		Name:        it.ItemInfo.Title.DisplayValue,
		Brand:       it.ItemInfo.ByLineInfo.Brand.DisplayValue,
		ImageURL:    it.Images.Primary.Large.URL,
		ProductURL:  it.DetailPageURL,
		Rating:      optionalRating(it.CustomerReviews.StarRating.Value),
		ReviewCount: optionalCount(it.CustomerReviews.Count),
		InStock:     true,
		Category:    it.ItemInfo.Classifications.ProductGroup.DisplayValue,
		Description: strings.Join(it.ItemInfo.Features.DisplayValues, " "),
	}
	if len(it.Offers.Listings) > 0 {
		l := it.Offers.Listings[0]
		p.Price = priceFromFloat(l.Price.Amount)
		p.Currency = l.Price.Currency
		p.OriginalPrice = optionalPrice(priceFromFloat(l.SavingBasis.Amount))
		if l.Availability.Type == "OutOfStock" {
			p.InStock = false
		}
	}
	return p
}

// AmazonNative calls a Product Advertising API SearchItems endpoint.
// Requests go to the configured gateway, which owns request signing.
type AmazonNative struct {
	fetcher    *Fetcher
	baseURL    string
	accessKey  string
	partnerTag string
}

// NewAmazonNative creates the Amazon affiliate strategy
func NewAmazonNative(fetcher *Fetcher, baseURL, accessKey, partnerTag string) *AmazonNative {
	return &AmazonNative{
		fetcher:    fetcher,
		baseURL:    strings.TrimRight(baseURL, "/"),
		accessKey:  accessKey,
		partnerTag: partnerTag,
	}
}

// Name implements Strategy
func (a *AmazonNative) Name() string { return "native" }

// Attempt implements Strategy
func (a *AmazonNative) Attempt(ctx context.Context, query string, limit int) ([]domain.RealProductResult, error) {
	if a.accessKey == "" || a.partnerTag == "" {
		return nil, ErrStrategyUnavailable
	}

	header := http.Header{}
	header.Set("Authorization", "Bearer "+a.accessKey)
	header.Set("X-Amz-Target", "com.amazon.paapi5.v1.ProductAdvertisingAPIv1.SearchItems")

	req := amazonSearchRequest{
		Keywords:    query,
		PartnerTag:  a.partnerTag,
		PartnerType: "Associates",
		Marketplace: "www.amazon.in",
		SearchIndex: "Fashion",
		ItemCount:   min(limit, amazonMaxItemCount),
		Resources:   amazonResources,
	}

	var resp amazonSearchResponse
	if err := a.fetcher.PostJSON(ctx, a.baseURL+"/paapi5/searchitems", header, req, &resp); err != nil {
		return nil, err
	}
	if len(resp.Errors) > 0 && len(resp.SearchResult.Items) == 0 {
		return nil, fmt.Errorf("%w: %s: %s", domain.ErrUpstreamFailure, resp.Errors[0].Code, resp.Errors[0].Message)
	}

	mapped := make([]domain.RealProductResult, len(resp.SearchResult.Items))
	for i, it := range resp.SearchResult.Items {
		mapped[i] = mapAmazonItem(it)
	}
	return collect(domain.PlatformAmazon, limit, mapped), nil
}

// AmazonExtractor scans s-search-result blocks; Amazon pages carry no usable state blob
func AmazonExtractor(siteURL string) Extractor {
	return RegexExtractor{
		BaseURL:       siteURL,
		Block:         regexp.MustCompile(`<div[^>]*data-asin="([A-Z0-9]{10})"[^>]*data-component-type="s-search-result"`),
		Name:          regexp.MustCompile(`(?s)<h2[^>]*>.*?<span[^>]*>([^<]+)</span>`),
		Brand:         regexp.MustCompile(`<span class="a-size-base-plus a-color-base">([^<]+)</span>`),
		Price:         regexp.MustCompile(`<span class="a-price-whole">([\d,]+)`),
		OriginalPrice: regexp.MustCompile(`<span class="a-price a-text-price"[^>]*><span class="a-offscreen">([^<]+)</span>`),
		Image:         regexp.MustCompile(`<img[^>]+class="s-image"[^>]+src="([^"]+)"|<img[^>]+src="([^"]+)"[^>]+class="s-image"`),
		Link:          regexp.MustCompile(`<a[^>]+class="a-link-normal[^"]*"[^>]+href="([^"]+)"|<a[^>]+href="([^"]+)"[^>]+class="a-link-normal`),
		Rating:        regexp.MustCompile(`([\d.]+) out of 5 stars`),
		Reviews:       regexp.MustCompile(`aria-label="([\d,]+) ratings?"`),
	}
}

// AmazonSearchURL builds the public search page URL
func AmazonSearchURL(siteURL string) func(string) string {
	siteURL = strings.TrimRight(siteURL, "/")
	return func(query string) string {
		return siteURL + "/s?k=" + url.QueryEscape(query)
	}
}
