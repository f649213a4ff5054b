package retail

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/drape/backend/internal/domain"
)

// myntraProduct is the listing shape of Myntra's gateway search API and of the
// window.__myx blob embedded in its search pages
type myntraProduct struct {
	ProductID      int64   `json:"productId"`
	ProductName    string  `json:"productName"`
	Product        string  `json:"product"`
	Brand          string  `json:"brand"`
	Price          float64 `json:"price"`
	MRP            float64 `json:"mrp"`
	SearchImage    string  `json:"searchImage"`
	LandingPageURL string  `json:"landingPageUrl"`
	Rating         float64 `json:"rating"`
	RatingCount    int     `json:"ratingCount"`
	Sizes          string  `json:"sizes"`
	PrimaryColour  string  `json:"primaryColour"`
	Category       string  `json:"category"`
	ArticleType    string  `json:"articleType"`
	AdditionalInfo string  `json:"additionalInfo"`
	InventoryInfo  []struct {
		Available bool `json:"available"`
	} `json:"inventoryInfo"`
}

type myntraSearchResponse struct {
	Products []myntraProduct `json:"products"`
}

type myntraPageState struct {
	SearchData struct {
		Results struct {
			Products []myntraProduct `json:"products"`
		} `json:"results"`
	} `json:"searchData"`
}

func mapMyntraProduct(siteURL string, p myntraProduct) domain.RealProductResult {
	name := p.ProductName
	if name == "" {
		name = p.Product
	}
	category := p.ArticleType
	if category == "" {
		category = p.Category
	}

	inStock := true
	if len(p.InventoryInfo) > 0 {
		inStock = false
		for _, inv := range p.InventoryInfo {
			if inv.Available {
				inStock = true
				break
			}
		}
	}

	var id string
	if p.ProductID > 0 {
		id = strconv.FormatInt(p.ProductID, 10)
	}

	return domain.RealProductResult{
		ID:            id,
		Name:          name,
		Brand:         p.Brand,
		Price:         priceFromFloat(p.Price),
		OriginalPrice: optionalPrice(priceFromFloat(p.MRP)),
		ImageURL:      p.SearchImage,
		ProductURL:    absoluteURL(siteURL, p.LandingPageURL),
		Rating:        optionalRating(p.Rating),
		ReviewCount:   optionalCount(p.RatingCount),
		InStock:       inStock,
		Category:      category,
		Description:   p.AdditionalInfo,
		Sizes:         splitList(p.Sizes),
		Colors:        nonEmpty(p.PrimaryColour),
	}
}

func mapMyntraProducts(siteURL string, raw []myntraProduct) []domain.RealProductResult {
	out := make([]domain.RealProductResult, len(raw))
	for i, p := range raw {
		out[i] = mapMyntraProduct(siteURL, p)
	}
	return out
}

// MyntraNative searches through Myntra's web gateway API, which needs no key
type MyntraNative struct {
	fetcher *Fetcher
	baseURL string
}

// NewMyntraNative creates the Myntra gateway strategy
func NewMyntraNative(fetcher *Fetcher, baseURL string) *MyntraNative {
	return &MyntraNative{fetcher: fetcher, baseURL: strings.TrimRight(baseURL, "/")}
}

// Name implements Strategy
func (m *MyntraNative) Name() string { return "native" }

// Attempt implements Strategy
func (m *MyntraNative) Attempt(ctx context.Context, query string, limit int) ([]domain.RealProductResult, error) {
	slug := slugify(query)
	if slug == "" {
		return nil, nil
	}

	params := url.Values{}
	params.Set("rows", strconv.Itoa(limit))
	params.Set("o", "0")
	params.Set("plaEnabled", "false")
	params.Set("rawQuery", query)
	reqURL := fmt.Sprintf("%s/gateway/v2/search/%s?%s", m.baseURL, url.PathEscape(slug), params.Encode())

	var resp myntraSearchResponse
	if err := m.fetcher.GetJSON(ctx, reqURL, nil, &resp); err != nil {
		return nil, err
	}
	return collect(domain.PlatformMyntra, limit, mapMyntraProducts(m.baseURL, resp.Products)), nil
}

var myntraStatePattern = regexp.MustCompile(`(?s)window\.__myx\s*=\s*(\{.*?\})\s*;?\s*</script>`)

// MyntraExtractor reads the window.__myx state blob first, then falls back to the product-base markup
func MyntraExtractor(siteURL string) Extractor {
	return FirstOf(
		EmbeddedJSONExtractor{
			Pattern: myntraStatePattern,
			Decode: func(blob []byte) ([]domain.RealProductResult, error) {
				var state myntraPageState
				if err := json.Unmarshal(blob, &state); err != nil {
					return nil, err
				}
				return mapMyntraProducts(siteURL, state.SearchData.Results.Products), nil
			},
		},
		RegexExtractor{
			BaseURL:       siteURL,
			Block:         regexp.MustCompile(`<li[^>]*class="product-base"(?:[^>]*\bid="(\d+)")?[^>]*>`),
			Name:          regexp.MustCompile(`<h4 class="product-product">([^<]+)</h4>`),
			Brand:         regexp.MustCompile(`<h3 class="product-brand">([^<]+)</h3>`),
			Price:         regexp.MustCompile(`<span class="product-discountedPrice">([^<]+)</span>|<div class="product-price"><span>([^<]+)</span>`),
			OriginalPrice: regexp.MustCompile(`<span class="product-strike">([^<]+)</span>`),
			Image:         regexp.MustCompile(`<img[^>]+src="([^"]+)"[^>]*class="img-responsive"`),
			Link:          regexp.MustCompile(`<a[^>]+href="([^"]+)"`),
			Rating:        regexp.MustCompile(`<span>([\d.]+)</span><span class="myntraweb-sprite product-starIcon`),
			Reviews:       regexp.MustCompile(`<div class="product-ratingsCount">[^\d]*([\d.,]+k?)`),
		},
	)
}

// MyntraSearchURL builds the public search page URL
func MyntraSearchURL(siteURL string) func(string) string {
	siteURL = strings.TrimRight(siteURL, "/")
	return func(query string) string {
		return fmt.Sprintf("%s/%s?rawQuery=%s", siteURL, url.PathEscape(slugify(query)), url.QueryEscape(query))
	}
}
