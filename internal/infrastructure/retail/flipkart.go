package retail

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/drape/backend/internal/domain"
)

type flipkartAmount struct {
	Amount       float64 `json:"amount"`
	CurrencyCode string  `json:"currency"`
}

// flipkartAffiliateProduct is one entry of the affiliate search.json response
type flipkartAffiliateProduct struct {
	ProductBaseInfoV1 struct {
		ProductID            string            `json:"productId"`
		Title                string            `json:"title"`
		ProductDescription   string            `json:"productDescription"`
		ImageURLs            map[string]string `json:"imageUrls"`
		MaximumRetailPrice   flipkartAmount    `json:"maximumRetailPrice"`
		FlipkartSellingPrice flipkartAmount    `json:"flipkartSellingPrice"`
		FlipkartSpecialPrice flipkartAmount    `json:"flipkartSpecialPrice"`
		ProductURL           string            `json:"productUrl"`
		ProductBrand         string            `json:"productBrand"`
		InStock              *bool             `json:"inStock"`
		CategoryPath         string            `json:"categoryPath"`
		Attributes           struct {
			Size  string `json:"size"`
			Color string `json:"color"`
		} `json:"attributes"`
	} `json:"productBaseInfoV1"`
}

type flipkartAffiliateResponse struct {
	Products []flipkartAffiliateProduct `json:"products"`
}

func mapFlipkartAffiliate(fp flipkartAffiliateProduct) domain.RealProductResult {
	info := fp.ProductBaseInfoV1

	price := info.FlipkartSpecialPrice
	if price.Amount <= 0 {
		price = info.FlipkartSellingPrice
	}
	inStock := true
	if info.InStock != nil {
		inStock = *info.InStock
	}

	return domain.RealProductResult{
		ID:            info.ProductID,
		Name:          info.Title,
		Brand:         info.ProductBrand,
		Price:         priceFromFloat(price.Amount),
		OriginalPrice: optionalPrice(priceFromFloat(info.MaximumRetailPrice.Amount)),
		Currency:      price.CurrencyCode,
		ImageURL:      pickImage(info.ImageURLs),
		ProductURL:    info.ProductURL,
		InStock:       inStock,
		Category:      lastPathSegment(info.CategoryPath),
		Description:   info.ProductDescription,
		Sizes:         nonEmpty(info.Attributes.Size),
		Colors:        nonEmpty(info.Attributes.Color),
	}
}

// pickImage prefers the largest rendition of the affiliate image map
func pickImage(images map[string]string) string {
	for _, key := range []string{"800x800", "400x400", "200x200"} {
		if u := images[key]; u != "" {
			return u
		}
	}
	for _, u := range images {
		return u
	}
	return ""
}

func lastPathSegment(path string) string {
	parts := strings.Split(path, ">")
	return strings.TrimSpace(parts[len(parts)-1])
}

// FlipkartNative calls the Flipkart affiliate product search API
type FlipkartNative struct {
	fetcher     *Fetcher
	baseURL     string
	affiliateID string
	token       string
}

// NewFlipkartNative creates the Flipkart affiliate strategy
func NewFlipkartNative(fetcher *Fetcher, baseURL, affiliateID, token string) *FlipkartNative {
	return &FlipkartNative{
		fetcher:     fetcher,
		baseURL:     strings.TrimRight(baseURL, "/"),
		affiliateID: affiliateID,
		token:       token,
	}
}

// Name implements Strategy
func (f *FlipkartNative) Name() string { return "native" }

// Attempt implements Strategy
func (f *FlipkartNative) Attempt(ctx context.Context, query string, limit int) ([]domain.RealProductResult, error) {
	if f.affiliateID == "" || f.token == "" {
		return nil, ErrStrategyUnavailable
	}

	params := url.Values{}
	params.Set("query", query)
	params.Set("resultCount", strconv.Itoa(limit))
	reqURL := f.baseURL + "/affiliate/1.0/search.json?" + params.Encode()

	header := http.Header{}
	header.Set("Fk-Affiliate-Id", f.affiliateID)
	header.Set("Fk-Affiliate-Token", f.token)

	var resp flipkartAffiliateResponse
	if err := f.fetcher.GetJSON(ctx, reqURL, header, &resp); err != nil {
		return nil, err
	}

	mapped := make([]domain.RealProductResult, len(resp.Products))
	for i, p := range resp.Products {
		mapped[i] = mapFlipkartAffiliate(p)
	}
	return collect(domain.PlatformFlipkart, limit, mapped), nil
}

// flipkartProductInfo is the product card inside window.__INITIAL_STATE__
type flipkartProductInfo struct {
	ID     string `json:"id"`
	Titles struct {
		Title    string `json:"title"`
		Subtitle string `json:"subtitle"`
	} `json:"titles"`
	ProductBrand string `json:"productBrand"`
	Pricing      struct {
		FinalPrice struct {
			Value float64 `json:"value"`
		} `json:"finalPrice"`
		MRP struct {
			Value float64 `json:"value"`
		} `json:"mrp"`
	} `json:"pricing"`
	Media struct {
		Images []struct {
			URL string `json:"url"`
		} `json:"images"`
	} `json:"media"`
	BaseURL string `json:"baseUrl"`
	Rating  struct {
		Average float64 `json:"average"`
		Count   int     `json:"count"`
	} `json:"rating"`
	Availability struct {
		DisplayState string `json:"displayState"`
	} `json:"availability"`
	Vertical string `json:"vertical"`
}

type flipkartPageState struct {
	PageDataV4 struct {
		Page struct {
			Data map[string][]struct {
				Widget struct {
					Data struct {
						Products []struct {
							ProductInfo struct {
								Value flipkartProductInfo `json:"value"`
							} `json:"productInfo"`
						} `json:"products"`
					} `json:"data"`
				} `json:"widget"`
			} `json:"data"`
		} `json:"page"`
	} `json:"pageDataV4"`
}

var flipkartImageSize = strings.NewReplacer("{@width}", "400", "{@height}", "400", "{@quality}", "70")

func mapFlipkartCard(siteURL string, v flipkartProductInfo) domain.RealProductResult {
	var image string
	if len(v.Media.Images) > 0 {
		image = flipkartImageSize.Replace(v.Media.Images[0].URL)
	}
	return domain.RealProductResult{
		ID:            v.ID,
		Name:          v.Titles.Title,
		Brand:         v.ProductBrand,
		Price:         priceFromFloat(v.Pricing.FinalPrice.Value),
		OriginalPrice: optionalPrice(priceFromFloat(v.Pricing.MRP.Value)),
		ImageURL:      image,
		ProductURL:    absoluteURL(siteURL, v.BaseURL),
		Rating:        optionalRating(v.Rating.Average),
		ReviewCount:   optionalCount(v.Rating.Count),
		InStock:       v.Availability.DisplayState != "OUT_OF_STOCK",
		Category:      v.Vertical,
		Description:   v.Titles.Subtitle,
	}
}

func decodeFlipkartState(siteURL string, blob []byte) ([]domain.RealProductResult, error) {
	var state flipkartPageState
	if err := json.Unmarshal(blob, &state); err != nil {
		return nil, err
	}

	// slot ids are numeric and ascend in page order
	keys := make([]string, 0, len(state.PageDataV4.Page.Data))
	for k := range state.PageDataV4.Page.Data {
		keys = append(keys, k)
	}
	sortNumericKeys(keys)

	var out []domain.RealProductResult
	for _, k := range keys {
		for _, slot := range state.PageDataV4.Page.Data[k] {
			for _, p := range slot.Widget.Data.Products {
				out = append(out, mapFlipkartCard(siteURL, p.ProductInfo.Value))
			}
		}
	}
	return out, nil
}

func sortNumericKeys(keys []string) {
	sort.Slice(keys, func(i, j int) bool {
		a, aerr := strconv.Atoi(keys[i])
		b, berr := strconv.Atoi(keys[j])
		if aerr == nil && berr == nil {
			return a < b
		}
		return keys[i] < keys[j]
	})
}

var flipkartStatePattern = regexp.MustCompile(`(?s)window\.__INITIAL_STATE__\s*=\s*(\{.*?\})\s*;\s*</script>`)

// FlipkartExtractor reads window.__INITIAL_STATE__ first, then falls back to product card markup
func FlipkartExtractor(siteURL string) Extractor {
	return FirstOf(
		EmbeddedJSONExtractor{
			Pattern: flipkartStatePattern,
			Decode: func(blob []byte) ([]domain.RealProductResult, error) {
				return decodeFlipkartState(siteURL, blob)
			},
		},
		RegexExtractor{
			BaseURL:       siteURL,
			Block:         regexp.MustCompile(`<div[^>]+data-id="([A-Z0-9]{16})"`),
			Name:          regexp.MustCompile(`<a[^>]+title="([^"]+)"|class="(?:KzDlHZ|wjcEIp|WKTcLC|IRpwTa|s1Q9rs)"[^>]*>([^<]+)<`),
			Brand:         regexp.MustCompile(`<div class="(?:syl9yP|_2WkVRV)">([^<]+)</div>`),
			Price:         regexp.MustCompile(`<div class="(?:Nx9bqj|_30jeq3)[^"]*">([^<]+)</div>`),
			OriginalPrice: regexp.MustCompile(`<div class="(?:yRaY8j|_3I9_wc)[^"]*">([^<]+)</div>`),
			Image:         regexp.MustCompile(`<img[^>]+src="(https://rukminim[^"]+)"`),
			Link:          regexp.MustCompile(`href="(/[^"]+/p/[^"]+)"`),
			Rating:        regexp.MustCompile(`<div class="(?:XQDdHH|_3LWZlK)"[^>]*>([\d.]+)`),
			Reviews:       regexp.MustCompile(`<span class="(?:Wphh3N|_2_R_DZ)"[^>]*>(?:<span>)?([\d,]+) Ratings`),
		},
	)
}

// FlipkartSearchURL builds the public search page URL
func FlipkartSearchURL(siteURL string) func(string) string {
	siteURL = strings.TrimRight(siteURL, "/")
	return func(query string) string {
		return siteURL + "/search?q=" + url.QueryEscape(query)
	}
}
