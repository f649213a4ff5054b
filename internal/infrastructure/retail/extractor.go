package retail

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/drape/backend/internal/domain"
)

var (
	errBlobNotFound    = errors.New("embedded JSON blob not found")
	errMarkersNotFound = errors.New("no product markers in page")
)

// maxChunkBytes bounds the markup scanned for the last product block on a page
const maxChunkBytes = 16 << 10

// Extractor pulls candidate listings out of a raw search page.
// Listings it returns are not yet finalized: ids, platform and defaults are filled by the caller.
type Extractor interface {
	Extract(page []byte) ([]domain.RealProductResult, error)
}

// EmbeddedJSONExtractor decodes the JSON object a page assigns to a known global variable
type EmbeddedJSONExtractor struct {
	// Pattern's first capture group must be the JSON object
	Pattern *regexp.Regexp
	Decode  func(blob []byte) ([]domain.RealProductResult, error)
}

// Extract implements Extractor
func (e EmbeddedJSONExtractor) Extract(page []byte) ([]domain.RealProductResult, error) {
	m := e.Pattern.FindSubmatch(page)
	if len(m) < 2 {
		return nil, errBlobNotFound
	}
	products, err := e.Decode(m[1])
	if err != nil {
		return nil, fmt.Errorf("decoding embedded JSON: %w", err)
	}
	return products, nil
}

// RegexExtractor scans markup for product blocks and reads each field with its own expression.
// Field expressions yield their first non-empty capture group; nil expressions are skipped.
type RegexExtractor struct {
	BaseURL string

	// Block matches the start of each product; an optional capture group is used as the id
	Block *regexp.Regexp

	ID            *regexp.Regexp
	Name          *regexp.Regexp
	Brand         *regexp.Regexp
	Price         *regexp.Regexp
	OriginalPrice *regexp.Regexp
	Image         *regexp.Regexp
	Link          *regexp.Regexp
	Rating        *regexp.Regexp
	Reviews       *regexp.Regexp
}

// Extract implements Extractor
func (e RegexExtractor) Extract(page []byte) ([]domain.RealProductResult, error) {
	starts := e.Block.FindAllSubmatchIndex(page, -1)
	if len(starts) == 0 {
		return nil, errMarkersNotFound
	}

	products := make([]domain.RealProductResult, 0, len(starts))
	for i, loc := range starts {
		end := len(page)
		if i+1 < len(starts) {
			end = starts[i+1][0]
		}
		if end-loc[0] > maxChunkBytes {
			end = loc[0] + maxChunkBytes
		}
		chunk := page[loc[0]:end]

		id := submatch(e.ID, chunk)
		if id == "" && len(loc) >= 4 && loc[2] >= 0 {
			id = string(page[loc[2]:loc[3]])
		}

		products = append(products, domain.RealProductResult{
			ID:            id,
			Name:          submatch(e.Name, chunk),
			Brand:         submatch(e.Brand, chunk),
			Price:         ParsePrice(submatch(e.Price, chunk)),
			OriginalPrice: optionalPrice(ParsePrice(submatch(e.OriginalPrice, chunk))),
			ImageURL:      absoluteURL(e.BaseURL, submatch(e.Image, chunk)),
			ProductURL:    absoluteURL(e.BaseURL, submatch(e.Link, chunk)),
			Rating:        parseRating(submatch(e.Rating, chunk)),
			ReviewCount:   parseCount(submatch(e.Reviews, chunk)),
			InStock:       true,
		})
	}
	return products, nil
}

func submatch(re *regexp.Regexp, chunk []byte) string {
	if re == nil {
		return ""
	}
	m := re.FindSubmatch(chunk)
	for _, g := range m[min(1, len(m)):] {
		if len(g) > 0 {
			return string(g)
		}
	}
	return ""
}

// FirstOf returns an extractor that tries each extractor in order and keeps the first non-empty result
func FirstOf(extractors ...Extractor) Extractor {
	return firstOf(extractors)
}

type firstOf []Extractor

func (f firstOf) Extract(page []byte) ([]domain.RealProductResult, error) {
	var errs []error
	for _, e := range f {
		products, err := e.Extract(page)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if len(products) > 0 {
			return products, nil
		}
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return nil, nil
}
