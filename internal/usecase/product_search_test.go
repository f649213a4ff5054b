package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/drape/backend/internal/domain"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func threePlatforms() (*MockSearcher, *MockSearcher, *MockSearcher) {
	myntra := &MockSearcher{platform: domain.PlatformMyntra, results: []domain.RealProductResult{
		product(domain.PlatformMyntra, "m1", 1299, 4.1),
		product(domain.PlatformMyntra, "m2", 899, 4.5),
		product(domain.PlatformMyntra, "m3", 2499, 3.9),
	}}
	amazon := &MockSearcher{platform: domain.PlatformAmazon, results: []domain.RealProductResult{
		product(domain.PlatformAmazon, "a1", 999, 4.0),
		product(domain.PlatformAmazon, "a2", 1599, 4.7),
		product(domain.PlatformAmazon, "a3", 499, 3.5),
	}}
	flipkart := &MockSearcher{platform: domain.PlatformFlipkart, results: []domain.RealProductResult{
		product(domain.PlatformFlipkart, "f1", 749, 4.2),
		product(domain.PlatformFlipkart, "f2", 1999, 4.4),
		product(domain.PlatformFlipkart, "f3", 1099, 4.0),
	}}
	return myntra, amazon, flipkart
}

func newSearchService(cache domain.CacheRepository, searchers ...domain.ProductSearcher) *ProductSearchService {
	return NewProductSearchService(searchers, cache, ProductSearchConfig{}, zerolog.Nop())
}

func TestNewProductSearchService(t *testing.T) {
	t.Run("creates service with default values", func(t *testing.T) {
		svc := NewProductSearchService(nil, nil, ProductSearchConfig{}, zerolog.Nop())
		assert.Equal(t, 30*time.Minute, svc.cacheTTL)
		assert.Equal(t, 1, svc.matcher.fuzzyEditDistance)
	})

	t.Run("creates service with custom values", func(t *testing.T) {
		svc := NewProductSearchService(nil, nil, ProductSearchConfig{CacheTTL: time.Hour, FuzzyEditDistance: 2}, zerolog.Nop())
		assert.Equal(t, time.Hour, svc.cacheTTL)
		assert.Equal(t, 2, svc.matcher.fuzzyEditDistance)
	})
}

func TestSearchRealProducts(t *testing.T) {
	ctx := context.Background()

	t.Run("returns error for blank query", func(t *testing.T) {
		svc := newSearchService(nil)
		_, err := svc.SearchRealProducts(ctx, "   ", domain.ProductSearchOptions{})
		assert.ErrorIs(t, err, domain.ErrInvalidRequest)
	})

	t.Run("returns error for unknown sort", func(t *testing.T) {
		svc := newSearchService(nil)
		_, err := svc.SearchRealProducts(ctx, "jeans", domain.ProductSearchOptions{SortBy: "popularity"})
		assert.ErrorIs(t, err, domain.ErrInvalidRequest)
	})

	t.Run("merges platforms sorted by price and truncated", func(t *testing.T) {
		myntra, amazon, flipkart := threePlatforms()
		svc := newSearchService(nil, myntra, amazon, flipkart)

		products, err := svc.SearchRealProducts(ctx, "blue jeans", domain.ProductSearchOptions{MaxResults: 5, SortBy: domain.SortByPrice})
		require.NoError(t, err)
		require.Len(t, products, 5)

		for i := 1; i < len(products); i++ {
			assert.LessOrEqual(t, products[i-1].Price, products[i].Price)
		}
		platforms := map[domain.Platform]bool{}
		for _, p := range products {
			platforms[p.Platform] = true
		}
		assert.GreaterOrEqual(t, len(platforms), 2, "expected results from more than one platform")
		assert.Equal(t, []int64{499, 749, 899, 999, 1099}, prices(products))
		assert.Equal(t, 5, myntra.lastLimit, "per-platform limit follows MaxResults")
	})

	t.Run("relevance keeps merge order", func(t *testing.T) {
		myntra, amazon, flipkart := threePlatforms()
		svc := newSearchService(nil, myntra, amazon, flipkart)

		products, err := svc.SearchRealProducts(ctx, "shirt", domain.ProductSearchOptions{})
		require.NoError(t, err)
		require.Len(t, products, 9)
		assert.Equal(t, "m1", products[0].Name)
		assert.Equal(t, "a1", products[3].Name)
		assert.Equal(t, "f3", products[8].Name)
	})

	t.Run("sorts by rating descending and stable", func(t *testing.T) {
		myntra, amazon, flipkart := threePlatforms()
		svc := newSearchService(nil, myntra, amazon, flipkart)

		products, err := svc.SearchRealProducts(ctx, "shirt", domain.ProductSearchOptions{SortBy: domain.SortByRating})
		require.NoError(t, err)
		require.Len(t, products, 9)
		assert.Equal(t, "a2", products[0].Name)
		assert.Equal(t, "m2", products[1].Name)
		// a1 and f3 share a rating and keep merge order
		idxA1, idxF3 := indexOf(products, "a1"), indexOf(products, "f3")
		assert.Less(t, idxA1, idxF3)
	})

	t.Run("returns empty slice when every platform fails", func(t *testing.T) {
		failing := func(p domain.Platform) *MockSearcher {
			return &MockSearcher{platform: p, err: errors.New("all strategies failed")}
		}
		svc := newSearchService(nil, failing(domain.PlatformMyntra), failing(domain.PlatformAmazon), failing(domain.PlatformFlipkart))

		products, err := svc.SearchRealProducts(ctx, "kurta", domain.ProductSearchOptions{})
		require.NoError(t, err)
		assert.NotNil(t, products)
		assert.Empty(t, products)
	})

	t.Run("a failing or panicking platform does not affect the others", func(t *testing.T) {
		myntra, _, flipkart := threePlatforms()
		amazon := &MockSearcher{platform: domain.PlatformAmazon, panics: true}
		myntra.err = errors.New("blocked")
		svc := newSearchService(nil, myntra, amazon, flipkart)

		products, err := svc.SearchRealProducts(ctx, "kurta", domain.ProductSearchOptions{})
		require.NoError(t, err)
		require.Len(t, products, 3)
		for _, p := range products {
			assert.Equal(t, domain.PlatformFlipkart, p.Platform)
		}
	})

	t.Run("filters by price range", func(t *testing.T) {
		myntra, amazon, flipkart := threePlatforms()
		svc := newSearchService(nil, myntra, amazon, flipkart)

		minPrice, maxPrice := 800.0, 1300.0
		products, err := svc.SearchRealProducts(ctx, "shirt", domain.ProductSearchOptions{
			MinPrice: &minPrice,
			MaxPrice: &maxPrice,
			SortBy:   domain.SortByPrice,
		})
		require.NoError(t, err)
		assert.Equal(t, []int64{899, 999, 1099, 1299}, prices(products))
	})

	t.Run("price qualifier in the query becomes the ceiling", func(t *testing.T) {
		myntra, amazon, flipkart := threePlatforms()
		svc := newSearchService(nil, myntra, amazon, flipkart)

		products, err := svc.SearchRealProducts(ctx, "shirt under 1000", domain.ProductSearchOptions{SortBy: domain.SortByPrice})
		require.NoError(t, err)
		assert.Equal(t, []int64{499, 749, 899, 999}, prices(products))
		assert.Equal(t, "shirt", myntra.lastQuery)
	})

	t.Run("explicit max price wins over the query qualifier", func(t *testing.T) {
		myntra, amazon, flipkart := threePlatforms()
		svc := newSearchService(nil, myntra, amazon, flipkart)

		maxPrice := 1300.0
		products, err := svc.SearchRealProducts(ctx, "shirt under 1000", domain.ProductSearchOptions{
			MaxPrice: &maxPrice,
			SortBy:   domain.SortByPrice,
		})
		require.NoError(t, err)
		assert.Equal(t, []int64{499, 749, 899, 999, 1099, 1299}, prices(products))
	})

	t.Run("filters by category", func(t *testing.T) {
		jeans := product(domain.PlatformMyntra, "Slim Fit Jeans", 1499, 4.3)
		kurta := product(domain.PlatformMyntra, "Cotton Kurta", 999, 4.1)
		svc := newSearchService(nil, &MockSearcher{platform: domain.PlatformMyntra, results: []domain.RealProductResult{jeans, kurta}})

		products, err := svc.SearchRealProducts(ctx, "blue", domain.ProductSearchOptions{Category: "jeans"})
		require.NoError(t, err)
		require.Len(t, products, 1)
		assert.Equal(t, "Slim Fit Jeans", products[0].Name)
	})

	t.Run("sends the preprocessed query upstream", func(t *testing.T) {
		searcher := &MockSearcher{platform: domain.PlatformMyntra}
		svc := newSearchService(nil, searcher)

		_, err := svc.SearchRealProducts(ctx, "Buy black kurta online", domain.ProductSearchOptions{Gender: domain.GenderWomen})
		require.NoError(t, err)
		assert.Equal(t, "women black kurta", searcher.lastQuery)
	})

	t.Run("returns cached results without searching", func(t *testing.T) {
		cache := NewMockCacheRepository()
		myntra, amazon, flipkart := threePlatforms()
		svc := newSearchService(cache, myntra, amazon, flipkart)
		opts := domain.ProductSearchOptions{MaxResults: 2}

		first, err := svc.SearchRealProducts(ctx, "White Sneakers", opts)
		require.NoError(t, err)
		require.Len(t, first, 2)
		assert.Equal(t, 1, cache.setCalls)

		second, err := svc.SearchRealProducts(ctx, "  white   sneakers ", opts)
		require.NoError(t, err)
		assert.Equal(t, first, second)
		assert.Equal(t, 1, myntra.Calls(), "second search should be served from cache")
	})

	t.Run("does not cache empty results", func(t *testing.T) {
		cache := NewMockCacheRepository()
		svc := newSearchService(cache, &MockSearcher{platform: domain.PlatformAmazon})

		products, err := svc.SearchRealProducts(ctx, "linen shirt", domain.ProductSearchOptions{})
		require.NoError(t, err)
		assert.Empty(t, products)
		assert.Equal(t, 0, cache.setCalls)
	})

	t.Run("cache failures fall through to a live search", func(t *testing.T) {
		cache := NewMockCacheRepository()
		cache.getError = domain.ErrCacheUnavailable
		cache.setError = domain.ErrCacheUnavailable
		myntra, _, _ := threePlatforms()
		svc := newSearchService(cache, myntra)

		products, err := svc.SearchRealProducts(ctx, "shirt", domain.ProductSearchOptions{})
		require.NoError(t, err)
		assert.Len(t, products, 3)
	})

	t.Run("ignores corrupt cache entries", func(t *testing.T) {
		cache := NewMockCacheRepository()
		myntra, _, _ := threePlatforms()
		svc := newSearchService(cache, myntra)
		opts := domain.ProductSearchOptions{}
		key := svc.generateCacheKey(svc.preprocessor.PreprocessQuery("shirt", ""), opts)
		cache.data[key] = []byte("not json")

		products, err := svc.SearchRealProducts(ctx, "shirt", opts)
		require.NoError(t, err)
		assert.Len(t, products, 3)

		var cached []domain.RealProductResult
		require.NoError(t, json.Unmarshal(cache.data[key], &cached))
		assert.Len(t, cached, 3)
	})
}

func TestGenerateCacheKey(t *testing.T) {
	svc := newSearchService(nil)
	minPrice := 500.0

	a := svc.generateCacheKey("Blue  Jeans", domain.ProductSearchOptions{MinPrice: &minPrice})
	b := svc.generateCacheKey("blue jeans", domain.ProductSearchOptions{MinPrice: &minPrice})
	c := svc.generateCacheKey("blue jeans", domain.ProductSearchOptions{})
	d := svc.generateCacheKey("blue jeans", domain.ProductSearchOptions{MaxResults: 5})

	assert.Equal(t, a, b)
	assert.NotEqual(t, b, c)
	assert.NotEqual(t, c, d)
}

func prices(products []domain.RealProductResult) []int64 {
	out := make([]int64, len(products))
	for i, p := range products {
		out[i] = p.Price
	}
	return out
}

func indexOf(products []domain.RealProductResult, name string) int {
	for i, p := range products {
		if p.Name == name {
			return i
		}
	}
	return -1
}
