package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/drape/backend/internal/domain"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// ProductSearchConfig holds configuration for the product search service
type ProductSearchConfig struct {
	CacheTTL          time.Duration
	FuzzyEditDistance int
}

// ProductSearchService fans a query out to every retailer and merges what comes back
type ProductSearchService struct {
	searchers    []domain.ProductSearcher
	cache        domain.CacheRepository
	preprocessor *QueryPreprocessor
	matcher      *CategoryMatcher
	cacheTTL     time.Duration
	logger       zerolog.Logger
}

// NewProductSearchService creates a search service. Searchers are merged in the order given.
// A nil cache disables result caching.
func NewProductSearchService(
	searchers []domain.ProductSearcher,
	cache domain.CacheRepository,
	config ProductSearchConfig,
	logger zerolog.Logger,
) *ProductSearchService {
	cacheTTL := config.CacheTTL
	if cacheTTL == 0 {
		cacheTTL = 30 * time.Minute
	}

	return &ProductSearchService{
		searchers:    searchers,
		cache:        cache,
		preprocessor: NewQueryPreprocessor(logger),
		matcher:      NewCategoryMatcher(config.FuzzyEditDistance),
		cacheTTL:     cacheTTL,
		logger:       logger,
	}
}

// SearchRealProducts searches all retailers concurrently.
// Upstream failures never surface as errors: a failing retailer contributes no products.
// Only a blank query or invalid options return domain.ErrInvalidRequest.
func (s *ProductSearchService) SearchRealProducts(
	ctx context.Context,
	query string,
	opts domain.ProductSearchOptions,
) ([]domain.RealProductResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, domain.ErrInvalidRequest
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	// "under 1000" in the text becomes the price ceiling unless the caller set one
	if opts.MaxPrice == nil {
		if ceiling, ok := s.preprocessor.PriceCeiling(query); ok && (opts.MinPrice == nil || *opts.MinPrice <= ceiling) {
			opts.MaxPrice = &ceiling
		}
	}

	limit := opts.Limit()
	searchQuery := s.preprocessor.PreprocessQuery(query, opts.Gender)
	cacheKey := s.generateCacheKey(searchQuery, opts)

	if cached, ok := s.getFromCache(ctx, cacheKey); ok {
		s.logger.Debug().Str("query", searchQuery).Int("count", len(cached)).Msg("product search cache hit")
		return cached, nil
	}

	merged := s.fanOut(ctx, searchQuery, limit)

	results := s.filter(merged, opts)
	sortProducts(results, opts.SortBy)
	if len(results) > limit {
		results = results[:limit]
	}

	s.logger.Info().
		Str("query", searchQuery).
		Int("merged", len(merged)).
		Int("returned", len(results)).
		Msg("product search complete")

	if len(results) > 0 {
		s.setInCache(ctx, cacheKey, results)
	}
	return results, nil
}

// fanOut runs every searcher concurrently and concatenates results in searcher order.
// Siblings are not cancelled when one fails.
func (s *ProductSearchService) fanOut(ctx context.Context, query string, limit int) []domain.RealProductResult {
	perSearcher := make([][]domain.RealProductResult, len(s.searchers))

	var g errgroup.Group
	for i, searcher := range s.searchers {
		g.Go(func() error {
			platform := searcher.Platform()
			defer func() {
				if r := recover(); r != nil {
					s.logger.Error().Str("platform", string(platform)).Interface("panic", r).Msg("platform search panicked")
				}
			}()

			products, err := searcher.Search(ctx, query, limit)
			if err != nil {
				s.logger.Warn().Err(err).Str("platform", string(platform)).Str("query", query).Msg("platform search returned nothing")
				return nil
			}
			perSearcher[i] = products
			return nil
		})
	}
	_ = g.Wait()

	total := 0
	for _, p := range perSearcher {
		total += len(p)
	}
	merged := make([]domain.RealProductResult, 0, total)
	for _, p := range perSearcher {
		merged = append(merged, p...)
	}
	return merged
}

// filter applies the price bounds and category. The result is never nil.
func (s *ProductSearchService) filter(products []domain.RealProductResult, opts domain.ProductSearchOptions) []domain.RealProductResult {
	out := make([]domain.RealProductResult, 0, len(products))
	for _, p := range products {
		price := float64(p.Price)
		if opts.MinPrice != nil && price < *opts.MinPrice {
			continue
		}
		if opts.MaxPrice != nil && price > *opts.MaxPrice {
			continue
		}
		if opts.Category != "" && !s.matcher.Matches(opts.Category, p) {
			continue
		}
		out = append(out, p)
	}
	return out
}

// sortProducts orders products in place; relevance keeps merge order
func sortProducts(products []domain.RealProductResult, by domain.SortBy) {
	switch by {
	case domain.SortByPrice:
		sort.SliceStable(products, func(i, j int) bool {
			return products[i].Price < products[j].Price
		})
	case domain.SortByRating:
		sort.SliceStable(products, func(i, j int) bool {
			return products[i].RatingValue() > products[j].RatingValue()
		})
	}
}

// generateCacheKey creates a normalized cache key.
// Format: "products:{normalized_query}:{options}:{limit}"
func (s *ProductSearchService) generateCacheKey(query string, opts domain.ProductSearchOptions) string {
	return fmt.Sprintf("products:%s:%s:%s", normalizeForCacheKey(query), opts.SearchKey(), strconv.Itoa(opts.Limit()))
}

// normalizeForCacheKey lowercases s and collapses whitespace
func normalizeForCacheKey(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

func (s *ProductSearchService) getFromCache(ctx context.Context, key string) ([]domain.RealProductResult, bool) {
	if s.cache == nil {
		return nil, false
	}
	data, err := s.cache.Get(ctx, key)
	if err != nil {
		return nil, false
	}
	var products []domain.RealProductResult
	if err := json.Unmarshal(data, &products); err != nil || len(products) == 0 {
		return nil, false
	}
	return products, true
}

func (s *ProductSearchService) setInCache(ctx context.Context, key string, products []domain.RealProductResult) {
	if s.cache == nil {
		return
	}
	data, err := json.Marshal(products)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, data, s.cacheTTL); err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("failed to cache search results")
	}
}
