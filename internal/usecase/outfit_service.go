package usecase

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/drape/backend/internal/domain"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const outfitSystemPrompt = `You are a professional fashion stylist for an Indian shopping app.
Respond with strict JSON only, no prose and no code fences, matching this schema:
{"title":string,"description":string,"items":[{"category":string,"description":string,"color":string,"style":string,"searchTerms":string[]}],"colors":string[],"tips":string[],"confidence":number}
Use 3 to 5 items. searchTerms must be short queries a shopper could type into Myntra, Amazon or Flipkart.
confidence is between 0 and 1.`

// ProductFinder is the slice of the product search service the outfit service needs
type ProductFinder interface {
	SearchRealProducts(ctx context.Context, query string, opts domain.ProductSearchOptions) ([]domain.RealProductResult, error)
}

// OutfitServiceConfig holds configuration for the outfit service
type OutfitServiceConfig struct {
	// ProductsPerItem caps products returned per outfit item when shopping an outfit
	ProductsPerItem int
	// ShopConcurrency caps parallel item searches
	ShopConcurrency int
}

// OutfitService generates outfit suggestions with one chat-completion call per request
type OutfitService struct {
	llm             domain.ChatCompleter
	products        ProductFinder
	productsPerItem int
	shopConcurrency int
	logger          zerolog.Logger
}

// NewOutfitService creates an outfit service. products may be nil when shopping is not needed.
func NewOutfitService(llm domain.ChatCompleter, products ProductFinder, config OutfitServiceConfig, logger zerolog.Logger) *OutfitService {
	perItem := config.ProductsPerItem
	if perItem <= 0 {
		perItem = 4
	}
	concurrency := config.ShopConcurrency
	if concurrency <= 0 {
		concurrency = 3
	}
	return &OutfitService{
		llm:             llm,
		products:        products,
		productsPerItem: perItem,
		shopConcurrency: concurrency,
		logger:          logger,
	}
}

// GenerateOutfitSuggestion asks the model once and parses whatever comes back.
// A failed model call returns domain.ErrSuggestionUnavailable; unparseable text is not an error.
func (s *OutfitService) GenerateOutfitSuggestion(ctx context.Context, req domain.OutfitRequest) (*domain.OutfitSuggestion, error) {
	if strings.TrimSpace(req.BodyType) == "" || strings.TrimSpace(req.Occasion) == "" || strings.TrimSpace(req.Gender) == "" {
		return nil, domain.ErrInvalidRequest
	}

	text, err := s.llm.Complete(ctx, outfitSystemPrompt, buildOutfitPrompt(req))
	if err != nil {
		s.logger.Error().Err(err).Str("occasion", req.Occasion).Msg("outfit suggestion call failed")
		return nil, domain.ErrSuggestionUnavailable
	}

	suggestion := parseOutfitResponse(text, req)
	s.logger.Info().
		Str("occasion", req.Occasion).
		Int("items", len(suggestion.Items)).
		Float64("confidence", suggestion.Confidence).
		Msg("outfit suggestion generated")
	return suggestion, nil
}

// ShopOutfit generates a suggestion and searches real products for each item's first search term.
// Items whose search fails map to an empty list.
func (s *OutfitService) ShopOutfit(ctx context.Context, req domain.OutfitRequest) (*domain.ShoppableOutfit, error) {
	suggestion, err := s.GenerateOutfitSuggestion(ctx, req)
	if err != nil {
		return nil, err
	}

	out := &domain.ShoppableOutfit{
		Suggestion: suggestion,
		Products:   make(map[int][]domain.RealProductResult, len(suggestion.Items)),
	}
	if s.products == nil {
		return out, nil
	}

	opts := domain.ProductSearchOptions{
		MaxResults: s.productsPerItem,
		Gender:     genderForSearch(req.Gender),
	}

	var mu sync.Mutex
	var g errgroup.Group
	g.SetLimit(s.shopConcurrency)
	for i, item := range suggestion.Items {
		g.Go(func() error {
			query := item.Description
			if len(item.SearchTerms) > 0 {
				query = item.SearchTerms[0]
			}
			products, err := s.products.SearchRealProducts(ctx, query, opts)
			if err != nil {
				s.logger.Warn().Err(err).Int("item", i).Str("query", query).Msg("outfit item search failed")
				products = nil
			}
			if products == nil {
				products = []domain.RealProductResult{}
			}
			mu.Lock()
			out.Products[i] = products
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	return out, nil
}

func buildOutfitPrompt(req domain.OutfitRequest) string {
	sb := &strings.Builder{}
	fmt.Fprintf(sb, "Suggest one complete outfit for a %s with a %s body type for a %s occasion.",
		strings.ToLower(req.Gender), strings.ToLower(req.BodyType), strings.ToLower(req.Occasion))
	if req.Budget != "" {
		fmt.Fprintf(sb, " Budget: %s.", req.Budget)
	}
	if req.Season != "" {
		fmt.Fprintf(sb, " Season: %s.", req.Season)
	}
	if colors := normalizeList(req.ColorPreferences); len(colors) > 0 {
		fmt.Fprintf(sb, " Preferred colors: %s.", strings.Join(colors, ", "))
	}
	sb.WriteString(" Explain why the outfit flatters the body type and include practical styling tips.")
	return sb.String()
}

// genderForSearch maps free-form request genders onto search genders
func genderForSearch(g string) domain.Gender {
	switch strings.ToLower(strings.TrimSpace(g)) {
	case "men", "man", "male", "m":
		return domain.GenderMen
	case "women", "woman", "female", "f":
		return domain.GenderWomen
	case "unisex", "non-binary", "nonbinary":
		return domain.GenderUnisex
	}
	return ""
}
