package retail

import (
	"context"
	"errors"
	"time"

	"github.com/drape/backend/internal/domain"
	"github.com/rs/zerolog"
)

var (
	// ErrStrategyUnavailable is returned by a strategy that lacks the credentials it needs
	ErrStrategyUnavailable = errors.New("strategy unavailable")

	// ErrNoResults is returned by a chain when every strategy failed or came back empty
	ErrNoResults = errors.New("no results from any strategy")
)

// Strategy is one way of searching a single retailer
type Strategy interface {
	Name() string
	Attempt(ctx context.Context, query string, limit int) ([]domain.RealProductResult, error)
}

// Chain tries its strategies in order and stops at the first non-empty answer
type Chain struct {
	platform   domain.Platform
	strategies []Strategy
	logger     zerolog.Logger
}

// NewChain creates a fallback chain for one platform
func NewChain(platform domain.Platform, logger zerolog.Logger, strategies ...Strategy) *Chain {
	return &Chain{
		platform:   platform,
		strategies: strategies,
		logger:     logger.With().Str("platform", string(platform)).Logger(),
	}
}

// Platform returns the retailer this chain searches
func (c *Chain) Platform() domain.Platform {
	return c.platform
}

// Strategies returns the strategy names in attempt order
func (c *Chain) Strategies() []string {
	names := make([]string, len(c.strategies))
	for i, s := range c.strategies {
		names[i] = s.Name()
	}
	return names
}

// Search runs the strategies sequentially. A strategy's error never stops the chain;
// ErrNoResults is returned only after every strategy has been tried.
func (c *Chain) Search(ctx context.Context, query string, limit int) ([]domain.RealProductResult, error) {
	if limit <= 0 {
		limit = domain.DefaultMaxResults
	}

	for _, s := range c.strategies {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		start := time.Now()
		results, err := s.Attempt(ctx, query, limit)
		log := c.logger.With().Str("strategy", s.Name()).Str("query", query).Dur("elapsed", time.Since(start)).Logger()

		switch {
		case errors.Is(err, ErrStrategyUnavailable):
			log.Debug().Msg("strategy skipped")
			continue
		case err != nil:
			log.Warn().Err(err).Msg("strategy failed")
			continue
		case len(results) == 0:
			log.Debug().Msg("strategy returned no products")
			continue
		}

		if len(results) > limit {
			results = results[:limit]
		}
		log.Info().Int("count", len(results)).Msg("strategy succeeded")
		return results, nil
	}

	return nil, ErrNoResults
}
