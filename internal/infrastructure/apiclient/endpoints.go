package apiclient

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/drape/backend/internal/domain"
)

type searchRequest struct {
	Query string `json:"query"`
	domain.ProductSearchOptions
}

type searchResponse struct {
	Products []domain.RealProductResult `json:"products"`
	Count    int                        `json:"count"`
}

// SearchProducts runs a product search on the backend
func (c *Client) SearchProducts(ctx context.Context, query string, opts domain.ProductSearchOptions) ([]domain.RealProductResult, error) {
	var out searchResponse
	if err := c.Do(ctx, http.MethodPost, "/api/v1/products/search", nil, searchRequest{Query: query, ProductSearchOptions: opts}, &out); err != nil {
		return nil, err
	}
	if out.Products == nil {
		out.Products = []domain.RealProductResult{}
	}
	return out.Products, nil
}

// SuggestOutfit asks the backend for an outfit suggestion
func (c *Client) SuggestOutfit(ctx context.Context, req domain.OutfitRequest) (*domain.OutfitSuggestion, error) {
	var out domain.OutfitSuggestion
	if err := c.Do(ctx, http.MethodPost, "/api/v1/outfits/suggest", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// FetchUpdates implements domain.DashboardSource for the configured user
func (c *Client) FetchUpdates(ctx context.Context, since time.Time) (*domain.DashboardUpdate, error) {
	query := url.Values{}
	query.Set("userId", c.userID)
	if !since.IsZero() {
		query.Set("since", since.UTC().Format(time.RFC3339Nano))
	}

	var out domain.DashboardUpdate
	if err := c.Do(ctx, http.MethodGet, "/api/v1/dashboard/updates", query, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
