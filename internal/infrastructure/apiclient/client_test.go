package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/drape/backend/internal/domain"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingTokens struct{}

func (failingTokens) Token(context.Context) (string, error) { return "", errors.New("no session") }

func newTestClient(t *testing.T, handler http.HandlerFunc, opts Options) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	opts.BaseURL = server.URL
	c, err := New(opts, zerolog.Nop())
	require.NoError(t, err)
	return c
}

func TestNew(t *testing.T) {
	_, err := New(Options{BaseURL: "not a url"}, zerolog.Nop())
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)

	c, err := New(Options{BaseURL: "https://api.drape.app/"}, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, "https://api.drape.app", c.baseURL.String())
}

func TestDo(t *testing.T) {
	ctx := context.Background()

	t.Run("sends bearer token and decodes JSON", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "Bearer session-token", r.Header.Get("Authorization"))
			assert.Equal(t, "/api/v1/ping", r.URL.Path)
			assert.Equal(t, "1", r.URL.Query().Get("x"))
			_, _ = w.Write([]byte(`{"ok":true}`))
		}, Options{Tokens: StaticToken("session-token")})

		var out struct{ OK bool }
		require.NoError(t, c.Do(ctx, http.MethodGet, "/api/v1/ping", map[string][]string{"x": {"1"}}, nil, &out))
		assert.True(t, out.OK)
	})

	t.Run("omits Authorization without a token", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Empty(t, r.Header.Get("Authorization"))
			w.WriteHeader(http.StatusNoContent)
		}, Options{})

		require.NoError(t, c.Do(ctx, http.MethodPost, "/x", nil, map[string]string{"a": "b"}, nil))
	})

	t.Run("401 triggers the unauthorized hook", func(t *testing.T) {
		redirected := 0
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		}, Options{Tokens: StaticToken("expired"), OnUnauthorized: func() { redirected++ }})

		err := c.Do(ctx, http.MethodGet, "/x", nil, nil, nil)
		assert.ErrorIs(t, err, domain.ErrUnauthorized)
		assert.Equal(t, 1, redirected)
	})

	t.Run("token source failure is unauthorized", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			t.Error("request should not be sent")
		}, Options{Tokens: failingTokens{}})

		assert.ErrorIs(t, c.Do(ctx, http.MethodGet, "/x", nil, nil, nil), domain.ErrUnauthorized)
	})

	t.Run("maps error statuses onto domain errors", func(t *testing.T) {
		tests := []struct {
			status int
			want   error
		}{
			{http.StatusBadRequest, domain.ErrInvalidRequest},
			{http.StatusNotImplemented, domain.ErrFeatureDisabled},
			{http.StatusBadGateway, domain.ErrUpstreamFailure},
		}
		for _, tt := range tests {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(`{"error":"bad_things","message":"details here"}`))
			}, Options{})

			err := c.Do(ctx, http.MethodGet, "/x", nil, nil, nil)
			assert.ErrorIs(t, err, tt.want)
			assert.Contains(t, err.Error(), "details here")
		}
	})
}

func TestFetchUpdates(t *testing.T) {
	since := time.Date(2026, 4, 2, 10, 30, 0, 123000000, time.UTC)
	latest := since.Add(time.Minute)

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/dashboard/updates", r.URL.Path)
		assert.Equal(t, "user-42", r.URL.Query().Get("userId"))
		assert.Equal(t, "2026-04-02T10:30:00.123Z", r.URL.Query().Get("since"))

		_ = json.NewEncoder(w).Encode(domain.DashboardUpdate{
			HasUpdates:    true,
			Timestamp:     latest,
			Notifications: []domain.Notification{{UserID: "user-42", Title: "Trending now"}},
		})
	}, Options{UserID: "user-42"})

	update, err := c.FetchUpdates(context.Background(), since)
	require.NoError(t, err)
	assert.True(t, update.HasUpdates)
	assert.True(t, latest.Equal(update.Timestamp))
	require.Len(t, update.Notifications, 1)
}

func TestFetchUpdates_ZeroSinceOmitted(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, present := r.URL.Query()["since"]
		assert.False(t, present)
		_, _ = w.Write([]byte(`{"hasUpdates":false,"timestamp":"2026-04-02T10:30:00Z","notifications":[]}`))
	}, Options{UserID: "u"})

	update, err := c.FetchUpdates(context.Background(), time.Time{})
	require.NoError(t, err)
	assert.False(t, update.HasUpdates)
}

func TestSearchProducts(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "white sneakers", body["query"])
		assert.Equal(t, float64(5), body["maxResults"])
		assert.Equal(t, "price", body["sortBy"])
		_, _ = w.Write([]byte(`{"products":[{"id":"myntra-1","name":"Court Sneakers","price":1999,"platform":"myntra"}],"count":1}`))
	}, Options{})

	products, err := c.SearchProducts(context.Background(), "white sneakers", domain.ProductSearchOptions{MaxResults: 5, SortBy: domain.SortByPrice})
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, int64(1999), products[0].Price)
	assert.Equal(t, domain.PlatformMyntra, products[0].Platform)
}

func TestSuggestOutfit(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/outfits/suggest", r.URL.Path)
		_, _ = w.Write([]byte(`{"title":"Office Outfit","items":[],"colors":["navy"],"tips":["t"],"confidence":0.8}`))
	}, Options{})

	s, err := c.SuggestOutfit(context.Background(), domain.OutfitRequest{BodyType: "pear", Occasion: "office", Gender: "women"})
	require.NoError(t, err)
	assert.Equal(t, "Office Outfit", s.Title)
	assert.Equal(t, 0.8, s.Confidence)
}
