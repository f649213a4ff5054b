package retail

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/drape/backend/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const serpResponseJSON = `{
  "shopping_results": [
    {"title": "Roadster Linen Shirt", "link": "https://www.myntra.com/shirts/roadster/1/buy", "extracted_price": 899, "extracted_old_price": 1799, "thumbnail": "https://img/1.jpg", "rating": 4.4, "reviews": 52},
    {"title": "Other Store Shirt", "link": "https://example.com/shirt", "extracted_price": 500}
  ],
  "organic_results": [
    {"title": "Mango Linen Shirt | Myntra", "link": "https://www.myntra.com/shirts/mango/2/buy", "snippet": "Buy now at ₹1,049 with free delivery"},
    {"title": "Linen Shirts for Men - Myntra", "link": "https://www.myntra.com/linen-shirts", "snippet": "Shop the latest range"}
  ]
}`

func TestSerpAPIStrategy_Attempt(t *testing.T) {
	t.Run("restricts results to the retailer domain", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/search.json", r.URL.Path)
			assert.Equal(t, "site:myntra.com linen shirt", r.URL.Query().Get("q"))
			assert.Equal(t, "serp-key", r.URL.Query().Get("api_key"))
			assert.Equal(t, "google", r.URL.Query().Get("engine"))
			w.Write([]byte(serpResponseJSON))
		}))
		defer server.Close()

		s := NewSerpAPIStrategy(domain.PlatformMyntra, testFetcher(), "serp-key", server.URL, "myntra.com")
		got, err := s.Attempt(context.Background(), "linen shirt", 10)

		require.NoError(t, err)
		require.Len(t, got, 3)

		assert.Equal(t, "Roadster Linen Shirt", got[0].Name)
		assert.Equal(t, int64(899), got[0].Price)
		require.NotNil(t, got[0].OriginalPrice)
		assert.Equal(t, int64(1799), *got[0].OriginalPrice)

		assert.Equal(t, "Mango Linen Shirt", got[1].Name)
		assert.Equal(t, int64(1049), got[1].Price)

		assert.Equal(t, "Linen Shirts for Men", got[2].Name)
		assert.Equal(t, int64(DefaultListingPrice), got[2].Price)

		for _, p := range got {
			assert.Equal(t, domain.PlatformMyntra, p.Platform)
			assert.NotEmpty(t, p.ID)
		}
	})

	t.Run("error payload", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"error":"Invalid API key."}`))
		}))
		defer server.Close()

		_, err := NewSerpAPIStrategy(domain.PlatformAmazon, testFetcher(), "bad", server.URL, "amazon.in").Attempt(context.Background(), "jeans", 5)
		assert.ErrorIs(t, err, domain.ErrUpstreamFailure)
	})

	t.Run("missing key", func(t *testing.T) {
		_, err := NewSerpAPIStrategy(domain.PlatformAmazon, testFetcher(), "", "http://unused.invalid", "amazon.in").Attempt(context.Background(), "jeans", 5)
		assert.ErrorIs(t, err, ErrStrategyUnavailable)
	})
}

func TestHostMatches(t *testing.T) {
	assert.True(t, hostMatches("https://www.myntra.com/x", "myntra.com"))
	assert.True(t, hostMatches("https://myntra.com/x", "myntra.com"))
	assert.False(t, hostMatches("https://notmyntra.com/x", "myntra.com"))
	assert.False(t, hostMatches("://bad", "myntra.com"))
}

func TestTrimSiteSuffix(t *testing.T) {
	assert.Equal(t, "Mango Linen Shirt", trimSiteSuffix("Mango Linen Shirt | Myntra"))
	assert.Equal(t, "Jeans", trimSiteSuffix("Jeans - Amazon.in"))
	assert.Equal(t, "Blue - Slim Jeans", trimSiteSuffix("Blue - Slim Jeans"))
}
