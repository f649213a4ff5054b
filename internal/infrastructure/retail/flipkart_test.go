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

const flipkartAffiliateJSON = `{
  "products": [
    {"productBaseInfoV1": {
      "productId": "SHTG8ZFZYHZ7QHZQ",
      "title": "Men Regular Fit Checkered Casual Shirt",
      "productBrand": "Roadster",
      "imageUrls": {"200x200": "https://img/200.jpg", "800x800": "https://img/800.jpg"},
      "maximumRetailPrice": {"amount": 1499, "currency": "INR"},
      "flipkartSellingPrice": {"amount": 649, "currency": "INR"},
      "flipkartSpecialPrice": {"amount": 0, "currency": "INR"},
      "productUrl": "https://dl.flipkart.com/dl/roadster-shirt/p/itm1",
      "inStock": false,
      "categoryPath": "Apparels>Men>Shirts",
      "attributes": {"size": "M", "color": "Blue"}
    }}
  ]
}`

func TestFlipkartNative_Attempt(t *testing.T) {
	t.Run("maps affiliate response", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/affiliate/1.0/search.json", r.URL.Path)
			assert.Equal(t, "checked shirt", r.URL.Query().Get("query"))
			assert.Equal(t, "7", r.URL.Query().Get("resultCount"))
			assert.Equal(t, "aff", r.Header.Get("Fk-Affiliate-Id"))
			assert.Equal(t, "tok", r.Header.Get("Fk-Affiliate-Token"))
			w.Write([]byte(flipkartAffiliateJSON))
		}))
		defer server.Close()

		got, err := NewFlipkartNative(testFetcher(), server.URL, "aff", "tok").Attempt(context.Background(), "checked shirt", 7)

		require.NoError(t, err)
		require.Len(t, got, 1)
		p := got[0]
		assert.Equal(t, "SHTG8ZFZYHZ7QHZQ", p.ID)
		assert.Equal(t, int64(649), p.Price)
		require.NotNil(t, p.OriginalPrice)
		assert.Equal(t, int64(1499), *p.OriginalPrice)
		assert.Equal(t, "https://img/800.jpg", p.ImageURL)
		assert.Equal(t, "Shirts", p.Category)
		assert.False(t, p.InStock)
		assert.Equal(t, []string{"M"}, p.Sizes)
		assert.Equal(t, []string{"Blue"}, p.Colors)
		assert.Equal(t, domain.PlatformFlipkart, p.Platform)
	})

	t.Run("missing credentials", func(t *testing.T) {
		_, err := NewFlipkartNative(testFetcher(), "http://unused.invalid", "aff", "").Attempt(context.Background(), "shirt", 5)
		assert.ErrorIs(t, err, ErrStrategyUnavailable)
	})
}

func TestFlipkartExtractor(t *testing.T) {
	const site = "https://www.flipkart.com"

	t.Run("initial state blob", func(t *testing.T) {
		page := []byte(`<script>window.__INITIAL_STATE__ = {"pageDataV4":{"page":{"data":{` +
			`"10004":[{"widget":{"data":{"products":[{"productInfo":{"value":{"id":"SECOND","titles":{"title":"Second Shirt"},"pricing":{"finalPrice":{"value":799}}}}}]}}}],` +
			`"10003":[{"widget":{"data":{"products":[{"productInfo":{"value":{` +
			`"id":"SHTGXYZ","titles":{"title":"Men Slim Fit Shirt"},"productBrand":"HRX",` +
			`"pricing":{"finalPrice":{"value":599},"mrp":{"value":1299}},` +
			`"media":{"images":[{"url":"https://rukminim1.flixcart.com/image/{@width}/{@height}/x.jpeg?q={@quality}"}]},` +
			`"baseUrl":"/hrx-shirt/p/itm123","rating":{"average":4.1,"count":320},` +
			`"availability":{"displayState":"IN_STOCK"},"vertical":"shirt"}}}]}}}]` +
			`}}}};</script>`)

		got, err := FlipkartExtractor(site).Extract(page)

		require.NoError(t, err)
		require.Len(t, got, 2)
		p := got[0]
		assert.Equal(t, "SHTGXYZ", p.ID, "slots are read in page order")
		assert.Equal(t, "HRX", p.Brand)
		assert.Equal(t, int64(599), p.Price)
		assert.Equal(t, "https://rukminim1.flixcart.com/image/400/400/x.jpeg?q=70", p.ImageURL)
		assert.Equal(t, "https://www.flipkart.com/hrx-shirt/p/itm123", p.ProductURL)
		assert.True(t, p.InStock)
		assert.Equal(t, "SECOND", got[1].ID)
	})

	t.Run("falls back to card markup", func(t *testing.T) {
		page := []byte(`<div class="DOjaWF">` +
			`<div data-id="SHTGABCDEFGH1234" style="width:25%"><div class="_1sdMkc">` +
			`<a class="rPDeLR" href="/roadster-men-shirt/p/itmabc?pid=SHTGABCDEFGH1234"><img class="_53J4C-" src="https://rukminim2.flixcart.com/image/a.jpeg" /></a>` +
			`<div class="syl9yP">Roadster</div><a class="WKTcLC" title="Men Checkered Casual Shirt" href="/roadster-men-shirt/p/itmabc">Men Checkered Casual Shirt</a>` +
			`<div class="Nx9bqj">₹549</div><div class="yRaY8j">₹1,599</div>` +
			`</div></div></div>`)

		got, err := FlipkartExtractor(site).Extract(page)

		require.NoError(t, err)
		require.Len(t, got, 1)
		p := got[0]
		assert.Equal(t, "SHTGABCDEFGH1234", p.ID)
		assert.Equal(t, "Men Checkered Casual Shirt", p.Name)
		assert.Equal(t, "Roadster", p.Brand)
		assert.Equal(t, int64(549), p.Price)
		require.NotNil(t, p.OriginalPrice)
		assert.Equal(t, int64(1599), *p.OriginalPrice)
		assert.Equal(t, "https://rukminim2.flixcart.com/image/a.jpeg", p.ImageURL)
		assert.Equal(t, "https://www.flipkart.com/roadster-men-shirt/p/itmabc?pid=SHTGABCDEFGH1234", p.ProductURL)
	})
}
