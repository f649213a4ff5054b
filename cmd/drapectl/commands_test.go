package main

import (
	"bytes"
	"flag"
	"testing"
	"time"

	"github.com/drape/backend/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

func contextFor(t *testing.T, cmd *cli.Command, args ...string) *cli.Context {
	t.Helper()
	set := flag.NewFlagSet(cmd.Name, flag.ContinueOnError)
	for _, f := range cmd.Flags {
		require.NoError(t, f.Apply(set))
	}
	require.NoError(t, set.Parse(args))
	return cli.NewContext(newApp(), set, nil)
}

func TestSearchOptions(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		opts := searchOptions(contextFor(t, searchCommand()))

		assert.Equal(t, domain.DefaultMaxResults, opts.MaxResults)
		assert.Nil(t, opts.MinPrice)
		assert.Nil(t, opts.MaxPrice)
		assert.Empty(t, opts.SortBy)
	})

	t.Run("all flags", func(t *testing.T) {
		c := contextFor(t, searchCommand(),
			"--max", "5", "--sort", "price", "--min-price", "0", "--max-price", "1999",
			"--gender", "men", "--category", "jeans")
		opts := searchOptions(c)

		assert.Equal(t, 5, opts.MaxResults)
		assert.Equal(t, domain.SortByPrice, opts.SortBy)
		assert.Equal(t, domain.GenderMen, opts.Gender)
		assert.Equal(t, "jeans", opts.Category)
		require.NotNil(t, opts.MinPrice)
		assert.Equal(t, 0.0, *opts.MinPrice)
		require.NotNil(t, opts.MaxPrice)
		assert.Equal(t, 1999.0, *opts.MaxPrice)
	})
}

func TestOutfitRequest(t *testing.T) {
	c := contextFor(t, suggestCommand(),
		"--body-type", "athletic", "--occasion", "office party", "--gender", "men",
		"--color", "navy", "--color", "white")
	req := outfitRequest(c)

	assert.Equal(t, "athletic", req.BodyType)
	assert.Equal(t, "office party", req.Occasion)
	assert.Equal(t, "men", req.Gender)
	assert.Equal(t, []string{"navy", "white"}, req.ColorPreferences)
}

func TestPrintProducts(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		var buf bytes.Buffer
		printProducts(&buf, nil)
		assert.Equal(t, "no products found\n", buf.String())
	})

	t.Run("formats each product", func(t *testing.T) {
		rating := 4.3
		var buf bytes.Buffer
		printProducts(&buf, []domain.RealProductResult{
			{Name: "Slim Jeans", Brand: "Levis", Price: 1799, Platform: domain.PlatformAmazon, Rating: &rating, ProductURL: "https://www.amazon.in/dp/B0TEST"},
			{Name: "Kurta", Brand: "Fabindia", Price: 999, Platform: domain.PlatformMyntra},
		})

		out := buf.String()
		assert.Contains(t, out, " 1. [amazon] Slim Jeans (Levis) Rs 1799  rating 4.3")
		assert.Contains(t, out, "https://www.amazon.in/dp/B0TEST")
		assert.Contains(t, out, " 2. [myntra] Kurta (Fabindia) Rs 999  rating -")
	})
}

func TestPrintUpdate(t *testing.T) {
	var buf bytes.Buffer
	printUpdate(&buf, domain.DashboardUpdate{
		HasUpdates: true,
		Notifications: []domain.Notification{
			{Type: domain.NotificationPriceDrop, Title: "Price drop", Body: "20% off", CreatedAt: time.Now()},
		},
	})
	assert.Contains(t, buf.String(), "price_drop")
	assert.Contains(t, buf.String(), "Price drop: 20% off")
}
