package catalog

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/toko-subscribe/internal/meta"
	"github.com/noah-isme/toko-subscribe/internal/resolver"
	"github.com/noah-isme/toko-subscribe/internal/scheme"
)

const seedYAML = `
cart:
  - period_interval: "1"
    period: month
    length: "3"
  - period_interval: "1"
    period: fortnight
    length: "2"
products:
  - id: "42"
    type: simple
    force_subscription: true
    default_status: subscription
    prompt: Subscribe and save
    schemes:
      - period_interval: "2"
        period: week
        length: "4"
        discount: "10"
  - id: "43"
    type: grouped
    schemes:
      - period_interval: "1"
        period: year
        length: "1"
`

func TestParseAndApplySeed(t *testing.T) {
	s, err := ParseSeed(strings.NewReader(seedYAML))
	require.NoError(t, err)
	require.Len(t, s.Cart, 2)
	require.Len(t, s.Products, 2)

	c := &Catalog{Store: meta.NewMemory()}
	ctx := context.Background()
	res, err := c.ApplySeed(ctx, s)
	require.NoError(t, err)
	require.Equal(t, SeedResult{CartSchemes: 1, Products: 2, ProductSchemes: 1}, res)

	cart, err := c.LoadCart(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"1_month_3"}, scheme.IDs(cart))

	list, err := c.Load(ctx, "42", scheme.ScopeCartItem)
	require.NoError(t, err)
	require.Equal(t, []string{"2_week_4"}, scheme.IDs(list))
	require.Equal(t, "10", list[0].Discount.Decimal.String())

	settings, err := c.Settings(ctx, "42")
	require.NoError(t, err)
	require.True(t, settings.ForceSubscription)
	require.Equal(t, resolver.DefaultSubscription, settings.DefaultStatus)
	require.Equal(t, "Subscribe and save", settings.Prompt)

	grouped, err := c.Load(ctx, "43", scheme.ScopeCartItem)
	require.NoError(t, err)
	require.Empty(t, grouped)
}

func TestParseSeedRejectsBadInput(t *testing.T) {
	_, err := ParseSeed(strings.NewReader("products:\n  - type: simple\n"))
	require.ErrorContains(t, err, "no id")

	_, err = ParseSeed(strings.NewReader("products:\n  - id: \"1\"\n    default_status: maybe\n"))
	require.ErrorContains(t, err, "default_status")

	_, err = ParseSeed(strings.NewReader("carts: []\n"))
	require.Error(t, err)

	s, err := ParseSeed(strings.NewReader(""))
	require.NoError(t, err)
	require.Empty(t, s.Products)
}
