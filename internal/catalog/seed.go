package catalog

import (
	"context"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/noah-isme/toko-subscribe/internal/resolver"
	"github.com/noah-isme/toko-subscribe/internal/scheme"
)

// ProductSeed is one product entry of a seed file.
type ProductSeed struct {
	ID                string          `yaml:"id"`
	Type              string          `yaml:"type"`
	ForceSubscription bool            `yaml:"force_subscription"`
	DefaultStatus     string          `yaml:"default_status"`
	Prompt            string          `yaml:"prompt"`
	Schemes           []scheme.Record `yaml:"schemes"`
}

// Seed is the content of a scheme seed file.
type Seed struct {
	Cart     []scheme.Record `yaml:"cart"`
	Products []ProductSeed   `yaml:"products"`
}

// SeedResult counts what ApplySeed stored.
type SeedResult struct {
	CartSchemes    int
	Products       int
	ProductSchemes int
}

// ParseSeed decodes a YAML seed file. Unknown fields are rejected.
func ParseSeed(r io.Reader) (Seed, error) {
	var s Seed
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil && err != io.EOF {
		return Seed{}, fmt.Errorf("decode seed: %w", err)
	}
	for i, p := range s.Products {
		if strings.TrimSpace(p.ID) == "" {
			return Seed{}, fmt.Errorf("decode seed: product %d has no id", i)
		}
		switch resolver.DefaultStatus(p.DefaultStatus) {
		case "", resolver.DefaultOneTime, resolver.DefaultSubscription:
		default:
			return Seed{}, fmt.Errorf("decode seed: product %s has unknown default_status %q", p.ID, p.DefaultStatus)
		}
	}
	return s, nil
}

// ApplySeed stores the cart-level schemes and every product of s through the normalising save
// path. The cart list is only written when the seed has one.
func (c *Catalog) ApplySeed(ctx context.Context, s Seed) (SeedResult, error) {
	var res SeedResult
	if len(s.Cart) > 0 {
		list, err := c.SaveCart(ctx, s.Cart)
		if err != nil {
			return res, fmt.Errorf("save cart schemes: %w", err)
		}
		res.CartSchemes = len(list)
	}
	for _, p := range s.Products {
		list, err := c.SaveProduct(ctx, strings.TrimSpace(p.ID), p.Type, p.Schemes, Settings{
			ForceSubscription: p.ForceSubscription,
			DefaultStatus:     resolver.DefaultStatus(p.DefaultStatus),
			Prompt:            p.Prompt,
		})
		if err != nil {
			return res, fmt.Errorf("save product %s: %w", p.ID, err)
		}
		res.Products++
		res.ProductSchemes += len(list)
	}
	c.logger().Info().
		Int("cart_schemes", res.CartSchemes).
		Int("products", res.Products).
		Int("product_schemes", res.ProductSchemes).
		Msg("catalog: seed applied")
	return res, nil
}
