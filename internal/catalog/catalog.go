package catalog

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"

	"github.com/noah-isme/toko-subscribe/internal/meta"
	"github.com/noah-isme/toko-subscribe/internal/obs"
	"github.com/noah-isme/toko-subscribe/internal/resolver"
	"github.com/noah-isme/toko-subscribe/internal/scheme"
)

// SiteOwner owns the cart-level scheme settings.
const SiteOwner = "site"

// Metadata keys.
const (
	KeySchemes           = "subscription_schemes"
	KeyCartSchemes       = "cart_subscription_schemes"
	KeyForceSubscription = "subscription_force"
	KeyDefaultStatus     = "subscription_default_status"
	KeyPrompt            = "subscription_prompt"
)

var (
	// ErrStoreMissing indicates the catalog was built without a metadata store.
	ErrStoreMissing = errors.New("catalog: metadata store not configured")

	errDecode = errors.New("catalog: undecodable value")
)

// DefaultSupportedTypes are the product types that may carry subscription schemes.
var DefaultSupportedTypes = []string{"simple", "variable"}

// Settings are the per-product subscription options.
type Settings struct {
	ForceSubscription bool                   `json:"force_subscription" yaml:"force_subscription"`
	DefaultStatus     resolver.DefaultStatus `json:"default_status,omitempty" yaml:"default_status,omitempty"`
	Prompt            string                 `json:"prompt,omitempty" yaml:"prompt,omitempty"`
}

// Catalog loads and saves scheme definitions. Every read goes to the store; nothing is
// cached between calls.
type Catalog struct {
	Store          meta.Store
	Logger         *zerolog.Logger
	SupportedTypes []string
}

func (c *Catalog) logger() *zerolog.Logger {
	return obs.OrNop(c.Logger)
}

func (c *Catalog) store() (meta.Store, error) {
	if c == nil || c.Store == nil {
		return nil, ErrStoreMissing
	}
	return c.Store, nil
}

// Supports reports whether products of the given type may carry subscription schemes.
func (c *Catalog) Supports(productType string) bool {
	types := DefaultSupportedTypes
	if c != nil && len(c.SupportedTypes) > 0 {
		types = c.SupportedTypes
	}
	productType = strings.ToLower(strings.TrimSpace(productType))
	for _, t := range types {
		if t == productType {
			return true
		}
	}
	return false
}

func keyFor(scope scheme.Scope) string {
	if scope == scheme.ScopeCart {
		return KeyCartSchemes
	}
	return KeySchemes
}

// Load returns the schemes stored for owner at scope, ordered by position. Owners without
// schemes and values that cannot be decoded both yield an empty list.
func (c *Catalog) Load(ctx context.Context, owner string, scope scheme.Scope) ([]scheme.Scheme, error) {
	store, err := c.store()
	if err != nil {
		return nil, err
	}
	var records []scheme.Record
	found, err := getJSON(ctx, store, owner, keyFor(scope), &records)
	if errors.Is(err, errDecode) {
		c.logger().Warn().Err(err).Str("owner_id", owner).Msg("catalog: ignoring stored schemes")
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	list := scheme.Normalize(records, scheme.Options{Scope: scope, Rejected: c.rejected(owner)})
	if obs.CatalogLoads != nil {
		obs.CatalogLoads.WithLabelValues(string(scope)).Inc()
	}
	return list, nil
}

// LoadCart returns the site-wide cart-level schemes.
func (c *Catalog) LoadCart(ctx context.Context) ([]scheme.Scheme, error) {
	return c.Load(ctx, SiteOwner, scheme.ScopeCart)
}

// LoadVariation returns the schemes of a variation, falling back to its parent product when
// the variation defines none.
func (c *Catalog) LoadVariation(ctx context.Context, variation, parent string) ([]scheme.Scheme, error) {
	list, err := c.Load(ctx, variation, scheme.ScopeCartItem)
	if err != nil || len(list) > 0 || parent == "" || parent == variation {
		return list, err
	}
	return c.Load(ctx, parent, scheme.ScopeCartItem)
}

// Settings returns the subscription options of a product. Missing values read as defaults.
func (c *Catalog) Settings(ctx context.Context, owner string) (Settings, error) {
	store, err := c.store()
	if err != nil {
		return Settings{}, err
	}
	var out Settings
	raw, found, err := store.Get(ctx, owner, KeyForceSubscription)
	if err != nil {
		return Settings{}, err
	}
	out.ForceSubscription = found && string(raw) == "yes"

	raw, found, err = store.Get(ctx, owner, KeyDefaultStatus)
	if err != nil {
		return Settings{}, err
	}
	if found && resolver.DefaultStatus(raw) == resolver.DefaultSubscription {
		out.DefaultStatus = resolver.DefaultSubscription
	} else {
		out.DefaultStatus = resolver.DefaultOneTime
	}

	raw, found, err = store.Get(ctx, owner, KeyPrompt)
	if err != nil {
		return Settings{}, err
	}
	if found {
		out.Prompt = string(raw)
	}
	return out, nil
}

// SaveProduct normalises posted records and stores them with the product settings. Products
// of unsupported types lose every subscription key. Posting nothing removes the schemes.
func (c *Catalog) SaveProduct(ctx context.Context, owner, productType string, posted []scheme.Record, settings Settings) ([]scheme.Scheme, error) {
	store, err := c.store()
	if err != nil {
		return nil, err
	}
	if !c.Supports(productType) {
		c.logger().Debug().Str("owner_id", owner).Str("product_type", productType).Msg("catalog: clearing schemes of unsupported product")
		return nil, deleteKeys(ctx, store, owner, KeySchemes, KeyForceSubscription, KeyDefaultStatus, KeyPrompt)
	}

	list := scheme.Normalize(posted, scheme.Options{
		Scope:       scheme.ScopeCartItem,
		ProductType: strings.ToLower(strings.TrimSpace(productType)),
		Rejected:    c.rejected(owner),
	})
	if len(list) > 0 {
		if err := putJSON(ctx, store, owner, KeySchemes, scheme.Records(list)); err != nil {
			return nil, err
		}
	} else if err := deleteKeys(ctx, store, owner, KeySchemes); err != nil {
		return nil, err
	}

	if settings.DefaultStatus != "" {
		if err := store.Put(ctx, owner, KeyDefaultStatus, []byte(settings.DefaultStatus)); err != nil {
			return nil, err
		}
	}
	force := "no"
	if settings.ForceSubscription {
		force = "yes"
	}
	if err := store.Put(ctx, owner, KeyForceSubscription, []byte(force)); err != nil {
		return nil, err
	}
	if prompt := strings.TrimSpace(settings.Prompt); prompt != "" {
		if err := store.Put(ctx, owner, KeyPrompt, []byte(prompt)); err != nil {
			return nil, err
		}
	} else if err := deleteKeys(ctx, store, owner, KeyPrompt); err != nil {
		return nil, err
	}
	return list, nil
}

// SaveCart normalises and stores the site-wide cart-level schemes.
func (c *Catalog) SaveCart(ctx context.Context, posted []scheme.Record) ([]scheme.Scheme, error) {
	store, err := c.store()
	if err != nil {
		return nil, err
	}
	list := scheme.Normalize(posted, scheme.Options{Scope: scheme.ScopeCart, Rejected: c.rejected(SiteOwner)})
	if len(list) == 0 {
		return nil, deleteKeys(ctx, store, SiteOwner, KeyCartSchemes)
	}
	return list, putJSON(ctx, store, SiteOwner, KeyCartSchemes, scheme.Records(list))
}

func (c *Catalog) rejected(owner string) func(scheme.Record, error) {
	return func(rec scheme.Record, err error) {
		c.logger().Debug().Err(err).Str("owner_id", owner).Str("period", rec.Period).Msg("catalog: dropping scheme record")
	}
}
