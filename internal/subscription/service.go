package subscription

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/toko-subscribe/internal/catalog"
	"github.com/noah-isme/toko-subscribe/internal/installment"
	"github.com/noah-isme/toko-subscribe/internal/obs"
	"github.com/noah-isme/toko-subscribe/internal/resolver"
	"github.com/noah-isme/toko-subscribe/internal/scheme"
	"github.com/noah-isme/toko-subscribe/internal/session"
)

var (
	// ErrInvalidScheme is returned when a selection does not match any scheme the shopper can pick.
	ErrInvalidScheme = errors.New("subscription: scheme not selectable")
	// ErrItemNotFound is returned when a selection targets an item that is not in the cart.
	ErrItemNotFound = errors.New("subscription: cart item not found")
	// ErrNotConfigured is returned when the service is missing a dependency.
	ErrNotConfigured = errors.New("subscription: service not configured")
)

// Line is a cart line as known to the storefront, before subscription data is attached.
type Line struct {
	Key         string
	ProductID   string
	VariationID string
	ProductType string
	Quantity    int
	// Prices are the product's own prices.
	RegularPrice decimal.NullDecimal
	SalePrice    decimal.NullDecimal
	// LegacySubscription marks products that are subscriptions in their own right.
	LegacySubscription bool
}

// CartInput identifies a shopper session and its cart lines.
type CartInput struct {
	SessionID string
	Lines     []Line
}

// Service answers cart subscription questions. Scheme definitions and product settings are
// read from the catalog on every call; remembered selections come from the session store.
type Service struct {
	Catalog    *catalog.Catalog
	Sessions   session.Store
	Resolver   resolver.Resolver
	Calculator installment.Calculator
	Logger     *zerolog.Logger
}

func (s *Service) ready() error {
	if s == nil || s.Catalog == nil || s.Sessions == nil {
		return ErrNotConfigured
	}
	return nil
}

// Cart assembles the resolver input for a shopper: product and cart-level schemes, product
// settings and the remembered selections.
func (s *Service) Cart(ctx context.Context, in CartInput) (resolver.Cart, error) {
	if err := s.ready(); err != nil {
		return resolver.Cart{}, err
	}
	cartSchemes, err := s.Catalog.LoadCart(ctx)
	if err != nil {
		return resolver.Cart{}, fmt.Errorf("load cart schemes: %w", err)
	}
	remembered, err := s.Sessions.Get(ctx, in.SessionID, session.KeyCartScheme, "")
	if err != nil && !errors.Is(err, session.ErrNoSession) {
		return resolver.Cart{}, fmt.Errorf("read cart selection: %w", err)
	}
	cart := resolver.Cart{Schemes: cartSchemes, ActiveSchemeID: remembered, Items: make([]resolver.Item, 0, len(in.Lines))}
	for _, line := range in.Lines {
		item, err := s.item(ctx, in.SessionID, line)
		if err != nil {
			return resolver.Cart{}, err
		}
		cart.Items = append(cart.Items, item)
	}
	return cart, nil
}

func (s *Service) item(ctx context.Context, sid string, line Line) (resolver.Item, error) {
	item := resolver.Item{
		Key:          line.Key,
		ProductID:    line.ProductID,
		VariationID:  line.VariationID,
		Quantity:     line.Quantity,
		RegularPrice: line.RegularPrice,
		SalePrice:    line.SalePrice,
		Convertible:  !line.LegacySubscription,
	}
	if !item.Convertible {
		return item, nil
	}
	if line.ProductType != "" && !s.Catalog.Supports(line.ProductType) {
		item.Unsupported = true
		return item, nil
	}

	var err error
	if line.VariationID != "" {
		item.Schemes, err = s.Catalog.LoadVariation(ctx, line.VariationID, line.ProductID)
	} else {
		item.Schemes, err = s.Catalog.Load(ctx, line.ProductID, scheme.ScopeCartItem)
	}
	if err != nil {
		return resolver.Item{}, fmt.Errorf("load schemes of %s: %w", line.Key, err)
	}
	settings, err := s.Catalog.Settings(ctx, line.ProductID)
	if err != nil {
		return resolver.Item{}, fmt.Errorf("load settings of %s: %w", line.Key, err)
	}
	item.ForceSubscription = settings.ForceSubscription
	item.DefaultStatus = settings.DefaultStatus

	item.ActiveSchemeID, err = s.Sessions.Get(ctx, sid, session.ItemKey(line.Key), "")
	if err != nil && !errors.Is(err, session.ErrNoSession) {
		return resolver.Item{}, fmt.Errorf("read selection of %s: %w", line.Key, err)
	}
	return item, nil
}

// Resolve evaluates the shopper's cart.
func (s *Service) Resolve(ctx context.Context, in CartInput) (resolver.Resolution, resolver.Cart, error) {
	cart, err := s.Cart(ctx, in)
	if err != nil {
		return resolver.Resolution{}, resolver.Cart{}, err
	}
	res := s.Resolver.Resolve(cart)
	if obs.ResolutionsTotal != nil {
		obs.ResolutionsTotal.WithLabelValues(res.Offer.Status.String()).Inc()
	}
	obs.OrNop(s.Logger).Debug().
		Str("offer", res.Offer.Status.String()).
		Str("blocked_by", res.Offer.BlockedBy).
		Int("items", len(res.Items)).
		Msg("subscription: cart resolved")
	return res, cart, nil
}

// SelectCartScheme remembers the shopper's cart-level choice. The id must be one-time
// purchase or one of the cart-level schemes.
func (s *Service) SelectCartScheme(ctx context.Context, sid, id string) error {
	if err := s.ready(); err != nil {
		return err
	}
	id = strings.TrimSpace(id)
	if id != scheme.OneTimeID {
		list, err := s.Catalog.LoadCart(ctx)
		if err != nil {
			return fmt.Errorf("load cart schemes: %w", err)
		}
		if _, ok := scheme.Find(list, id); !ok {
			obs.ObserveSelection("cart", false)
			return fmt.Errorf("%w: %q", ErrInvalidScheme, id)
		}
	}
	if err := s.Sessions.Set(ctx, sid, session.KeyCartScheme, id); err != nil {
		return fmt.Errorf("remember cart selection: %w", err)
	}
	obs.ObserveSelection("cart", true)
	return nil
}

// SelectItemScheme remembers the choice for one cart item. Legacy subscription products,
// ids the item cannot use and any choice made while the grouped cart-level offer is
// available are refused.
func (s *Service) SelectItemScheme(ctx context.Context, in CartInput, key, id string) error {
	cart, err := s.Cart(ctx, in)
	if err != nil {
		return err
	}
	item, ok := cart.Item(key)
	if !ok {
		return fmt.Errorf("%w: %s", ErrItemNotFound, key)
	}
	id = strings.TrimSpace(id)
	if !s.Resolver.Selectable(cart, item, id) {
		obs.ObserveSelection("item", false)
		return fmt.Errorf("%w: %q for item %s", ErrInvalidScheme, id, key)
	}
	if err := s.Sessions.Set(ctx, in.SessionID, session.ItemKey(key), id); err != nil {
		return fmt.Errorf("remember item selection: %w", err)
	}
	obs.ObserveSelection("item", true)
	return nil
}
