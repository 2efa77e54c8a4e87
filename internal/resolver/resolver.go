package resolver

import (
	"github.com/noah-isme/toko-subscribe/internal/scheme"
)

// Scope selects which scheme definitions SchemesFor returns.
type Scope string

const (
	ScopeAll      Scope = "all"
	ScopeCartItem Scope = Scope(scheme.ScopeCartItem)
	ScopeCart     Scope = Scope(scheme.ScopeCart)
)

func (s Scope) includes(other Scope) bool {
	return s == ScopeAll || s == other
}

// OfferStatus describes whether cart-level schemes can be offered as one grouped choice.
type OfferStatus int

const (
	// OfferNone means no cart-level schemes are defined and no item blocks them.
	OfferNone OfferStatus = iota
	// OfferBlocked means some item prevents a grouped choice.
	OfferBlocked
	// OfferAvailable means every item can follow one cart-level choice.
	OfferAvailable
)

func (s OfferStatus) String() string {
	switch s {
	case OfferBlocked:
		return "blocked"
	case OfferAvailable:
		return "available"
	default:
		return "none"
	}
}

// CartOffer is the result of CartLevelSchemes.
type CartOffer struct {
	Status  OfferStatus
	Schemes []scheme.Scheme
	// BlockedBy is the key of the first item that blocked the offer.
	BlockedBy string
}

// Available reports whether the cart-level schemes can be offered for the whole cart.
func (o CartOffer) Available() bool {
	return o.Status == OfferAvailable
}

// Config holds site-wide settings that influence default selection.
type Config struct {
	// CartSubscriptionByDefault preselects the first cart-level scheme when the shopper
	// has not chosen anything yet.
	CartSubscriptionByDefault bool
}

// Hooks are optional extension points invoked at fixed steps of resolution.
type Hooks struct {
	// Schemes may rewrite the schemes found for an item at a scope.
	Schemes func(item Item, scope Scope, found []scheme.Scheme) []scheme.Scheme
	// DefaultSchemeID may replace the default scheme id picked for an item.
	DefaultSchemeID func(item Item, offer CartOffer, id string) string
}

// Resolver decides which schemes apply to a cart and its items. It holds no state; every
// call is a function of the cart passed in, the config and the hooks.
type Resolver struct {
	Config Config
	Hooks  Hooks
}

// SchemesFor returns the schemes an item is eligible for at the requested scope:
// product-level schemes first, then cart-level ones. Items that are not convertible or
// whose product type is unsupported get nothing.
func (r Resolver) SchemesFor(cart Cart, item Item, scope Scope) []scheme.Scheme {
	var out []scheme.Scheme
	if item.Eligible() {
		if scope.includes(ScopeCartItem) {
			out = append(out, scheme.Tag(item.Schemes, scheme.ScopeCartItem)...)
		}
		if scope.includes(ScopeCart) {
			out = append(out, scheme.Tag(cart.Schemes, scheme.ScopeCart)...)
		}
	}
	if r.Hooks.Schemes != nil {
		out = r.Hooks.Schemes(item, scope, out)
	}
	return out
}

// EligibleSchemes joins the item-scope and cart-scope lists SchemesFor returns, keeping the
// first scheme of each id. Every option an item line can present is in this list.
func (r Resolver) EligibleSchemes(cart Cart, item Item) []scheme.Scheme {
	own := r.SchemesFor(cart, item, ScopeCartItem)
	shared := r.SchemesFor(cart, item, ScopeCart)
	out := make([]scheme.Scheme, 0, len(own)+len(shared))
	seen := make(map[string]struct{}, len(own)+len(shared))
	for _, list := range [][]scheme.Scheme{own, shared} {
		for _, s := range list {
			id := s.ID()
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, s)
		}
	}
	return out
}

// CartLevelSchemes returns the cart-level schemes when they can be offered for the whole
// cart. Any item that is not convertible, has an unsupported product type or carries its
// own product-level schemes blocks the offer for every item, whether or not cart-level
// schemes are defined.
func (r Resolver) CartLevelSchemes(cart Cart) CartOffer {
	for _, it := range cart.Items {
		if !it.Eligible() {
			return CartOffer{Status: OfferBlocked, BlockedBy: it.Key}
		}
		if len(r.SchemesFor(cart, it, ScopeCartItem)) > 0 {
			return CartOffer{Status: OfferBlocked, BlockedBy: it.Key}
		}
	}
	if len(cart.Schemes) == 0 {
		return CartOffer{Status: OfferNone}
	}
	return CartOffer{Status: OfferAvailable, Schemes: scheme.Tag(cart.Schemes, scheme.ScopeCart)}
}

// CartItemSchemes returns the options presented on an item's own line. While a grouped
// cart-level choice is available nothing is shown per item. Otherwise the item's own
// schemes are shown, falling back to the cart-level schemes one item at a time.
func (r Resolver) CartItemSchemes(cart Cart, item Item) []scheme.Scheme {
	return r.cartItemSchemes(cart, item, r.CartLevelSchemes(cart))
}

func (r Resolver) cartItemSchemes(cart Cart, item Item, offer CartOffer) []scheme.Scheme {
	if offer.Available() {
		return nil
	}
	list := r.SchemesFor(cart, item, ScopeCartItem)
	if len(list) == 0 {
		list = r.SchemesFor(cart, item, ScopeCart)
	}
	return list
}

// DefaultCartSchemeID picks the cart-level selection: the remembered one, else the first
// cart-level scheme when subscribing is the site default, else one-time purchase.
func (r Resolver) DefaultCartSchemeID(cart Cart) string {
	if cart.ActiveSchemeID != "" {
		return cart.ActiveSchemeID
	}
	if r.Config.CartSubscriptionByDefault && len(cart.Schemes) > 0 {
		return cart.Schemes[0].ID()
	}
	return scheme.OneTimeID
}

// DefaultSchemeID returns the scheme id an item should be bought with. When the cart-level
// offer is available the cart selection applies to every item. Otherwise the item's
// remembered selection wins, then the first presented option for products that force or
// default to subscription, then one-time purchase.
func (r Resolver) DefaultSchemeID(cart Cart, item Item) string {
	return r.defaultSchemeID(cart, item, r.CartLevelSchemes(cart))
}

func (r Resolver) defaultSchemeID(cart Cart, item Item, offer CartOffer) string {
	var id string
	switch {
	case offer.Available():
		id = r.DefaultCartSchemeID(cart)
	case item.ActiveSchemeID != "":
		id = item.ActiveSchemeID
	default:
		id = scheme.OneTimeID
		if item.ForceSubscription || item.DefaultStatus == DefaultSubscription {
			if list := r.cartItemSchemes(cart, item, offer); len(list) > 0 {
				id = list[0].ID()
			}
		}
	}
	if r.Hooks.DefaultSchemeID != nil {
		id = r.Hooks.DefaultSchemeID(item, offer, id)
	}
	return id
}

// ActiveScheme returns the scheme the item is currently bought with, looked up in
// EligibleSchemes. It reports false for one-time purchases and for ids
// that do not resolve.
func (r Resolver) ActiveScheme(cart Cart, item Item) (scheme.Scheme, bool) {
	return r.activeScheme(cart, item, r.CartLevelSchemes(cart))
}

func (r Resolver) activeScheme(cart Cart, item Item, offer CartOffer) (scheme.Scheme, bool) {
	id := r.defaultSchemeID(cart, item, offer)
	return scheme.Find(r.EligibleSchemes(cart, item), id)
}
