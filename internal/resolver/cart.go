package resolver

import (
	"github.com/shopspring/decimal"

	"github.com/noah-isme/toko-subscribe/internal/scheme"
)

// DefaultStatus is the product-level preference between one-time and subscription purchase.
type DefaultStatus string

const (
	DefaultOneTime      DefaultStatus = "one-time"
	DefaultSubscription DefaultStatus = "subscription"
)

// Item is one line of the cart together with the product data resolution needs.
type Item struct {
	Key          string
	ProductID    string
	VariationID  string
	Quantity     int
	RegularPrice decimal.NullDecimal
	SalePrice    decimal.NullDecimal
	// Convertible is false for legacy subscription products; those cannot switch
	// between one-time and subscription purchase.
	Convertible bool
	// Unsupported marks products whose type cannot be sold on a scheme.
	Unsupported bool
	// Schemes holds the product-level schemes of the item's product or variation.
	Schemes           []scheme.Scheme
	ForceSubscription bool
	DefaultStatus     DefaultStatus
	// ActiveSchemeID is the selection remembered from a prior request. Empty means nothing
	// was selected yet; scheme.OneTimeID means one-time purchase.
	ActiveSchemeID string
}

// Eligible reports whether the item can be bought on a scheme at all.
func (it Item) Eligible() bool {
	return it.Convertible && !it.Unsupported
}

// UnitPrice returns the sale price if present, otherwise the regular price.
func (it Item) UnitPrice() decimal.Decimal {
	return scheme.UnitPrice(it.RegularPrice, it.SalePrice)
}

// Amount returns unit price times quantity.
func (it Item) Amount() decimal.Decimal {
	qty := it.Quantity
	if qty < 0 {
		qty = 0
	}
	return it.UnitPrice().Mul(decimal.NewFromInt(int64(qty)))
}

// Cart is the input to every resolution call.
type Cart struct {
	Items []Item
	// Schemes holds the site-wide cart-level schemes.
	Schemes []scheme.Scheme
	// ActiveSchemeID is the shopper's remembered cart-level selection; empty when none.
	ActiveSchemeID string
}

// Item returns the cart item with the given key.
func (c Cart) Item(key string) (Item, bool) {
	for _, it := range c.Items {
		if it.Key == key {
			return it, true
		}
	}
	return Item{}, false
}
