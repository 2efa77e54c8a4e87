package resolver

import "github.com/noah-isme/toko-subscribe/internal/scheme"

// Conversion describes how an item is turned into a subscription line.
type Conversion struct {
	Converted      bool
	SchemeID       string
	Period         scheme.Period
	PeriodInterval int
	Length         int
}

// ItemResolution is the outcome of resolving one cart item.
type ItemResolution struct {
	Key string
	// Options are the schemes presented on the item's own line.
	Options        []scheme.Scheme
	ActiveSchemeID string
	Conversion     Conversion
}

// Resolution is the outcome of resolving a whole cart.
type Resolution struct {
	Offer CartOffer
	// CartSchemeID is the grouped cart-level selection; empty when no offer is available.
	CartSchemeID string
	Items        []ItemResolution
}

// Item returns the resolution of the item with the given key.
func (r Resolution) Item(key string) (ItemResolution, bool) {
	for _, it := range r.Items {
		if it.Key == key {
			return it, true
		}
	}
	return ItemResolution{}, false
}

// Resolve evaluates the cart offer, the presented options, the default selection and the
// conversion of every item in one pass.
func (r Resolver) Resolve(cart Cart) Resolution {
	offer := r.CartLevelSchemes(cart)
	res := Resolution{Offer: offer, Items: make([]ItemResolution, 0, len(cart.Items))}
	if offer.Available() {
		res.CartSchemeID = r.DefaultCartSchemeID(cart)
	}
	for _, it := range cart.Items {
		ir := ItemResolution{
			Key:            it.Key,
			Options:        r.cartItemSchemes(cart, it, offer),
			ActiveSchemeID: r.defaultSchemeID(cart, it, offer),
		}
		ir.Conversion = r.conversion(cart, it, offer)
		res.Items = append(res.Items, ir)
	}
	return res
}

// Conversion reports whether the item is bought as a subscription and with which billing
// terms. Items without a resolvable active scheme stay one-time purchases.
func (r Resolver) Conversion(cart Cart, item Item) Conversion {
	return r.conversion(cart, item, r.CartLevelSchemes(cart))
}

func (r Resolver) conversion(cart Cart, item Item, offer CartOffer) Conversion {
	active, ok := r.activeScheme(cart, item, offer)
	if !ok {
		return Conversion{}
	}
	return Conversion{
		Converted:      true,
		SchemeID:       active.ID(),
		Period:         active.Period,
		PeriodInterval: active.PeriodInterval,
		Length:         active.Length,
	}
}

// Selectable reports whether id is an acceptable choice for the item. Nothing is selectable
// per item while the grouped cart-level offer is available. One-time purchase is refused
// for products that force a subscription and have options to pick from.
func (r Resolver) Selectable(cart Cart, item Item, id string) bool {
	if !item.Eligible() {
		return false
	}
	offer := r.CartLevelSchemes(cart)
	if offer.Available() {
		return false
	}
	options := r.cartItemSchemes(cart, item, offer)
	if id == scheme.OneTimeID {
		return !(item.ForceSubscription && len(options) > 0)
	}
	_, ok := scheme.Find(r.EligibleSchemes(cart, item), id)
	return ok
}
