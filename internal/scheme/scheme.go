package scheme

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// OneTimeID is the active scheme id of a cart item bought as a one-off purchase.
const OneTimeID = "0"

// Scope tells whether a scheme was defined on a product or for the whole cart.
type Scope string

const (
	ScopeCartItem Scope = "cart-item"
	ScopeCart     Scope = "cart"
)

// Period is the billing period unit.
type Period string

const (
	PeriodDay   Period = "day"
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
	PeriodYear  Period = "year"
)

// Valid reports whether p is one of the supported billing periods.
func (p Period) Valid() bool {
	switch p {
	case PeriodDay, PeriodWeek, PeriodMonth, PeriodYear:
		return true
	default:
		return false
	}
}

// PricingMethod controls how a subscription price is derived from the product price.
type PricingMethod string

const (
	PricingInherit  PricingMethod = "inherit"
	PricingOverride PricingMethod = "override"
)

// Scheme is a recurring-payment plan definition.
type Scheme struct {
	Scope          Scope               `json:"scope,omitempty"`
	PeriodInterval int                 `json:"period_interval"`
	Period         Period              `json:"period"`
	Length         int                 `json:"length"`
	PricingMethod  PricingMethod       `json:"pricing_method,omitempty"`
	RegularPrice   decimal.NullDecimal `json:"regular_price"`
	SalePrice      decimal.NullDecimal `json:"sale_price"`
	Discount       decimal.NullDecimal `json:"discount"`
	Position       int                 `json:"position"`
}

// ID returns the composite identifier of the scheme. It is derived from the
// billing fields on every call and never stored.
func (s Scheme) ID() string {
	return ID(s.PeriodInterval, s.Period, s.Length)
}

// ID builds the composite scheme identifier {interval}_{period}_{length}.
func ID(interval int, period Period, length int) string {
	return strconv.Itoa(interval) + "_" + string(period) + "_" + strconv.Itoa(length)
}

// Bounded reports whether the scheme has a fixed number of billing cycles.
func (s Scheme) Bounded() bool {
	return s.Length > 0
}

// WithScope returns a copy of s tagged with the provided scope.
func (s Scheme) WithScope(scope Scope) Scheme {
	s.Scope = scope
	return s
}

// Find returns the first scheme in list whose id equals id.
func Find(list []Scheme, id string) (Scheme, bool) {
	if id == "" || id == OneTimeID {
		return Scheme{}, false
	}
	for _, s := range list {
		if s.ID() == id {
			return s, true
		}
	}
	return Scheme{}, false
}

// IDs lists the ids of the given schemes in order.
func IDs(list []Scheme) []string {
	if len(list) == 0 {
		return nil
	}
	out := make([]string, 0, len(list))
	for _, s := range list {
		out = append(out, s.ID())
	}
	return out
}

// Tag returns a copy of list with every scheme tagged with scope.
func Tag(list []Scheme, scope Scope) []Scheme {
	if len(list) == 0 {
		return nil
	}
	out := make([]Scheme, len(list))
	for i, s := range list {
		out[i] = s.WithScope(scope)
	}
	return out
}

// ParseID splits a composite id back into its billing fields. Only the billing fields are
// set on the returned scheme.
func ParseID(id string) (Scheme, bool) {
	parts := strings.Split(id, "_")
	if len(parts) != 3 {
		return Scheme{}, false
	}
	interval, err := strconv.Atoi(parts[0])
	if err != nil || interval <= 0 {
		return Scheme{}, false
	}
	length, err := strconv.Atoi(parts[2])
	if err != nil || length < 0 {
		return Scheme{}, false
	}
	period := Period(parts[1])
	if !period.Valid() {
		return Scheme{}, false
	}
	return Scheme{PeriodInterval: interval, Period: period, Length: length, PricingMethod: PricingInherit}, true
}
