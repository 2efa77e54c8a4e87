package scheme

import "github.com/shopspring/decimal"

// UnitPrice returns the sale price when present, otherwise the regular price.
func UnitPrice(regular, sale decimal.NullDecimal) decimal.Decimal {
	if sale.Valid {
		return sale.Decimal
	}
	if regular.Valid {
		return regular.Decimal
	}
	return decimal.Zero
}

// Prices returns the regular and sale price charged for a subscription to s, given the
// product's own prices. Override schemes replace the product prices; inherit schemes keep
// them and apply the scheme discount, if any.
func (s Scheme) Prices(regular, sale decimal.NullDecimal) (decimal.NullDecimal, decimal.NullDecimal) {
	if s.PricingMethod == PricingOverride && (s.RegularPrice.Valid || s.SalePrice.Valid) {
		return s.RegularPrice, s.SalePrice
	}
	if !s.Discount.Valid || s.Discount.Decimal.IsZero() {
		return regular, sale
	}
	return s.discounted(regular), s.discounted(sale)
}

// Price returns the effective unit price of a subscription to s.
func (s Scheme) Price(regular, sale decimal.NullDecimal) decimal.Decimal {
	r, sp := s.Prices(regular, sale)
	return UnitPrice(r, sp)
}

func (s Scheme) discounted(p decimal.NullDecimal) decimal.NullDecimal {
	if !p.Valid {
		return p
	}
	factor := hundred.Sub(s.Discount.Decimal).Div(hundred)
	return decimal.NewNullDecimal(p.Decimal.Mul(factor).Round(2))
}
