package installment

import "github.com/shopspring/decimal"

// Places is the number of decimal places every monetary value is rounded to.
const Places int32 = 2

// Cent is the smallest monetary step.
var Cent = decimal.New(1, -Places)

// RoundHalfDown rounds d to the given number of places. A value exactly halfway between
// two steps is rounded toward zero.
func RoundHalfDown(d decimal.Decimal, places int32) decimal.Decimal {
	truncated := d.Truncate(places)
	rest := d.Sub(truncated).Abs()
	half := decimal.New(5, -(places + 1))
	if !rest.GreaterThan(half) {
		return truncated
	}
	step := decimal.New(1, -places)
	if d.IsNegative() {
		return truncated.Sub(step)
	}
	return truncated.Add(step)
}

// Money rounds d half-down to two decimal places.
func Money(d decimal.Decimal) decimal.Decimal {
	return RoundHalfDown(d, Places)
}
