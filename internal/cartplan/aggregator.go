package cartplan

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/toko-subscribe/internal/installment"
	"github.com/noah-isme/toko-subscribe/internal/resolver"
	"github.com/noah-isme/toko-subscribe/internal/scheme"
)

var (
	// ErrUnavailable is returned when no item of the cart can be split against the scheme.
	ErrUnavailable = errors.New("cartplan: schedule unavailable")
	// ErrItemNotFound is returned when the requested cart item key does not exist.
	ErrItemNotFound = errors.New("cartplan: item not found")
)

// Totals holds the cart-wide amount due at each installment. Installments are numbered from 1.
type Totals []decimal.Decimal

// Len returns the number of installments.
func (t Totals) Len() int { return len(t) }

// At returns the total of installment k (1-based). Out of range indexes yield zero.
func (t Totals) At(k int) decimal.Decimal {
	if k < 1 || k > len(t) {
		return decimal.Zero
	}
	return t[k-1]
}

// Sum returns the total over every installment.
func (t Totals) Sum() decimal.Decimal {
	sum := decimal.Zero
	for _, v := range t {
		sum = sum.Add(v)
	}
	return sum
}

// Map returns the totals keyed by 1-based installment index.
func (t Totals) Map() map[int]decimal.Decimal {
	out := make(map[int]decimal.Decimal, len(t))
	for i, v := range t {
		out[i+1] = v
	}
	return out
}

// Sum adds schedules installment by installment. Installment k of the result is the sum of
// installment k of every schedule that has one.
func Sum(schedules ...installment.Schedule) Totals {
	var out Totals
	for _, sched := range schedules {
		out = out.add(sched)
	}
	return out
}

func (t Totals) add(sched installment.Schedule) Totals {
	for k := 1; k <= sched.Len(); k++ {
		if k > len(t) {
			t = append(t, decimal.Zero)
		}
		t[k-1] = t[k-1].Add(sched.At(k))
	}
	return t
}

// Plan is the cart schedule together with the per-item schedules it was built from.
type Plan struct {
	SchemeID string
	Totals   Totals
	Items    map[string]installment.Schedule
	// Skipped lists keys of items the scheme does not apply to.
	Skipped []string
}

// Aggregator combines per-item installment schedules into a cart schedule.
type Aggregator struct {
	Resolver   resolver.Resolver
	Calculator installment.Calculator
}

// ItemSchedule splits the amount of one cart item (unit price times quantity) against the
// scheme with the given id, looked up among the schemes the item is eligible for.
func (a Aggregator) ItemSchedule(cart resolver.Cart, schemeID, key string) (installment.Schedule, error) {
	item, ok := cart.Item(key)
	if !ok {
		return installment.Schedule{}, fmt.Errorf("%w: %s", ErrItemNotFound, key)
	}
	return a.itemSchedule(cart, item, schemeID)
}

func (a Aggregator) itemSchedule(cart resolver.Cart, item resolver.Item, schemeID string) (installment.Schedule, error) {
	list := a.Resolver.EligibleSchemes(cart, item)
	s, ok := scheme.Find(list, schemeID)
	if !ok {
		return installment.Schedule{}, fmt.Errorf("%w: scheme %q does not apply to item %s", installment.ErrUnavailable, schemeID, item.Key)
	}
	return a.Calculator.Split(s, item.Amount())
}

// CartSchedule sums the per-item schedules installment by installment. Items are aligned by
// position: installment k of the cart is the sum of installment k of every item that has one.
// Items the scheme does not apply to are skipped. ErrUnavailable is returned when no item
// could be split.
func (a Aggregator) CartSchedule(cart resolver.Cart, schemeID string) (Totals, error) {
	plan, err := a.Plan(cart, schemeID)
	if err != nil {
		return nil, err
	}
	return plan.Totals, nil
}

// Plan builds the cart schedule and keeps every item's own schedule alongside it.
func (a Aggregator) Plan(cart resolver.Cart, schemeID string) (Plan, error) {
	plan := Plan{SchemeID: schemeID, Items: make(map[string]installment.Schedule, len(cart.Items))}
	for _, it := range cart.Items {
		sched, err := a.itemSchedule(cart, it, schemeID)
		if err != nil {
			if errors.Is(err, installment.ErrUnavailable) {
				plan.Skipped = append(plan.Skipped, it.Key)
				continue
			}
			return Plan{}, err
		}
		plan.Items[it.Key] = sched
		plan.Totals = plan.Totals.add(sched)
	}
	if len(plan.Items) == 0 {
		return Plan{}, fmt.Errorf("%w: scheme %q", ErrUnavailable, schemeID)
	}
	return plan, nil
}
