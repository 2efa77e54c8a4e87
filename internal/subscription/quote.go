package subscription

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/toko-subscribe/internal/cartplan"
	"github.com/noah-isme/toko-subscribe/internal/installment"
	"github.com/noah-isme/toko-subscribe/internal/obs"
	"github.com/noah-isme/toko-subscribe/internal/resolver"
	"github.com/noah-isme/toko-subscribe/internal/scheme"
)

// ItemQuote is the price and payment plan of one cart line under its active scheme.
type ItemQuote struct {
	Key      string
	SchemeID string
	// UnitPrice is the price per unit in effect, after scheme pricing for converted items.
	UnitPrice decimal.Decimal
	Amount    decimal.Decimal
	// Schedule is empty for one-time purchases and unbounded schemes.
	Schedule installment.Schedule
}

// Quote is a resolved cart with prices and installment plans.
type Quote struct {
	Resolution resolver.Resolution
	Items      []ItemQuote
	// Totals is the amount due per installment over every item with a schedule.
	Totals cartplan.Totals
}

// Item returns the quote of the line with the given key.
func (q Quote) Item(key string) (ItemQuote, bool) {
	for _, it := range q.Items {
		if it.Key == key {
			return it, true
		}
	}
	return ItemQuote{}, false
}

// Quote resolves the cart and prices every line under its active scheme. Lines bought on a
// fixed-length scheme get an installment schedule; the cart totals sum those schedules by
// installment position.
func (s *Service) Quote(ctx context.Context, in CartInput) (Quote, error) {
	res, cart, err := s.Resolve(ctx, in)
	if err != nil {
		return Quote{}, err
	}
	priced := s.priced(cart, res)
	agg := cartplan.Aggregator{Resolver: s.Resolver, Calculator: s.Calculator}

	q := Quote{Resolution: res, Items: make([]ItemQuote, 0, len(res.Items))}
	var schedules []installment.Schedule
	for _, ir := range res.Items {
		item, _ := priced.Item(ir.Key)
		iq := ItemQuote{Key: ir.Key, SchemeID: ir.ActiveSchemeID, UnitPrice: item.UnitPrice(), Amount: item.Amount()}
		if ir.Conversion.Converted && ir.Conversion.Length > 0 {
			sched, err := agg.ItemSchedule(priced, ir.Conversion.SchemeID, ir.Key)
			switch {
			case errors.Is(err, installment.ErrUnavailable):
				obs.ObserveSplit("unavailable")
			case err != nil:
				return Quote{}, err
			default:
				iq.Schedule = sched
				schedules = append(schedules, sched)
				obs.ObserveSplit(splitPath(sched))
			}
		}
		q.Items = append(q.Items, iq)
	}
	q.Totals = cartplan.Sum(schedules...)
	return q, nil
}

// priced returns a copy of cart whose converted items carry the prices of their active scheme.
func (s *Service) priced(cart resolver.Cart, res resolver.Resolution) resolver.Cart {
	out := cart
	out.Items = make([]resolver.Item, len(cart.Items))
	copy(out.Items, cart.Items)
	for i, item := range out.Items {
		ir, ok := res.Item(item.Key)
		if !ok || !ir.Conversion.Converted {
			continue
		}
		active, ok := scheme.Find(s.Resolver.EligibleSchemes(cart, item), ir.Conversion.SchemeID)
		if !ok {
			continue
		}
		out.Items[i].RegularPrice, out.Items[i].SalePrice = active.Prices(item.RegularPrice, item.SalePrice)
	}
	return out
}

func splitPath(sched installment.Schedule) string {
	if sched.Deposit {
		return "deposit"
	}
	return "flat"
}
