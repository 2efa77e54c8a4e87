package installment

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/toko-subscribe/internal/scheme"
)

// ErrUnavailable is returned when no schedule can be produced for the requested scheme.
var ErrUnavailable = errors.New("installment: schedule unavailable")

// divPrecision keeps enough digits on the per-cycle quotient for the half-down rounding
// step to see the true value rather than an already rounded one.
const divPrecision int32 = 24

var hundred = decimal.NewFromInt(100)

// Schedule is an ordered list of payments. Installments are numbered from 1.
type Schedule struct {
	Payments []decimal.Decimal
	// Deposit is set when the first payment is an initial deposit rather than a regular cycle.
	Deposit bool
}

// Len returns the number of installments.
func (s Schedule) Len() int {
	return len(s.Payments)
}

// At returns installment k (1-based). Out of range indexes yield zero.
func (s Schedule) At(k int) decimal.Decimal {
	if k < 1 || k > len(s.Payments) {
		return decimal.Zero
	}
	return s.Payments[k-1]
}

// Total sums every installment.
func (s Schedule) Total() decimal.Decimal {
	total := decimal.Zero
	for _, p := range s.Payments {
		total = total.Add(p)
	}
	return total
}

// Calculator splits an amount into the installments of a fixed-length scheme.
type Calculator struct {
	// InitialPercent is the minimum initial payment as a percentage of the amount.
	// Zero disables the deposit schedule.
	InitialPercent decimal.Decimal
}

func (c Calculator) initialPercent() decimal.Decimal {
	pct := c.InitialPercent
	if pct.IsNegative() {
		return decimal.Zero
	}
	if pct.GreaterThan(hundred) {
		return hundred
	}
	return pct
}

// SplitByID looks id up in list and splits amount against it.
func (c Calculator) SplitByID(list []scheme.Scheme, id string, amount decimal.Decimal) (Schedule, error) {
	s, ok := scheme.Find(list, id)
	if !ok {
		return Schedule{}, fmt.Errorf("%w: scheme %q not found", ErrUnavailable, id)
	}
	return c.Split(s, amount)
}

// Split divides amount into s.Length payments.
//
// Each cycle gets amount/n rounded half-down to cents. When a minimum initial percentage
// is configured and the resulting deposit exceeds that per-cycle installment, the deposit
// becomes the first payment and the rest of the amount is spread over the remaining n-1
// cycles. Whatever rounding left over is added to the first payment. If the first payment
// still ends up lower than the second, one cent is taken from every payment and the total
// of those cents is given back to the first. That correction runs once; it is not a sort.
func (c Calculator) Split(s scheme.Scheme, amount decimal.Decimal) (Schedule, error) {
	n := s.Length
	if n <= 0 {
		return Schedule{}, fmt.Errorf("%w: scheme %s has no fixed length", ErrUnavailable, s.ID())
	}
	if amount.IsNegative() {
		return Schedule{}, fmt.Errorf("%w: negative amount %s", ErrUnavailable, amount)
	}
	amount = Money(amount)

	cycles := n
	installment := Money(amount.DivRound(decimal.NewFromInt(int64(cycles)), divPrecision))
	remainder := amount.Sub(installment.Mul(decimal.NewFromInt(int64(cycles))))

	payments := make([]decimal.Decimal, 0, n)
	deposit := false
	// A single-cycle plan has no remaining cycles to spread over.
	if pct := c.initialPercent(); pct.IsPositive() && n > 1 {
		initial := Money(amount.Mul(pct).Div(hundred))
		if initial.GreaterThan(installment) {
			cycles = n - 1
			rest := amount.Sub(initial)
			installment = Money(rest.DivRound(decimal.NewFromInt(int64(cycles)), divPrecision))
			remainder = rest.Sub(installment.Mul(decimal.NewFromInt(int64(cycles))))
			payments = append(payments, initial)
			deposit = true
		}
	}
	for i := 0; i < cycles; i++ {
		payments = append(payments, installment)
	}

	payments[0] = payments[0].Add(remainder)

	if len(payments) > 1 && payments[0].LessThan(payments[1]) {
		reduction := decimal.Zero
		for i := range payments {
			payments[i] = payments[i].Sub(Cent)
			reduction = reduction.Add(Cent)
		}
		payments[0] = payments[0].Add(reduction)
	}

	return Schedule{Payments: payments, Deposit: deposit}, nil
}
