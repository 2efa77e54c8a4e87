package ledger

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/toko-subscribe/internal/installment"
	"github.com/noah-isme/toko-subscribe/internal/scheme"
)

// OrderKind distinguishes the order that started a plan from its follow-up payments.
type OrderKind string

const (
	KindParent  OrderKind = "parent"
	KindRenewal OrderKind = "renewal"
)

// OrderStatus is the lifecycle state of a payment order.
type OrderStatus string

const (
	OrderPending    OrderStatus = "pending"
	OrderProcessing OrderStatus = "processing"
	OrderOnHold     OrderStatus = "on-hold"
	OrderCompleted  OrderStatus = "completed"
	OrderCancelled  OrderStatus = "cancelled"
	OrderFailed     OrderStatus = "failed"
)

// Paid reports whether an order in this state counts toward the amount paid.
func (s OrderStatus) Paid() bool {
	switch s {
	case OrderProcessing, OrderCompleted, OrderOnHold:
		return true
	default:
		return false
	}
}

// PlanStatus is the lifecycle state of an installment plan.
type PlanStatus string

const (
	PlanActive    PlanStatus = "active"
	PlanOnHold    PlanStatus = "on-hold"
	PlanCompleted PlanStatus = "completed"
	PlanExpired   PlanStatus = "expired"
	PlanCancelled PlanStatus = "cancelled"
)

// Order is one payment order of a plan.
type Order struct {
	ID        uuid.UUID
	Kind      OrderKind
	Status    OrderStatus
	Total     decimal.Decimal
	Note      string
	CreatedAt time.Time
}

// Plan is a fixed-length installment subscription with its orders. Renewals are ordered by
// creation time.
type Plan struct {
	ID             uuid.UUID
	SchemeID       string
	Length         int
	Amount         decimal.Decimal
	InitialPercent decimal.Decimal
	Status         PlanStatus
	Parent         Order
	Renewals       []Order
}

// Orders returns the parent followed by every renewal.
func (p Plan) Orders() []Order {
	out := make([]Order, 0, len(p.Renewals)+1)
	out = append(out, p.Parent)
	return append(out, p.Renewals...)
}

// Schedule recomputes the installment schedule the plan was sold with.
func (p Plan) Schedule() (installment.Schedule, error) {
	s, ok := scheme.ParseID(p.SchemeID)
	if !ok {
		return installment.Schedule{}, fmt.Errorf("%w: malformed scheme id %q", installment.ErrUnavailable, p.SchemeID)
	}
	s.Length = p.Length
	return installment.Calculator{InitialPercent: p.InitialPercent}.Split(s, p.Amount)
}

// BalanceStatus summarises how far a plan has been paid.
type BalanceStatus string

const (
	BalancePaid              BalanceStatus = "paid"
	BalanceInProgress        BalanceStatus = "in_progress"
	BalanceExpiredIncomplete BalanceStatus = "expired_incomplete"
)

// Breakdown is the partial-payment view of a plan.
type Breakdown struct {
	Paid        decimal.Decimal
	Expected    decimal.Decimal
	Outstanding decimal.Decimal
	First       decimal.Decimal
	Recurring   decimal.Decimal
	// Generated counts the parent and every renewal order.
	Generated int
	PaidCount int
	Status    BalanceStatus
}

// Closable reports whether the plan still has a balance that a manual close would settle.
func (b Breakdown) Closable() bool {
	return b.Outstanding.IsPositive()
}

// Summarize computes the paid and outstanding amounts of a plan. The first installment is the
// parent order total and the recurring installment the first renewal total, or the parent
// total when no renewal exists yet.
func Summarize(p Plan) Breakdown {
	b := Breakdown{First: p.Parent.Total, Recurring: p.Parent.Total, Paid: decimal.Zero}
	if len(p.Renewals) > 0 {
		b.Recurring = p.Renewals[0].Total
	}
	for _, o := range p.Orders() {
		b.Generated++
		if o.Status.Paid() {
			b.PaidCount++
			b.Paid = b.Paid.Add(o.Total)
		}
	}
	cycles := p.Length - 1
	if cycles < 0 {
		cycles = 0
	}
	b.Expected = b.First.Add(b.Recurring.Mul(decimal.NewFromInt(int64(cycles))))
	b.Outstanding = b.Expected.Sub(b.Paid)
	if b.Outstanding.IsNegative() {
		b.Outstanding = decimal.Zero
	}

	switch {
	case b.Outstanding.IsZero():
		b.Status = BalancePaid
	case p.Status == PlanCompleted || p.Status == PlanExpired:
		b.Status = BalanceExpiredIncomplete
	default:
		b.Status = BalanceInProgress
	}
	return b
}

// NextDue returns the amount of the next follow-up order once generated orders exist. It
// reports false when every installment has been issued.
func NextDue(sched installment.Schedule, generated int) (decimal.Decimal, bool) {
	next := generated + 1
	if generated < 0 || next > sched.Len() {
		return decimal.Zero, false
	}
	return sched.At(next), true
}
