package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/toko-subscribe/internal/obs"
)

// ClosedNote is attached to the settling order of a manually closed plan.
const ClosedNote = "This subscription has been manually closed."

var (
	// ErrPlanNotFound is returned by gateways when a plan does not exist.
	ErrPlanNotFound = errors.New("ledger: plan not found")
	// ErrAlreadyClosed is returned when closing a plan that is already completed.
	ErrAlreadyClosed = errors.New("ledger: plan already completed")
	// ErrNothingToIssue is returned when every installment of a plan has been issued.
	ErrNothingToIssue = errors.New("ledger: no installment left to issue")
	// ErrNotActive is returned when issuing an installment for a plan that is not active.
	ErrNotActive = errors.New("ledger: plan is not active")
)

// Gateway is the order store the ledger drives. It owns the order lifecycle; the ledger only
// decides amounts and transitions.
type Gateway interface {
	Plan(ctx context.Context, id uuid.UUID) (Plan, error)
	SetPlanStatus(ctx context.Context, id uuid.UUID, status PlanStatus, note string) error
	SetOrderStatus(ctx context.Context, id uuid.UUID, status OrderStatus, note string) error
	CreateRenewal(ctx context.Context, planID uuid.UUID, total decimal.Decimal, status OrderStatus) (Order, error)
	// InTx runs fn against a gateway whose writes commit or roll back together.
	InTx(ctx context.Context, fn func(Gateway) error) error
}

// Locker serialises work on a named resource.
type Locker interface {
	WithLock(ctx context.Context, name string, ttl time.Duration, fn func(context.Context) error) error
}

// CloseResult reports what Close did.
type CloseResult struct {
	Before  Breakdown
	Settled bool
	Renewal Order
}

// Closer settles plans by hand and issues follow-up installments.
type Closer struct {
	Gateway Gateway
	Locker  Locker
	LockTTL time.Duration
	Logger  *zerolog.Logger
}

func lockName(planID uuid.UUID) string {
	return "plan:" + planID.String()
}

func (c *Closer) withLock(ctx context.Context, planID uuid.UUID, fn func(context.Context) error) error {
	if c.Gateway == nil {
		return errors.New("ledger: gateway not configured")
	}
	if c.Locker == nil {
		return fn(ctx)
	}
	return c.Locker.WithLock(ctx, lockName(planID), c.LockTTL, fn)
}

// Close settles the outstanding balance of a plan. The plan and its parent order are put on
// hold, a renewal order for the outstanding amount is created, and then the renewal, the
// parent and the plan are marked completed. Plans with nothing outstanding are left as they
// are.
func (c *Closer) Close(ctx context.Context, planID uuid.UUID) (CloseResult, error) {
	var res CloseResult
	err := c.withLock(ctx, planID, func(ctx context.Context) error {
		plan, err := c.Gateway.Plan(ctx, planID)
		if err != nil {
			return err
		}
		if plan.Status == PlanCompleted {
			return fmt.Errorf("%w: %s", ErrAlreadyClosed, planID)
		}
		res.Before = Summarize(plan)
		if !res.Before.Closable() {
			return nil
		}
		return c.Gateway.InTx(ctx, func(gw Gateway) error {
			if err := gw.SetPlanStatus(ctx, plan.ID, PlanOnHold, ""); err != nil {
				return err
			}
			if err := gw.SetOrderStatus(ctx, plan.Parent.ID, OrderOnHold, ""); err != nil {
				return err
			}
			renewal, err := gw.CreateRenewal(ctx, plan.ID, res.Before.Outstanding, OrderPending)
			if err != nil {
				return err
			}
			if err := gw.SetOrderStatus(ctx, renewal.ID, OrderCompleted, ClosedNote); err != nil {
				return err
			}
			if err := gw.SetOrderStatus(ctx, plan.Parent.ID, OrderCompleted, ""); err != nil {
				return err
			}
			if err := gw.SetPlanStatus(ctx, plan.ID, PlanCompleted, ClosedNote); err != nil {
				return err
			}
			renewal.Status = OrderCompleted
			renewal.Note = ClosedNote
			res.Renewal = renewal
			res.Settled = true
			return nil
		})
	})
	c.observe("close", err)
	if err != nil {
		return CloseResult{}, err
	}
	obs.OrNop(c.Logger).Info().
		Str("plan_id", planID.String()).
		Bool("settled", res.Settled).
		Str("outstanding", res.Before.Outstanding.StringFixed(2)).
		Msg("ledger: plan closed")
	return res, nil
}

// IssueNext creates the next follow-up order of an active plan for the amount its schedule
// assigns to that installment.
func (c *Closer) IssueNext(ctx context.Context, planID uuid.UUID) (Order, error) {
	var issued Order
	err := c.withLock(ctx, planID, func(ctx context.Context) error {
		plan, err := c.Gateway.Plan(ctx, planID)
		if err != nil {
			return err
		}
		if plan.Status != PlanActive {
			return fmt.Errorf("%w: %s is %s", ErrNotActive, planID, plan.Status)
		}
		sched, err := plan.Schedule()
		if err != nil {
			return err
		}
		amount, ok := NextDue(sched, len(plan.Orders()))
		if !ok {
			return fmt.Errorf("%w: %s", ErrNothingToIssue, planID)
		}
		issued, err = c.Gateway.CreateRenewal(ctx, plan.ID, amount, OrderPending)
		return err
	})
	c.observe("issue_next", err)
	if err != nil {
		return Order{}, err
	}
	obs.OrNop(c.Logger).Debug().
		Str("plan_id", planID.String()).
		Str("order_id", issued.ID.String()).
		Str("total", issued.Total.StringFixed(2)).
		Msg("ledger: installment issued")
	return issued, nil
}

func (c *Closer) observe(op string, err error) {
	if obs.PlanClosures == nil || op != "close" {
		return
	}
	result := "ok"
	switch {
	case errors.Is(err, ErrAlreadyClosed):
		result = "already_closed"
	case err != nil:
		result = "error"
	}
	obs.PlanClosures.WithLabelValues(result).Inc()
}
