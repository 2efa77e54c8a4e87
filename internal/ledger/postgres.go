package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
)

// DB is the subset of pgxpool.Pool and pgx.Tx used by PGGateway.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type beginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// PGGateway stores plans and their orders in the plans and plan_orders tables.
type PGGateway struct {
	DB  DB
	Now func() time.Time
}

var _ Gateway = (*PGGateway)(nil)

// NewPGGateway constructs a Gateway backed by pgx.
func NewPGGateway(db DB) *PGGateway {
	return &PGGateway{DB: db}
}

func (g *PGGateway) now() time.Time {
	if g.Now != nil {
		return g.Now().UTC()
	}
	return time.Now().UTC()
}

func (g *PGGateway) ready() error {
	if g == nil || g.DB == nil {
		return errors.New("ledger: database not configured")
	}
	return nil
}

func parseMoney(v string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(v)
	if err != nil {
		return decimal.Zero, fmt.Errorf("ledger: bad amount %q: %w", v, err)
	}
	return d, nil
}

// Plan loads a plan with its parent and renewal orders.
func (g *PGGateway) Plan(ctx context.Context, id uuid.UUID) (Plan, error) {
	if err := g.ready(); err != nil {
		return Plan{}, err
	}
	var (
		p               Plan
		status          string
		amount, deposit string
	)
	err := g.DB.QueryRow(ctx, `SELECT id, scheme_id, length, amount::text, initial_percent::text, status
FROM plans WHERE id = $1`, id).Scan(&p.ID, &p.SchemeID, &p.Length, &amount, &deposit, &status)
	if errors.Is(err, pgx.ErrNoRows) {
		return Plan{}, fmt.Errorf("%w: %s", ErrPlanNotFound, id)
	}
	if err != nil {
		return Plan{}, err
	}
	p.Status = PlanStatus(status)
	if p.Amount, err = parseMoney(amount); err != nil {
		return Plan{}, err
	}
	if p.InitialPercent, err = parseMoney(deposit); err != nil {
		return Plan{}, err
	}

	rows, err := g.DB.Query(ctx, `SELECT id, kind, status, total::text, COALESCE(note, ''), created_at
FROM plan_orders WHERE plan_id = $1 ORDER BY created_at, id`, id)
	if err != nil {
		return Plan{}, err
	}
	defer rows.Close()

	var hasParent bool
	for rows.Next() {
		var (
			o            Order
			kind, st, tt string
		)
		if err := rows.Scan(&o.ID, &kind, &st, &tt, &o.Note, &o.CreatedAt); err != nil {
			return Plan{}, err
		}
		o.Kind = OrderKind(kind)
		o.Status = OrderStatus(st)
		if o.Total, err = parseMoney(tt); err != nil {
			return Plan{}, err
		}
		if o.Kind == KindParent && !hasParent {
			p.Parent = o
			hasParent = true
			continue
		}
		p.Renewals = append(p.Renewals, o)
	}
	if err := rows.Err(); err != nil {
		return Plan{}, err
	}
	if !hasParent {
		return Plan{}, fmt.Errorf("ledger: plan %s has no parent order", id)
	}
	return p, nil
}

// SetPlanStatus updates the status and note of a plan.
func (g *PGGateway) SetPlanStatus(ctx context.Context, id uuid.UUID, status PlanStatus, note string) error {
	if err := g.ready(); err != nil {
		return err
	}
	tag, err := g.DB.Exec(ctx, `UPDATE plans SET status = $2, note = COALESCE(NULLIF($3, ''), note), updated_at = $4 WHERE id = $1`,
		id, string(status), note, g.now())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrPlanNotFound, id)
	}
	return nil
}

// SetOrderStatus updates the status and note of an order.
func (g *PGGateway) SetOrderStatus(ctx context.Context, id uuid.UUID, status OrderStatus, note string) error {
	if err := g.ready(); err != nil {
		return err
	}
	tag, err := g.DB.Exec(ctx, `UPDATE plan_orders SET status = $2, note = COALESCE(NULLIF($3, ''), note), updated_at = $4 WHERE id = $1`,
		id, string(status), note, g.now())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("ledger: order %s not found", id)
	}
	return nil
}

// CreateRenewal inserts a renewal order for the plan.
func (g *PGGateway) CreateRenewal(ctx context.Context, planID uuid.UUID, total decimal.Decimal, status OrderStatus) (Order, error) {
	if err := g.ready(); err != nil {
		return Order{}, err
	}
	o := Order{ID: uuid.New(), Kind: KindRenewal, Status: status, Total: total.Round(2), CreatedAt: g.now()}
	_, err := g.DB.Exec(ctx, `INSERT INTO plan_orders (id, plan_id, kind, status, total, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5::numeric, $6, $6)`, o.ID, planID, string(o.Kind), string(o.Status), o.Total.StringFixed(2), o.CreatedAt)
	if err != nil {
		return Order{}, fmt.Errorf("insert renewal: %w", err)
	}
	return o, nil
}

// InTx runs fn inside a database transaction when the underlying handle can begin one.
func (g *PGGateway) InTx(ctx context.Context, fn func(Gateway) error) error {
	if err := g.ready(); err != nil {
		return err
	}
	b, ok := g.DB.(beginner)
	if !ok {
		return fn(g)
	}
	return pgx.BeginFunc(ctx, b, func(tx pgx.Tx) error {
		return fn(&PGGateway{DB: tx, Now: g.Now})
	})
}
