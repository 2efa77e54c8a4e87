package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func assign(dest []any, src []any) error {
	if len(dest) != len(src) {
		return fmt.Errorf("scan: want %d columns, got %d", len(src), len(dest))
	}
	for i, d := range dest {
		switch p := d.(type) {
		case *uuid.UUID:
			*p = src[i].(uuid.UUID)
		case *string:
			*p = src[i].(string)
		case *int:
			*p = src[i].(int)
		case *time.Time:
			*p = src[i].(time.Time)
		default:
			return fmt.Errorf("scan: unsupported destination %T", d)
		}
	}
	return nil
}

type stubRow struct {
	values []any
	err    error
}

func (r stubRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	return assign(dest, r.values)
}

type stubRows struct {
	rows [][]any
	i    int
}

func (r *stubRows) Close()                                       {}
func (r *stubRows) Err() error                                   { return nil }
func (r *stubRows) CommandTag() pgconn.CommandTag                { return pgconn.NewCommandTag("SELECT") }
func (r *stubRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *stubRows) Values() ([]any, error)                       { return r.rows[r.i-1], nil }
func (r *stubRows) RawValues() [][]byte                          { return nil }
func (r *stubRows) Conn() *pgx.Conn                              { return nil }

func (r *stubRows) Next() bool {
	if r.i >= len(r.rows) {
		return false
	}
	r.i++
	return true
}

func (r *stubRows) Scan(dest ...any) error {
	return assign(dest, r.rows[r.i-1])
}

type execCall struct {
	sql  string
	args []any
}

type stubDB struct {
	plan     []any
	planErr  error
	orders   [][]any
	execs    []execCall
	affected int64
}

func (db *stubDB) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	db.execs = append(db.execs, execCall{sql: sql, args: args})
	if strings.HasPrefix(sql, "INSERT") {
		return pgconn.NewCommandTag("INSERT 0 1"), nil
	}
	return pgconn.NewCommandTag(fmt.Sprintf("UPDATE %d", db.affected)), nil
}

func (db *stubDB) Query(context.Context, string, ...any) (pgx.Rows, error) {
	return &stubRows{rows: db.orders}, nil
}

func (db *stubDB) QueryRow(context.Context, string, ...any) pgx.Row {
	return stubRow{values: db.plan, err: db.planErr}
}

func TestPGGatewayPlan(t *testing.T) {
	planID, parentID, renewalID := uuid.New(), uuid.New(), uuid.New()
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	db := &stubDB{
		plan: []any{planID, "1_month_3", 3, "100.00", "0.00", "active"},
		orders: [][]any{
			{parentID, "parent", "completed", "33.34", "", now},
			{renewalID, "renewal", "pending", "33.33", "", now.Add(time.Hour)},
		},
	}
	g := NewPGGateway(db)

	p, err := g.Plan(context.Background(), planID)
	require.NoError(t, err)
	require.Equal(t, PlanActive, p.Status)
	require.True(t, p.Amount.Equal(decimal.NewFromInt(100)))
	require.Equal(t, parentID, p.Parent.ID)
	require.Equal(t, OrderCompleted, p.Parent.Status)
	require.Len(t, p.Renewals, 1)
	require.Equal(t, "33.33", p.Renewals[0].Total.String())
	require.Equal(t, "66.66", Summarize(p).Outstanding.String())
}

func TestPGGatewayPlanNotFound(t *testing.T) {
	g := NewPGGateway(&stubDB{planErr: pgx.ErrNoRows})
	_, err := g.Plan(context.Background(), uuid.New())
	require.ErrorIs(t, err, ErrPlanNotFound)

	boom := errors.New("boom")
	g = NewPGGateway(&stubDB{planErr: boom})
	_, err = g.Plan(context.Background(), uuid.New())
	require.ErrorIs(t, err, boom)
}

func TestPGGatewayPlanWithoutParent(t *testing.T) {
	planID := uuid.New()
	db := &stubDB{plan: []any{planID, "1_month_3", 3, "10", "0", "active"}}
	_, err := NewPGGateway(db).Plan(context.Background(), planID)
	require.ErrorContains(t, err, "no parent order")
}

func TestPGGatewayWrites(t *testing.T) {
	now := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	db := &stubDB{affected: 1}
	g := &PGGateway{DB: db, Now: func() time.Time { return now }}
	ctx := context.Background()
	planID := uuid.New()

	o, err := g.CreateRenewal(ctx, planID, decimal.RequireFromString("66.664"), OrderPending)
	require.NoError(t, err)
	require.Equal(t, KindRenewal, o.Kind)
	require.Equal(t, "66.66", o.Total.String())
	require.Equal(t, "66.66", db.execs[0].args[4])

	require.NoError(t, g.SetOrderStatus(ctx, o.ID, OrderCompleted, ClosedNote))
	require.NoError(t, g.SetPlanStatus(ctx, planID, PlanCompleted, ClosedNote))
	require.Len(t, db.execs, 3)
	require.Equal(t, "completed", db.execs[2].args[1])

	// Without Begin the writes run directly against the handle.
	require.NoError(t, g.InTx(ctx, func(tx Gateway) error {
		return tx.SetPlanStatus(ctx, planID, PlanOnHold, "")
	}))
	require.Len(t, db.execs, 4)

	db.affected = 0
	require.ErrorIs(t, g.SetPlanStatus(ctx, planID, PlanCompleted, ""), ErrPlanNotFound)
	require.Error(t, g.SetOrderStatus(ctx, o.ID, OrderCompleted, ""))
}

func TestPGGatewayWithoutDB(t *testing.T) {
	var g *PGGateway
	_, err := g.Plan(context.Background(), uuid.New())
	require.Error(t, err)
	require.Error(t, (&PGGateway{}).InTx(context.Background(), func(Gateway) error { return nil }))
}
