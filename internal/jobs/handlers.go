package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/noah-isme/toko-subscribe/internal/ledger"
	"github.com/noah-isme/toko-subscribe/internal/obs"
)

// PlanCloser is implemented by ledger.Closer.
type PlanCloser interface {
	Close(ctx context.Context, planID uuid.UUID) (ledger.CloseResult, error)
	IssueNext(ctx context.Context, planID uuid.UUID) (ledger.Order, error)
}

// Handlers processes plan tasks.
type Handlers struct {
	Plans  PlanCloser
	Logger *zerolog.Logger
}

// Register attaches every plan task handler to mux.
func (h *Handlers) Register(mux *asynq.ServeMux) {
	mux.HandleFunc(TypeClosePlan, h.HandleClosePlan)
	mux.HandleFunc(TypeIssueNext, h.HandleIssueNext)
}

// HandleClosePlan settles a plan. Plans that are already closed or gone are not retried.
func (h *Handlers) HandleClosePlan(ctx context.Context, t *asynq.Task) error {
	return h.run(ctx, t, func(ctx context.Context, planID uuid.UUID) error {
		res, err := h.Plans.Close(ctx, planID)
		if errors.Is(err, ledger.ErrAlreadyClosed) {
			obs.OrNop(h.Logger).Info().Str("plan_id", planID.String()).Msg("jobs: plan already closed")
			return nil
		}
		if err != nil {
			return err
		}
		obs.OrNop(h.Logger).Debug().
			Str("plan_id", planID.String()).
			Bool("settled", res.Settled).
			Msg("jobs: close handled")
		return nil
	})
}

// HandleIssueNext creates the next follow-up order of a plan.
func (h *Handlers) HandleIssueNext(ctx context.Context, t *asynq.Task) error {
	return h.run(ctx, t, func(ctx context.Context, planID uuid.UUID) error {
		_, err := h.Plans.IssueNext(ctx, planID)
		if errors.Is(err, ledger.ErrNothingToIssue) || errors.Is(err, ledger.ErrNotActive) {
			obs.OrNop(h.Logger).Info().Err(err).Str("plan_id", planID.String()).Msg("jobs: nothing issued")
			return nil
		}
		return err
	})
}

func (h *Handlers) run(ctx context.Context, t *asynq.Task, fn func(context.Context, uuid.UUID) error) (err error) {
	start := time.Now()
	ctx, span := obs.Tracer("jobs").Start(ctx, t.Type())
	defer func() {
		result := "ok"
		if err != nil {
			result = "error"
			if errors.Is(err, asynq.SkipRetry) {
				result = "skipped"
			}
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		if obs.JobsProcessed != nil {
			obs.JobsProcessed.WithLabelValues(t.Type(), result).Inc()
		}
		if obs.JobDuration != nil {
			obs.JobDuration.WithLabelValues(t.Type()).Observe(obs.DurationMillis(time.Since(start)))
		}
		span.End()
	}()

	if h == nil || h.Plans == nil {
		return errors.New("jobs: plan handler not configured")
	}
	payload, err := ParsePlanPayload(t.Payload())
	if err != nil {
		return fmt.Errorf("%w: %w", err, asynq.SkipRetry)
	}
	span.SetAttributes(attribute.String("plan.id", payload.PlanID.String()))

	err = fn(ctx, payload.PlanID)
	if errors.Is(err, ledger.ErrPlanNotFound) {
		return fmt.Errorf("%w: %w", err, asynq.SkipRetry)
	}
	if err != nil {
		obs.OrNop(h.Logger).Error().Err(err).Str("task", t.Type()).Str("plan_id", payload.PlanID.String()).Msg("jobs: task failed")
	}
	return err
}
