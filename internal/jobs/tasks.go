package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

const (
	// TypeClosePlan settles the outstanding balance of a plan.
	TypeClosePlan = "plan:close"
	// TypeIssueNext creates the next follow-up order of a plan.
	TypeIssueNext = "plan:issue_next"
)

// ErrBadPayload is returned when a task payload cannot be decoded.
var ErrBadPayload = errors.New("jobs: bad task payload")

// PlanPayload identifies the plan a task acts on.
type PlanPayload struct {
	PlanID uuid.UUID `json:"plan_id"`
}

func newPlanTask(typ string, planID uuid.UUID, opts ...asynq.Option) (*asynq.Task, error) {
	if planID == uuid.Nil {
		return nil, fmt.Errorf("%w: plan id required", ErrBadPayload)
	}
	payload, err := json.Marshal(PlanPayload{PlanID: planID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(typ, payload, opts...), nil
}

// NewClosePlanTask builds a plan:close task.
func NewClosePlanTask(planID uuid.UUID, opts ...asynq.Option) (*asynq.Task, error) {
	return newPlanTask(TypeClosePlan, planID, opts...)
}

// NewIssueNextTask builds a plan:issue_next task.
func NewIssueNextTask(planID uuid.UUID, opts ...asynq.Option) (*asynq.Task, error) {
	return newPlanTask(TypeIssueNext, planID, opts...)
}

// ParsePlanPayload decodes the payload of a plan task.
func ParsePlanPayload(raw []byte) (PlanPayload, error) {
	var p PlanPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return PlanPayload{}, fmt.Errorf("%w: %v", ErrBadPayload, err)
	}
	if p.PlanID == uuid.Nil {
		return PlanPayload{}, fmt.Errorf("%w: plan id required", ErrBadPayload)
	}
	return p, nil
}

// TaskEnqueuer is the subset of asynq.Client used by Enqueuer.
type TaskEnqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Enqueuer publishes plan tasks.
type Enqueuer struct {
	Client   TaskEnqueuer
	Queue    string
	MaxRetry int
	// UniqueFor suppresses duplicate tasks for the same plan within the window.
	UniqueFor time.Duration
}

func (e Enqueuer) options() []asynq.Option {
	var opts []asynq.Option
	if e.Queue != "" {
		opts = append(opts, asynq.Queue(e.Queue))
	}
	if e.MaxRetry > 0 {
		opts = append(opts, asynq.MaxRetry(e.MaxRetry))
	}
	if e.UniqueFor > 0 {
		opts = append(opts, asynq.Unique(e.UniqueFor))
	}
	return opts
}

func (e Enqueuer) enqueue(ctx context.Context, task *asynq.Task, err error) (*asynq.TaskInfo, error) {
	if err != nil {
		return nil, err
	}
	if e.Client == nil {
		return nil, errors.New("jobs: task client not configured")
	}
	info, err := e.Client.EnqueueContext(ctx, task)
	if errors.Is(err, asynq.ErrDuplicateTask) {
		return nil, nil
	}
	return info, err
}

// ClosePlan enqueues a plan:close task. Duplicates inside the unique window are dropped
// silently and yield a nil info.
func (e Enqueuer) ClosePlan(ctx context.Context, planID uuid.UUID) (*asynq.TaskInfo, error) {
	task, err := NewClosePlanTask(planID, e.options()...)
	return e.enqueue(ctx, task, err)
}

// IssueNext enqueues a plan:issue_next task.
func (e Enqueuer) IssueNext(ctx context.Context, planID uuid.UUID) (*asynq.TaskInfo, error) {
	task, err := NewIssueNextTask(planID, e.options()...)
	return e.enqueue(ctx, task, err)
}
