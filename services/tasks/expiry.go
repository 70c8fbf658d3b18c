package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"consultline/models"

	"github.com/hibiken/asynq"
)

const (
	TypeSessionExpire = "session:expire"
	TypeSessionSweep  = "session:sweep"
)

// NewExpiryTask builds a delayed expiry task. The task ID is derived from the
// session and deadline so rescheduling the same deadline is a no-op.
func NewExpiryTask(payload models.ExpiryPayload) (*asynq.Task, []asynq.Option, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, nil, err
	}
	task := asynq.NewTask(TypeSessionExpire, b)
	opts := []asynq.Option{
		asynq.ProcessAt(payload.FireAt),
		asynq.TaskID(fmt.Sprintf("expire:%s:%d", payload.SessionID, payload.FireAt.Unix())),
		asynq.MaxRetry(5),
	}
	return task, opts, nil
}

// NewSweepTask builds the periodic sweep task.
func NewSweepTask() *asynq.Task {
	return asynq.NewTask(TypeSessionSweep, nil)
}

// Enqueuer is the part of *asynq.Client the scheduler needs.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// ExpiryScheduler enqueues session expiry tasks on the asynq queue.
type ExpiryScheduler struct {
	Client Enqueuer
}

func (s *ExpiryScheduler) ScheduleExpiry(ctx context.Context, sessionID string, at time.Time) error {
	if s.Client == nil {
		return fmt.Errorf("AsynqClient is nil, expiry task cannot be enqueued")
	}
	task, opts, err := NewExpiryTask(models.ExpiryPayload{SessionID: sessionID, FireAt: at.UTC()})
	if err != nil {
		return err
	}
	if _, err := s.Client.EnqueueContext(ctx, task, opts...); err != nil && !errors.Is(err, asynq.ErrTaskIDConflict) {
		return fmt.Errorf("failed to enqueue expiry task: %w", err)
	}
	return nil
}
