package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"consultline/models"

	"github.com/hibiken/asynq"
)

type fakeEnqueuer struct {
	tasks []*asynq.Task
	err   error
}

func (f *fakeEnqueuer) EnqueueContext(_ context.Context, task *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
	f.tasks = append(f.tasks, task)
	return &asynq.TaskInfo{}, f.err
}

func TestNewExpiryTask(t *testing.T) {
	at := time.Date(2026, 5, 4, 9, 2, 0, 0, time.UTC)
	task, opts, err := NewExpiryTask(models.ExpiryPayload{SessionID: "s1", FireAt: at})
	if err != nil {
		t.Fatal(err)
	}
	if task.Type() != TypeSessionExpire {
		t.Errorf("type = %q", task.Type())
	}
	var p models.ExpiryPayload
	if err := json.Unmarshal(task.Payload(), &p); err != nil {
		t.Fatal(err)
	}
	if p.SessionID != "s1" || !p.FireAt.Equal(at) {
		t.Errorf("payload = %+v", p)
	}

	var sawProcessAt, sawID bool
	for _, o := range opts {
		switch o.Type() {
		case asynq.ProcessAtOpt:
			sawProcessAt = o.Value().(time.Time).Equal(at)
		case asynq.TaskIDOpt:
			sawID = o.Value().(string) == "expire:s1:1777885320"
		}
	}
	if !sawProcessAt || !sawID {
		t.Errorf("options missing: processAt=%v taskID=%v", sawProcessAt, sawID)
	}
}

func TestScheduleExpiry(t *testing.T) {
	ctx := context.Background()
	at := time.Now().Add(time.Minute)

	f := &fakeEnqueuer{}
	if err := (&ExpiryScheduler{Client: f}).ScheduleExpiry(ctx, "s1", at); err != nil {
		t.Fatalf("ScheduleExpiry: %v", err)
	}
	if len(f.tasks) != 1 {
		t.Fatalf("enqueued %d tasks", len(f.tasks))
	}

	dup := &fakeEnqueuer{err: asynq.ErrTaskIDConflict}
	if err := (&ExpiryScheduler{Client: dup}).ScheduleExpiry(ctx, "s1", at); err != nil {
		t.Errorf("duplicate deadline should be ignored, got %v", err)
	}

	broken := &fakeEnqueuer{err: errors.New("redis down")}
	if err := (&ExpiryScheduler{Client: broken}).ScheduleExpiry(ctx, "s1", at); err == nil {
		t.Error("expected enqueue failure to surface")
	}

	if err := (&ExpiryScheduler{}).ScheduleExpiry(ctx, "s1", at); err == nil {
		t.Error("expected error without a client")
	}
}
