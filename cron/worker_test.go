package cron

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"consultline/models"
	"consultline/services/tasks"
	"consultline/utils"

	"github.com/hibiken/asynq"
)

type fakeExpirer struct {
	expired []string
	sweeps  int
	err     error
}

func (f *fakeExpirer) Expire(_ context.Context, id string) (*models.Session, error) {
	f.expired = append(f.expired, id)
	if f.err != nil {
		return nil, f.err
	}
	return &models.Session{ID: id, Phase: models.PhaseEnded, EndReason: models.EndExpired}, nil
}

func (f *fakeExpirer) SweepDue(context.Context) (int, error) {
	f.sweeps++
	return 2, f.err
}

func TestExpiryTaskRoutesToEngine(t *testing.T) {
	engine := &fakeExpirer{}
	mux := NewMux(engine)

	task, _, err := tasks.NewExpiryTask(models.ExpiryPayload{SessionID: "s1", FireAt: time.Now()})
	if err != nil {
		t.Fatal(err)
	}
	if err := mux.ProcessTask(context.Background(), task); err != nil {
		t.Fatalf("ProcessTask: %v", err)
	}
	if len(engine.expired) != 1 || engine.expired[0] != "s1" {
		t.Errorf("expired = %v", engine.expired)
	}

	if err := mux.ProcessTask(context.Background(), tasks.NewSweepTask()); err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if engine.sweeps != 1 {
		t.Errorf("sweeps = %d", engine.sweeps)
	}
}

func TestExpiryTaskErrors(t *testing.T) {
	ctx := context.Background()
	payload, _ := json.Marshal(models.ExpiryPayload{SessionID: "gone"})

	missing := &fakeExpirer{err: utils.NotFound("session not found")}
	if err := NewMux(missing).ProcessTask(ctx, asynq.NewTask(tasks.TypeSessionExpire, payload)); err != nil {
		t.Errorf("missing session should not be retried, got %v", err)
	}

	failing := &fakeExpirer{err: errors.New("db down")}
	if err := NewMux(failing).ProcessTask(ctx, asynq.NewTask(tasks.TypeSessionExpire, payload)); err == nil {
		t.Error("store failure should be retried")
	}

	bad := asynq.NewTask(tasks.TypeSessionExpire, []byte("{"))
	if err := NewMux(&fakeExpirer{}).ProcessTask(ctx, bad); !errors.Is(err, asynq.SkipRetry) {
		t.Errorf("bad payload err = %v, want SkipRetry", err)
	}
}
