package cron

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"consultline/config"
	"consultline/models"
	"consultline/services/tasks"
	"consultline/utils"

	"github.com/go-redis/redis/v8"
	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// Expirer is the part of the session engine the worker drives.
type Expirer interface {
	Expire(ctx context.Context, sessionID string) (*models.Session, error)
	SweepDue(ctx context.Context) (int, error)
}

// Worker owns the asynq server and the sweep scheduler.
type Worker struct {
	srv       *asynq.Server
	scheduler *asynq.Scheduler
	stop      context.CancelFunc
}

// RedisOpt returns the connection options for the task queue database.
func RedisOpt() asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisQueueDB,
	}
}

// NewMux routes expiry and sweep tasks to engine.
func NewMux(engine Expirer) *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(tasks.TypeSessionExpire, handleExpiryTask(engine))
	mux.HandleFunc(tasks.TypeSessionSweep, handleSweepTask(engine))
	return mux
}

// InitExpiryWorker runs the async worker and the periodic sweep in background.
func InitExpiryWorker(engine Expirer, sweepEvery time.Duration) *Worker {
	logger := utils.GetLogger()
	redisOpts := RedisOpt()

	srv := asynq.NewServer(
		redisOpts,
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				"default": 1,
			},
		},
	)
	mux := NewMux(engine)

	scheduler := asynq.NewScheduler(redisOpts, &asynq.SchedulerOpts{Location: time.UTC})
	if _, err := scheduler.Register(fmt.Sprintf("@every %s", sweepEvery), tasks.NewSweepTask()); err != nil {
		logger.Error("[ExpiryWorker] failed to register sweep", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	go monitorRedisConnection(ctx)

	// Start async worker with retry logic
	go func() {
		logger.Info("[ExpiryWorker] starting async worker")
		const maxAttempts = 5

		for attempts := 1; attempts <= maxAttempts; attempts++ {
			err := srv.Start(mux)
			if err == nil {
				break
			}
			logger.Warn("[ExpiryWorker] failed to start worker",
				zap.Int("attempt", attempts), zap.Int("max", maxAttempts), zap.Error(err))
			if attempts == maxAttempts {
				logger.Error("[ExpiryWorker] max retry attempts reached; relying on lazy expiry")
				return
			}
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Duration(attempts*2) * time.Second):
			}
		}
	}()
	go func() {
		if err := scheduler.Run(); err != nil {
			logger.Error("[ExpiryWorker] sweep scheduler stopped", zap.Error(err))
		}
	}()

	return &Worker{srv: srv, scheduler: scheduler, stop: cancel}
}

// Shutdown stops the scheduler and drains the worker.
func (w *Worker) Shutdown() {
	w.stop()
	w.scheduler.Shutdown()
	w.srv.Shutdown()
}

func handleExpiryTask(engine Expirer) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		var p models.ExpiryPayload
		if err := json.Unmarshal(task.Payload(), &p); err != nil {
			utils.GetLogger().Warn("[ExpiryHandler] invalid payload", zap.Error(err))
			return fmt.Errorf("invalid expiry payload: %v: %w", err, asynq.SkipRetry)
		}

		s, err := engine.Expire(ctx, p.SessionID)
		if utils.IsKind(err, utils.KindNotFound) {
			utils.GetLogger().Warn("[ExpiryHandler] session no longer exists", zap.String("sessionId", p.SessionID))
			return nil
		}
		if err != nil {
			return err
		}
		utils.GetLogger().Debug("[ExpiryHandler] processed",
			zap.String("sessionId", s.ID), zap.String("phase", string(s.Phase)))
		return nil
	}
}

func handleSweepTask(engine Expirer) asynq.HandlerFunc {
	return func(ctx context.Context, _ *asynq.Task) error {
		n, err := engine.SweepDue(ctx)
		if err != nil {
			return err
		}
		if n > 0 {
			utils.GetLogger().Info("[SweepHandler] expired overdue sessions", zap.Int("count", n))
		}
		return nil
	}
}

// monitorRedisConnection pings the queue database periodically to detect failures at runtime.
func monitorRedisConnection(ctx context.Context) {
	client := redis.NewClient(&redis.Options{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisQueueDB,
	})
	defer client.Close()

	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := client.Ping(ctx).Err(); err != nil {
				utils.GetLogger().Warn("[ExpiryWorker] Redis connection lost", zap.Error(err))
			}
		}
	}
}
