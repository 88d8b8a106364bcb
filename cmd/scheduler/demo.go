package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/dmitrymomot/nimbu/pkg/logger"
	"github.com/dmitrymomot/nimbu/pkg/queue"
	"github.com/dmitrymomot/nimbu/pkg/task"
)

type demoPayload struct {
	Seq    int  `json:"seq"`
	Poison bool `json:"poison,omitempty"`
}

var errFlaky = errors.New("simulated transient failure")

// demoHandler sleeps for a random share of WorkTime and then fails with the
// configured probability. Poisoned payloads always fail permanently.
func demoHandler(cfg demoConfig) queue.Handler {
	return queue.NewTaskHandler(func(ctx context.Context, p demoPayload) error {
		if p.Poison {
			return queue.Permanent(fmt.Errorf("payload %d is poisoned", p.Seq))
		}

		if cfg.WorkTime > 0 {
			select {
			case <-time.After(rand.N(cfg.WorkTime)):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		if rand.Float64() < cfg.FailureRate {
			return errFlaky
		}
		return nil
	})
}

// seed submits cfg.Tasks demo tasks, a share of them delayed.
func seed(ctx context.Context, q *queue.TaskQueue, policy task.RetryPolicy, cfg demoConfig, log *slog.Logger) error {
	jobID := task.NewJobID()

	for i := range cfg.Tasks {
		payload, err := json.Marshal(demoPayload{Seq: i, Poison: rand.Float64() < cfg.PoisonRate})
		if err != nil {
			return fmt.Errorf("failed to encode demo payload: %w", err)
		}

		t := task.New(payload, task.WithJobID(jobID), task.WithRetryPolicy(policy))

		if cfg.MaxDelay > 0 && rand.Float64() < cfg.DelayedRate {
			if err := q.EnqueueDelayed(t, rand.N(cfg.MaxDelay)); err != nil {
				return fmt.Errorf("failed to schedule demo task: %w", err)
			}
			continue
		}

		if err := q.Enqueue(ctx, t); err != nil {
			return fmt.Errorf("failed to enqueue demo task: %w", err)
		}
	}

	log.Info("demo tasks submitted", logger.JobID(jobID), logger.Count(cfg.Tasks))
	return nil
}

// logEvents mirrors terminal lifecycle events into the log until ctx ends.
func logEvents(ctx context.Context, q *queue.TaskQueue, log *slog.Logger) {
	for e := range q.Subscribe(ctx) {
		switch e.Type {
		case queue.EventCompleted, queue.EventFailedPermanent, queue.EventAbandoned:
			log.Info("task finished",
				slog.String("event", string(e.Type)),
				logger.TaskID(e.Task.ID),
				logger.Status(e.Task.Status),
				logger.Duration(e.At.Sub(e.Task.CreatedAt)))
		}
	}
}
