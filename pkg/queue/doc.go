// Package queue provides a bounded in-memory task queue with delayed delivery
// and automatic retries.
//
// The package is organised around three components:
//
//   - TaskQueue: the facade producers and consumers talk to
//   - scheduler: a single goroutine that owns delayed and retried tasks
//   - Worker: dequeues tasks, runs a Handler and reports the Outcome
//
// # Architecture
//
//  1. Immediate tasks go straight to a bounded ready channel. Enqueue waits
//     while it is full, TryEnqueue fails with ErrFull.
//  2. Delayed tasks and execution outcomes travel through the scheduler
//     mailbox. The scheduler keeps delayed tasks in a min-heap keyed by expiry
//     and arms a single timer for the earliest one.
//  3. A retryable failure advances the task to Failed{attempt}. While the
//     task's RetryPolicy allows it, the scheduler computes the backoff with
//     ComputeBackoff and reinserts the task; otherwise the task becomes
//     FailedPermanent and is dropped.
//  4. Shutdown stops the scheduler, abandons delayed tasks and closes the ready
//     channel. Tasks already on the ready channel can still be dequeued.
//
// The scheduler reads time from a clockwork.Clock, so tests can drive delays
// with a fake clock.
//
// # Usage
//
//	q, err := queue.New(128, queue.WithLogger(log))
//	if err != nil {
//	    return err
//	}
//	defer q.Shutdown()
//
//	_ = q.Enqueue(ctx, task.New([]byte(`{"user_id":42}`)))
//	_ = q.EnqueueDelayed(task.New(nil), time.Minute)
//
//	w, _ := queue.NewWorker(q, queue.NewTaskHandler(func(ctx context.Context, p SendEmail) error {
//	    return mailer.Send(ctx, p.UserID)
//	}), queue.WithConcurrency(4))
//
//	g, ctx := errgroup.WithContext(ctx)
//	g.Go(w.Run(ctx))
//
// # Observability
//
// Every TaskQueue logs through log/slog and can record Prometheus metrics
// (NewMetrics, WithMetrics). Subscribe returns a stream of lifecycle events;
// slow subscribers miss events instead of slowing the scheduler.
package queue
