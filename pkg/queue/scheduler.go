package queue

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/dmitrymomot/nimbu/pkg/logger"
	"github.com/dmitrymomot/nimbu/pkg/task"
)

// scheduler is the single goroutine that owns delayed and retried tasks.
// The delay structure is only touched from run, so it needs no locking.
type scheduler struct {
	queue    *TaskQueue
	ready    chan<- *task.Task
	commands <-chan command
	stop     <-chan struct{}
	clock    clockwork.Clock
	logger   *slog.Logger

	pending delayQueue
}

func (s *scheduler) run() {
	defer close(s.queue.done)

	s.logger.Debug("scheduler started")

	for {
		if !s.deliverExpired() {
			s.exit()
			return
		}

		var timeout <-chan time.Time
		var timer clockwork.Timer
		if at, ok := s.pending.peek(); ok {
			timer = s.clock.NewTimer(at.Sub(s.clock.Now()))
			timeout = timer.Chan()
		}

		select {
		case cmd := <-s.commands:
			if timer != nil {
				timer.Stop()
			}
			if _, ok := cmd.(shutdownCommand); ok {
				s.exit()
				return
			}
			s.handle(cmd)
		case <-timeout:
		}
	}
}

// deliverExpired moves every due task to the ready channel, waiting while it
// is full. It returns false if shutdown began while a send was pending.
func (s *scheduler) deliverExpired() bool {
	for {
		t, ok := s.pending.popExpired(s.clock.Now())
		if !ok {
			return true
		}
		s.syncDelayed()

		if !s.send(t) {
			s.abandon(t)
			return false
		}
	}
}

func (s *scheduler) send(t *task.Task) bool {
	snap := s.queue.snapshot(t)

	select {
	case s.ready <- t:
		s.queue.delivered(snap)
		return true
	default:
	}

	s.logger.Debug("ready channel full, waiting to deliver", logger.TaskID(t.ID))

	select {
	case s.ready <- t:
		s.queue.delivered(snap)
		return true
	case <-s.stop:
		return false
	}
}

func (s *scheduler) handle(cmd command) {
	switch c := cmd.(type) {
	case scheduleCommand:
		s.schedule(c.task, c.delay)
	case resultCommand:
		s.result(c.outcome)
	default:
		s.logger.Error("unknown scheduler command", slog.String("type", fmt.Sprintf("%T", cmd)))
	}
}

func (s *scheduler) schedule(t *task.Task, delay time.Duration) {
	if t == nil {
		return
	}

	s.pending.push(t, s.clock.Now().Add(max(delay, 0)))
	s.syncDelayed()

	s.logger.Debug("task scheduled",
		logger.TaskID(t.ID),
		logger.Delay(delay))
	s.queue.emit(EventScheduled, t, delay, nil)
}

func (s *scheduler) result(o Outcome) {
	t := o.Task
	if t == nil {
		s.logger.Error("outcome without task dropped", slog.String("kind", o.Kind.String()))
		s.queue.metrics.observeDropped()
		return
	}

	switch o.Kind {
	case OutcomeCompleted:
		if err := t.Complete(); err != nil {
			s.drop(t, err)
			return
		}
		s.logger.Info("task completed",
			logger.TaskID(t.ID),
			logger.JobID(t.JobID),
			logger.Attempt(t.Attempts))
		s.queue.metrics.observeCompleted()
		s.queue.emit(EventCompleted, t, 0, nil)

	case OutcomeRetryableFailure:
		s.retry(t, o.Error)

	case OutcomeFatalFailure:
		s.failPermanently(t, o.Error)

	default:
		s.drop(t, fmt.Errorf("unknown outcome kind %d", o.Kind))
	}
}

func (s *scheduler) retry(t *task.Task, reason string) {
	err := t.Fail(reason)
	switch {
	case err == nil:
	case errors.Is(err, task.ErrRetryLimitExceeded):
		s.failPermanently(t, fmt.Sprintf("%s: %s", task.ErrRetryLimitExceeded, reason))
		return
	default:
		s.drop(t, err)
		return
	}

	delay := ComputeBackoff(t.Attempts, t.RetryPolicy.Strategy)
	s.pending.push(t, s.clock.Now().Add(delay))
	s.syncDelayed()

	s.logger.Warn("task failed, retry scheduled",
		logger.TaskID(t.ID),
		logger.Attempt(t.Attempts),
		logger.MaxRetries(t.RetryPolicy.MaxRetries),
		logger.Delay(delay),
		logger.Reason(reason))
	s.queue.metrics.observeRetry()
	s.queue.emit(EventRetryScheduled, t, delay, errors.New(reason))
}

func (s *scheduler) failPermanently(t *task.Task, reason string) {
	if err := t.FailPermanent(reason); err != nil {
		s.drop(t, err)
		return
	}

	s.logger.Error("task permanently failed",
		logger.TaskID(t.ID),
		logger.JobID(t.JobID),
		logger.Attempt(t.Attempts),
		logger.Reason(reason))
	s.queue.metrics.observeFailedPermanent()
	s.queue.emit(EventFailedPermanent, t, 0, errors.New(reason))
}

// drop discards a task whose outcome could not be applied. The task keeps
// the status it had before the outcome arrived.
func (s *scheduler) drop(t *task.Task, err error) {
	s.logger.Error("outcome rejected, task dropped",
		logger.TaskID(t.ID),
		logger.Status(t.Status),
		logger.Error(err))
	s.queue.metrics.observeDropped()
	s.queue.emit(EventDropped, t, 0, err)
}

func (s *scheduler) abandon(t *task.Task) {
	s.queue.metrics.observeAbandoned(1)
	s.queue.emit(EventAbandoned, t, 0, ErrClosed)
}

// exit abandons everything still waiting for its delay and everything left
// in the mailbox. By the time the shutdown command arrives no producer can
// send anymore, so the mailbox drain is complete.
func (s *scheduler) exit() {
	abandoned := 0
	for _, t := range s.pending.drain() {
		s.abandon(t)
		abandoned++
	}

drain:
	for {
		select {
		case cmd := <-s.commands:
			switch c := cmd.(type) {
			case scheduleCommand:
				if c.task != nil {
					s.abandon(c.task)
					abandoned++
				}
			case resultCommand:
				if c.outcome.Task != nil {
					s.abandon(c.outcome.Task)
					abandoned++
				}
			}
		default:
			break drain
		}
	}

	s.syncDelayed()

	if abandoned > 0 {
		s.logger.Warn("scheduler stopped with pending tasks", logger.Count(abandoned))
	} else {
		s.logger.Debug("scheduler stopped")
	}
}

func (s *scheduler) syncDelayed() {
	n := s.pending.len()
	s.queue.delayed.Store(int64(n))
	s.queue.metrics.setDelayed(n)
}
