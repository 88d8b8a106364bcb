package queue

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/nimbu/pkg/logger"
	"github.com/dmitrymomot/nimbu/pkg/task"
)

// Source is the consumer side of a TaskQueue.
type Source interface {
	Dequeue(ctx context.Context) (*task.Task, bool)
	ReportOutcome(ctx context.Context, o Outcome) error
}

// Worker pulls tasks from a Source, drives them through Assigned and Running,
// executes the handler and reports the outcome back.
type Worker struct {
	source   Source
	handler  Handler
	workerID string

	concurrency int
	taskTimeout time.Duration
	logger      *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewWorker creates a new task worker
func NewWorker(source Source, handler Handler, opts ...WorkerOption) (*Worker, error) {
	if source == nil {
		return nil, ErrNilSource
	}
	if handler == nil {
		return nil, ErrNilHandler
	}

	options := &workerOptions{
		concurrency: 1,
		taskTimeout: 5 * time.Minute,
		logger:      logger.Discard(),
	}

	for _, opt := range opts {
		opt(options)
	}

	id := uuid.NewString()

	return &Worker{
		source:      source,
		handler:     handler,
		workerID:    id,
		concurrency: options.concurrency,
		taskTimeout: options.taskTimeout,
		logger:      options.logger.With(logger.Component("worker"), logger.WorkerID(id)),
	}, nil
}

// ID returns the worker identifier used in logs.
func (w *Worker) ID() string {
	return w.workerID
}

// Start launches the processing loops in the background
func (w *Worker) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.cancel != nil {
		return ErrWorkerRunning
	}

	ctx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	w.wg.Add(w.concurrency)
	for range w.concurrency {
		go func() {
			defer w.wg.Done()
			w.loop(ctx)
		}()
	}

	w.logger.Info("worker started", slog.Int("concurrency", w.concurrency))
	return nil
}

// Stop stops pulling new tasks and waits for running handlers to finish
func (w *Worker) Stop() error {
	w.mu.Lock()
	cancel := w.cancel
	w.cancel = nil
	w.mu.Unlock()

	if cancel == nil {
		return ErrWorkerNotRunning
	}

	w.logger.Info("worker stopping, waiting for active tasks to complete")
	cancel()
	w.wg.Wait()
	w.logger.Info("worker stopped")

	return nil
}

// Run starts the worker and returns a function suitable for errgroup
func (w *Worker) Run(ctx context.Context) func() error {
	return func() error {
		if err := w.Start(ctx); err != nil {
			return err
		}

		<-ctx.Done()

		return w.Stop()
	}
}

func (w *Worker) loop(ctx context.Context) {
	for {
		t, ok := w.source.Dequeue(ctx)
		if !ok {
			return
		}
		w.process(t)
	}
}

// process runs one attempt. Handlers get a context detached from the worker
// so that Stop lets in-flight work finish.
func (w *Worker) process(t *task.Task) {
	if err := t.Assign(); err != nil {
		w.report(FatalFailure(t, err.Error()))
		return
	}
	if err := t.Start(); err != nil {
		w.report(FatalFailure(t, err.Error()))
		return
	}

	start := time.Now()
	err := w.execute(t)
	duration := time.Since(start)

	switch {
	case err == nil:
		w.logger.Debug("task handled",
			logger.TaskID(t.ID),
			logger.Duration(duration))
		w.report(Completed(t))
	case IsPermanent(err):
		w.logger.Error("task handler failed permanently",
			logger.TaskID(t.ID),
			logger.Duration(duration),
			logger.Error(err))
		w.report(FatalFailure(t, err.Error()))
	default:
		w.logger.Warn("task handler failed",
			logger.TaskID(t.ID),
			logger.Attempt(t.Attempts),
			logger.Duration(duration),
			logger.Error(err))
		w.report(RetryableFailure(t, err.Error()))
	}
}

func (w *Worker) execute(t *task.Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in handler: %v", r)
			w.logger.Error("handler panicked",
				logger.TaskID(t.ID),
				slog.Any("panic", r))
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), w.taskTimeout)
	defer cancel()

	return w.handler.Handle(ctx, t)
}

func (w *Worker) report(o Outcome) {
	if err := w.source.ReportOutcome(context.Background(), o); err != nil {
		w.logger.Error("failed to report task outcome",
			logger.TaskID(o.Task.ID),
			slog.String("outcome", o.Kind.String()),
			logger.Error(err))
	}
}
