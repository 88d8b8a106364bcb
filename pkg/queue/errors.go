package queue

import "errors"

var (
	// ErrFull is returned by TryEnqueue when the ready channel is at capacity
	ErrFull = errors.New("queue is full")

	// ErrClosed is returned once shutdown has begun
	ErrClosed = errors.New("queue is closed")

	// ErrSchedulerBusy is returned by EnqueueDelayed when the scheduler mailbox is full
	ErrSchedulerBusy = errors.New("scheduler mailbox is full")

	// ErrInvalidCapacity is returned when the queue capacity is less than one
	ErrInvalidCapacity = errors.New("queue capacity must be at least 1")

	// ErrNilTask is returned when a nil task is submitted or reported
	ErrNilTask = errors.New("task cannot be nil")

	// ErrNilHandler is returned when a worker is created without a handler
	ErrNilHandler = errors.New("handler cannot be nil")

	// ErrNilSource is returned when a worker is created without a task source
	ErrNilSource = errors.New("task source cannot be nil")

	// ErrWorkerRunning is returned when Start is called on a running worker
	ErrWorkerRunning = errors.New("worker already started")

	// ErrWorkerNotRunning is returned when Stop is called on a stopped worker
	ErrWorkerNotRunning = errors.New("worker not started")

	// ErrUnknownBackoff is returned when the configured backoff strategy name is not recognised
	ErrUnknownBackoff = errors.New("unknown backoff strategy")
)
