package queue

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/dmitrymomot/nimbu/pkg/logger"
	"github.com/dmitrymomot/nimbu/pkg/task"
)

const (
	pathImmediate = "immediate"
	pathDelayed   = "delayed"
)

// TaskQueue is a bounded ready channel for immediate work plus a scheduling
// actor that owns every delayed or retried task until its timer fires.
type TaskQueue struct {
	ready    chan *task.Task
	commands chan command
	capacity int

	// length is advisory: it is updated outside any critical section and can
	// briefly disagree with the channel occupancy.
	length  atomic.Int64
	delayed atomic.Int64

	mu           sync.RWMutex // senders hold it for reading while they send
	closed       bool
	closing      chan struct{}
	done         chan struct{}
	shutdownOnce sync.Once

	logger  *slog.Logger
	clock   clockwork.Clock
	metrics *Metrics
	events  *feed
}

// New creates a queue whose ready channel holds up to capacity tasks and
// starts its scheduling actor.
func New(capacity int, opts ...Option) (*TaskQueue, error) {
	if capacity < 1 {
		return nil, ErrInvalidCapacity
	}

	options := &options{
		logger:        logger.Discard(),
		clock:         clockwork.NewRealClock(),
		commandBuffer: defaultCommandBuffer,
		eventBuffer:   defaultEventBuffer,
	}

	for _, opt := range opts {
		opt(options)
	}

	q := &TaskQueue{
		ready:    make(chan *task.Task, capacity),
		commands: make(chan command, options.commandBuffer),
		capacity: capacity,
		closing:  make(chan struct{}),
		done:     make(chan struct{}),
		logger:   options.logger.With(logger.Component("task_queue")),
		clock:    options.clock,
		metrics:  options.metrics,
		events:   newFeed(options.eventBuffer),
	}

	s := &scheduler{
		queue:    q,
		ready:    q.ready,
		commands: q.commands,
		stop:     q.closing,
		clock:    q.clock,
		logger:   options.logger.With(logger.Component("scheduler")),
	}
	go s.run()

	q.logger.Info("task queue initialized",
		logger.Capacity(capacity),
		slog.Int("command_buffer", options.commandBuffer))

	return q, nil
}

// Enqueue puts a task on the ready channel, waiting while the channel is full.
// It returns ErrClosed once shutdown has begun and ctx.Err() if ctx ends first.
func (q *TaskQueue) Enqueue(ctx context.Context, t *task.Task) error {
	if t == nil {
		return ErrNilTask
	}

	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed || q.isClosing() {
		return ErrClosed
	}

	// The consumer owns t as soon as the send succeeds.
	id, jobID, snap := t.ID, t.JobID, q.snapshot(t)

	select {
	case q.ready <- t:
	case <-q.closing:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}

	q.accepted(id, jobID, snap, pathImmediate)
	return nil
}

// TryEnqueue is the non-blocking variant of Enqueue: it fails with ErrFull
// instead of waiting.
func (q *TaskQueue) TryEnqueue(t *task.Task) error {
	if t == nil {
		return ErrNilTask
	}

	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed || q.isClosing() {
		return ErrClosed
	}

	id, jobID, snap := t.ID, t.JobID, q.snapshot(t)

	select {
	case q.ready <- t:
	default:
		return ErrFull
	}

	q.accepted(id, jobID, snap, pathImmediate)
	return nil
}

// EnqueueDelayed hands a task to the scheduler, which releases it to the
// ready channel once delay has elapsed. It never blocks: a full scheduler
// mailbox yields ErrSchedulerBusy and the caller keeps the task.
// Ready length is unaffected until the delay expires.
func (q *TaskQueue) EnqueueDelayed(t *task.Task, delay time.Duration) error {
	if t == nil {
		return ErrNilTask
	}

	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed || q.isClosing() {
		return ErrClosed
	}

	id := t.ID

	select {
	case q.commands <- scheduleCommand{task: t, delay: delay}:
	default:
		q.logger.Warn("scheduler mailbox full, delayed task rejected",
			logger.TaskID(id),
			logger.Delay(delay))
		return ErrSchedulerBusy
	}

	q.metrics.observeEnqueued(pathDelayed)
	q.logger.Debug("delayed task submitted",
		logger.TaskID(id),
		logger.Delay(delay))
	return nil
}

// Dequeue waits for a ready task. It returns false once the queue is closed
// and drained, or when ctx ends.
func (q *TaskQueue) Dequeue(ctx context.Context) (*task.Task, bool) {
	select {
	case t, ok := <-q.ready:
		if !ok {
			return nil, false
		}
		q.taken(t)
		return t, true
	case <-ctx.Done():
		return nil, false
	}
}

// TryDequeue returns a ready task without waiting.
func (q *TaskQueue) TryDequeue() (*task.Task, bool) {
	select {
	case t, ok := <-q.ready:
		if !ok {
			return nil, false
		}
		q.taken(t)
		return t, true
	default:
		return nil, false
	}
}

// ReportOutcome forwards an execution result to the scheduler. It waits
// while the scheduler mailbox is full and returns ErrClosed after shutdown.
func (q *TaskQueue) ReportOutcome(ctx context.Context, o Outcome) error {
	if o.Task == nil {
		return ErrNilTask
	}

	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed || q.isClosing() {
		return ErrClosed
	}

	select {
	case q.commands <- resultCommand{outcome: o}:
		return nil
	case <-q.closing:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown stops the scheduler and closes the queue. It waits for the
// scheduler loop to exit. Tasks already on the ready channel stay available
// to Dequeue; tasks still waiting for their delay are abandoned.
// Safe for repeated and concurrent calls.
func (q *TaskQueue) Shutdown() {
	q.shutdownOnce.Do(func() {
		q.logger.Info("task queue shutdown initiated")

		// Wakes blocked senders; the write lock then waits until every
		// in-flight send has returned, so nothing reaches the mailbox or the
		// ready channel after this point.
		close(q.closing)
		q.mu.Lock()
		q.closed = true
		q.mu.Unlock()

		select {
		case q.commands <- shutdownCommand{}:
		case <-q.done:
		}
		<-q.done

		close(q.ready)

		q.events.close()

		q.logger.Info("task queue shutdown complete",
			slog.Int("ready_remaining", q.Len()))
	})
}

// Subscribe streams lifecycle events until ctx ends or the queue shuts down.
// Events are dropped for subscribers that do not keep up.
func (q *TaskQueue) Subscribe(ctx context.Context) <-chan Event {
	return q.events.subscribe(ctx)
}

// Len returns the advisory number of tasks on the ready channel.
func (q *TaskQueue) Len() int {
	return int(max(q.length.Load(), 0))
}

// Delayed returns the advisory number of tasks waiting for their delay.
func (q *TaskQueue) Delayed() int {
	return int(max(q.delayed.Load(), 0))
}

// Capacity returns the size of the ready channel.
func (q *TaskQueue) Capacity() int {
	return q.capacity
}

// Closed reports whether shutdown has begun.
func (q *TaskQueue) Closed() bool {
	return q.isClosing()
}

func (q *TaskQueue) isClosing() bool {
	select {
	case <-q.closing:
		return true
	default:
		return false
	}
}

func (q *TaskQueue) accepted(id task.TaskID, jobID task.JobID, snap *task.Task, path string) {
	q.length.Add(1)
	q.metrics.observeEnqueued(path)
	q.publish(EventEnqueued, snap, 0, nil)
	q.logger.Debug("task enqueued", logger.TaskID(id), logger.JobID(jobID))
}

// delivered is called by the scheduler after a delayed task reached the ready channel.
// snap was taken before the send.
func (q *TaskQueue) delivered(snap *task.Task) {
	q.length.Add(1)
	q.metrics.observeDelivered()
	q.publish(EventReady, snap, 0, nil)
}

func (q *TaskQueue) taken(t *task.Task) {
	q.length.Add(-1)
	q.metrics.observeDequeued()
	q.emit(EventDequeued, t, 0, nil)
	q.logger.Debug("task dequeued", logger.TaskID(t.ID))
}

// snapshot copies t for the event feed, or returns nil when nobody listens.
// Callers must still own t.
func (q *TaskQueue) snapshot(t *task.Task) *task.Task {
	if !q.events.active() {
		return nil
	}
	return t.Clone()
}

// emit publishes an event for a task the caller owns.
func (q *TaskQueue) emit(typ EventType, t *task.Task, delay time.Duration, err error) {
	q.publish(typ, q.snapshot(t), delay, err)
}

func (q *TaskQueue) publish(typ EventType, snap *task.Task, delay time.Duration, err error) {
	if snap == nil {
		return
	}
	q.events.publish(Event{
		Type:  typ,
		Task:  snap,
		Delay: delay,
		Err:   err,
		At:    q.clock.Now(),
	})
}
