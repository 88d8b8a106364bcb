package queue_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/nimbu/pkg/queue"
	"github.com/dmitrymomot/nimbu/pkg/task"
)

const waitTimeout = 2 * time.Second

func newQueue(t *testing.T, capacity int, opts ...queue.Option) *queue.TaskQueue {
	t.Helper()

	q, err := queue.New(capacity, opts...)
	require.NoError(t, err)
	t.Cleanup(q.Shutdown)

	return q
}

func testContext(t *testing.T) context.Context {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), waitTimeout)
	t.Cleanup(cancel)

	return ctx
}

// waitFor reads events until one of the given type arrives.
func waitFor(t *testing.T, events <-chan queue.Event, typ queue.EventType) queue.Event {
	t.Helper()

	timeout := time.After(waitTimeout)
	for {
		select {
		case e, ok := <-events:
			require.True(t, ok, "event stream closed while waiting for %s", typ)
			if e.Type == typ {
				return e
			}
		case <-timeout:
			require.FailNow(t, "timed out waiting for event", string(typ))
		}
	}
}

func dequeue(t *testing.T, q *queue.TaskQueue) *task.Task {
	t.Helper()

	got, ok := q.Dequeue(testContext(t))
	require.True(t, ok, "expected a ready task")
	return got
}

func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("invalid capacity", func(t *testing.T) {
		t.Parallel()

		for _, capacity := range []int{0, -1} {
			q, err := queue.New(capacity)
			assert.ErrorIs(t, err, queue.ErrInvalidCapacity)
			assert.Nil(t, q)
		}
	})

	t.Run("reports capacity", func(t *testing.T) {
		t.Parallel()

		q := newQueue(t, 8)
		assert.Equal(t, 8, q.Capacity())
		assert.Equal(t, 0, q.Len())
		assert.Equal(t, 0, q.Delayed())
		assert.False(t, q.Closed())
	})
}

func TestTaskQueue_Enqueue(t *testing.T) {
	t.Parallel()

	t.Run("fifo order", func(t *testing.T) {
		t.Parallel()

		q := newQueue(t, 4)
		ctx := testContext(t)

		a, b, c := task.New([]byte("a")), task.New([]byte("b")), task.New([]byte("c"))
		for _, tk := range []*task.Task{a, b, c} {
			require.NoError(t, q.Enqueue(ctx, tk))
		}
		assert.Equal(t, 3, q.Len())

		assert.Same(t, a, dequeue(t, q))
		assert.Same(t, b, dequeue(t, q))
		assert.Same(t, c, dequeue(t, q))
		assert.Equal(t, 0, q.Len())
	})

	t.Run("nil task", func(t *testing.T) {
		t.Parallel()

		q := newQueue(t, 1)
		assert.ErrorIs(t, q.Enqueue(testContext(t), nil), queue.ErrNilTask)
		assert.ErrorIs(t, q.TryEnqueue(nil), queue.ErrNilTask)
		assert.ErrorIs(t, q.EnqueueDelayed(nil, time.Second), queue.ErrNilTask)
		assert.ErrorIs(t, q.ReportOutcome(testContext(t), queue.Completed(nil)), queue.ErrNilTask)
	})

	t.Run("blocks while full", func(t *testing.T) {
		t.Parallel()

		q := newQueue(t, 1)
		require.NoError(t, q.Enqueue(testContext(t), task.New(nil)))

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		err := q.Enqueue(ctx, task.New(nil))
		assert.ErrorIs(t, err, context.DeadlineExceeded)
		assert.ErrorIs(t, q.TryEnqueue(task.New(nil)), queue.ErrFull)
		assert.Equal(t, 1, q.Len())
	})

	t.Run("unblocks when a consumer takes a task", func(t *testing.T) {
		t.Parallel()

		q := newQueue(t, 1)
		first := task.New([]byte("first"))
		second := task.New([]byte("second"))
		require.NoError(t, q.Enqueue(testContext(t), first))

		done := make(chan error, 1)
		go func() {
			done <- q.Enqueue(testContext(t), second)
		}()

		assert.Same(t, first, dequeue(t, q))

		select {
		case err := <-done:
			require.NoError(t, err)
		case <-time.After(waitTimeout):
			require.FailNow(t, "blocked enqueue was not released")
		}
		assert.Same(t, second, dequeue(t, q))
	})
}

func TestTaskQueue_TryDequeue(t *testing.T) {
	t.Parallel()

	q := newQueue(t, 1)

	got, ok := q.TryDequeue()
	assert.False(t, ok)
	assert.Nil(t, got)

	tk := task.New(nil)
	require.NoError(t, q.TryEnqueue(tk))

	got, ok = q.TryDequeue()
	require.True(t, ok)
	assert.Same(t, tk, got)
}

func TestTaskQueue_Dequeue_ContextCancelled(t *testing.T) {
	t.Parallel()

	q := newQueue(t, 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	got, ok := q.Dequeue(ctx)
	assert.False(t, ok)
	assert.Nil(t, got)
}

func TestTaskQueue_EnqueueDelayed(t *testing.T) {
	t.Parallel()

	t.Run("released only after the delay", func(t *testing.T) {
		t.Parallel()

		clock := clockwork.NewFakeClock()
		q := newQueue(t, 4, queue.WithClock(clock))
		ctx := testContext(t)

		tk := task.New([]byte("later"))
		require.NoError(t, q.EnqueueDelayed(tk, 10*time.Second))
		require.NoError(t, clock.BlockUntilContext(ctx, 1))

		assert.Equal(t, 1, q.Delayed())
		assert.Equal(t, 0, q.Len())

		clock.Advance(9 * time.Second)
		_, ok := q.TryDequeue()
		assert.False(t, ok, "task released before its delay")

		clock.Advance(time.Second)
		assert.Same(t, tk, dequeue(t, q))
		assert.Equal(t, 0, q.Delayed())
	})

	t.Run("equal expiries keep submission order", func(t *testing.T) {
		t.Parallel()

		clock := clockwork.NewFakeClock()
		q := newQueue(t, 4, queue.WithClock(clock))
		events := q.Subscribe(testContext(t))

		a, b := task.New([]byte("a")), task.New([]byte("b"))
		require.NoError(t, q.EnqueueDelayed(a, 5*time.Second))
		require.NoError(t, q.EnqueueDelayed(b, 5*time.Second))
		waitFor(t, events, queue.EventScheduled)
		waitFor(t, events, queue.EventScheduled)
		require.NoError(t, clock.BlockUntilContext(testContext(t), 1))

		clock.Advance(5 * time.Second)
		assert.Same(t, a, dequeue(t, q))
		assert.Same(t, b, dequeue(t, q))
	})

	t.Run("earlier deadline overtakes", func(t *testing.T) {
		t.Parallel()

		clock := clockwork.NewFakeClock()
		q := newQueue(t, 4, queue.WithClock(clock))
		events := q.Subscribe(testContext(t))

		slow, fast := task.New([]byte("slow")), task.New([]byte("fast"))
		require.NoError(t, q.EnqueueDelayed(slow, time.Minute))
		require.NoError(t, q.EnqueueDelayed(fast, time.Second))
		waitFor(t, events, queue.EventScheduled)
		waitFor(t, events, queue.EventScheduled)
		require.NoError(t, clock.BlockUntilContext(testContext(t), 1))

		clock.Advance(time.Second)
		assert.Same(t, fast, dequeue(t, q))

		require.NoError(t, clock.BlockUntilContext(testContext(t), 1))
		clock.Advance(time.Minute)
		assert.Same(t, slow, dequeue(t, q))
	})

	t.Run("waits for room in the ready channel", func(t *testing.T) {
		t.Parallel()

		clock := clockwork.NewFakeClock()
		q := newQueue(t, 1, queue.WithClock(clock))

		first, delayed := task.New([]byte("first")), task.New([]byte("delayed"))
		require.NoError(t, q.Enqueue(testContext(t), first))
		require.NoError(t, q.EnqueueDelayed(delayed, 0))

		assert.Same(t, first, dequeue(t, q))
		assert.Same(t, delayed, dequeue(t, q))
	})

	t.Run("scheduler busy", func(t *testing.T) {
		t.Parallel()

		// A full ready channel parks the scheduler on its pending send, so
		// the single mailbox slot stays occupied.
		clock := clockwork.NewFakeClock()
		q := newQueue(t, 1, queue.WithClock(clock), queue.WithCommandBuffer(1))
		events := q.Subscribe(testContext(t))

		require.NoError(t, q.Enqueue(testContext(t), task.New(nil)))
		require.NoError(t, q.EnqueueDelayed(task.New(nil), 0))
		waitFor(t, events, queue.EventScheduled)

		require.NoError(t, q.EnqueueDelayed(task.New(nil), 0))
		assert.ErrorIs(t, q.EnqueueDelayed(task.New(nil), 0), queue.ErrSchedulerBusy)
	})
}

func TestTaskQueue_Retry(t *testing.T) {
	t.Parallel()

	t.Run("retries until the budget is spent", func(t *testing.T) {
		t.Parallel()

		clock := clockwork.NewFakeClock()
		q := newQueue(t, 4, queue.WithClock(clock))
		ctx := testContext(t)
		events := q.Subscribe(ctx)

		tk := task.New([]byte("flaky"), task.WithRetryPolicy(task.RetryPolicy{
			MaxRetries: 2,
			Strategy:   task.Fixed{Delay: 100 * time.Millisecond},
		}))
		require.NoError(t, q.Enqueue(ctx, tk))

		run := func() *task.Task {
			got := dequeue(t, q)
			require.NoError(t, got.Assign())
			require.NoError(t, got.Start())
			require.NoError(t, q.ReportOutcome(ctx, queue.RetryableFailure(got, "boom")))
			return got
		}

		for attempt := 1; attempt <= 2; attempt++ {
			run()

			e := waitFor(t, events, queue.EventRetryScheduled)
			assert.Equal(t, task.Failed(attempt, "boom"), e.Task.Status)
			assert.Equal(t, 100*time.Millisecond, e.Delay)

			require.NoError(t, clock.BlockUntilContext(ctx, 1))
			clock.Advance(100 * time.Millisecond)
		}

		run()

		e := waitFor(t, events, queue.EventFailedPermanent)
		assert.Equal(t, task.StateFailedPermanent, e.Task.Status.State)
		assert.Contains(t, e.Task.Status.Error, "boom")
		assert.Equal(t, 2, e.Task.Attempts)

		_, ok := q.TryDequeue()
		assert.False(t, ok, "permanently failed task must not be redelivered")
	})

	t.Run("exponential backoff grows", func(t *testing.T) {
		t.Parallel()

		clock := clockwork.NewFakeClock()
		q := newQueue(t, 4, queue.WithClock(clock))
		ctx := testContext(t)
		events := q.Subscribe(ctx)

		tk := task.New(nil, task.WithRetryPolicy(task.RetryPolicy{
			MaxRetries: 3,
			Strategy:   task.Exponential{Base: time.Second, Factor: 2, MaxDelay: time.Minute},
		}))
		require.NoError(t, q.Enqueue(ctx, tk))

		var delays []time.Duration
		for range 2 {
			got := dequeue(t, q)
			require.NoError(t, got.Assign())
			require.NoError(t, got.Start())
			require.NoError(t, q.ReportOutcome(ctx, queue.RetryableFailure(got, "again")))

			e := waitFor(t, events, queue.EventRetryScheduled)
			delays = append(delays, e.Delay)

			require.NoError(t, clock.BlockUntilContext(ctx, 1))
			clock.Advance(e.Delay)
		}

		assert.Equal(t, []time.Duration{2 * time.Second, 4 * time.Second}, delays)
	})
}

func TestTaskQueue_ReportOutcome(t *testing.T) {
	t.Parallel()

	t.Run("completed", func(t *testing.T) {
		t.Parallel()

		q := newQueue(t, 1)
		ctx := testContext(t)
		events := q.Subscribe(ctx)

		require.NoError(t, q.Enqueue(ctx, task.New(nil)))
		got := dequeue(t, q)
		require.NoError(t, got.Assign())
		require.NoError(t, got.Start())
		require.NoError(t, q.ReportOutcome(ctx, queue.Completed(got)))

		e := waitFor(t, events, queue.EventCompleted)
		assert.Equal(t, task.Completed(), e.Task.Status)
	})

	t.Run("fatal failure skips retries", func(t *testing.T) {
		t.Parallel()

		q := newQueue(t, 1)
		ctx := testContext(t)
		events := q.Subscribe(ctx)

		require.NoError(t, q.Enqueue(ctx, task.New(nil)))
		got := dequeue(t, q)
		require.NoError(t, got.Assign())
		require.NoError(t, got.Start())
		require.NoError(t, q.ReportOutcome(ctx, queue.FatalFailure(got, "bad input")))

		e := waitFor(t, events, queue.EventFailedPermanent)
		assert.Equal(t, task.FailedPermanent("bad input"), e.Task.Status)
		assert.Equal(t, 0, e.Task.Attempts)
	})

	t.Run("illegal outcome is dropped", func(t *testing.T) {
		t.Parallel()

		q := newQueue(t, 1)
		ctx := testContext(t)
		events := q.Subscribe(ctx)

		// Completing a task that never started is not a legal edge.
		require.NoError(t, q.ReportOutcome(ctx, queue.Completed(task.New(nil))))

		e := waitFor(t, events, queue.EventDropped)
		assert.Equal(t, task.Pending(), e.Task.Status)
		assert.True(t, task.IsIllegalTransition(e.Err))
	})
}

func TestTaskQueue_Shutdown(t *testing.T) {
	t.Parallel()

	t.Run("ready tasks survive, delayed tasks are abandoned", func(t *testing.T) {
		t.Parallel()

		clock := clockwork.NewFakeClock()
		q, err := queue.New(4, queue.WithClock(clock))
		require.NoError(t, err)

		ctx := testContext(t)
		events := q.Subscribe(ctx)

		a, b := task.New([]byte("a")), task.New([]byte("b"))
		require.NoError(t, q.Enqueue(ctx, a))
		require.NoError(t, q.Enqueue(ctx, b))
		require.NoError(t, q.EnqueueDelayed(task.New([]byte("later")), time.Hour))
		waitFor(t, events, queue.EventScheduled)

		q.Shutdown()
		q.Shutdown()

		assert.True(t, q.Closed())
		assert.Equal(t, 0, q.Delayed())
		waitFor(t, events, queue.EventAbandoned)

		assert.ErrorIs(t, q.Enqueue(ctx, task.New(nil)), queue.ErrClosed)
		assert.ErrorIs(t, q.TryEnqueue(task.New(nil)), queue.ErrClosed)
		assert.ErrorIs(t, q.EnqueueDelayed(task.New(nil), 0), queue.ErrClosed)
		assert.ErrorIs(t, q.ReportOutcome(ctx, queue.Completed(a)), queue.ErrClosed)

		assert.Same(t, a, dequeue(t, q))
		assert.Same(t, b, dequeue(t, q))

		got, ok := q.Dequeue(ctx)
		assert.False(t, ok)
		assert.Nil(t, got)
	})

	t.Run("releases blocked producers", func(t *testing.T) {
		t.Parallel()

		q, err := queue.New(1)
		require.NoError(t, err)
		require.NoError(t, q.Enqueue(testContext(t), task.New(nil)))

		done := make(chan error, 1)
		go func() {
			done <- q.Enqueue(context.Background(), task.New(nil))
		}()

		q.Shutdown()

		select {
		case err := <-done:
			assert.ErrorIs(t, err, queue.ErrClosed)
		case <-time.After(waitTimeout):
			require.FailNow(t, "blocked producer was not released")
		}
	})

	t.Run("event stream closes", func(t *testing.T) {
		t.Parallel()

		q, err := queue.New(1)
		require.NoError(t, err)

		events := q.Subscribe(context.Background())
		q.Shutdown()

		for range events {
		}

		late, ok := <-q.Subscribe(context.Background())
		assert.False(t, ok)
		assert.Zero(t, late)
	})

	t.Run("concurrent calls", func(t *testing.T) {
		t.Parallel()

		q, err := queue.New(1)
		require.NoError(t, err)

		done := make(chan struct{})
		for range 4 {
			go func() {
				q.Shutdown()
				done <- struct{}{}
			}()
		}
		for range 4 {
			select {
			case <-done:
			case <-time.After(waitTimeout):
				require.FailNow(t, "shutdown did not return")
			}
		}
	})
}

func TestTaskQueue_CompetingConsumers(t *testing.T) {
	t.Parallel()

	const (
		producers = 4
		consumers = 3
		perWorker = 50
		total     = producers * perWorker
	)

	q := newQueue(t, 8, queue.WithCommandBuffer(total))
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	events := q.Subscribe(ctx)
	go func() {
		for range events {
		}
	}()

	var (
		mu       sync.Mutex
		seen     = make(map[task.TaskID]int, total)
		received atomic.Int64
		wg       sync.WaitGroup
	)

	consumeCtx, stop := context.WithCancel(ctx)
	defer stop()

	for range consumers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				got, ok := q.Dequeue(consumeCtx)
				if !ok {
					return
				}
				assert.NoError(t, got.Assign())

				mu.Lock()
				seen[got.ID]++
				mu.Unlock()

				if received.Add(1) == total {
					stop()
				}
			}
		}()
	}

	sent := make(chan task.TaskID, total)
	var producing sync.WaitGroup
	for p := range producers {
		producing.Add(1)
		go func() {
			defer producing.Done()
			for i := range perWorker {
				tk := task.New(nil)
				sent <- tk.ID
				if (p+i)%2 == 0 {
					assert.NoError(t, q.Enqueue(ctx, tk))
				} else {
					assert.NoError(t, q.EnqueueDelayed(tk, 0))
				}
			}
		}()
	}
	producing.Wait()
	close(sent)

	wg.Wait()
	require.NoError(t, ctx.Err(), "consumers did not receive every task in time")

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, seen, total)
	for id := range sent {
		assert.Equal(t, 1, seen[id], "task %s", id)
	}
}
