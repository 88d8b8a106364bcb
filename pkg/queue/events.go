package queue

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrymomot/nimbu/pkg/task"
)

// EventType names a lifecycle event emitted by the queue.
type EventType string

const (
	EventEnqueued        EventType = "enqueued"
	EventScheduled       EventType = "scheduled"
	EventReady           EventType = "ready"
	EventDequeued        EventType = "dequeued"
	EventRetryScheduled  EventType = "retry_scheduled"
	EventCompleted       EventType = "completed"
	EventFailedPermanent EventType = "failed_permanent"
	EventDropped         EventType = "dropped"
	EventAbandoned       EventType = "abandoned"
)

// Event describes something that happened to a task. Task is a snapshot,
// independent from the task that keeps moving through the queue.
type Event struct {
	Type  EventType
	Task  *task.Task
	Delay time.Duration
	Err   error
	At    time.Time
}

type subscriber struct {
	ch     chan Event
	closed bool
	mu     sync.RWMutex
}

func (s *subscriber) close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.closed {
		close(s.ch)
		s.closed = true
	}
}

func (s *subscriber) send(e Event) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return false
	}

	select {
	case s.ch <- e:
		return true
	default:
		return false
	}
}

// feed fans lifecycle events out to subscribers. Publishing never blocks:
// a subscriber whose buffer is full misses the event.
type feed struct {
	subscribers map[*subscriber]struct{}
	bufferSize  int
	closed      bool
	mu          sync.RWMutex
}

func newFeed(bufferSize int) *feed {
	return &feed{
		subscribers: make(map[*subscriber]struct{}),
		bufferSize:  max(bufferSize, 1),
	}
}

func (f *feed) subscribe(ctx context.Context) <-chan Event {
	sub := &subscriber{ch: make(chan Event, f.bufferSize)}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		sub.close()
		return sub.ch
	}

	f.subscribers[sub] = struct{}{}

	if ctx.Done() != nil {
		go func() {
			<-ctx.Done()
			f.unsubscribe(sub)
		}()
	}

	return sub.ch
}

func (f *feed) unsubscribe(sub *subscriber) {
	f.mu.Lock()
	delete(f.subscribers, sub)
	f.mu.Unlock()
	sub.close()
}

// active reports whether anyone listens, so callers can skip building snapshots.
func (f *feed) active() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.subscribers) > 0
}

func (f *feed) publish(e Event) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.closed {
		return
	}
	for sub := range f.subscribers {
		sub.send(e)
	}
}

// close closes every subscriber channel. Later subscriptions get a closed channel.
func (f *feed) close() {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return
	}
	f.closed = true
	for sub := range f.subscribers {
		sub.close()
	}
	clear(f.subscribers)
	f.mu.Unlock()
}
