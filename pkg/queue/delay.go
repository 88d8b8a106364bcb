package queue

import (
	"container/heap"
	"time"

	"github.com/dmitrymomot/nimbu/pkg/task"
)

type delayedTask struct {
	task *task.Task
	at   time.Time
	seq  uint64
}

// delayHeap orders by expiry; equal expiries keep insertion order.
type delayHeap []delayedTask

func (h delayHeap) Len() int { return len(h) }

func (h delayHeap) Less(i, j int) bool {
	if h[i].at.Equal(h[j].at) {
		return h[i].seq < h[j].seq
	}
	return h[i].at.Before(h[j].at)
}

func (h delayHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *delayHeap) Push(x any) { *h = append(*h, x.(delayedTask)) }

func (h *delayHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = delayedTask{}
	*h = old[:n-1]
	return item
}

// delayQueue is owned by the scheduler goroutine and is never locked.
type delayQueue struct {
	items delayHeap
	seq   uint64
}

func (q *delayQueue) push(t *task.Task, at time.Time) {
	q.seq++
	heap.Push(&q.items, delayedTask{task: t, at: at, seq: q.seq})
}

// peek returns the earliest expiry.
func (q *delayQueue) peek() (time.Time, bool) {
	if len(q.items) == 0 {
		return time.Time{}, false
	}
	return q.items[0].at, true
}

// popExpired removes the earliest entry if its expiry is not after now.
func (q *delayQueue) popExpired(now time.Time) (*task.Task, bool) {
	at, ok := q.peek()
	if !ok || at.After(now) {
		return nil, false
	}
	return heap.Pop(&q.items).(delayedTask).task, true
}

func (q *delayQueue) len() int {
	return len(q.items)
}

// drain empties the queue in expiry order.
func (q *delayQueue) drain() []*task.Task {
	out := make([]*task.Task, 0, len(q.items))
	for len(q.items) > 0 {
		out = append(out, heap.Pop(&q.items).(delayedTask).task)
	}
	return out
}
