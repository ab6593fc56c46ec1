// Package writequeue arbitrates the single write transaction the store
// allows at a time (spec.md §5): requests are serviced FIFO within a
// priority lane, and a higher-priority lane only ever preempts a lower
// one at the next transaction boundary — an in-flight write is never
// interrupted.
package writequeue

import (
	"container/heap"
	"context"
	"sync"

	"golang.org/x/sync/semaphore"
)

// Priority selects a lane. Lower values run first when more than one
// lane has waiters at a dispatch decision.
type Priority int

const (
	PriorityBlockProcessing Priority = iota
	PriorityConfirmationHeight
	PriorityBulk
)

// Queue serializes access to the single write transaction slot.
type Queue struct {
	mu      sync.Mutex
	sem     *semaphore.Weighted
	waiting requestHeap
	seq     uint64
	held    bool
}

func New() *Queue {
	return &Queue{sem: semaphore.NewWeighted(1)}
}

type request struct {
	priority Priority
	seq      uint64
	ready    chan struct{}
	index    int
}

type requestHeap []*request

func (h requestHeap) Len() int { return len(h) }
func (h requestHeap) Less(i, j int) bool {
	if h[i].priority != h[j].priority {
		return h[i].priority < h[j].priority
	}
	return h[i].seq < h[j].seq
}
func (h requestHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index, h[j].index = i, j
}
func (h *requestHeap) Push(x any) {
	r := x.(*request)
	r.index = len(*h)
	*h = append(*h, r)
}
func (h *requestHeap) Pop() any {
	old := *h
	n := len(old)
	r := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return r
}

// Acquire blocks until the caller holds the write slot, honoring lane
// priority among other current waiters. The returned release func must
// be called exactly once, at the write transaction's boundary (commit
// or abort), to hand the slot to the next waiter.
func (q *Queue) Acquire(ctx context.Context, priority Priority) (release func(), err error) {
	q.mu.Lock()
	req := &request{priority: priority, seq: q.seq}
	q.seq++
	req.ready = make(chan struct{})
	heap.Push(&q.waiting, req)
	q.dispatch()
	q.mu.Unlock()

	select {
	case <-req.ready:
		return func() { q.release() }, nil
	case <-ctx.Done():
		q.mu.Lock()
		if req.index >= 0 && req.index < len(q.waiting) && q.waiting[req.index] == req {
			heap.Remove(&q.waiting, req.index)
		}
		q.mu.Unlock()
		// A dispatch may have raced the cancellation and already closed
		// ready; draining here avoids leaking that grant.
		select {
		case <-req.ready:
			return func() { q.release() }, nil
		default:
		}
		return nil, ctx.Err()
	}
}

func (q *Queue) dispatch() {
	if q.held || q.waiting.Len() == 0 {
		return
	}
	if !q.sem.TryAcquire(1) {
		return
	}
	req := heap.Pop(&q.waiting).(*request)
	q.held = true
	close(req.ready)
}

func (q *Queue) release() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.held = false
	q.sem.Release(1)
	q.dispatch()
}
