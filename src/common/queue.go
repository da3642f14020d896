package common

import (
	"errors"
	"sync"

	"github.com/gammazero/deque"
)

// ErrQueueClosed is returned by Push once the queue has been closed, ie. when
// its consumer is gone.
var ErrQueueClosed = errors.New("queue closed")

// Queue is an unbounded multi-producer single-consumer FIFO. Producers never
// block. The consumer waits on Ready() and then calls Pop; because readiness is
// a single buffered token, a select that picks another branch does not lose
// anything, the item stays in the queue until it is popped.
type Queue[T any] struct {
	mu     sync.Mutex
	items  deque.Deque[T]
	ready  chan struct{}
	closed bool
}

// NewQueue creates an empty open queue.
func NewQueue[T any]() *Queue[T] {
	return &Queue[T]{
		ready: make(chan struct{}, 1),
	}
}

// Push appends v to the back of the queue.
func (q *Queue[T]) Push(v T) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return ErrQueueClosed
	}

	q.items.PushBack(v)
	q.signal()

	return nil
}

// Ready returns a channel that receives a token whenever the queue may have
// something for Pop, or has been closed.
func (q *Queue[T]) Ready() <-chan struct{} {
	return q.ready
}

// Pop removes and returns the item at the front of the queue. ok is false when
// the queue is empty. A closed queue keeps returning its remaining items; once
// it is both closed and empty, Ready stays armed so the consumer observes the
// closure on every wait.
func (q *Queue[T]) Pop() (v T, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.items.Len() > 0 {
		v = q.items.PopFront()
		ok = true
	}

	if q.items.Len() > 0 || q.closed {
		q.signal()
	}

	return v, ok
}

// Close marks the queue as closed. Further pushes fail with ErrQueueClosed.
// Close is idempotent.
func (q *Queue[T]) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if !q.closed {
		q.closed = true
		q.signal()
	}
}

// Closed reports whether Close has been called.
func (q *Queue[T]) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

// Drained reports whether the queue is closed and holds no more items, ie.
// whether it is permanently empty.
func (q *Queue[T]) Drained() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed && q.items.Len() == 0
}

// Len returns the number of queued items.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.items.Len()
}

// signal must be called with the lock held.
func (q *Queue[T]) signal() {
	select {
	case q.ready <- struct{}{}:
	default:
	}
}
