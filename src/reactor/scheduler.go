package reactor

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/gammazero/deque"
)

// ErrSchedulerClosed is returned when pushing to or popping from a closed
// Scheduler. Pop only returns it once every queued item has been handed out.
var ErrSchedulerClosed = errors.New("scheduler closed")

// Scheduler is the central event queue of a node. Any goroutine may push;
// a single consumer pops. Kinds are served in weighted round-robin so that a
// flood of one kind cannot starve the others.
type Scheduler struct {
	mu     sync.Mutex
	queues map[QueueKind]*deque.Deque[interface{}]
	ready  chan struct{}
	closed bool

	// round-robin state
	current QueueKind
	served  int
}

// NewScheduler ...
func NewScheduler() *Scheduler {
	s := &Scheduler{
		queues: make(map[QueueKind]*deque.Deque[interface{}]),
		ready:  make(chan struct{}, 1),
	}
	for _, k := range Kinds {
		s.queues[k] = new(deque.Deque[interface{}])
	}
	return s
}

// Push enqueues item with the given kind.
func (s *Scheduler) Push(item interface{}, kind QueueKind) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSchedulerClosed
	}

	q, ok := s.queues[kind]
	if !ok {
		return fmt.Errorf("unknown queue kind %d", kind)
	}

	q.PushBack(item)
	s.signal()

	return nil
}

// Schedule is an alias of Push.
func (s *Scheduler) Schedule(item interface{}, kind QueueKind) error {
	return s.Push(item, kind)
}

// Pop blocks until an item is available, the context is done or the
// scheduler is closed and empty.
func (s *Scheduler) Pop(ctx context.Context) (interface{}, QueueKind, error) {
	for {
		item, kind, ok, closed := s.tryPop()
		if ok {
			return item, kind, nil
		}
		if closed {
			return nil, 0, ErrSchedulerClosed
		}

		select {
		case <-s.ready:
		case <-ctx.Done():
			return nil, 0, ctx.Err()
		}
	}
}

func (s *Scheduler) tryPop() (interface{}, QueueKind, bool, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := 0; i <= len(Kinds); i++ {
		q := s.queues[s.current]
		if q.Len() > 0 && s.served < s.current.Weight() {
			s.served++
			item := q.PopFront()
			kind := s.current
			if s.total() > 0 {
				s.signal()
			}
			return item, kind, true, false
		}
		s.advance()
	}

	return nil, 0, false, s.closed
}

func (s *Scheduler) advance() {
	s.current = Kinds[(int(s.current)+1)%len(Kinds)]
	s.served = 0
}

func (s *Scheduler) total() int {
	n := 0
	for _, q := range s.queues {
		n += q.Len()
	}
	return n
}

// Len returns the number of queued items of all kinds.
func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.total()
}

// Close stops accepting new items. Items already queued can still be popped.
func (s *Scheduler) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	s.signal()
}

func (s *Scheduler) signal() {
	select {
	case s.ready <- struct{}{}:
	default:
	}
}
