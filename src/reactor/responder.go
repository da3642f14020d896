package reactor

import (
	"context"
	"sync"
)

// Responder carries the reply to a request event back to whoever issued it.
// Only the first call to Respond has an effect.
type Responder[T any] struct {
	ch   chan T
	once sync.Once
}

// NewResponder ...
func NewResponder[T any]() *Responder[T] {
	return &Responder[T]{
		ch: make(chan T, 1),
	}
}

// Respond delivers v. It never blocks.
func (r *Responder[T]) Respond(v T) {
	if r == nil {
		return
	}
	r.once.Do(func() {
		r.ch <- v
	})
}

// Wait blocks until a reply is delivered or ctx is done.
func (r *Responder[T]) Wait(ctx context.Context) (T, error) {
	select {
	case v := <-r.ch:
		return v, nil
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
