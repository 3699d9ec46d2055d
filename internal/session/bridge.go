package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/kenlau666/tg-bulk-invite-next/internal/domain"
)

// Handle is the pending result of work submitted to a session executor.
type Handle[T any] struct {
	done chan struct{}
	once sync.Once
	val  T
	err  error
}

func newHandle[T any]() *Handle[T] {
	return &Handle[T]{done: make(chan struct{})}
}

func (h *Handle[T]) complete(val T, err error) {
	h.once.Do(func() {
		h.val = val
		h.err = err
		close(h.done)
	})
}

// Done is closed once the result is available.
func (h *Handle[T]) Done() <-chan struct{} {
	return h.done
}

// Await blocks until the work finishes and returns its result. ctx only
// bounds the wait; the work keeps running when ctx expires.
func (h *Handle[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-h.done:
		return h.val, h.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Submit runs work on the executor of the session and returns a handle to
// its result. Work for one session runs in submission order. A stopped
// executor of a registered session is restarted first.
func Submit[T any](reg *Registry, sessionID string, work func(ctx context.Context, s *Session) (T, error)) (*Handle[T], error) {
	if err := reg.EnsureContext(sessionID); err != nil {
		return nil, err
	}
	s, err := reg.Get(sessionID)
	if err != nil {
		return nil, err
	}
	s.touch(reg.now())

	h := newHandle[T]()
	err = s.Executor().Submit(
		func(ctx context.Context) {
			val, err := work(ctx, s)
			s.touch(reg.now())
			h.complete(val, err)
		},
		func(err error) {
			if errors.Is(err, ErrExecutorStopped) {
				err = fmt.Errorf("%w: %w", domain.ErrSessionNotFound, err)
			}
			var zero T
			h.complete(zero, err)
		},
	)
	switch {
	case errors.Is(err, ErrQueueFull):
		return nil, fmt.Errorf("%w: %w", domain.ErrResourceExhausted, err)
	case errors.Is(err, ErrExecutorStopped):
		return nil, fmt.Errorf("%w: %w", domain.ErrSessionNotFound, err)
	case err != nil:
		return nil, err
	}
	return h, nil
}

// Call submits work and waits for its result.
func Call[T any](ctx context.Context, reg *Registry, sessionID string, work func(ctx context.Context, s *Session) (T, error)) (T, error) {
	h, err := Submit(reg, sessionID, work)
	if err != nil {
		var zero T
		return zero, err
	}
	return h.Await(ctx)
}
