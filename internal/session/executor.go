package session

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"

	"github.com/kenlau666/tg-bulk-invite-next/internal/domain"
)

// Work is a unit of work run on an Executor. The context is cancelled when
// the work is cancelled through CancelCurrent or the executor stops.
type Work func(ctx context.Context)

type queuedWork struct {
	run  Work
	drop func(error)
}

// Executor runs submitted work one item at a time, in submission order, on
// a dedicated goroutine. It also tracks detached tasks started with Go so
// that Stop can wait for them.
type Executor struct {
	queue      chan queuedWork
	ctx        context.Context
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
	logger     *slog.Logger

	mu            sync.Mutex
	closed        bool
	currentCancel context.CancelFunc
}

// NewExecutor creates an executor with a queue of queueSize slots and starts
// its goroutine.
func NewExecutor(queueSize int, logger *slog.Logger) *Executor {
	if queueSize < 1 {
		queueSize = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	e := &Executor{
		queue:      make(chan queuedWork, queueSize),
		ctx:        ctx,
		cancelFunc: cancel,
		logger:     logger,
	}
	e.wg.Add(1)
	go e.loop()
	return e
}

// Submit enqueues fn. If the executor stops before fn runs, drop is called
// with ErrExecutorStopped instead. drop may be nil.
func (e *Executor) Submit(fn Work, drop func(error)) error {
	if drop == nil {
		drop = func(error) {}
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrExecutorStopped
	}
	select {
	case e.queue <- queuedWork{run: fn, drop: drop}:
		return nil
	default:
		return ErrQueueFull
	}
}

// Go runs fn on its own goroutine. The executor waits for fn when stopping
// and cancels the context passed to it.
func (e *Executor) Go(fn Work) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ErrExecutorStopped
	}
	e.wg.Add(1)
	e.mu.Unlock()

	go func() {
		defer e.wg.Done()
		defer e.recoverPanic(nil)
		fn(e.ctx)
	}()
	return nil
}

// CancelCurrent cancels the queued work that is currently running. It
// reports whether there was any.
func (e *Executor) CancelCurrent() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.currentCancel == nil {
		return false
	}
	e.currentCancel()
	return true
}

// Stop cancels running work, waits for the executor goroutine and every
// detached task, and fails work still queued. It is idempotent and must not
// be called from work running on e.
func (e *Executor) Stop() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		e.wg.Wait()
		return
	}
	e.closed = true
	e.mu.Unlock()

	e.cancelFunc()
	e.wg.Wait()

	for {
		select {
		case w := <-e.queue:
			w.drop(ErrExecutorStopped)
		default:
			return
		}
	}
}

// Stopped reports whether Stop was called.
func (e *Executor) Stopped() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.closed
}

// Busy reports whether work is running or queued.
func (e *Executor) Busy() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.currentCancel != nil || len(e.queue) > 0
}

func (e *Executor) loop() {
	defer e.wg.Done()

	for {
		select {
		case <-e.ctx.Done():
			return
		case w := <-e.queue:
			if e.ctx.Err() != nil {
				w.drop(ErrExecutorStopped)
				continue
			}
			e.run(w)
		}
	}
}

func (e *Executor) run(w queuedWork) {
	ctx, cancel := context.WithCancel(e.ctx)
	e.mu.Lock()
	e.currentCancel = cancel
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		e.currentCancel = nil
		e.mu.Unlock()
		cancel()
	}()
	defer e.recoverPanic(w.drop)

	w.run(ctx)
}

func (e *Executor) recoverPanic(report func(error)) {
	r := recover()
	if r == nil {
		return
	}
	err := fmt.Errorf("%w: panic in session work: %v", domain.ErrUnexpected, r)
	e.logger.Error("recovered panic in session work",
		"panic", fmt.Sprint(r),
		"stack", string(debug.Stack()))
	if report != nil {
		report(err)
	}
}
