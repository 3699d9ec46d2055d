package events

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// ErrInvalidEvent is returned for events that do not belong to a job.
var ErrInvalidEvent = errors.New("invalid job event")

// InMemoryEventEmitter fans job events out to handlers registered in
// process, such as the status board and websocket watchers. Handlers run
// synchronously on the job's goroutine in registration order.
type InMemoryEventEmitter struct {
	handlers []EventHandler
	mu       sync.RWMutex
	logger   *slog.Logger
}

// NewInMemoryEventEmitter creates an emitter without handlers.
func NewInMemoryEventEmitter(logger *slog.Logger) *InMemoryEventEmitter {
	return &InMemoryEventEmitter{
		handlers: make([]EventHandler, 0),
		logger:   logger.With("component", "job_event_emitter"),
	}
}

// RegisterHandler adds handler to the handlers receiving job events.
func (e *InMemoryEventEmitter) RegisterHandler(handler EventHandler) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.handlers = append(e.handlers, handler)
	e.logger.Debug("registered job event handler", "handler_count", len(e.handlers))
}

// EmitEvent delivers event to every handler. A failing or panicking
// handler does not stop delivery to the others; the first failure is
// returned.
func (e *InMemoryEventEmitter) EmitEvent(ctx context.Context, event *JobEvent) error {
	if event == nil || event.JobID == uuid.Nil {
		return ErrInvalidEvent
	}

	e.mu.RLock()
	handlers := make([]EventHandler, len(e.handlers))
	copy(handlers, e.handlers)
	e.mu.RUnlock()

	log := e.logger.With(
		"session_id", event.SessionID,
		"job_id", event.JobID,
		"event_type", event.Type,
		"state", event.State)

	if len(handlers) == 0 {
		log.DebugContext(ctx, "no handlers registered for job event")
		return nil
	}

	var firstErr error
	for i, handler := range handlers {
		if err := deliver(ctx, handler, event); err != nil {
			log.ErrorContext(ctx, "handler failed to process job event",
				"error", err,
				"handler_index", i,
				"pending", event.Progress.Pending)
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	return firstErr
}

func deliver(ctx context.Context, handler EventHandler, event *JobEvent) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job event handler panicked: %v", r)
		}
	}()
	return handler.HandleEvent(ctx, event)
}
