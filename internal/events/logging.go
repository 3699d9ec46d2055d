package events

import (
	"context"
	"log/slog"
)

// LoggingHandler writes job events to a structured logger.
type LoggingHandler struct {
	logger *slog.Logger
}

// NewLoggingHandler creates a LoggingHandler.
func NewLoggingHandler(logger *slog.Logger) *LoggingHandler {
	return &LoggingHandler{logger: logger.With("component", "job_events")}
}

// HandleEvent implements EventHandler.
func (h *LoggingHandler) HandleEvent(ctx context.Context, event *JobEvent) error {
	attrs := []any{
		"job_id", event.JobID,
		"session_id", event.SessionID,
		"state", event.State,
		"total", event.Progress.Total,
		"invited", event.Progress.Invited,
		"failed", event.Progress.Failed,
		"skipped", event.Progress.Skipped,
		"pending", event.Progress.Pending,
	}
	switch event.Type {
	case JobStarted:
		h.logger.InfoContext(ctx, "invite job started", attrs...)
	case JobFinished:
		if event.Error != "" {
			attrs = append(attrs, "error", event.Error)
		}
		h.logger.InfoContext(ctx, "invite job finished", attrs...)
	default:
		if c := event.Candidate; c != nil {
			attrs = append(attrs, "candidate_status", c.Status, "attempts", c.Attempts)
		}
		h.logger.DebugContext(ctx, "invite job progress", attrs...)
	}
	return nil
}
