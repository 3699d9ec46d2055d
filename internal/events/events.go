package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// EventType identifies the kind of job event.
type EventType string

// Job event types
const (
	JobStarted  EventType = "job_started"
	JobProgress EventType = "job_progress"
	JobFinished EventType = "job_finished"
)

// Progress counts the candidates of a job by status.
type Progress struct {
	Total   int `json:"total"`
	Invited int `json:"invited"`
	Failed  int `json:"failed"`
	Skipped int `json:"skipped"`
	Pending int `json:"pending"`
}

// CandidateOutcome describes the candidate a progress event is about.
type CandidateOutcome struct {
	ID        *int64 `json:"id"`
	FirstName string `json:"firstName,omitempty"`
	Phone     string `json:"phone,omitempty"`
	Status    string `json:"status"`
	GroupID   string `json:"groupId"`
	Attempts  int    `json:"attempts,omitempty"`
}

// JobEvent reports a state change or progress of a background invite job.
type JobEvent struct {
	// ID is a unique identifier for this event
	ID uuid.UUID `json:"id"`

	// Type indicates what happened
	Type EventType `json:"type"`

	// JobID identifies the job
	JobID uuid.UUID `json:"jobId"`

	// SessionID is the registry id of the owning session; it is never
	// serialized.
	SessionID string `json:"-"`

	// State is the job state after the event
	State string `json:"state"`

	// Progress is the candidate tally after the event
	Progress Progress `json:"progress"`

	// Candidate is set on progress events
	Candidate *CandidateOutcome `json:"candidate,omitempty"`

	// Error describes why a job failed
	Error string `json:"error,omitempty"`

	// CreatedAt is the timestamp when the event was created
	CreatedAt time.Time `json:"createdAt"`
}

// NewJobEvent creates a JobEvent with a fresh id.
func NewJobEvent(eventType EventType, jobID uuid.UUID, sessionID, state string, progress Progress) *JobEvent {
	return &JobEvent{
		ID:        uuid.New(),
		Type:      eventType,
		JobID:     jobID,
		SessionID: sessionID,
		State:     state,
		Progress:  progress,
		CreatedAt: time.Now(),
	}
}

// Terminal reports whether the event closes the job's event stream.
func (e *JobEvent) Terminal() bool {
	return e.Type == JobFinished
}

// EventHandler defines an interface for components that can handle events.
type EventHandler interface {
	// HandleEvent processes the given event within the provided context.
	HandleEvent(ctx context.Context, event *JobEvent) error
}

// EventEmitter defines an interface for components that can emit events.
// This allows jobs to publish progress without direct knowledge of handlers.
type EventEmitter interface {
	// EmitEvent publishes the given event to all registered handlers.
	EmitEvent(ctx context.Context, event *JobEvent) error
}

// HandlerFunc adapts a function to the EventHandler interface.
type HandlerFunc func(ctx context.Context, event *JobEvent) error

// HandleEvent calls f.
func (f HandlerFunc) HandleEvent(ctx context.Context, event *JobEvent) error {
	return f(ctx, event)
}
