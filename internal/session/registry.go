package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kenlau666/tg-bulk-invite-next/internal/domain"
	"github.com/kenlau666/tg-bulk-invite-next/internal/platform/messaging"
)

// RegistryConfig bounds the resources the registry hands out.
type RegistryConfig struct {
	// MaxSessions caps the number of live sessions. Zero means unlimited.
	MaxSessions int

	// QueueSize is the number of pending work items per session.
	QueueSize int

	// IdleTimeout is how long a session without a job or pending work may
	// go unused before it is reaped. Zero disables reaping.
	IdleTimeout time.Duration
}

// DefaultRegistryConfig returns a RegistryConfig with reasonable defaults
func DefaultRegistryConfig() RegistryConfig {
	return RegistryConfig{
		MaxSessions: 50,
		QueueSize:   16,
		IdleTimeout: time.Hour,
	}
}

// Registry maps session ids to live sessions.
type Registry struct {
	config RegistryConfig
	logger *slog.Logger
	now    func() time.Time

	mu       sync.Mutex
	sessions map[string]*Session
	closed   bool

	teardowns sync.WaitGroup
}

// NewRegistry creates an empty registry.
func NewRegistry(config RegistryConfig, logger *slog.Logger) *Registry {
	return &Registry{
		config:   config,
		logger:   logger.With("component", "session_registry"),
		now:      time.Now,
		sessions: make(map[string]*Session),
	}
}

// Create registers a session owning client and starts its executor. A new
// id is generated when id is empty.
func (r *Registry) Create(client messaging.Client, id string) (*Session, error) {
	if id == "" {
		id = uuid.NewString()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, ErrRegistryClosed
	}
	if _, exists := r.sessions[id]; exists {
		return nil, ErrSessionExists
	}
	if r.config.MaxSessions > 0 && len(r.sessions) >= r.config.MaxSessions {
		if r.reapIdleLocked() == 0 {
			return nil, fmt.Errorf("%w: session limit of %d reached",
				domain.ErrResourceExhausted, r.config.MaxSessions)
		}
	}

	now := r.now()
	s := &Session{
		ID:        id,
		Client:    client,
		CreatedAt: now,
		lastUsed:  now,
		exec:      NewExecutor(r.config.QueueSize, r.logger.With("session_id", id)),
	}
	r.sessions[id] = s

	r.logger.Debug("session created", "session_id", id, "live_sessions", len(r.sessions))
	return s, nil
}

// Get returns the session with the given id.
func (r *Registry) Get(id string) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return s, nil
}

// EnsureContext restarts the executor of a registered session whose
// executor was stopped. It is a no-op when the executor is running.
func (r *Registry) EnsureContext(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return domain.ErrSessionNotFound
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.exec.Stopped() {
		return nil
	}
	s.exec = NewExecutor(r.config.QueueSize, r.logger.With("session_id", id))
	r.logger.Info("session executor restarted", "session_id", id)
	return nil
}

// Destroy removes the session, stops its executor and closes its client.
// When a background job is active, the job is cancelled and the teardown
// happens once the job reports completion through FinishJob. Unknown ids
// are ignored.
func (r *Registry) Destroy(id string) {
	r.mu.Lock()
	s, ok := r.sessions[id]
	if !ok {
		r.mu.Unlock()
		return
	}
	if job := s.Job(); job != nil {
		r.mu.Unlock()
		r.logger.Info("cancelling background job before session teardown", "session_id", id)
		job.Cancel()
		return
	}
	delete(r.sessions, id)
	r.mu.Unlock()

	r.teardown(s)
}

// AttachJob makes job the session's active job and returns the job it
// replaces, if any. The caller is responsible for cancelling the previous
// job.
func (r *Registry) AttachJob(id string, job Job) (Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	s.mu.Lock()
	prev := s.job
	s.job = job
	s.mu.Unlock()
	return prev, nil
}

// FinishJob is called by a job when it reaches a terminal state. If job is
// still the session's active job, the job is detached and the session torn
// down. A job that was replaced leaves the session alone.
func (r *Registry) FinishJob(id string, job Job) {
	r.mu.Lock()
	s, ok := r.sessions[id]
	if !ok {
		r.mu.Unlock()
		return
	}
	s.mu.Lock()
	current := s.job == job
	if current {
		s.job = nil
	}
	s.mu.Unlock()
	if !current {
		r.mu.Unlock()
		return
	}
	delete(r.sessions, id)
	r.teardowns.Add(1)
	r.mu.Unlock()

	// The caller runs on the session executor, which teardown waits for.
	go func() {
		defer r.teardowns.Done()
		r.teardown(s)
	}()
}

// ReapIdle tears down every session that has been unused for longer than
// the idle timeout and has neither a job nor pending work. It returns the
// number of sessions reaped.
func (r *Registry) ReapIdle() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.reapIdleLocked()
}

// RunReaper calls ReapIdle every interval until ctx is done.
func (r *Registry) RunReaper(ctx context.Context, interval time.Duration) {
	if r.config.IdleTimeout <= 0 || interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := r.ReapIdle(); n > 0 {
				r.logger.Info("idle sessions reaped", "count", n)
			}
		}
	}
}

// reapIdleLocked must be called with r.mu held.
func (r *Registry) reapIdleLocked() int {
	if r.config.IdleTimeout <= 0 || r.closed {
		return 0
	}
	cutoff := r.now().Add(-r.config.IdleTimeout)
	reaped := 0
	for id, s := range r.sessions {
		if !s.idleSince(cutoff) {
			continue
		}
		delete(r.sessions, id)
		reaped++
		r.logger.Info("reaping idle session", "session_id", id, "last_used", s.LastUsed())
		r.teardowns.Add(1)
		go func(s *Session) {
			defer r.teardowns.Done()
			r.teardown(s)
		}(s)
	}
	return reaped
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Shutdown cancels every job, tears every session down and waits for the
// teardowns to finish or ctx to expire.
func (r *Registry) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	r.closed = true
	sessions := make([]*Session, 0, len(r.sessions))
	for id, s := range r.sessions {
		sessions = append(sessions, s)
		delete(r.sessions, id)
	}
	for _, s := range sessions {
		if job := s.Job(); job != nil {
			job.Cancel()
		}
		r.teardowns.Add(1)
		go func(s *Session) {
			defer r.teardowns.Done()
			r.teardown(s)
		}(s)
	}
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		r.teardowns.Wait()
		close(done)
	}()

	select {
	case <-done:
		r.logger.Info("all sessions torn down", "count", len(sessions))
		return nil
	case <-ctx.Done():
		return fmt.Errorf("failed to tear down sessions: %w", ctx.Err())
	}
}

func (r *Registry) teardown(s *Session) {
	s.Executor().Stop()
	if err := s.Client.Close(); err != nil {
		r.logger.Warn("failed to close platform client", "session_id", s.ID, "error", err)
	}
	r.logger.Info("session destroyed", "session_id", s.ID)
}
