package session

import (
	"sync"
	"time"

	"github.com/kenlau666/tg-bulk-invite-next/internal/domain"
	"github.com/kenlau666/tg-bulk-invite-next/internal/platform/messaging"
)

// AuthState is the sign-in state of a session.
type AuthState int

// Sign-in states. A session moves AuthPending -> AuthCodeSent -> AuthAuthorized.
const (
	AuthPending AuthState = iota
	AuthCodeSent
	AuthAuthorized
)

// String returns the state name.
func (s AuthState) String() string {
	switch s {
	case AuthCodeSent:
		return "code_sent"
	case AuthAuthorized:
		return "authorized"
	default:
		return "pending"
	}
}

// Job is the part of a background job the registry needs to manage its
// lifetime.
type Job interface {
	Cancel()
	Done() <-chan struct{}
}

// Session is one authenticated (or authenticating) platform connection.
type Session struct {
	ID        string
	Client    messaging.Client
	CreatedAt time.Time

	mu         sync.Mutex
	exec       *Executor
	auth       AuthState
	phone      string
	targetRef  string
	target     messaging.Group
	hasTarget  bool
	delay      domain.DelayRange
	hasDelay   bool
	candidates []domain.Candidate
	job        Job
	lastUsed   time.Time
}

// Executor returns the session's executor.
func (s *Session) Executor() *Executor {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.exec
}

// AuthState returns the sign-in state.
func (s *Session) AuthState() AuthState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.auth
}

// SetAuthState records a sign-in transition.
func (s *Session) SetAuthState(state AuthState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.auth = state
}

// Authorized reports whether sign-in completed.
func (s *Session) Authorized() bool {
	return s.AuthState() == AuthAuthorized
}

// Phone returns the phone number the session signs in with.
func (s *Session) Phone() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phone
}

// SetPhone records the phone number the session signs in with.
func (s *Session) SetPhone(phone string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.phone = phone
}

// SetTarget records the resolved target group.
func (s *Session) SetTarget(ref string, g messaging.Group) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.targetRef = ref
	s.target = g
	s.hasTarget = true
}

// Target returns the target group reference and its resolved form.
func (s *Session) Target() (string, messaging.Group, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.targetRef, s.target, s.hasTarget
}

// SetDelay records the delay range chosen for the session.
func (s *Session) SetDelay(d domain.DelayRange) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delay = d
	s.hasDelay = true
}

// Delay returns the session delay range and whether one was set.
func (s *Session) Delay() (domain.DelayRange, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.delay, s.hasDelay
}

// SetCandidates stores a copy of the latest eligible candidate list.
func (s *Session) SetCandidates(c []domain.Candidate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.candidates = append([]domain.Candidate(nil), c...)
}

// Candidates returns a copy of the latest eligible candidate list.
func (s *Session) Candidates() []domain.Candidate {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Candidate(nil), s.candidates...)
}

// Job returns the active background job, or nil.
func (s *Session) Job() Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.job
}

// LastUsed returns when work was last submitted to or finished on the
// session.
func (s *Session) LastUsed() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastUsed
}

func (s *Session) touch(t time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.After(s.lastUsed) {
		s.lastUsed = t
	}
}

// idleSince reports whether the session was last used before cutoff and has
// no job and no pending or running work.
func (s *Session) idleSince(cutoff time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.job == nil && s.lastUsed.Before(cutoff) && !s.exec.Busy()
}
