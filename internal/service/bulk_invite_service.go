package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/kenlau666/tg-bulk-invite-next/internal/domain"
	"github.com/kenlau666/tg-bulk-invite-next/internal/events"
	"github.com/kenlau666/tg-bulk-invite-next/internal/invite"
	"github.com/kenlau666/tg-bulk-invite-next/internal/platform/messaging"
	"github.com/kenlau666/tg-bulk-invite-next/internal/scan"
	"github.com/kenlau666/tg-bulk-invite-next/internal/service/auth"
	"github.com/kenlau666/tg-bulk-invite-next/internal/session"
)

// BulkInviteService orchestrates sessions, scans and invite jobs.
type BulkInviteService interface {
	// Connect runs one phase of the two-phase sign-in.
	Connect(ctx context.Context, in ConnectInput) (*ConnectResult, error)

	// GetParticipants scans source groups for members eligible for the target
	// group and remembers the result on the session.
	GetParticipants(ctx context.Context, sessionToken string, in ScanInput) ([]domain.Candidate, error)

	// InviteParticipant invites one candidate synchronously, without retries.
	InviteParticipant(ctx context.Context, sessionToken string, c domain.Candidate) (domain.Candidate, error)

	// StartBackgroundInvite starts a job for candidates, or for the last scan
	// result when candidates is empty, replacing any running job.
	StartBackgroundInvite(ctx context.Context, sessionToken string, candidates []domain.Candidate, delay *domain.DelayRange) (*JobInfo, error)

	// InviteByPhoneNumbers resolves phone numbers into candidates and, unless
	// the input is interactive, starts a job for them.
	InviteByPhoneNumbers(ctx context.Context, in PhoneInviteInput) (*PhoneInviteResult, error)

	// Stop cancels the running scan and job of the session. It reports
	// whether anything was running.
	Stop(ctx context.Context, sessionToken string) (bool, error)

	// JobStatus returns the last known progress of the session's job. It
	// stays available after the job tore the session down.
	JobStatus(ctx context.Context, sessionToken string) (*JobStatus, error)

	// WatchJob calls fn with every job update of the session until the job
	// finishes, fn fails or ctx is done.
	WatchJob(ctx context.Context, sessionToken string, fn func(events.JobEvent) error) error
}

// ConnectInput carries one sign-in request. The first phase sets the
// credentials; the second sets SessionToken and Code.
type ConnectInput struct {
	APIID        int
	APIHash      string
	Phone        string
	SessionToken string
	Code         string
}

// ConnectResult is the outcome of one sign-in phase.
type ConnectResult struct {
	SessionToken string
	Outcome      domain.AuthOutcome
	Message      string
}

// ScanInput are the parameters of GetParticipants.
type ScanInput struct {
	TargetGroup        string
	SourceGroups       []string
	PreviouslyInvited  []domain.InvitedRecord
	MaxPerGroup        int
	MaxMessages        int
	OnlyRecentlyActive bool
	Delay              *domain.DelayRange
}

// PhoneInviteInput are the parameters of InviteByPhoneNumbers.
type PhoneInviteInput struct {
	SessionToken string
	PhoneNumbers []string
	TargetGroup  string
	Delay        *domain.DelayRange
	Interactive  bool
}

// PhoneInviteResult lists the candidates built from phone numbers. Job is
// nil when no job was started.
type PhoneInviteResult struct {
	Candidates []domain.Candidate
	Job        *JobInfo
}

// JobInfo identifies a started job.
type JobInfo struct {
	JobID      uuid.UUID
	Candidates int
}

// JobStatus is the last known state of a session's job.
type JobStatus struct {
	Event   events.JobEvent
	Invited []events.CandidateOutcome
}

// Config holds service settings.
type Config struct {
	// Job configures every background job.
	Job invite.Config

	// DefaultDelay applies when neither the request nor the session set one.
	DefaultDelay domain.DelayRange

	// RequestsPerSecond and Burst bound each session's platform traffic.
	// A zero rate disables limiting.
	RequestsPerSecond float64
	Burst             int
}

// DefaultConfig returns a Config with reasonable defaults
func DefaultConfig() Config {
	return Config{
		Job:          invite.DefaultConfig(),
		DefaultDelay: domain.DefaultDelayRange(),
		Burst:        1,
	}
}

// Deps are the collaborators of the service.
type Deps struct {
	Registry *session.Registry
	Scanner  *scan.Scanner
	Tokens   auth.SessionTokens
	Clients  messaging.ClientFactory
	Emitter  events.EventEmitter
	Board    *events.StatusBoard
	Logger   *slog.Logger
}

// bulkInviteServiceImpl implements the BulkInviteService interface
type bulkInviteServiceImpl struct {
	config   Config
	registry *session.Registry
	scanner  *scan.Scanner
	tokens   auth.SessionTokens
	clients  messaging.ClientFactory
	emitter  events.EventEmitter
	board    *events.StatusBoard
	logger   *slog.Logger
}

var _ BulkInviteService = (*bulkInviteServiceImpl)(nil)

// NewBulkInviteService creates a BulkInviteService.
// It returns an error if any of the required dependencies are nil.
func NewBulkInviteService(config Config, deps Deps) (BulkInviteService, error) {
	switch {
	case deps.Registry == nil:
		return nil, fmt.Errorf("registry cannot be nil")
	case deps.Scanner == nil:
		return nil, fmt.Errorf("scanner cannot be nil")
	case deps.Tokens == nil:
		return nil, fmt.Errorf("session tokens cannot be nil")
	case deps.Clients == nil:
		return nil, fmt.Errorf("client factory cannot be nil")
	case deps.Emitter == nil:
		return nil, fmt.Errorf("event emitter cannot be nil")
	case deps.Board == nil:
		return nil, fmt.Errorf("status board cannot be nil")
	}
	if err := config.DefaultDelay.Validate(); err != nil {
		return nil, fmt.Errorf("invalid default delay: %w", err)
	}

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &bulkInviteServiceImpl{
		config:   config,
		registry: deps.Registry,
		scanner:  deps.Scanner,
		tokens:   deps.Tokens,
		clients:  deps.Clients,
		emitter:  deps.Emitter,
		board:    deps.Board,
		logger:   logger.With("component", "bulk_invite_service"),
	}, nil
}

// sessionID verifies a session token and returns the registry id it names.
func (s *bulkInviteServiceImpl) sessionID(ctx context.Context, token string) (string, error) {
	claims, err := s.tokens.Verify(ctx, strings.TrimSpace(token))
	if err != nil {
		return "", domain.WithGuidance(fmt.Errorf("%w: %w", domain.ErrSessionNotFound, err), MsgNoActiveSession)
	}
	return claims.SessionID, nil
}

// authorizedSession resolves token to a live, signed-in session.
func (s *bulkInviteServiceImpl) authorizedSession(ctx context.Context, token string) (*session.Session, error) {
	id, err := s.sessionID(ctx, token)
	if err != nil {
		return nil, err
	}
	sess, err := s.registry.Get(id)
	if err != nil {
		return nil, domain.WithGuidance(err, MsgNoActiveSession)
	}
	if !sess.Authorized() {
		return nil, domain.WithGuidance(domain.ErrAuthenticationRequired, MsgNotAuthenticated)
	}
	return sess, nil
}

func (s *bulkInviteServiceImpl) delayFor(requested *domain.DelayRange, sess *session.Session) (domain.DelayRange, error) {
	if requested != nil {
		if err := requested.Validate(); err != nil {
			return domain.DelayRange{}, err
		}
		return *requested, nil
	}
	if d, ok := sess.Delay(); ok {
		return d, nil
	}
	return s.config.DefaultDelay, nil
}
