package invite

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kenlau666/tg-bulk-invite-next/internal/domain"
	"github.com/kenlau666/tg-bulk-invite-next/internal/events"
	"github.com/kenlau666/tg-bulk-invite-next/internal/platform/messaging"
	"github.com/kenlau666/tg-bulk-invite-next/internal/redact"
	"golang.org/x/sync/errgroup"
)

// State is the lifecycle state of a Job.
type State string

// Job states. A job moves Idle -> Running -> one of the terminal states.
const (
	StateIdle      State = "idle"
	StateRunning   State = "running"
	StateCompleted State = "completed"
	StateCancelled State = "cancelled"
	StateFailed    State = "failed"
)

// Terminal reports whether the state is final.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateCancelled || s == StateFailed
}

// Config holds job settings shared by every job of the process.
type Config struct {
	// BatchSize is the number of candidates processed concurrently.
	BatchSize int

	// BatchPause is the pause between two batches.
	BatchPause time.Duration

	// Retry applies to every platform call of the job.
	Retry RetryPolicy
}

// DefaultConfig returns a Config with reasonable defaults
func DefaultConfig() Config {
	return Config{
		BatchSize:  5,
		BatchPause: 5 * time.Second,
		Retry:      DefaultRetryPolicy(),
	}
}

// Params are the inputs of one job.
type Params struct {
	SessionID  string
	Client     messaging.Client
	Target     messaging.Group
	TargetRef  string
	Candidates []domain.Candidate
	Delay      domain.DelayRange
	Config     Config
	Emitter    events.EventEmitter
	Logger     *slog.Logger

	// OnFinish is called once the job reached a terminal state and Done is
	// closed.
	OnFinish func(*Job)

	// Now, Sleep and Rand replace the clock, the pause function and the
	// delay source. They default to the real ones.
	Now   func() time.Time
	Sleep SleepFunc
	Rand  *rand.Rand
}

// Snapshot is a consistent view of a job.
type Snapshot struct {
	JobID      uuid.UUID
	SessionID  string
	State      State
	Progress   events.Progress
	Candidates []domain.Candidate
	Err        error
	StartedAt  time.Time
	FinishedAt time.Time
}

// Job invites a list of candidates in the background.
type Job struct {
	id        uuid.UUID
	sessionID string
	targetRef string
	config    Config
	inviter   *Inviter
	pacer     *pacer
	emitter   events.EventEmitter
	logger    *slog.Logger
	onFinish  func(*Job)
	now       func() time.Time
	sleep     SleepFunc

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once

	mu         sync.Mutex
	state      State
	candidates []domain.Candidate
	err        error
	startedAt  time.Time
	finishedAt time.Time
}

// NewJob creates an idle job. The candidate list is copied.
func NewJob(p Params) *Job {
	if p.Config.BatchSize < 1 {
		p.Config.BatchSize = 1
	}
	if p.Now == nil {
		p.Now = time.Now
	}
	if p.Sleep == nil {
		p.Sleep = sleepContext
	}
	if p.Rand == nil {
		p.Rand = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}

	id := uuid.New()
	logger := p.Logger.With("component", "invite_job", "job_id", id, "session_id", p.SessionID)
	ctx, cancel := context.WithCancel(context.Background())

	candidates := make([]domain.Candidate, len(p.Candidates))
	copy(candidates, p.Candidates)
	for i := range candidates {
		candidates[i].Status = domain.CandidatePending
	}

	return &Job{
		id:         id,
		sessionID:  p.SessionID,
		targetRef:  p.TargetRef,
		config:     p.Config,
		inviter:    NewInviter(p.Client, p.Target, logger),
		pacer:      newPacer(p.Delay, p.Rand, p.Now, p.Sleep),
		emitter:    p.Emitter,
		logger:     logger,
		onFinish:   p.OnFinish,
		now:        p.Now,
		sleep:      p.Sleep,
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
		state:      StateIdle,
		candidates: candidates,
	}
}

// ID returns the job id.
func (j *Job) ID() uuid.UUID {
	return j.id
}

// SessionID returns the id of the owning session.
func (j *Job) SessionID() string {
	return j.sessionID
}

// Cancel requests the job to stop. Candidates not yet started stay pending.
func (j *Job) Cancel() {
	j.cancel()
}

// Done is closed once the job reached a terminal state.
func (j *Job) Done() <-chan struct{} {
	return j.done
}

// State returns the current state.
func (j *Job) State() State {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.state
}

// Snapshot returns a copy of the job state.
func (j *Job) Snapshot() Snapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	return Snapshot{
		JobID:      j.id,
		SessionID:  j.sessionID,
		State:      j.state,
		Progress:   j.progressLocked(),
		Candidates: append([]domain.Candidate(nil), j.candidates...),
		Err:        j.err,
		StartedAt:  j.startedAt,
		FinishedAt: j.finishedAt,
	}
}

// Run processes the candidates. Cancelling ctx cancels the job. Run always
// leaves the job in a terminal state, closes Done and calls OnFinish.
func (j *Job) Run(ctx context.Context) {
	stop := context.AfterFunc(ctx, j.cancel)
	defer stop()
	if ctx.Err() != nil {
		j.cancel()
	}

	defer func() {
		if r := recover(); r != nil {
			j.logger.Error("recovered panic in invite job",
				"panic", fmt.Sprint(r),
				"stack", string(debug.Stack()))
			j.finish(StateFailed, fmt.Errorf("%w: panic in invite job: %v", domain.ErrUnexpected, r))
		}
	}()

	j.mu.Lock()
	if j.state != StateIdle {
		j.mu.Unlock()
		return
	}
	j.state = StateRunning
	j.startedAt = j.now()
	j.mu.Unlock()
	j.emit(events.JobStarted, nil)

	err := j.process()
	switch {
	case j.ctx.Err() != nil:
		j.finish(StateCancelled, nil)
	case err != nil:
		j.finish(StateFailed, err)
	default:
		j.finish(StateCompleted, nil)
	}
}

// Abort moves a job that never ran to StateFailed.
func (j *Job) Abort(err error) {
	j.cancel()
	j.finish(StateFailed, err)
}

func (j *Job) process() error {
	total := len(j.candidates)
	for start := 0; start < total; start += j.config.BatchSize {
		if j.ctx.Err() != nil {
			return j.ctx.Err()
		}
		if start > 0 {
			if err := j.sleep(j.ctx, j.config.BatchPause); err != nil {
				return err
			}
		}

		end := min(start+j.config.BatchSize, total)
		var g errgroup.Group
		for i := start; i < end; i++ {
			g.Go(func() (err error) {
				defer func() {
					if r := recover(); r != nil {
						j.logger.Error("recovered panic while processing candidate",
							"panic", fmt.Sprint(r),
							"stack", string(debug.Stack()))
						err = fmt.Errorf("%w: panic while processing candidate: %v", domain.ErrUnexpected, r)
					}
				}()
				j.processCandidate(i)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}
	}
	return nil
}

func (j *Job) processCandidate(i int) {
	if j.ctx.Err() != nil {
		return
	}
	c := j.candidate(i)
	callCtx := context.WithoutCancel(j.ctx)
	policy := j.config.Retry

	u, c, err := j.inviter.Resolve(callCtx, c)
	if errors.Is(err, ErrUnresolved) {
		err = nil
	}
	if err != nil && j.ctx.Err() != nil {
		return
	}
	if err != nil || !c.HasID() {
		j.logger.Info("skipping candidate without platform account",
			"phone", redact.Phone(c.Phone),
			"error", redact.Error(err))
		j.record(i, c, domain.CandidateSkipped, 0)
		return
	}

	if _, err := policy.Do(j.ctx, func() error {
		return j.inviter.AddContact(callCtx, u)
	}); err != nil {
		if j.ctx.Err() != nil {
			j.setCandidate(i, c)
			return
		}
		j.logger.Warn("continuing without contact", "user_id", u.ID, "error", redact.Error(err))
	}

	if err := j.pacer.wait(j.ctx); err != nil {
		j.setCandidate(i, c)
		return
	}

	attempts, err := policy.Do(j.ctx, func() error {
		return j.inviter.Invite(callCtx, u.ID)
	})
	switch {
	case err == nil:
		j.record(i, c, domain.CandidateInvited, attempts)
	case errors.Is(err, messaging.ErrAlreadyParticipant):
		j.record(i, c, domain.CandidateSkipped, attempts)
	case attempts == 0:
		j.setCandidate(i, c)
	default:
		j.logger.Warn("failed to invite candidate",
			"user_id", u.ID,
			"attempts", attempts,
			"error", redact.Error(err))
		j.record(i, c, domain.CandidateFailed, attempts)
		if policy.NeedsCooldown(attempts, err) {
			_ = j.sleep(j.ctx, policy.Cooldown)
		}
	}
}

func (j *Job) candidate(i int) domain.Candidate {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.candidates[i]
}

// setCandidate stores resolved fields without changing the status.
func (j *Job) setCandidate(i int, c domain.Candidate) {
	j.mu.Lock()
	c.Status = j.candidates[i].Status
	j.candidates[i] = c
	j.mu.Unlock()
}

func (j *Job) record(i int, c domain.Candidate, status domain.CandidateStatus, attempts int) {
	j.mu.Lock()
	c.Status = status
	j.candidates[i] = c
	j.mu.Unlock()

	j.emit(events.JobProgress, &events.CandidateOutcome{
		ID:        c.ID,
		FirstName: c.FirstName,
		Phone:     c.Phone,
		Status:    string(status),
		GroupID:   j.targetRef,
		Attempts:  attempts,
	})
}

func (j *Job) finish(state State, err error) {
	j.once.Do(func() {
		j.mu.Lock()
		j.state = state
		j.err = err
		j.finishedAt = j.now()
		j.mu.Unlock()

		j.emit(events.JobFinished, nil)
		j.cancel()
		close(j.done)
		if j.onFinish != nil {
			j.onFinish(j)
		}
	})
}

func (j *Job) progressLocked() events.Progress {
	p := events.Progress{Total: len(j.candidates)}
	for _, c := range j.candidates {
		switch c.Status {
		case domain.CandidateInvited:
			p.Invited++
		case domain.CandidateFailed:
			p.Failed++
		case domain.CandidateSkipped:
			p.Skipped++
		default:
			p.Pending++
		}
	}
	return p
}

func (j *Job) emit(eventType events.EventType, candidate *events.CandidateOutcome) {
	if j.emitter == nil {
		return
	}
	j.mu.Lock()
	event := events.NewJobEvent(eventType, j.id, j.sessionID, string(j.state), j.progressLocked())
	if j.err != nil {
		event.Error = redact.Error(j.err)
	}
	j.mu.Unlock()
	event.Candidate = candidate

	if err := j.emitter.EmitEvent(context.Background(), event); err != nil {
		j.logger.Warn("failed to publish job event", "event_type", eventType, "error", err)
	}
}
