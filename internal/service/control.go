package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/kenlau666/tg-bulk-invite-next/internal/domain"
	"github.com/kenlau666/tg-bulk-invite-next/internal/events"
)

// Stop cancels the session's running scan and background job. It waits for
// the job to finish its in-flight call, bounded by ctx.
func (s *bulkInviteServiceImpl) Stop(ctx context.Context, sessionToken string) (bool, error) {
	id, err := s.sessionID(ctx, sessionToken)
	if err != nil {
		return false, err
	}
	sess, err := s.registry.Get(id)
	if err != nil {
		// A finished job already tore the session down.
		return false, nil
	}

	stopped := sess.Executor().CancelCurrent()
	job := sess.Job()
	if job == nil {
		if stopped {
			s.logger.InfoContext(ctx, "scan stopped", "session_id", id)
		}
		return stopped, nil
	}

	job.Cancel()
	select {
	case <-job.Done():
	case <-ctx.Done():
		s.logger.WarnContext(ctx, "stop returned before the job finished", "session_id", id)
	}
	s.logger.InfoContext(ctx, "background invite stopped", "session_id", id)
	return true, nil
}

// JobStatus returns the latest job event of the session.
func (s *bulkInviteServiceImpl) JobStatus(ctx context.Context, sessionToken string) (*JobStatus, error) {
	id, err := s.sessionID(ctx, sessionToken)
	if err != nil {
		return nil, err
	}
	latest, ok := s.board.Latest(id)
	if !ok {
		return nil, domain.WithGuidance(domain.ErrJobNotFound, MsgNoJob)
	}
	return &JobStatus{Event: latest, Invited: s.board.Invited(id)}, nil
}

// WatchJob streams job updates of the session to fn.
func (s *bulkInviteServiceImpl) WatchJob(ctx context.Context, sessionToken string, fn func(events.JobEvent) error) error {
	id, err := s.sessionID(ctx, sessionToken)
	if err != nil {
		return err
	}

	var lastID uuid.UUID
	for {
		latest, updates, ok := s.board.Subscribe(id)
		if ok && latest.ID != lastID {
			lastID = latest.ID
			if err := fn(latest); err != nil {
				return err
			}
			if latest.Terminal() {
				return nil
			}
		}
		select {
		case <-updates:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
