package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kenlau666/tg-bulk-invite-next/internal/domain"
	"github.com/kenlau666/tg-bulk-invite-next/internal/invite"
	"github.com/kenlau666/tg-bulk-invite-next/internal/platform/messaging"
	"github.com/kenlau666/tg-bulk-invite-next/internal/redact"
	"github.com/kenlau666/tg-bulk-invite-next/internal/session"
)

// InviteParticipant invites a single candidate inside the session.
func (s *bulkInviteServiceImpl) InviteParticipant(ctx context.Context, sessionToken string, c domain.Candidate) (domain.Candidate, error) {
	if !c.HasID() && strings.TrimSpace(c.Phone) == "" {
		return c, domain.NewValidationError("participant", "an id or a phone number is required", domain.ErrValidation)
	}

	sess, err := s.authorizedSession(ctx, sessionToken)
	if err != nil {
		return c, err
	}
	ref, target, ok := sess.Target()
	if !ok {
		return c, domain.WithGuidance(domain.ErrNoTargetGroup, MsgNoTargetGroup)
	}

	out, err := session.Call(ctx, s.registry, sess.ID,
		func(ctx context.Context, sess *session.Session) (domain.Candidate, error) {
			inviter := invite.NewInviter(sess.Client, target, s.logger.With("session_id", sess.ID))
			return inviter.InviteOnce(ctx, c)
		})
	switch {
	case errors.Is(err, invite.ErrUnresolved):
		return out, domain.NewValidationError("participant", "no account found for this participant",
			fmt.Errorf("%w: %w", domain.ErrValidation, err))
	case err != nil:
		s.logger.WarnContext(ctx, "failed to invite participant",
			"session_id", sess.ID,
			"target_group", ref,
			"participant", out.DisplayName(),
			"error", redact.Error(err))
		return out, fmt.Errorf("failed to invite participant: %w", messaging.ToDomain(err))
	}

	s.logger.InfoContext(ctx, "participant invited", "session_id", sess.ID, "target_group", ref)
	return out, nil
}

// StartBackgroundInvite starts a job for the session.
func (s *bulkInviteServiceImpl) StartBackgroundInvite(
	ctx context.Context,
	sessionToken string,
	candidates []domain.Candidate,
	delay *domain.DelayRange,
) (*JobInfo, error) {
	sess, err := s.authorizedSession(ctx, sessionToken)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		candidates = sess.Candidates()
	}
	return s.startJob(ctx, sess, candidates, delay)
}

// InviteByPhoneNumbers resolves phone numbers and optionally starts a job.
func (s *bulkInviteServiceImpl) InviteByPhoneNumbers(ctx context.Context, in PhoneInviteInput) (*PhoneInviteResult, error) {
	target := strings.TrimSpace(in.TargetGroup)
	if target == "" {
		return nil, domain.NewValidationError("targetGroup", "is required", domain.ErrValidation)
	}
	if in.Delay != nil {
		if err := in.Delay.Validate(); err != nil {
			return nil, err
		}
	}

	sess, err := s.authorizedSession(ctx, in.SessionToken)
	if err != nil {
		return nil, err
	}

	candidates, err := session.Call(ctx, s.registry, sess.ID,
		func(ctx context.Context, sess *session.Session) ([]domain.Candidate, error) {
			group, err := sess.Client.ResolveGroup(ctx, target)
			if err != nil {
				return nil, fmt.Errorf("failed to resolve target group: %w", messaging.ToDomain(err))
			}
			sess.SetTarget(target, group)
			if in.Delay != nil {
				sess.SetDelay(*in.Delay)
			}
			found := s.resolvePhones(ctx, sess, in.PhoneNumbers)
			sess.SetCandidates(found)
			return found, nil
		})
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to resolve phone numbers",
			"session_id", sess.ID,
			"target_group", target,
			"error", redact.Error(err))
		return nil, err
	}

	res := &PhoneInviteResult{Candidates: candidates}
	if in.Interactive || len(candidates) == 0 {
		return res, nil
	}
	res.Job, err = s.startJob(ctx, sess, candidates, in.Delay)
	if err != nil {
		return nil, err
	}
	return res, nil
}

// resolvePhones builds one candidate per distinct phone number. Numbers the
// platform does not know, or that fail to resolve, stay phone-only so the
// job can retry the lookup.
func (s *bulkInviteServiceImpl) resolvePhones(ctx context.Context, sess *session.Session, phones []string) []domain.Candidate {
	seen := make(map[string]bool, len(phones))
	out := make([]domain.Candidate, 0, len(phones))
	for _, phone := range phones {
		phone = strings.TrimSpace(phone)
		norm := domain.NormalizePhone(phone)
		if norm == "" || seen[norm] {
			continue
		}
		seen[norm] = true

		c := domain.Candidate{Phone: phone, Status: domain.CandidatePending}
		u, err := sess.Client.LookupByPhone(ctx, phone)
		switch {
		case err != nil:
			s.logger.WarnContext(ctx, "failed to look up phone number",
				"session_id", sess.ID,
				"phone", redact.Phone(phone),
				"error", redact.Error(err))
		case u != nil:
			c.ID = domain.IDPtr(u.ID)
			c.FirstName = u.FirstName
			c.LastName = u.LastName
			c.Username = u.Username
		}
		out = append(out, c)
	}
	return out
}

// startJob creates a job for candidates, replaces the session's active job
// with it and runs it on the session executor.
func (s *bulkInviteServiceImpl) startJob(
	ctx context.Context,
	sess *session.Session,
	candidates []domain.Candidate,
	requested *domain.DelayRange,
) (*JobInfo, error) {
	if len(candidates) == 0 {
		return nil, domain.WithGuidance(domain.ErrNoCandidates, MsgNoCandidates)
	}
	ref, target, ok := sess.Target()
	if !ok {
		return nil, domain.WithGuidance(domain.ErrNoTargetGroup, MsgNoTargetGroup)
	}
	delay, err := s.delayFor(requested, sess)
	if err != nil {
		return nil, err
	}

	job := invite.NewJob(invite.Params{
		SessionID:  sess.ID,
		Client:     sess.Client,
		Target:     target,
		TargetRef:  ref,
		Candidates: candidates,
		Delay:      delay,
		Config:     s.config.Job,
		Emitter:    s.emitter,
		Logger:     s.logger,
		OnFinish: func(j *invite.Job) {
			s.registry.FinishJob(j.SessionID(), j)
		},
	})

	prev, err := s.registry.AttachJob(sess.ID, job)
	if err != nil {
		return nil, domain.WithGuidance(err, MsgNoActiveSession)
	}
	if prev != nil {
		s.logger.InfoContext(ctx, "replacing running invite job", "session_id", sess.ID)
		prev.Cancel()
	}

	if err := sess.Executor().Go(job.Run); err != nil {
		job.Abort(fmt.Errorf("%w: %w", domain.ErrSessionNotFound, err))
		return nil, domain.WithGuidance(fmt.Errorf("%w: %w", domain.ErrSessionNotFound, err), MsgNoActiveSession)
	}

	s.logger.InfoContext(ctx, "background invite started",
		"session_id", sess.ID,
		"job_id", job.ID(),
		"target_group", ref,
		"candidates", len(candidates),
		"delay_min", delay.Min,
		"delay_max", delay.Max)
	return &JobInfo{JobID: job.ID(), Candidates: len(candidates)}, nil
}
