package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kenlau666/tg-bulk-invite-next/internal/domain"
	"github.com/kenlau666/tg-bulk-invite-next/internal/redact"
	"github.com/kenlau666/tg-bulk-invite-next/internal/scan"
	"github.com/kenlau666/tg-bulk-invite-next/internal/session"
)

// GetParticipants runs the eligibility scanner inside the session.
func (s *bulkInviteServiceImpl) GetParticipants(ctx context.Context, sessionToken string, in ScanInput) ([]domain.Candidate, error) {
	target := strings.TrimSpace(in.TargetGroup)
	if target == "" {
		return nil, domain.NewValidationError("targetGroup", "is required", domain.ErrValidation)
	}
	sources := make([]string, 0, len(in.SourceGroups))
	for _, g := range in.SourceGroups {
		if g = strings.TrimSpace(g); g != "" {
			sources = append(sources, g)
		}
	}
	if len(sources) == 0 {
		return nil, domain.NewValidationError("sourceGroups", "at least one source group is required", domain.ErrValidation)
	}
	if in.MaxPerGroup < 0 {
		return nil, domain.NewValidationError("maxPerGroup", "must not be negative", domain.ErrValidation)
	}
	if in.Delay != nil {
		if err := in.Delay.Validate(); err != nil {
			return nil, err
		}
	}

	sess, err := s.authorizedSession(ctx, sessionToken)
	if err != nil {
		return nil, err
	}

	req := scan.Request{
		TargetGroup:       target,
		SourceGroups:      sources,
		PreviouslyInvited: in.PreviouslyInvited,
		Options: scan.Options{
			MaxPerGroup:        in.MaxPerGroup,
			MaxMessages:        in.MaxMessages,
			OnlyRecentlyActive: in.OnlyRecentlyActive,
		},
	}

	result, err := session.Call(ctx, s.registry, sess.ID,
		func(ctx context.Context, sess *session.Session) (*scan.Result, error) {
			res, err := s.scanner.Scan(ctx, sess.Client, req)
			if err != nil {
				return nil, err
			}
			sess.SetTarget(target, res.Target)
			sess.SetCandidates(res.Candidates)
			if in.Delay != nil {
				sess.SetDelay(*in.Delay)
			}
			return res, nil
		})
	if errors.Is(err, context.Canceled) && ctx.Err() == nil {
		s.logger.InfoContext(ctx, "scan stopped", "session_id", sess.ID)
		return nil, domain.WithGuidance(fmt.Errorf("scan stopped: %w", err), MsgProcessStopped)
	}
	if err != nil {
		s.logger.ErrorContext(ctx, "scan failed",
			"session_id", sess.ID,
			"target_group", target,
			"error", redact.Error(err))
		return nil, fmt.Errorf("failed to scan groups: %w", err)
	}

	s.logger.InfoContext(ctx, "scan finished",
		"session_id", sess.ID,
		"target_group", target,
		"source_groups", len(sources),
		"eligible", len(result.Candidates))
	return result.Candidates, nil
}
