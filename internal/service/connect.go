package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kenlau666/tg-bulk-invite-next/internal/domain"
	"github.com/kenlau666/tg-bulk-invite-next/internal/platform/messaging"
	"github.com/kenlau666/tg-bulk-invite-next/internal/redact"
	"github.com/kenlau666/tg-bulk-invite-next/internal/session"
)

// Connect starts or completes the sign-in of a session.
func (s *bulkInviteServiceImpl) Connect(ctx context.Context, in ConnectInput) (*ConnectResult, error) {
	if in.SessionToken != "" && in.Code != "" {
		return s.completeSignIn(ctx, in.SessionToken, strings.TrimSpace(in.Code))
	}
	return s.startSignIn(ctx, in)
}

func (s *bulkInviteServiceImpl) startSignIn(ctx context.Context, in ConnectInput) (*ConnectResult, error) {
	phone := strings.TrimSpace(in.Phone)
	switch {
	case in.APIID <= 0:
		return nil, domain.NewValidationError("apiId", "must be a positive number", domain.ErrValidation)
	case strings.TrimSpace(in.APIHash) == "":
		return nil, domain.NewValidationError("apiHash", "is required", domain.ErrValidation)
	case phone == "":
		return nil, domain.NewValidationError("phoneNumber", "is required", domain.ErrValidation)
	}

	log := s.logger.With("phone", redact.Phone(phone))

	client, err := s.clients.NewClient(ctx, messaging.Credentials{
		APIID:   in.APIID,
		APIHash: in.APIHash,
		Phone:   phone,
	})
	if err != nil {
		log.ErrorContext(ctx, "failed to create platform client", "error", redact.Error(err))
		return nil, fmt.Errorf("failed to create platform client: %w", messaging.ToDomain(err))
	}
	if s.config.RequestsPerSecond > 0 {
		client = messaging.NewRateLimitedClient(client,
			messaging.NewLimiter(s.config.RequestsPerSecond, s.config.Burst))
	}

	sess, err := s.registry.Create(client, "")
	if err != nil {
		if closeErr := client.Close(); closeErr != nil {
			log.WarnContext(ctx, "failed to close platform client", "error", closeErr)
		}
		log.WarnContext(ctx, "failed to create session", "error", err)
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	sess.SetPhone(phone)

	result, err := session.Call(ctx, s.registry, sess.ID,
		func(ctx context.Context, sess *session.Session) (domain.AuthResult, error) {
			return sess.Client.Authenticate(ctx, phone, "")
		})
	if err != nil {
		s.registry.Destroy(sess.ID)
		log.ErrorContext(ctx, "sign-in failed", "error", redact.Error(err))
		return nil, fmt.Errorf("failed to start sign-in: %w", messaging.ToDomain(err))
	}

	switch result.Outcome {
	case domain.AuthAuthorized:
		sess.SetAuthState(session.AuthAuthorized)
	case domain.AuthCodeRequired:
		sess.SetAuthState(session.AuthCodeSent)
	default:
		s.registry.Destroy(sess.ID)
		log.InfoContext(ctx, "sign-in refused", "reason", redact.Error(result.Reason))
		return nil, authFailure(result.Reason)
	}

	token, err := s.tokens.Issue(ctx, sess.ID)
	if err != nil {
		s.registry.Destroy(sess.ID)
		return nil, fmt.Errorf("%w: failed to issue session token: %w", domain.ErrUnexpected, err)
	}

	log.InfoContext(ctx, "session created", "session_id", sess.ID, "outcome", result.Outcome)
	res := &ConnectResult{SessionToken: token, Outcome: result.Outcome, Message: MsgCodeSent}
	if result.Outcome == domain.AuthAuthorized {
		res.Message = MsgAlreadyAuthorized
	}
	return res, nil
}

func (s *bulkInviteServiceImpl) completeSignIn(ctx context.Context, token, code string) (*ConnectResult, error) {
	id, err := s.sessionID(ctx, token)
	if err != nil {
		return nil, err
	}
	sess, err := s.registry.Get(id)
	if err != nil {
		return nil, domain.WithGuidance(err, MsgNoActiveSession)
	}

	result, err := session.Call(ctx, s.registry, id,
		func(ctx context.Context, sess *session.Session) (domain.AuthResult, error) {
			return sess.Client.Authenticate(ctx, sess.Phone(), code)
		})
	if err != nil {
		s.logger.ErrorContext(ctx, "code verification failed", "session_id", id, "error", redact.Error(err))
		return nil, fmt.Errorf("failed to verify code: %w", messaging.ToDomain(err))
	}

	if result.Outcome != domain.AuthAuthorized {
		s.logger.InfoContext(ctx, "code rejected", "session_id", id, "reason", redact.Error(result.Reason))
		if result.Reason == nil {
			// The platform asked for yet another code.
			return nil, domain.WithGuidance(domain.ErrInvalidCode, MsgInvalidCode)
		}
		return nil, authFailure(result.Reason)
	}

	sess.SetAuthState(session.AuthAuthorized)
	s.logger.InfoContext(ctx, "session authenticated", "session_id", id)
	return &ConnectResult{SessionToken: token, Outcome: domain.AuthAuthorized, Message: MsgAuthenticated}, nil
}

// authFailure converts the reason of a refused sign-in into a domain error
// carrying user guidance.
func authFailure(reason error) error {
	if reason == nil {
		reason = errors.New("sign-in refused")
	}
	err := messaging.ToDomain(reason)
	switch {
	case errors.Is(err, domain.ErrUnsupportedPhone):
		return domain.WithGuidance(err, MsgUnsupportedPhone)
	case errors.Is(err, domain.ErrInvalidCode):
		return domain.WithGuidance(err, MsgInvalidCode)
	default:
		return fmt.Errorf("sign-in refused: %w", err)
	}
}
