package invite

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/kenlau666/tg-bulk-invite-next/internal/domain"
	"github.com/kenlau666/tg-bulk-invite-next/internal/platform/messaging"
	"github.com/kenlau666/tg-bulk-invite-next/internal/redact"
)

// ErrUnresolved is returned for candidates without a platform account.
var ErrUnresolved = errors.New("candidate has no platform account")

// Inviter invites candidates into one target group.
type Inviter struct {
	client messaging.Client
	target messaging.Group
	logger *slog.Logger
}

// NewInviter creates an Inviter for target.
func NewInviter(client messaging.Client, target messaging.Group, logger *slog.Logger) *Inviter {
	return &Inviter{
		client: client,
		target: target,
		logger: logger,
	}
}

// Resolve returns the platform account of c. A candidate known only by
// phone number is looked up and returned with its id and names filled in.
func (in *Inviter) Resolve(ctx context.Context, c domain.Candidate) (messaging.User, domain.Candidate, error) {
	if c.HasID() {
		return userOf(c), c, nil
	}
	if c.Phone == "" {
		return messaging.User{}, c, ErrUnresolved
	}

	u, err := in.client.LookupByPhone(ctx, c.Phone)
	if err != nil {
		return messaging.User{}, c, fmt.Errorf("failed to look up phone %s: %w", redact.Phone(c.Phone), err)
	}
	if u == nil {
		return messaging.User{}, c, ErrUnresolved
	}

	id := u.ID
	c.ID = &id
	if c.FirstName == "" {
		c.FirstName = u.FirstName
	}
	if c.LastName == "" {
		c.LastName = u.LastName
	}
	if c.Username == "" {
		c.Username = u.Username
	}
	if u.Phone == "" {
		u.Phone = c.Phone
	}
	return *u, c, nil
}

// AddContact adds u as a contact, which some platforms require before an
// invitation is accepted.
func (in *Inviter) AddContact(ctx context.Context, u messaging.User) error {
	if err := in.client.AddContact(ctx, u); err != nil {
		return fmt.Errorf("failed to add contact: %w", err)
	}
	return nil
}

// Invite invites the account into the target group.
func (in *Inviter) Invite(ctx context.Context, userID int64) error {
	if err := in.client.InviteToGroup(ctx, in.target, userID); err != nil {
		return fmt.Errorf("failed to invite to %s: %w", in.target.Kind, err)
	}
	return nil
}

// InviteOnce resolves, adds and invites c with a single attempt per call.
// The returned candidate carries the resolved id and the resulting status.
func (in *Inviter) InviteOnce(ctx context.Context, c domain.Candidate) (domain.Candidate, error) {
	u, c, err := in.Resolve(ctx, c)
	if err != nil {
		c.Status = domain.CandidateSkipped
		return c, err
	}

	if err := in.AddContact(ctx, u); err != nil {
		in.logger.WarnContext(ctx, "continuing without contact",
			"user_id", u.ID,
			"error", redact.Error(err))
	}

	if err := in.Invite(ctx, u.ID); err != nil {
		c.Status = domain.CandidateFailed
		return c, err
	}
	c.Status = domain.CandidateInvited
	return c, nil
}

func userOf(c domain.Candidate) messaging.User {
	return messaging.User{
		ID:        *c.ID,
		FirstName: c.FirstName,
		LastName:  c.LastName,
		Username:  c.Username,
		Phone:     c.Phone,
	}
}
