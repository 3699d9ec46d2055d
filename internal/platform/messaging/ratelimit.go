package messaging

import (
	"context"
	"fmt"

	"github.com/kenlau666/tg-bulk-invite-next/internal/domain"
	"golang.org/x/time/rate"
)

// NewLimiter builds the token bucket shared by the clients of one process.
// A non-positive rate disables limiting.
func NewLimiter(requestsPerSecond float64, burst int) *rate.Limiter {
	if requestsPerSecond <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(requestsPerSecond), burst)
}

// RateLimitedClient throttles every platform request of the wrapped client
// through a token bucket so a process never exceeds its own request budget,
// independently of the pacing applied by invite jobs.
type RateLimitedClient struct {
	next    Client
	limiter *rate.Limiter
}

var _ Client = (*RateLimitedClient)(nil)

// NewRateLimitedClient wraps next with limiter.
func NewRateLimitedClient(next Client, limiter *rate.Limiter) *RateLimitedClient {
	return &RateLimitedClient{next: next, limiter: limiter}
}

func (c *RateLimitedClient) wait(ctx context.Context) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("failed to wait for request budget: %w", err)
	}
	return nil
}

// Authenticate implements Client.
func (c *RateLimitedClient) Authenticate(ctx context.Context, phone, code string) (domain.AuthResult, error) {
	if err := c.wait(ctx); err != nil {
		return domain.AuthResult{}, err
	}
	return c.next.Authenticate(ctx, phone, code)
}

// ResolveGroup implements Client.
func (c *RateLimitedClient) ResolveGroup(ctx context.Context, ref string) (Group, error) {
	if err := c.wait(ctx); err != nil {
		return Group{}, err
	}
	return c.next.ResolveGroup(ctx, ref)
}

// ResolveUser implements Client.
func (c *RateLimitedClient) ResolveUser(ctx context.Context, id int64) (User, error) {
	if err := c.wait(ctx); err != nil {
		return User{}, err
	}
	return c.next.ResolveUser(ctx, id)
}

// ListMembers implements Client.
func (c *RateLimitedClient) ListMembers(ctx context.Context, g Group) ([]User, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	return c.next.ListMembers(ctx, g)
}

// ListMessages implements Client.
func (c *RateLimitedClient) ListMessages(ctx context.Context, g Group, limit int) ([]Message, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	return c.next.ListMessages(ctx, g, limit)
}

// LookupByPhone implements Client.
func (c *RateLimitedClient) LookupByPhone(ctx context.Context, phone string) (*User, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	return c.next.LookupByPhone(ctx, phone)
}

// AddContact implements Client.
func (c *RateLimitedClient) AddContact(ctx context.Context, u User) error {
	if err := c.wait(ctx); err != nil {
		return err
	}
	return c.next.AddContact(ctx, u)
}

// InviteToGroup implements Client.
func (c *RateLimitedClient) InviteToGroup(ctx context.Context, g Group, userID int64) error {
	if err := c.wait(ctx); err != nil {
		return err
	}
	return c.next.InviteToGroup(ctx, g, userID)
}

// Close implements Client. Closing is never throttled.
func (c *RateLimitedClient) Close() error {
	return c.next.Close()
}
