package invite

import (
	"context"
	"errors"
	"time"

	"github.com/kenlau666/tg-bulk-invite-next/internal/platform/messaging"
	"github.com/sethvargo/go-retry"
)

// RetryPolicy describes how a failing platform call is retried.
type RetryPolicy struct {
	// MaxAttempts is the total number of attempts, including the first.
	MaxAttempts int

	// Backoff is the pause between attempts. A flood wait requested by the
	// platform replaces it when longer.
	Backoff time.Duration

	// Cooldown is the pause applied after the final attempt failed.
	Cooldown time.Duration
}

// DefaultRetryPolicy returns a RetryPolicy with reasonable defaults
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		Backoff:     30 * time.Second,
		Cooldown:    60 * time.Second,
	}
}

// Do calls call until it succeeds, fails with a permanent error or runs out
// of attempts, and returns the number of attempts made. ctx is checked
// before every attempt and interrupts the backoff; it is not passed to call.
func (p RetryPolicy) Do(ctx context.Context, call func() error) (int, error) {
	var (
		attempts int
		lastErr  error
	)

	retries := p.MaxAttempts - 1
	if retries < 0 {
		retries = 0
	}
	backoff := retry.WithMaxRetries(uint64(retries), retry.BackoffFunc(func() (time.Duration, bool) {
		wait := p.Backoff
		if fw, ok := messaging.FloodWait(lastErr); ok && fw > wait {
			wait = fw
		}
		return wait, false
	}))

	err := retry.Do(ctx, backoff, func(context.Context) error {
		attempts++
		err := call()
		if err == nil {
			return nil
		}
		lastErr = err
		if messaging.IsPermanent(err) {
			return err
		}
		return retry.RetryableError(err)
	})
	return attempts, err
}

// NeedsCooldown reports whether the outcome of Do exhausted every attempt on
// transient failures.
func (p RetryPolicy) NeedsCooldown(attempts int, err error) bool {
	if err == nil || messaging.IsPermanent(err) {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return attempts >= p.MaxAttempts
}
