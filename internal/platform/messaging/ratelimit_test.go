package messaging

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func TestRateLimitedClient(t *testing.T) {
	t.Parallel()

	p := NewPlatform()
	p.AddGroup("@g", "G", KindChannel)
	inner := signedIn(t, p)

	t.Run("passes calls through", func(t *testing.T) {
		t.Parallel()
		c := NewRateLimitedClient(inner, NewLimiter(0, 0))
		g, err := c.ResolveGroup(context.Background(), "@g")
		require.NoError(t, err)
		assert.Equal(t, "G", g.Title)
	})

	t.Run("respects cancellation while waiting for budget", func(t *testing.T) {
		t.Parallel()
		limiter := rate.NewLimiter(rate.Limit(0.001), 1)
		require.True(t, limiter.Allow())
		c := NewRateLimitedClient(inner, limiter)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := c.ResolveGroup(ctx, "@g")
		assert.Error(t, err)
	})
}

func TestNewLimiter(t *testing.T) {
	t.Parallel()

	assert.Equal(t, rate.Inf, NewLimiter(0, 5).Limit())
	l := NewLimiter(2, 0)
	assert.Equal(t, rate.Limit(2), l.Limit())
	assert.Equal(t, 1, l.Burst())
}
