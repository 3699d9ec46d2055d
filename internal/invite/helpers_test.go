package invite

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"

	"github.com/kenlau666/tg-bulk-invite-next/internal/domain"
	"github.com/kenlau666/tg-bulk-invite-next/internal/platform/messaging"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func signIn(t *testing.T, p *messaging.Platform) messaging.Client {
	t.Helper()
	ctx := context.Background()
	c, err := p.NewClient(ctx, messaging.Credentials{Phone: "+1"})
	require.NoError(t, err)
	_, err = c.Authenticate(ctx, "+1", "")
	require.NoError(t, err)
	res, err := c.Authenticate(ctx, "+1", messaging.DefaultLoginCode)
	require.NoError(t, err)
	require.Equal(t, domain.AuthAuthorized, res.Outcome)
	return c
}

func candidate(id int64) domain.Candidate {
	return domain.Candidate{ID: domain.IDPtr(id), FirstName: "user", Status: domain.CandidatePending}
}

type contactFailingClient struct {
	messaging.Client
}

func (c contactFailingClient) AddContact(context.Context, messaging.User) error {
	return messaging.ErrPrivacyRestricted
}

type lookupFailingClient struct {
	messaging.Client
	lookups atomic.Int32
}

func (c *lookupFailingClient) LookupByPhone(context.Context, string) (*messaging.User, error) {
	c.lookups.Add(1)
	return nil, errors.New("IMPORT_CONTACTS_FAILED")
}
