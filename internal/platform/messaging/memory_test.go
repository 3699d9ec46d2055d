package messaging

import (
	"context"
	"testing"
	"time"

	"github.com/kenlau666/tg-bulk-invite-next/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signedIn(t *testing.T, p *Platform) Client {
	t.Helper()
	ctx := context.Background()
	c, err := p.NewClient(ctx, Credentials{APIID: 1, APIHash: "hash", Phone: "+1000"})
	require.NoError(t, err)
	res, err := c.Authenticate(ctx, "+1000", "")
	require.NoError(t, err)
	require.Equal(t, domain.AuthCodeRequired, res.Outcome)
	res, err = c.Authenticate(ctx, "+1000", DefaultLoginCode)
	require.NoError(t, err)
	require.Equal(t, domain.AuthAuthorized, res.Outcome)
	return c
}

func TestMemoryClient_Authenticate(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("wrong code", func(t *testing.T) {
		t.Parallel()
		p := NewPlatform(WithLoginCode("999"))
		c, _ := p.NewClient(ctx, Credentials{Phone: "+1"})
		_, err := c.Authenticate(ctx, "+1", "")
		require.NoError(t, err)
		res, err := c.Authenticate(ctx, "+1", "111")
		require.NoError(t, err)
		assert.Equal(t, domain.AuthFailed, res.Outcome)
		assert.ErrorIs(t, res.Reason, ErrInvalidCode)
	})

	t.Run("rejected phone", func(t *testing.T) {
		t.Parallel()
		p := NewPlatform()
		p.RejectPhone("+44 700")
		c, _ := p.NewClient(ctx, Credentials{Phone: "+44700"})
		res, err := c.Authenticate(ctx, "+44700", "")
		require.NoError(t, err)
		assert.Equal(t, domain.AuthFailed, res.Outcome)
		assert.ErrorIs(t, res.Reason, ErrUpdateAppToLogin)
	})

	t.Run("already authorized", func(t *testing.T) {
		t.Parallel()
		c := signedIn(t, NewPlatform())
		res, err := c.Authenticate(ctx, "+1000", "")
		require.NoError(t, err)
		assert.Equal(t, domain.AuthAuthorized, res.Outcome)
	})

	t.Run("requests need sign in", func(t *testing.T) {
		t.Parallel()
		p := NewPlatform()
		c, _ := p.NewClient(ctx, Credentials{})
		_, err := c.ResolveGroup(ctx, "@x")
		assert.ErrorIs(t, err, ErrNotAuthorized)
	})

	t.Run("closed client", func(t *testing.T) {
		t.Parallel()
		c := signedIn(t, NewPlatform())
		require.NoError(t, c.Close())
		require.NoError(t, c.Close())
		_, err := c.ResolveUser(ctx, 1)
		assert.ErrorIs(t, err, ErrClientClosed)
	})
}

func TestMemoryClient_Groups(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	p := NewPlatform()
	for id := int64(1); id <= 4; id++ {
		p.AddUser(User{ID: id, FirstName: "u", Phone: "+100" + string(rune('0'+id))})
	}
	p.AddGroup("@source", "Source", KindChannel, 1, 2, 3)
	p.AddGroup("https://t.me/target", "Target", KindBasicGroup, 4)
	p.PostMessages("@source", 1, 2, 3, 1)
	c := signedIn(t, p)

	src, err := c.ResolveGroup(ctx, "t.me/source")
	require.NoError(t, err)
	assert.Equal(t, 3, src.MemberCount)
	assert.Equal(t, KindChannel, src.Kind)

	_, err = c.ResolveGroup(ctx, "@missing")
	assert.ErrorIs(t, err, ErrGroupNotFound)

	members, err := c.ListMembers(ctx, src)
	require.NoError(t, err)
	assert.Len(t, members, 3)

	p.LimitVisibleMembers("@source", 1)
	members, err = c.ListMembers(ctx, src)
	require.NoError(t, err)
	assert.Len(t, members, 1)

	p.RequireAdminForListing("@source")
	_, err = c.ListMembers(ctx, src)
	assert.ErrorIs(t, err, ErrChatAdminRequired)

	msgs, err := c.ListMessages(ctx, src, 2)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, int64(1), msgs[0].SenderID, "newest message first")
	assert.Equal(t, int64(3), msgs[1].SenderID)
}

func TestMemoryClient_Invite(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	p := NewPlatform()
	p.AddUser(User{ID: 1, Phone: "+1 (555) 0001"})
	p.AddUser(User{ID: 2})
	p.AddUser(User{ID: 3})
	target := p.AddGroup("@target", "Target", KindChannel, 2)
	p.RestrictPrivacy(3)
	c := signedIn(t, p)

	u, err := c.LookupByPhone(ctx, "+15550001")
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, int64(1), u.ID)

	none, err := c.LookupByPhone(ctx, "+999")
	require.NoError(t, err)
	assert.Nil(t, none)

	require.NoError(t, c.AddContact(ctx, *u))
	assert.True(t, p.IsContact(1))
	assert.ErrorIs(t, c.AddContact(ctx, User{ID: 77}), ErrUserNotFound)

	require.NoError(t, c.InviteToGroup(ctx, target, 1))
	assert.ErrorIs(t, c.InviteToGroup(ctx, target, 2), ErrAlreadyParticipant)
	assert.ErrorIs(t, c.InviteToGroup(ctx, target, 3), ErrPrivacyRestricted)
	assert.ElementsMatch(t, []int64{1, 2}, p.Members("@target"))

	assert.Len(t, p.Calls(OpInvite), 3)
}

func TestMemoryClient_ScriptedFailures(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	var hooked []string
	p := NewPlatform(WithCallHook(func(c Call) { hooked = append(hooked, c.Op) }))
	p.AddUser(User{ID: 1})
	target := p.AddGroup("@t", "T", KindChannel)
	p.FailInvites(1, &FloodWaitError{Wait: time.Second}, 2)
	c := signedIn(t, p)

	assert.ErrorIs(t, c.InviteToGroup(ctx, target, 1), ErrFloodWait)
	assert.ErrorIs(t, c.InviteToGroup(ctx, target, 1), ErrFloodWait)
	assert.NoError(t, c.InviteToGroup(ctx, target, 1))
	assert.Contains(t, hooked, OpInvite)
}
