package scan

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/kenlau666/tg-bulk-invite-next/internal/domain"
	"github.com/kenlau666/tg-bulk-invite-next/internal/platform/messaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func testScanner(config Config) *Scanner {
	s := NewScanner(config, slog.New(slog.NewTextHandler(io.Discard, nil)))
	s.SetClock(func() time.Time { return fixedNow })
	return s
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

func addUsers(p *messaging.Platform, ids ...int64) {
	for _, id := range ids {
		p.AddUser(messaging.User{ID: id, FirstName: "user", Status: messaging.UserStatus{Kind: messaging.StatusRecently}})
	}
}

func ids(candidates []domain.Candidate) []int64 {
	out := make([]int64, 0, len(candidates))
	for _, c := range candidates {
		out = append(out, *c.ID)
	}
	return out
}

func TestScan_ExcludesTargetMembersAndPreviouslyInvited(t *testing.T) {
	t.Parallel()

	p := messaging.NewPlatform()
	addUsers(p, 1, 2, 3, 4)
	p.AddGroup("@target", "Target", messaging.KindChannel, 1, 2)
	p.AddGroup("@source", "Source", messaging.KindChannel, 1, 3, 4)

	res, err := testScanner(DefaultConfig()).Scan(context.Background(), signIn(t, p), Request{
		TargetGroup:       "@target",
		SourceGroups:      []string{"@source"},
		PreviouslyInvited: []domain.InvitedRecord{{ID: domain.IDPtr(3), GroupID: "@target"}},
		Options:           Options{OnlyRecentlyActive: true},
	})
	require.NoError(t, err)

	assert.Equal(t, []int64{4}, ids(res.Candidates))
	assert.Equal(t, domain.CandidatePending, res.Candidates[0].Status)
	assert.Equal(t, "@source", res.Candidates[0].SourceGroup)
	assert.Equal(t, "Target", res.Target.Title)
}

func TestScan_PreviouslyInvitedIsScopedToTarget(t *testing.T) {
	t.Parallel()

	p := messaging.NewPlatform()
	addUsers(p, 1, 2, 3)
	p.AddGroup("@target", "Target", messaging.KindChannel)
	p.AddGroup("@source", "Source", messaging.KindChannel, 1, 2, 3)

	res, err := testScanner(DefaultConfig()).Scan(context.Background(), signIn(t, p), Request{
		TargetGroup:  "https://t.me/target",
		SourceGroups: []string{"@source"},
		PreviouslyInvited: []domain.InvitedRecord{
			{ID: domain.IDPtr(1), GroupID: "@other"},
			{ID: domain.IDPtr(2), GroupID: "@target"},
			{ID: domain.IDPtr(3)},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, []int64{1}, ids(res.Candidates))
}

func TestScan_PerGroupCapAndCallerOrder(t *testing.T) {
	t.Parallel()

	p := messaging.NewPlatform()
	addUsers(p, 10, 11, 12, 20, 21, 22, 30)
	p.AddGroup("@target", "Target", messaging.KindChannel)
	p.AddGroup("@a", "A", messaging.KindChannel, 10, 11, 12)
	p.AddGroup("@b", "B", messaging.KindChannel, 20, 21, 22)
	p.AddGroup("@c", "C", messaging.KindChannel, 30)

	for _, parallel := range []int{0, 1, 2} {
		res, err := testScanner(Config{MaxParallelGroups: parallel}).Scan(context.Background(), signIn(t, p), Request{
			TargetGroup:  "@target",
			SourceGroups: []string{"@c", "@b", "@a"},
			Options:      Options{MaxPerGroup: 2},
		})
		require.NoError(t, err)
		assert.Equal(t, []int64{30, 20, 21, 10, 11}, ids(res.Candidates), "parallel=%d", parallel)
		require.Len(t, res.Groups, 3)
		assert.Equal(t, "@c", res.Groups[0].Group)
		assert.Equal(t, 2, res.Groups[1].Eligible)
	}
}

func TestScan_DeduplicatesAcrossGroups(t *testing.T) {
	t.Parallel()

	p := messaging.NewPlatform()
	addUsers(p, 1, 2, 3)
	p.AddGroup("@target", "Target", messaging.KindChannel)
	p.AddGroup("@a", "A", messaging.KindChannel, 1, 2)
	p.AddGroup("@b", "B", messaging.KindChannel, 2, 3)

	res, err := testScanner(DefaultConfig()).Scan(context.Background(), signIn(t, p), Request{
		TargetGroup:  "@target",
		SourceGroups: []string{"@a", "@b"},
	})
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 3}, ids(res.Candidates))
	assert.Equal(t, "@a", res.Candidates[1].SourceGroup, "earlier group wins")
}

func TestScan_HistoryFallback(t *testing.T) {
	t.Parallel()

	t.Run("hidden member list", func(t *testing.T) {
		t.Parallel()
		p := messaging.NewPlatform()
		addUsers(p, 1, 2, 3)
		p.AddGroup("@target", "Target", messaging.KindChannel)
		p.AddGroup("@hidden", "Hidden", messaging.KindChannel, 1, 2, 3)
		p.RequireAdminForListing("@hidden")
		p.PostMessages("@hidden", 2, 0, 3, 2, 99)

		res, err := testScanner(DefaultConfig()).Scan(context.Background(), signIn(t, p), Request{
			TargetGroup:  "@target",
			SourceGroups: []string{"@hidden"},
		})
		require.NoError(t, err)
		assert.ElementsMatch(t, []int64{2, 3}, ids(res.Candidates), "unknown sender 99 is skipped")
		assert.True(t, res.Groups[0].FromHistory)
	})

	t.Run("incomplete listing is supplemented", func(t *testing.T) {
		t.Parallel()
		p := messaging.NewPlatform()
		addUsers(p, 1, 2, 3)
		p.AddGroup("@target", "Target", messaging.KindChannel)
		p.AddGroup("@big", "Big", messaging.KindChannel, 1, 2, 3)
		p.LimitVisibleMembers("@big", 1)
		p.PostMessages("@big", 3)

		res, err := testScanner(DefaultConfig()).Scan(context.Background(), signIn(t, p), Request{
			TargetGroup:  "@target",
			SourceGroups: []string{"@big"},
		})
		require.NoError(t, err)
		assert.Equal(t, []int64{1, 3}, ids(res.Candidates))
	})

	t.Run("history limit", func(t *testing.T) {
		t.Parallel()
		p := messaging.NewPlatform()
		addUsers(p, 1, 2, 3)
		p.AddGroup("@target", "Target", messaging.KindChannel)
		p.AddGroup("@hidden", "Hidden", messaging.KindChannel, 1, 2, 3)
		p.RequireAdminForListing("@hidden")
		p.PostMessages("@hidden", 1, 2, 3)

		res, err := testScanner(DefaultConfig()).Scan(context.Background(), signIn(t, p), Request{
			TargetGroup:  "@target",
			SourceGroups: []string{"@hidden"},
			Options:      Options{MaxMessages: 1},
		})
		require.NoError(t, err)
		assert.Equal(t, []int64{3}, ids(res.Candidates), "only the newest message is read")
	})
}

func TestScan_Recency(t *testing.T) {
	t.Parallel()

	p := messaging.NewPlatform()
	users := []messaging.User{
		{ID: 1, Status: messaging.UserStatus{Kind: messaging.StatusOffline, WasOnline: fixedNow.AddDate(0, 0, -3)}},
		{ID: 2, Status: messaging.UserStatus{Kind: messaging.StatusOffline, WasOnline: fixedNow.AddDate(0, 0, -10)}},
		{ID: 3, Status: messaging.UserStatus{Kind: messaging.StatusLastMonth}},
		{ID: 4, Status: messaging.UserStatus{Kind: messaging.StatusUnknown}},
		{ID: 5, Status: messaging.UserStatus{Kind: messaging.StatusOnline}},
		{ID: 6, Bot: true, Status: messaging.UserStatus{Kind: messaging.StatusOnline}},
		{ID: 7, Deleted: true},
		{ID: 8, Status: messaging.UserStatus{Kind: messaging.StatusLongAgo}},
	}
	for _, u := range users {
		p.AddUser(u)
	}
	p.AddGroup("@target", "Target", messaging.KindChannel)
	p.AddGroup("@src", "Src", messaging.KindChannel, 1, 2, 3, 4, 5, 6, 7, 8)
	client := signIn(t, p)
	scanner := testScanner(DefaultConfig())

	res, err := scanner.Scan(context.Background(), client, Request{
		TargetGroup:  "@target",
		SourceGroups: []string{"@src"},
		Options:      Options{OnlyRecentlyActive: true},
	})
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 4, 5}, ids(res.Candidates))
	assert.Equal(t, "Last seen 3 days ago", res.Candidates[0].LastSeen)
	assert.Equal(t, "Unknown", res.Candidates[1].LastSeen)
	assert.Equal(t, "Online recently", res.Candidates[2].LastSeen)

	res, err = scanner.Scan(context.Background(), client, Request{
		TargetGroup:  "@target",
		SourceGroups: []string{"@src"},
	})
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 3, 4, 5, 8}, ids(res.Candidates))
}

func TestScan_Failures(t *testing.T) {
	t.Parallel()

	t.Run("unknown source group is reported", func(t *testing.T) {
		t.Parallel()
		p := messaging.NewPlatform()
		addUsers(p, 1)
		p.AddGroup("@target", "Target", messaging.KindChannel)
		p.AddGroup("@ok", "Ok", messaging.KindChannel, 1)

		res, err := testScanner(DefaultConfig()).Scan(context.Background(), signIn(t, p), Request{
			TargetGroup:  "@target",
			SourceGroups: []string{"@missing", "@ok"},
		})
		require.NoError(t, err)
		assert.Equal(t, []int64{1}, ids(res.Candidates))
		require.Len(t, res.Groups, 2)
		assert.ErrorIs(t, res.Groups[0].Err, messaging.ErrGroupNotFound)
	})

	t.Run("unknown target fails the scan", func(t *testing.T) {
		t.Parallel()
		p := messaging.NewPlatform()
		_, err := testScanner(DefaultConfig()).Scan(context.Background(), signIn(t, p), Request{
			TargetGroup:  "@nowhere",
			SourceGroups: []string{"@src"},
		})
		assert.ErrorIs(t, err, domain.ErrValidation)
	})

	t.Run("hidden target members fail the scan", func(t *testing.T) {
		t.Parallel()
		p := messaging.NewPlatform()
		p.AddGroup("@target", "Target", messaging.KindChannel)
		p.RequireAdminForListing("@target")
		_, err := testScanner(DefaultConfig()).Scan(context.Background(), signIn(t, p), Request{
			TargetGroup: "@target",
		})
		assert.ErrorIs(t, err, domain.ErrAccessDenied)
	})

	t.Run("cancelled context", func(t *testing.T) {
		t.Parallel()
		p := messaging.NewPlatform()
		p.AddGroup("@target", "Target", messaging.KindChannel)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := testScanner(DefaultConfig()).Scan(ctx, signIn(t, p), Request{TargetGroup: "@target"})
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestDescribeLastSeen(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Last seen within a week", DescribeLastSeen(messaging.UserStatus{Kind: messaging.StatusLastWeek}, fixedNow))
	assert.Equal(t, "Last seen within a month", DescribeLastSeen(messaging.UserStatus{Kind: messaging.StatusLastMonth}, fixedNow))
	assert.Equal(t, "Last seen a long time ago", DescribeLastSeen(messaging.UserStatus{Kind: messaging.StatusLongAgo}, fixedNow))
	assert.Equal(t, "Unknown", DescribeLastSeen(messaging.UserStatus{Kind: messaging.StatusOffline}, fixedNow))
}
