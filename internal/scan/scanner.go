package scan

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/kenlau666/tg-bulk-invite-next/internal/domain"
	"github.com/kenlau666/tg-bulk-invite-next/internal/platform/messaging"
	"golang.org/x/sync/errgroup"
)

// DefaultMaxMessages is the number of history messages read from a group
// whose member list is incomplete.
const DefaultMaxMessages = 3000

// Config holds scanner settings that do not change per request.
type Config struct {
	// RecencyWindow bounds how long ago an offline member may have been seen.
	RecencyWindow time.Duration

	// MaxParallelGroups caps concurrently scanned source groups. Zero scans
	// every group at once.
	MaxParallelGroups int

	// DefaultMaxMessages is used when a request does not set MaxMessages.
	DefaultMaxMessages int
}

// DefaultConfig returns a Config with reasonable defaults
func DefaultConfig() Config {
	return Config{
		RecencyWindow:      DefaultRecencyWindow,
		MaxParallelGroups:  0,
		DefaultMaxMessages: DefaultMaxMessages,
	}
}

// Options are the per-request scan settings.
type Options struct {
	// MaxPerGroup caps the candidates taken from one source group. Zero
	// means unlimited.
	MaxPerGroup int

	// MaxMessages caps the history read per group. Values below one use the
	// configured default.
	MaxMessages int

	// OnlyRecentlyActive drops members who were not active recently.
	OnlyRecentlyActive bool
}

// Request describes one scan.
type Request struct {
	TargetGroup       string
	SourceGroups      []string
	PreviouslyInvited []domain.InvitedRecord
	Options           Options
}

// GroupReport summarizes the scan of one source group.
type GroupReport struct {
	Group       string
	Members     int
	FromHistory bool
	Eligible    int
	Err         error
}

// Result is the outcome of a scan.
type Result struct {
	Target     messaging.Group
	Candidates []domain.Candidate
	Groups     []GroupReport
}

// Scanner computes eligible candidates.
type Scanner struct {
	config Config
	logger *slog.Logger
	now    func() time.Time
}

// NewScanner creates a Scanner.
func NewScanner(config Config, logger *slog.Logger) *Scanner {
	if config.RecencyWindow <= 0 {
		config.RecencyWindow = DefaultRecencyWindow
	}
	if config.DefaultMaxMessages < 1 {
		config.DefaultMaxMessages = DefaultMaxMessages
	}
	return &Scanner{
		config: config,
		logger: logger.With("component", "scanner"),
		now:    time.Now,
	}
}

// SetClock replaces the clock used for recency checks.
func (s *Scanner) SetClock(now func() time.Time) {
	s.now = now
}

type groupMembers struct {
	ref         string
	users       []messaging.User
	fromHistory bool
	err         error
}

// Scan resolves the target group, reads every source group and returns the
// eligible candidates. Only a failure to read the target group fails the
// scan; failing source groups are logged and reported in Result.Groups.
func (s *Scanner) Scan(ctx context.Context, client messaging.Client, req Request) (*Result, error) {
	target, err := client.ResolveGroup(ctx, req.TargetGroup)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve target group: %w", messaging.ToDomain(err))
	}
	targetMembers, err := client.ListMembers(ctx, target)
	if err != nil {
		return nil, fmt.Errorf("failed to list target group members: %w", messaging.ToDomain(err))
	}

	inTarget := make(map[int64]struct{}, len(targetMembers))
	for _, m := range targetMembers {
		inTarget[m.ID] = struct{}{}
	}
	excluded := make(map[string]struct{}, len(req.PreviouslyInvited))
	for _, rec := range req.PreviouslyInvited {
		if key := rec.Key(); key != "" && rec.AppliesTo(req.TargetGroup) {
			excluded[key] = struct{}{}
		}
	}

	maxMessages := req.Options.MaxMessages
	if maxMessages < 1 {
		maxMessages = s.config.DefaultMaxMessages
	}

	collected := make([]groupMembers, len(req.SourceGroups))
	var g errgroup.Group
	if s.config.MaxParallelGroups > 0 {
		g.SetLimit(s.config.MaxParallelGroups)
	}
	for i, ref := range req.SourceGroups {
		g.Go(func() error {
			collected[i] = s.collect(ctx, client, ref, maxMessages)
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("scan interrupted: %w", err)
	}

	now := s.now()
	seen := make(map[int64]struct{})
	result := &Result{Target: target}
	for _, gm := range collected {
		report := GroupReport{
			Group:       gm.ref,
			Members:     len(gm.users),
			FromHistory: gm.fromHistory,
			Err:         gm.err,
		}
		if gm.err != nil {
			s.logger.WarnContext(ctx, "skipping source group",
				"group", gm.ref,
				"error", gm.err)
			result.Groups = append(result.Groups, report)
			continue
		}

		var taken []domain.Candidate
		for _, u := range gm.users {
			if req.Options.MaxPerGroup > 0 && len(taken) >= req.Options.MaxPerGroup {
				break
			}
			if _, dup := seen[u.ID]; dup {
				continue
			}
			seen[u.ID] = struct{}{}
			if !s.eligible(u, inTarget, excluded, req.Options.OnlyRecentlyActive, now) {
				continue
			}
			taken = append(taken, toCandidate(u, gm.ref, now))
		}

		report.Eligible = len(taken)
		result.Groups = append(result.Groups, report)
		result.Candidates = append(result.Candidates, taken...)

		s.logger.DebugContext(ctx, "scanned source group",
			"group", gm.ref,
			"members", report.Members,
			"from_history", report.FromHistory,
			"eligible", report.Eligible)
	}

	s.logger.InfoContext(ctx, "scan finished",
		"target", req.TargetGroup,
		"source_groups", len(req.SourceGroups),
		"candidates", len(result.Candidates))
	return result, nil
}

func (s *Scanner) eligible(
	u messaging.User,
	inTarget map[int64]struct{},
	excluded map[string]struct{},
	onlyRecent bool,
	now time.Time,
) bool {
	if u.Bot || u.Deleted {
		return false
	}
	if _, ok := inTarget[u.ID]; ok {
		return false
	}
	if _, ok := excluded[domain.Candidate{ID: &u.ID}.Key()]; ok {
		return false
	}
	if u.Phone != "" {
		if _, ok := excluded[domain.Candidate{Phone: u.Phone}.Key()]; ok {
			return false
		}
	}
	if onlyRecent && !IsRecentlyActive(u.Status, now, s.config.RecencyWindow) {
		return false
	}
	return true
}

// collect reads the members of one source group, falling back to message
// history when the listing is denied or incomplete.
func (s *Scanner) collect(ctx context.Context, client messaging.Client, ref string, maxMessages int) groupMembers {
	out := groupMembers{ref: ref}

	group, err := client.ResolveGroup(ctx, ref)
	if err != nil {
		out.err = fmt.Errorf("failed to resolve source group: %w", messaging.ToDomain(err))
		return out
	}

	members, err := client.ListMembers(ctx, group)
	switch {
	case errors.Is(err, messaging.ErrChatAdminRequired):
		s.logger.InfoContext(ctx, "member list hidden, reading message history", "group", ref)
	case err != nil:
		out.err = fmt.Errorf("failed to list members: %w", messaging.ToDomain(err))
		return out
	case len(members) >= group.MemberCount:
		out.users = members
		return out
	default:
		s.logger.InfoContext(ctx, "member list incomplete, reading message history",
			"group", ref,
			"listed", len(members),
			"reported", group.MemberCount)
	}

	senders, err := s.historySenders(ctx, client, group, maxMessages)
	if err != nil {
		if len(members) == 0 {
			out.err = fmt.Errorf("failed to read message history: %w", messaging.ToDomain(err))
			return out
		}
		s.logger.WarnContext(ctx, "message history unavailable, using partial member list",
			"group", ref,
			"error", err)
	}

	out.fromHistory = true
	out.users = mergeUsers(members, senders)
	return out
}

func (s *Scanner) historySenders(ctx context.Context, client messaging.Client, group messaging.Group, limit int) ([]messaging.User, error) {
	messages, err := client.ListMessages(ctx, group, limit)
	if err != nil {
		return nil, err
	}

	seen := make(map[int64]struct{})
	var users []messaging.User
	for _, msg := range messages {
		if msg.SenderID == 0 {
			continue
		}
		if _, ok := seen[msg.SenderID]; ok {
			continue
		}
		seen[msg.SenderID] = struct{}{}

		u, err := client.ResolveUser(ctx, msg.SenderID)
		if err != nil {
			s.logger.DebugContext(ctx, "skipping unresolvable sender",
				"sender_id", msg.SenderID,
				"error", err)
			continue
		}
		users = append(users, u)
	}
	return users, nil
}

func mergeUsers(lists ...[]messaging.User) []messaging.User {
	seen := make(map[int64]struct{})
	var out []messaging.User
	for _, list := range lists {
		for _, u := range list {
			if _, ok := seen[u.ID]; ok {
				continue
			}
			seen[u.ID] = struct{}{}
			out = append(out, u)
		}
	}
	return out
}

func toCandidate(u messaging.User, source string, now time.Time) domain.Candidate {
	id := u.ID
	return domain.Candidate{
		ID:          &id,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		Username:    u.Username,
		Phone:       u.Phone,
		LastSeen:    DescribeLastSeen(u.Status, now),
		Status:      domain.CandidatePending,
		SourceGroup: source,
	}
}
