package messaging

import (
	"context"
	"sync"
	"time"

	"github.com/kenlau666/tg-bulk-invite-next/internal/domain"
)

// Operation names recorded by the in-memory platform.
const (
	OpAuthenticate  = "authenticate"
	OpResolveGroup  = "resolve_group"
	OpResolveUser   = "resolve_user"
	OpListMembers   = "list_members"
	OpListMessages  = "list_messages"
	OpLookupByPhone = "lookup_by_phone"
	OpAddContact    = "add_contact"
	OpInvite        = "invite"
)

// DefaultLoginCode is the verification code accepted by a Platform created
// without WithLoginCode.
const DefaultLoginCode = "12345"

// Call is one request observed by the in-memory platform.
type Call struct {
	Op     string
	Group  string
	UserID int64
	Phone  string
	At     time.Time
}

type memoryGroup struct {
	group         Group
	members       []int64
	messages      []Message
	adminRequired bool
	visible       int
}

type scriptedFailure struct {
	err       error
	remaining int
}

// Platform is an in-memory messaging platform. It keeps users, groups and
// message history, hands out clients that sign in against it, and records
// every call so tests can assert on the traffic a component produced.
type Platform struct {
	mu             sync.Mutex
	loginCode      string
	now            func() time.Time
	hook           func(Call)
	nextGroupID    int64
	nextMessageID  int64
	groups         map[string]*memoryGroup
	groupsByID     map[int64]*memoryGroup
	users          map[int64]User
	byPhone        map[string]int64
	rejectedPhones map[string]bool
	privacy        map[int64]bool
	inviteFailures map[int64]*scriptedFailure
	contacts       map[int64]bool
	calls          []Call
}

// PlatformOption configures a Platform.
type PlatformOption func(*Platform)

// WithLoginCode sets the verification code the platform accepts.
func WithLoginCode(code string) PlatformOption {
	return func(p *Platform) {
		p.loginCode = code
	}
}

// WithClock replaces the clock used for call timestamps.
func WithClock(now func() time.Time) PlatformOption {
	return func(p *Platform) {
		p.now = now
	}
}

// WithCallHook registers a function invoked for every call before it is
// served. The hook runs without platform locks held and may block.
func WithCallHook(hook func(Call)) PlatformOption {
	return func(p *Platform) {
		p.hook = hook
	}
}

// NewPlatform creates an empty platform.
func NewPlatform(opts ...PlatformOption) *Platform {
	p := &Platform{
		loginCode:      DefaultLoginCode,
		now:            time.Now,
		groups:         make(map[string]*memoryGroup),
		groupsByID:     make(map[int64]*memoryGroup),
		users:          make(map[int64]User),
		byPhone:        make(map[string]int64),
		rejectedPhones: make(map[string]bool),
		privacy:        make(map[int64]bool),
		inviteFailures: make(map[int64]*scriptedFailure),
		contacts:       make(map[int64]bool),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// AddUser registers or replaces a user.
func (p *Platform) AddUser(u User) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.users[u.ID] = u
	if phone := domain.NormalizePhone(u.Phone); phone != "" {
		p.byPhone[phone] = u.ID
	}
}

// AddGroup registers a group reachable under ref with the given members.
func (p *Platform) AddGroup(ref, title string, kind GroupKind, members ...int64) Group {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.nextGroupID++
	g := &memoryGroup{
		group: Group{
			ID:    p.nextGroupID,
			Ref:   ref,
			Title: title,
			Kind:  kind,
		},
		members: append([]int64(nil), members...),
		visible: -1,
	}
	p.groups[domain.NormalizeGroupRef(ref)] = g
	p.groupsByID[g.group.ID] = g
	return g.describe()
}

// PostMessages appends one message per sender to the group history.
func (p *Platform) PostMessages(ref string, senders ...int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	g, ok := p.groups[domain.NormalizeGroupRef(ref)]
	if !ok {
		return
	}
	for _, sender := range senders {
		p.nextMessageID++
		g.messages = append(g.messages, Message{ID: p.nextMessageID, SenderID: sender})
	}
}

// RequireAdminForListing makes member listing of the group fail with
// ErrChatAdminRequired.
func (p *Platform) RequireAdminForListing(ref string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if g, ok := p.groups[domain.NormalizeGroupRef(ref)]; ok {
		g.adminRequired = true
	}
}

// LimitVisibleMembers truncates member listings of the group to n entries
// while the reported member count stays complete.
func (p *Platform) LimitVisibleMembers(ref string, n int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if g, ok := p.groups[domain.NormalizeGroupRef(ref)]; ok {
		g.visible = n
	}
}

// FailInvites makes the next times invitations of the user fail with err.
// A negative times fails every invitation.
func (p *Platform) FailInvites(userID int64, err error, times int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.inviteFailures[userID] = &scriptedFailure{err: err, remaining: times}
}

// RestrictPrivacy makes invitations of the user fail with
// ErrPrivacyRestricted.
func (p *Platform) RestrictPrivacy(userID int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.privacy[userID] = true
}

// RejectPhone makes sign-in with the phone fail with ErrUpdateAppToLogin.
func (p *Platform) RejectPhone(phone string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.rejectedPhones[domain.NormalizePhone(phone)] = true
}

// Members returns the member ids of the group.
func (p *Platform) Members(ref string) []int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	g, ok := p.groups[domain.NormalizeGroupRef(ref)]
	if !ok {
		return nil
	}
	return append([]int64(nil), g.members...)
}

// IsContact reports whether the user was added as a contact.
func (p *Platform) IsContact(userID int64) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.contacts[userID]
}

// Calls returns the recorded calls for op, or every call when op is empty.
func (p *Platform) Calls(op string) []Call {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []Call
	for _, c := range p.calls {
		if op == "" || c.Op == op {
			out = append(out, c)
		}
	}
	return out
}

// NewClient returns a signed-out client bound to the platform. It implements
// ClientFactory.
func (p *Platform) NewClient(_ context.Context, creds Credentials) (Client, error) {
	return &memoryClient{p: p, phone: creds.Phone}, nil
}

func (p *Platform) record(c Call) {
	p.mu.Lock()
	c.At = p.now()
	p.calls = append(p.calls, c)
	hook := p.hook
	p.mu.Unlock()
	if hook != nil {
		hook(c)
	}
}

func (g *memoryGroup) describe() Group {
	out := g.group
	out.MemberCount = len(g.members)
	return out
}

func (g *memoryGroup) isMember(id int64) bool {
	for _, m := range g.members {
		if m == id {
			return true
		}
	}
	return false
}

type memoryClient struct {
	p *Platform

	mu         sync.Mutex
	phone      string
	codeSent   bool
	authorized bool
	closed     bool
}

func (c *memoryClient) ready() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClientClosed
	}
	if !c.authorized {
		return ErrNotAuthorized
	}
	return nil
}

func (c *memoryClient) Authenticate(_ context.Context, phone, code string) (domain.AuthResult, error) {
	c.p.record(Call{Op: OpAuthenticate, Phone: phone})

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return domain.AuthResult{}, ErrClientClosed
	}
	if c.authorized {
		return domain.Authorized(), nil
	}

	c.p.mu.Lock()
	rejected := c.p.rejectedPhones[domain.NormalizePhone(phone)]
	loginCode := c.p.loginCode
	c.p.mu.Unlock()

	if rejected {
		return domain.AuthFailedWith(ErrUpdateAppToLogin), nil
	}
	if code == "" {
		c.phone = phone
		c.codeSent = true
		return domain.CodeRequired(), nil
	}
	if code != loginCode {
		return domain.AuthFailedWith(ErrInvalidCode), nil
	}
	c.authorized = true
	return domain.Authorized(), nil
}

func (c *memoryClient) ResolveGroup(_ context.Context, ref string) (Group, error) {
	if err := c.ready(); err != nil {
		return Group{}, err
	}
	c.p.record(Call{Op: OpResolveGroup, Group: ref})

	c.p.mu.Lock()
	defer c.p.mu.Unlock()
	g, ok := c.p.groups[domain.NormalizeGroupRef(ref)]
	if !ok {
		return Group{}, ErrGroupNotFound
	}
	return g.describe(), nil
}

func (c *memoryClient) ResolveUser(_ context.Context, id int64) (User, error) {
	if err := c.ready(); err != nil {
		return User{}, err
	}
	c.p.record(Call{Op: OpResolveUser, UserID: id})

	c.p.mu.Lock()
	defer c.p.mu.Unlock()
	u, ok := c.p.users[id]
	if !ok {
		return User{}, ErrUserNotFound
	}
	return u, nil
}

func (c *memoryClient) ListMembers(_ context.Context, g Group) ([]User, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	c.p.record(Call{Op: OpListMembers, Group: g.Ref})

	c.p.mu.Lock()
	defer c.p.mu.Unlock()
	mg, ok := c.p.groupsByID[g.ID]
	if !ok {
		return nil, ErrGroupNotFound
	}
	if mg.adminRequired {
		return nil, ErrChatAdminRequired
	}
	ids := mg.members
	if mg.visible >= 0 && mg.visible < len(ids) {
		ids = ids[:mg.visible]
	}
	out := make([]User, 0, len(ids))
	for _, id := range ids {
		if u, ok := c.p.users[id]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

func (c *memoryClient) ListMessages(_ context.Context, g Group, limit int) ([]Message, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	c.p.record(Call{Op: OpListMessages, Group: g.Ref})

	c.p.mu.Lock()
	defer c.p.mu.Unlock()
	mg, ok := c.p.groupsByID[g.ID]
	if !ok {
		return nil, ErrGroupNotFound
	}
	out := make([]Message, 0, min(limit, len(mg.messages)))
	for i := len(mg.messages) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, mg.messages[i])
	}
	return out, nil
}

func (c *memoryClient) LookupByPhone(_ context.Context, phone string) (*User, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	c.p.record(Call{Op: OpLookupByPhone, Phone: phone})

	c.p.mu.Lock()
	defer c.p.mu.Unlock()
	id, ok := c.p.byPhone[domain.NormalizePhone(phone)]
	if !ok {
		return nil, nil
	}
	u := c.p.users[id]
	return &u, nil
}

func (c *memoryClient) AddContact(_ context.Context, u User) error {
	if err := c.ready(); err != nil {
		return err
	}
	c.p.record(Call{Op: OpAddContact, UserID: u.ID})

	c.p.mu.Lock()
	defer c.p.mu.Unlock()
	if _, ok := c.p.users[u.ID]; !ok {
		return ErrUserNotFound
	}
	c.p.contacts[u.ID] = true
	return nil
}

func (c *memoryClient) InviteToGroup(_ context.Context, g Group, userID int64) error {
	if err := c.ready(); err != nil {
		return err
	}
	c.p.record(Call{Op: OpInvite, Group: g.Ref, UserID: userID})

	c.p.mu.Lock()
	defer c.p.mu.Unlock()
	if f, ok := c.p.inviteFailures[userID]; ok && f.remaining != 0 {
		if f.remaining > 0 {
			f.remaining--
		}
		return f.err
	}
	mg, ok := c.p.groupsByID[g.ID]
	if !ok {
		return ErrGroupNotFound
	}
	if _, ok := c.p.users[userID]; !ok {
		return ErrUserNotFound
	}
	if c.p.privacy[userID] {
		return ErrPrivacyRestricted
	}
	if mg.isMember(userID) {
		return ErrAlreadyParticipant
	}
	mg.members = append(mg.members, userID)
	return nil
}

func (c *memoryClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}
