package messaging

import (
	"context"
	"time"

	"github.com/kenlau666/tg-bulk-invite-next/internal/domain"
)

// GroupKind distinguishes the two kinds of groups the platform knows about.
// Invitations use a different call for each kind.
type GroupKind int

// Group kinds
const (
	KindChannel GroupKind = iota
	KindBasicGroup
)

// String returns the kind name.
func (k GroupKind) String() string {
	if k == KindBasicGroup {
		return "group"
	}
	return "channel"
}

// Group is a resolved group reference.
type Group struct {
	ID          int64
	Ref         string
	Title       string
	Kind        GroupKind
	MemberCount int
}

// StatusKind classifies the presence information the platform exposes.
type StatusKind int

// Presence kinds. Only StatusOffline carries a timestamp.
const (
	StatusUnknown StatusKind = iota
	StatusOnline
	StatusOffline
	StatusRecently
	StatusLastWeek
	StatusLastMonth
	StatusLongAgo
)

// UserStatus is the last-seen information of a user.
type UserStatus struct {
	Kind      StatusKind
	WasOnline time.Time
}

// User is a platform account.
type User struct {
	ID        int64
	FirstName string
	LastName  string
	Username  string
	Phone     string
	Bot       bool
	Deleted   bool
	Status    UserStatus
}

// Message is the part of a history message the scanner needs.
type Message struct {
	ID       int64
	SenderID int64
}

// Credentials identify the application and account a Client signs in with.
type Credentials struct {
	APIID   int
	APIHash string
	Phone   string
}

// Client is the messaging platform client owned by a session.
type Client interface {
	// Authenticate runs one step of the sign-in flow. An empty code requests
	// a verification code unless the account is already authorized.
	Authenticate(ctx context.Context, phone, code string) (domain.AuthResult, error)

	// ResolveGroup resolves a group reference such as "@name" or a t.me link.
	ResolveGroup(ctx context.Context, ref string) (Group, error)

	// ResolveUser returns the user with the given id.
	ResolveUser(ctx context.Context, id int64) (User, error)

	// ListMembers lists the members visible to the signed-in account.
	ListMembers(ctx context.Context, g Group) ([]User, error)

	// ListMessages returns up to limit of the most recent messages.
	ListMessages(ctx context.Context, g Group, limit int) ([]Message, error)

	// LookupByPhone returns the account registered with phone, or nil when
	// there is none.
	LookupByPhone(ctx context.Context, phone string) (*User, error)

	// AddContact adds u to the contact list of the signed-in account.
	AddContact(ctx context.Context, u User) error

	// InviteToGroup adds the user to g.
	InviteToGroup(ctx context.Context, g Group, userID int64) error

	// Close releases the connection. It is safe to call more than once.
	Close() error
}

// ClientFactory creates a Client for the given credentials.
type ClientFactory interface {
	NewClient(ctx context.Context, creds Credentials) (Client, error)
}

// ClientFactoryFunc adapts a function to the ClientFactory interface.
type ClientFactoryFunc func(ctx context.Context, creds Credentials) (Client, error)

// NewClient calls f.
func (f ClientFactoryFunc) NewClient(ctx context.Context, creds Credentials) (Client, error) {
	return f(ctx, creds)
}
