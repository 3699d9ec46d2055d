package auth

import (
	"context"
	"time"
)

// SessionTokens issues and verifies the opaque session identifiers handed to
// API clients. A token names one registry session and cannot be forged or
// reused after it expires.
type SessionTokens interface {
	// Issue creates a signed token for the given registry session id.
	Issue(ctx context.Context, sessionID string) (string, error)

	// Verify checks the token and returns its claims.
	Verify(ctx context.Context, token string) (*Claims, error)
}

// Claims represents the custom claims structure for session tokens.
type Claims struct {
	// SessionID is the registry id of the session the token was issued for.
	SessionID string `json:"sid,omitempty"`

	// Standard registered JWT claims
	IssuedAt  time.Time `json:"iat,omitempty"`
	ExpiresAt time.Time `json:"exp,omitempty"`
	ID        string    `json:"jti,omitempty"`
}
