package domain

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

// Error taxonomy shared by the service and transport layers. User guidance is
// attached with errors.WithHint at the point where the error is raised and
// rendered by the API layer.
var (
	// ErrSessionNotFound is returned for unknown, expired or destroyed sessions.
	ErrSessionNotFound = errors.New("session not found")

	// ErrAuthenticationRequired is returned when an operation needs an
	// authorized session but sign-in has not completed.
	ErrAuthenticationRequired = errors.New("authentication required")

	// ErrInvalidCode is returned when the verification code is rejected.
	ErrInvalidCode = errors.New("invalid verification code")

	// ErrUnsupportedPhone is returned when the platform refuses to log in the
	// given phone number from this client.
	ErrUnsupportedPhone = errors.New("phone number not supported")

	// ErrPlatformRateLimited is returned when the platform throttles requests.
	// It triggers backoff and is never surfaced as a terminal failure by jobs.
	ErrPlatformRateLimited = errors.New("platform rate limit reached")

	// ErrAccessDenied is returned when the session lacks privileges on a group.
	ErrAccessDenied = errors.New("access denied")

	// ErrResourceExhausted is returned when the session ceiling or a session
	// queue is full.
	ErrResourceExhausted = errors.New("resource exhausted")

	// ErrUnexpected wraps every failure that has no more specific category.
	ErrUnexpected = errors.New("unexpected error")

	// ErrValidation is returned when input data fails validation.
	ErrValidation = errors.New("validation failed")

	// ErrNoTargetGroup is returned when an invite is requested before a target
	// group was resolved for the session.
	ErrNoTargetGroup = errors.New("no target group selected")

	// ErrJobNotFound is returned when a session never ran a background job.
	ErrJobNotFound = errors.New("invite job not found")

	// ErrNoCandidates is returned when an invite job has nothing to process.
	ErrNoCandidates = errors.New("no participants to invite")
)

// ValidationError describes a single invalid input field.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

// NewValidationError creates a ValidationError wrapping err.
func NewValidationError(field, message string, err error) *ValidationError {
	return &ValidationError{Field: field, Message: message, Err: err}
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// Unwrap returns the wrapped error so errors.Is matches ErrValidation.
func (e *ValidationError) Unwrap() error {
	return e.Err
}

// WithGuidance attaches a user-facing hint to err.
func WithGuidance(err error, hint string) error {
	return errors.WithHint(err, hint)
}

// Guidance returns the user-facing hints attached to err, or "" when none.
func Guidance(err error) string {
	if err == nil {
		return ""
	}
	return errors.FlattenHints(err)
}
