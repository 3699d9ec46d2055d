package messaging

import (
	"fmt"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/kenlau666/tg-bulk-invite-next/internal/domain"
)

// Errors reported by platform drivers. The messages follow the platform's
// RPC error names so they can be matched in logs.
var (
	ErrNotAuthorized      = errors.New("AUTH_KEY_UNREGISTERED")
	ErrChatAdminRequired  = errors.New("CHAT_ADMIN_REQUIRED")
	ErrFloodWait          = errors.New("FLOOD_WAIT")
	ErrPrivacyRestricted  = errors.New("USER_PRIVACY_RESTRICTED")
	ErrAlreadyParticipant = errors.New("USER_ALREADY_PARTICIPANT")
	ErrUserNotFound       = errors.New("USER_ID_INVALID")
	ErrGroupNotFound      = errors.New("USERNAME_NOT_OCCUPIED")
	ErrInvalidCode        = errors.New("PHONE_CODE_INVALID")
	ErrUpdateAppToLogin   = errors.New("UPDATE_APP_TO_LOGIN")
	ErrClientClosed       = errors.New("client closed")
)

// FloodWaitError is returned when the platform asks the caller to wait
// before issuing further requests.
type FloodWaitError struct {
	Wait time.Duration
}

// Error implements the error interface.
func (e *FloodWaitError) Error() string {
	return fmt.Sprintf("FLOOD_WAIT_%d", int(e.Wait/time.Second))
}

// Is makes every FloodWaitError match ErrFloodWait.
func (e *FloodWaitError) Is(target error) bool {
	return target == ErrFloodWait
}

// FloodWait extracts the wait the platform asked for.
func FloodWait(err error) (time.Duration, bool) {
	var fw *FloodWaitError
	if errors.As(err, &fw) {
		return fw.Wait, true
	}
	return 0, false
}

// IsPermanent reports whether retrying the call that produced err cannot
// succeed.
func IsPermanent(err error) bool {
	return errors.Is(err, ErrPrivacyRestricted) ||
		errors.Is(err, ErrAlreadyParticipant) ||
		errors.Is(err, ErrUserNotFound) ||
		errors.Is(err, ErrNotAuthorized) ||
		errors.Is(err, ErrClientClosed)
}

// ToDomain classifies a platform error into the domain error taxonomy while
// keeping the original error in the chain.
func ToDomain(err error) error {
	if err == nil {
		return nil
	}
	var kind error
	switch {
	case errors.Is(err, ErrChatAdminRequired):
		kind = domain.ErrAccessDenied
	case errors.Is(err, ErrFloodWait):
		kind = domain.ErrPlatformRateLimited
	case errors.Is(err, ErrInvalidCode):
		kind = domain.ErrInvalidCode
	case errors.Is(err, ErrUpdateAppToLogin):
		kind = domain.ErrUnsupportedPhone
	case errors.Is(err, ErrNotAuthorized):
		kind = domain.ErrAuthenticationRequired
	case errors.Is(err, ErrGroupNotFound):
		kind = domain.ErrValidation
	default:
		kind = domain.ErrUnexpected
	}
	return fmt.Errorf("%w: %w", kind, err)
}
