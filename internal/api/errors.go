package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/kenlau666/tg-bulk-invite-next/internal/api/shared"
	"github.com/kenlau666/tg-bulk-invite-next/internal/domain"
	"github.com/kenlau666/tg-bulk-invite-next/internal/service"
)

// MapErrorToStatusCode maps internal errors to HTTP status codes without
// exposing the error types to clients.
func MapErrorToStatusCode(err error) int {
	switch {
	// Capacity errors
	case errors.Is(err, domain.ErrResourceExhausted),
		errors.Is(err, domain.ErrPlatformRateLimited),
		errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable

	case errors.Is(err, domain.ErrUnexpected):
		return http.StatusInternalServerError

	// Session and input errors. Authentication states, missing jobs and
	// group access problems are reported as bad requests with guidance.
	case errors.Is(err, domain.ErrSessionNotFound),
		errors.Is(err, domain.ErrJobNotFound),
		errors.Is(err, domain.ErrAccessDenied),
		errors.Is(err, domain.ErrAuthenticationRequired),
		errors.Is(err, domain.ErrInvalidCode),
		errors.Is(err, domain.ErrUnsupportedPhone),
		errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrNoTargetGroup),
		errors.Is(err, domain.ErrNoCandidates),
		errors.Is(err, context.Canceled):
		return http.StatusBadRequest

	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a user-facing message for err. Guidance
// attached to the error wins; raw error text is never returned.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}

	if hint := domain.Guidance(err); hint != "" {
		return hint
	}

	var fieldErr *domain.ValidationError
	if errors.As(err, &fieldErr) {
		return fmt.Sprintf("Invalid %s: %s", fieldErr.Field, fieldErr.Message)
	}

	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		return SanitizeValidationError(err)
	}

	switch {
	case errors.Is(err, domain.ErrSessionNotFound):
		return service.MsgNoActiveSession
	case errors.Is(err, domain.ErrAuthenticationRequired):
		return service.MsgNotAuthenticated
	case errors.Is(err, domain.ErrInvalidCode):
		return service.MsgInvalidCode
	case errors.Is(err, domain.ErrUnsupportedPhone):
		return service.MsgUnsupportedPhone
	case errors.Is(err, domain.ErrNoTargetGroup):
		return service.MsgNoTargetGroup
	case errors.Is(err, domain.ErrNoCandidates):
		return service.MsgNoCandidates
	case errors.Is(err, domain.ErrJobNotFound):
		return service.MsgNoJob
	case errors.Is(err, domain.ErrResourceExhausted):
		return "Too many active sessions, please try again later"
	case errors.Is(err, domain.ErrPlatformRateLimited):
		return "The messaging platform is rate limiting requests, please try again later"
	case errors.Is(err, domain.ErrAccessDenied):
		return "Access to the group was denied"
	case errors.Is(err, context.Canceled):
		return service.MsgProcessStopped
	case errors.Is(err, context.DeadlineExceeded):
		return "The operation timed out"
	case errors.Is(err, domain.ErrValidation):
		return "Validation error"
	default:
		return "An unexpected error occurred"
	}
}

// HandleAPIError writes the error envelope for err. A non-empty message
// replaces the derived safe message.
func HandleAPIError(w http.ResponseWriter, r *http.Request, err error, message string) {
	status := MapErrorToStatusCode(err)
	if message == "" {
		message = GetSafeErrorMessage(err)
	}

	var opts []shared.ResponseOption
	if errors.Is(err, domain.ErrUnsupportedPhone) || errors.Is(err, domain.ErrAccessDenied) {
		opts = append(opts, shared.WithElevatedLogLevel())
	}
	shared.RespondWithErrorAndLog(w, r, status, message, err, opts...)
}

// SanitizeValidationError removes sensitive details from validation errors
// and returns a user-friendly message.
func SanitizeValidationError(err error) string {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) && len(validationErrs) > 0 {
		fe := validationErrs[0]
		return fmt.Sprintf("Invalid %s: %s", fe.Field(), getValidationTagMessage(fe.Tag()))
	}

	errMsg := err.Error()
	if strings.Contains(errMsg, "Field validation") {
		// Example format: "Key: 'ConnectRequest.APIHash' Error:Field validation for 'APIHash' failed on the 'required' tag"
		parts := strings.Split(errMsg, "Error:")
		if len(parts) >= 2 {
			fieldParts := strings.Split(parts[1], "'")
			if len(fieldParts) >= 3 {
				field := fieldParts[1]
				if len(fieldParts) >= 5 {
					return fmt.Sprintf("Invalid %s: %s", field, getValidationTagMessage(fieldParts[3]))
				}
				return fmt.Sprintf("Invalid %s", field)
			}
		}
	}

	return "Validation error"
}

// getValidationTagMessage maps validation tags to user-friendly error messages
func getValidationTagMessage(tag string) string {
	switch tag {
	case "required", "required_without", "required_with":
		return "required field"
	case "min", "gt", "gte", "gtefield":
		return "too small"
	case "max", "lt", "lte":
		return "too large"
	case "oneof":
		return "invalid value"
	case "e164", "numeric":
		return "invalid format"
	case "dive":
		return "invalid element"
	default:
		return "validation failed"
	}
}
