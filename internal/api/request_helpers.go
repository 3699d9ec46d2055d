package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/kenlau666/tg-bulk-invite-next/internal/api/shared"
	"github.com/kenlau666/tg-bulk-invite-next/internal/domain"
	"github.com/kenlau666/tg-bulk-invite-next/internal/platform/logger"
)

// decodeAndValidate decodes the JSON body of r into dst and validates it.
// It writes a 400 response and returns false when either step fails.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := shared.DecodeJSON(r, dst); err != nil {
		log := logger.FromContext(r.Context())
		log.Debug("invalid request body", slog.String("path", r.URL.Path))
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, "Invalid request format", err)
		return false
	}
	if err := shared.ValidateRequest(dst); err != nil {
		HandleAPIError(w, r, fmt.Errorf("%w: %w", domain.ErrValidation, err), "")
		return false
	}
	return true
}

// getPathParam extracts a required URL path parameter.
func getPathParam(r *http.Request, paramName string) (string, error) {
	value := strings.TrimSpace(chi.URLParam(r, paramName))
	if value == "" {
		return "", domain.NewValidationError(paramName, "is required", domain.ErrValidation)
	}
	return value, nil
}

// respondOK writes a successful envelope tagged with the request trace ID.
func respondOK(w http.ResponseWriter, r *http.Request, resp Response) {
	resp.Success = true
	resp.TraceID = shared.GetTraceID(r.Context())
	shared.RespondWithJSON(w, r, http.StatusOK, resp)
}
