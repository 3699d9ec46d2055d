package api

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/kenlau666/tg-bulk-invite-next/internal/api/shared"
	"github.com/kenlau666/tg-bulk-invite-next/internal/service"
)

// BulkInviteHandler serves the bulk invite endpoints.
type BulkInviteHandler struct {
	service service.BulkInviteService
	logger  *slog.Logger
}

// NewBulkInviteHandler creates a new BulkInviteHandler
func NewBulkInviteHandler(svc service.BulkInviteService, logger *slog.Logger) *BulkInviteHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &BulkInviteHandler{
		service: svc,
		logger:  logger.With("component", "bulk_invite_handler"),
	}
}

// Connect handles POST /api/connect
func (h *BulkInviteHandler) Connect(w http.ResponseWriter, r *http.Request) {
	var req ConnectRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	res, err := h.service.Connect(r.Context(), service.ConnectInput{
		APIID:        req.APIID,
		APIHash:      req.APIHash,
		Phone:        req.PhoneNumber,
		SessionToken: req.SessionID,
		Code:         req.Code,
	})
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	respondOK(w, r, Response{
		Message:   res.Message,
		SessionID: res.SessionToken,
		Status:    res.Outcome.String(),
	})
}

// GetParticipants handles POST /api/getParticipants
func (h *BulkInviteHandler) GetParticipants(w http.ResponseWriter, r *http.Request) {
	var req GetParticipantsRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	candidates, err := h.service.GetParticipants(r.Context(), req.SessionID, req.toScanInput())
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	respondOK(w, r, Response{
		Message:      fmt.Sprintf("Found %d eligible participants", len(candidates)),
		Participants: candidatesToDTO(candidates),
	})
}

// InviteParticipant handles POST /api/inviteParticipant
func (h *BulkInviteHandler) InviteParticipant(w http.ResponseWriter, r *http.Request) {
	var req InviteParticipantRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	out, err := h.service.InviteParticipant(r.Context(), req.SessionID, req.Participant.toDomain())
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	participant := candidateToDTO(out)
	respondOK(w, r, Response{
		Message:     "Successfully invited participant",
		Participant: &participant,
	})
}

// StartBackgroundInvite handles POST /api/startBackgroundInvite
func (h *BulkInviteHandler) StartBackgroundInvite(w http.ResponseWriter, r *http.Request) {
	var req StartBackgroundInviteRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	job, err := h.service.StartBackgroundInvite(r.Context(), req.SessionID,
		participantsToDomain(req.Participants), req.DelayRange.toDomain())
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	h.logger.InfoContext(r.Context(), "background invite started",
		"job_id", job.JobID, "candidates", job.Candidates)
	respondOK(w, r, Response{
		Message: fmt.Sprintf("Background invite process started for %d participants", job.Candidates),
		Job:     &JobDTO{ID: job.JobID},
	})
}

// InviteByPhoneNumbers handles POST /api/inviteByPhoneNumbers
func (h *BulkInviteHandler) InviteByPhoneNumbers(w http.ResponseWriter, r *http.Request) {
	var req InviteByPhoneNumbersRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	res, err := h.service.InviteByPhoneNumbers(r.Context(), service.PhoneInviteInput{
		SessionToken: req.SessionID,
		PhoneNumbers: req.PhoneNumbers,
		TargetGroup:  req.TargetGroup,
		Delay:        req.DelayRange.toDomain(),
		Interactive:  req.Interactive,
	})
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	resp := Response{Participants: candidatesToDTO(res.Candidates)}
	switch {
	case res.Job != nil:
		resp.Message = fmt.Sprintf("Started invite process for %d phone numbers", len(res.Candidates))
		resp.Job = &JobDTO{ID: res.Job.JobID}
	default:
		resp.Message = fmt.Sprintf("Found %d participants from phone numbers", len(res.Candidates))
	}
	respondOK(w, r, resp)
}

// Stop handles POST /api/stop. Nothing to stop is not an error: the envelope
// reports success false with status 200.
func (h *BulkInviteHandler) Stop(w http.ResponseWriter, r *http.Request) {
	var req SessionRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	stopped, err := h.service.Stop(r.Context(), req.SessionID)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	if !stopped {
		shared.RespondWithJSON(w, r, http.StatusOK, Response{
			Success: false,
			Message: service.MsgNoActiveProcess,
			TraceID: shared.GetTraceID(r.Context()),
		})
		return
	}

	respondOK(w, r, Response{Message: service.MsgProcessStopped})
}

// JobStatus handles POST /api/jobStatus
func (h *BulkInviteHandler) JobStatus(w http.ResponseWriter, r *http.Request) {
	var req SessionRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	status, err := h.service.JobStatus(r.Context(), req.SessionID)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	p := status.Event.Progress
	respondOK(w, r, Response{
		Message: fmt.Sprintf("%d of %d participants processed", p.Total-p.Pending, p.Total),
		Job:     jobStatusToDTO(status),
	})
}
