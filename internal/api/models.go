package api

import (
	"time"

	"github.com/google/uuid"
	"github.com/kenlau666/tg-bulk-invite-next/internal/domain"
	"github.com/kenlau666/tg-bulk-invite-next/internal/events"
	"github.com/kenlau666/tg-bulk-invite-next/internal/service"
)

// ConnectRequest is the body of POST /api/connect. The first phase sends the
// credentials; the second sends sessionId and code.
type ConnectRequest struct {
	APIID       int    `json:"apiId"       validate:"gte=0"`
	APIHash     string `json:"apiHash"     validate:"max=128"`
	PhoneNumber string `json:"phoneNumber" validate:"max=32"`
	SessionID   string `json:"sessionId"`
	Code        string `json:"code"        validate:"omitempty,max=16"`
}

// DelayRangeRequest is the pause, in seconds, drawn between two invitations.
type DelayRangeRequest struct {
	Min int `json:"min" validate:"gte=0"`
	Max int `json:"max" validate:"gte=0,gtefield=Min"`
}

// InvitedRecordRequest is an entry of the caller-held invite history.
type InvitedRecordRequest struct {
	ID      *int64 `json:"id"`
	Phone   string `json:"phone"`
	GroupID string `json:"groupId"`
}

// ParticipantDTO is a candidate on the wire, both in requests and responses.
type ParticipantDTO struct {
	ID        *int64 `json:"id"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
	Username  string `json:"username,omitempty"`
	Phone     string `json:"phone,omitempty"`
	LastSeen  string `json:"lastSeen,omitempty"`
	Status    string `json:"status,omitempty"`
	GroupID   string `json:"groupId,omitempty"`
}

// GetParticipantsRequest is the body of POST /api/getParticipants.
type GetParticipantsRequest struct {
	SessionID          string                 `json:"sessionId"          validate:"required"`
	TargetGroup        string                 `json:"targetGroup"        validate:"required"`
	SourceGroups       []string               `json:"sourceGroups"       validate:"required,min=1,dive,required"`
	PreviouslyInvited  []InvitedRecordRequest `json:"previouslyInvited"`
	MaxPerGroup        int                    `json:"maxPerGroup"        validate:"gte=0"`
	MaxMessages        int                    `json:"maxMessages"        validate:"gte=0"`
	OnlyRecentlyActive *bool                  `json:"onlyRecentlyActive"`
	DelayRange         *DelayRangeRequest     `json:"delayRange"`
}

// InviteParticipantRequest is the body of POST /api/inviteParticipant.
type InviteParticipantRequest struct {
	SessionID   string          `json:"sessionId"   validate:"required"`
	Participant *ParticipantDTO `json:"participant" validate:"required"`
}

// StartBackgroundInviteRequest is the body of POST /api/startBackgroundInvite.
// Without participants the result of the last scan is used.
type StartBackgroundInviteRequest struct {
	SessionID    string             `json:"sessionId"    validate:"required"`
	Participants []ParticipantDTO   `json:"participants"`
	DelayRange   *DelayRangeRequest `json:"delayRange"`
}

// InviteByPhoneNumbersRequest is the body of POST /api/inviteByPhoneNumbers.
type InviteByPhoneNumbersRequest struct {
	SessionID    string             `json:"sessionId"    validate:"required"`
	PhoneNumbers []string           `json:"phoneNumbers" validate:"required,min=1,dive,required,max=32"`
	TargetGroup  string             `json:"targetGroup"  validate:"required"`
	DelayRange   *DelayRangeRequest `json:"delayRange"`
	Interactive  bool               `json:"interactive"`
}

// SessionRequest is the body of requests naming only a session, such as
// POST /api/stop and POST /api/jobStatus.
type SessionRequest struct {
	SessionID string `json:"sessionId" validate:"required"`
}

// JobDTO summarizes a background job.
type JobDTO struct {
	ID        uuid.UUID                 `json:"id"`
	State     string                    `json:"state,omitempty"`
	Progress  *events.Progress          `json:"progress,omitempty"`
	Candidate *events.CandidateOutcome  `json:"candidate,omitempty"`
	Invited   []events.CandidateOutcome `json:"invited,omitempty"`
	Error     string                    `json:"error,omitempty"`
	UpdatedAt *time.Time                `json:"updatedAt,omitempty"`
}

// Response is the envelope of every successful request.
type Response struct {
	Success      bool             `json:"success"`
	Message      string           `json:"message"`
	SessionID    string           `json:"sessionId,omitempty"`
	Status       string           `json:"status,omitempty"`
	Participants []ParticipantDTO `json:"participants,omitempty"`
	Participant  *ParticipantDTO  `json:"participant,omitempty"`
	Job          *JobDTO          `json:"job,omitempty"`
	TraceID      string           `json:"traceId,omitempty"`
}

func (d *DelayRangeRequest) toDomain() *domain.DelayRange {
	if d == nil {
		return nil
	}
	return &domain.DelayRange{Min: d.Min, Max: d.Max}
}

func (r GetParticipantsRequest) toScanInput() service.ScanInput {
	onlyRecent := true
	if r.OnlyRecentlyActive != nil {
		onlyRecent = *r.OnlyRecentlyActive
	}
	invited := make([]domain.InvitedRecord, 0, len(r.PreviouslyInvited))
	for _, rec := range r.PreviouslyInvited {
		invited = append(invited, domain.InvitedRecord{ID: rec.ID, Phone: rec.Phone, GroupID: rec.GroupID})
	}
	return service.ScanInput{
		TargetGroup:        r.TargetGroup,
		SourceGroups:       r.SourceGroups,
		PreviouslyInvited:  invited,
		MaxPerGroup:        r.MaxPerGroup,
		MaxMessages:        r.MaxMessages,
		OnlyRecentlyActive: onlyRecent,
		Delay:              r.DelayRange.toDomain(),
	}
}

func (p ParticipantDTO) toDomain() domain.Candidate {
	status := domain.CandidateStatus(p.Status)
	if !domain.IsValidCandidateStatus(status) {
		status = domain.CandidatePending
	}
	return domain.Candidate{
		ID:          p.ID,
		FirstName:   p.FirstName,
		LastName:    p.LastName,
		Username:    p.Username,
		Phone:       p.Phone,
		LastSeen:    p.LastSeen,
		Status:      status,
		SourceGroup: p.GroupID,
	}
}

func participantsToDomain(in []ParticipantDTO) []domain.Candidate {
	out := make([]domain.Candidate, 0, len(in))
	for _, p := range in {
		out = append(out, p.toDomain())
	}
	return out
}

func candidateToDTO(c domain.Candidate) ParticipantDTO {
	return ParticipantDTO{
		ID:        c.ID,
		FirstName: c.FirstName,
		LastName:  c.LastName,
		Username:  c.Username,
		Phone:     c.Phone,
		LastSeen:  c.LastSeen,
		Status:    string(c.Status),
		GroupID:   c.SourceGroup,
	}
}

func candidatesToDTO(in []domain.Candidate) []ParticipantDTO {
	out := make([]ParticipantDTO, 0, len(in))
	for _, c := range in {
		out = append(out, candidateToDTO(c))
	}
	return out
}

func jobStatusToDTO(st *service.JobStatus) *JobDTO {
	ev := st.Event
	progress := ev.Progress
	updated := ev.CreatedAt
	return &JobDTO{
		ID:        ev.JobID,
		State:     ev.State,
		Progress:  &progress,
		Candidate: ev.Candidate,
		Invited:   st.Invited,
		Error:     ev.Error,
		UpdatedAt: &updated,
	}
}
