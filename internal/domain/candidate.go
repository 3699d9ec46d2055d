package domain

import (
	"strconv"
	"strings"
)

// CandidateStatus represents the invitation state of a candidate
type CandidateStatus string

// Possible candidate status values
const (
	CandidatePending CandidateStatus = "pending"
	CandidateInvited CandidateStatus = "invited"
	CandidateFailed  CandidateStatus = "failed"
	CandidateSkipped CandidateStatus = "skipped"
)

// Candidate is a prospective member of the target group. ID stays nil until
// the platform identity is known, e.g. for entries created from a bare phone
// number.
type Candidate struct {
	ID          *int64
	FirstName   string
	LastName    string
	Username    string
	Phone       string
	LastSeen    string
	Status      CandidateStatus
	SourceGroup string
}

// HasID reports whether the platform identity of the candidate is known.
func (c Candidate) HasID() bool {
	return c.ID != nil
}

// Key returns the deduplication identity: the platform id when present,
// otherwise the normalized phone number. It returns "" when neither exists.
func (c Candidate) Key() string {
	return identityKey(c.ID, c.Phone)
}

// DisplayName returns a human readable label for logs.
func (c Candidate) DisplayName() string {
	name := strings.TrimSpace(c.FirstName + " " + c.LastName)
	if name != "" {
		return name
	}
	if c.Username != "" {
		return "@" + c.Username
	}
	return "User"
}

// IsValidCandidateStatus checks if the given status is a known CandidateStatus.
func IsValidCandidateStatus(status CandidateStatus) bool {
	switch status {
	case CandidatePending, CandidateInvited, CandidateFailed, CandidateSkipped:
		return true
	default:
		return false
	}
}

// IDPtr returns a pointer to id.
func IDPtr(id int64) *int64 {
	return &id
}

// NormalizePhone strips formatting characters from a phone number, keeping a
// leading plus sign.
func NormalizePhone(phone string) string {
	phone = strings.TrimSpace(phone)
	var b strings.Builder
	for i, r := range phone {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '+' && i == 0:
			b.WriteRune(r)
		}
	}
	return b.String()
}

func identityKey(id *int64, phone string) string {
	if id != nil {
		return "id:" + strconv.FormatInt(*id, 10)
	}
	if p := NormalizePhone(phone); p != "" {
		return "phone:" + p
	}
	return ""
}
