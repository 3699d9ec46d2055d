package domain

import "strings"

// InvitedRecord is an entry of the caller-held invite history. GroupID names
// the target the member was invited to; an empty GroupID applies to every
// target.
type InvitedRecord struct {
	ID      *int64
	Phone   string
	GroupID string
}

// Key returns the same identity key a matching Candidate would have.
func (r InvitedRecord) Key() string {
	return identityKey(r.ID, r.Phone)
}

// AppliesTo reports whether the record concerns the given target group.
func (r InvitedRecord) AppliesTo(target string) bool {
	if r.GroupID == "" {
		return true
	}
	return NormalizeGroupRef(r.GroupID) == NormalizeGroupRef(target)
}

// NormalizeGroupRef reduces the different spellings of a public group
// reference ("https://t.me/name", "t.me/name", "@name", "name") to one form.
func NormalizeGroupRef(ref string) string {
	s := strings.ToLower(strings.TrimSpace(ref))
	s = strings.TrimPrefix(s, "https://")
	s = strings.TrimPrefix(s, "http://")
	s = strings.TrimPrefix(s, "www.")
	s = strings.TrimPrefix(s, "telegram.me/")
	s = strings.TrimPrefix(s, "t.me/")
	s = strings.TrimPrefix(s, "@")
	return strings.TrimSuffix(s, "/")
}
