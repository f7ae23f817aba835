// Package audit records security-relevant account events. Records are
// append-only: user email and company name are frozen at write time so later
// profile edits never rewrite history, and deletion requests are silent
// no-ops.
package audit

import "time"

// Event is one immutable audit record.
type Event struct {
	ID         string    `json:"id"`
	RecordedAt time.Time `json:"recorded_at"`

	UserID    string `json:"user_id"`
	UserEmail string `json:"user_email"`

	CompanyID   string `json:"company_id,omitempty"`
	CompanyName string `json:"company_name,omitempty"`

	Message string `json:"message"`

	MasqueradingUserID    string `json:"masquerading_user_id,omitempty"`
	MasqueradingUserEmail string `json:"masquerading_user_email,omitempty"`
}

// IsMasquerading reports whether the action happened during an impersonation
// session.
func (e Event) IsMasquerading() bool {
	return e.MasqueradingUserID != ""
}

// Factory builds empty records. Deployments can swap it to extend the record
// schema; the recorder only fills the base fields.
type Factory func() *Event
