// Package session owns the ephemeral per-browser state the masquerade
// protocol mutates. It is distinct from persisted account data: swapping the
// session identity never touches a user record.
package session

import (
	"time"

	"github.com/google/uuid"
)

// Masquerade state keys. External templates and tests depend on the exact
// names, so they are part of the public surface.
const (
	KeyIsMasquerading        = "is_masquerading"
	KeyMasqueradeUserID      = "masquerade_user_id"
	KeyMasqueradeIsSuperuser = "masquerade_is_superuser"
	KeyReturnPage            = "return_page"
)

// BackendPassword is the credential class recorded when a user signs in with
// email and password. A masquerade keeps the impersonator's backend; it never
// requires re-entering a password.
const BackendPassword = "accounts.backends.password"

const defaultLifetime = 14 * 24 * time.Hour

// Flash is a one-shot message drained on the next page render.
type Flash struct {
	Level   string `json:"level"`
	Message string `json:"message"`
}

// Flash levels.
const (
	FlashSuccess = "success"
	FlashError   = "error"
	FlashWarning = "warning"
)

// Session is one authenticated browser session. Values carries the masquerade
// markers; it is read-modify-written within a single request and the store is
// treated as atomic per request.
type Session struct {
	ID        string         `json:"id"`
	UserID    string         `json:"user_id"`
	Backend   string         `json:"backend"`
	Values    map[string]any `json:"values"`
	Flashes   []Flash        `json:"flashes"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	ExpiresAt time.Time      `json:"expires_at"`
}

// New returns an authenticated session for userID.
func New(userID, backend string) *Session {
	now := time.Now().UTC()
	return &Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		Backend:   backend,
		Values:    make(map[string]any),
		CreatedAt: now,
		UpdatedAt: now,
		ExpiresAt: now.Add(defaultLifetime),
	}
}

// Authenticated reports whether the session represents a signed-in principal.
func (s *Session) Authenticated() bool {
	return s != nil && s.UserID != "" && time.Now().Before(s.ExpiresAt)
}

// IsMasquerading reports whether the masquerade marker is set.
func (s *Session) IsMasquerading() bool {
	if s == nil || s.Values == nil {
		return false
	}
	v, _ := s.Values[KeyIsMasquerading].(bool)
	return v
}

// MasqueradeUserID returns the recorded impersonator id.
func (s *Session) MasqueradeUserID() (string, bool) {
	if s == nil || s.Values == nil {
		return "", false
	}
	id, ok := s.Values[KeyMasqueradeUserID].(string)
	if !ok || id == "" {
		return "", false
	}
	return id, true
}

// MasqueradeIsSuperuser returns the impersonator's privilege snapshot.
func (s *Session) MasqueradeIsSuperuser() bool {
	if s == nil || s.Values == nil {
		return false
	}
	v, _ := s.Values[KeyMasqueradeIsSuperuser].(bool)
	return v
}

// ReturnPage returns the recorded post-masquerade location.
func (s *Session) ReturnPage() string {
	if s == nil || s.Values == nil {
		return ""
	}
	page, _ := s.Values[KeyReturnPage].(string)
	return page
}

// SetMasquerade records the impersonator and return location. The session is
// expected to already carry the target's identity in UserID.
func (s *Session) SetMasquerade(impersonatorID string, isSuperuser bool, returnPage string) {
	if s.Values == nil {
		s.Values = make(map[string]any)
	}
	s.Values[KeyIsMasquerading] = true
	s.Values[KeyMasqueradeUserID] = impersonatorID
	s.Values[KeyMasqueradeIsSuperuser] = isSuperuser
	s.Values[KeyReturnPage] = returnPage
}

// ClearMasquerade removes all four masquerade keys.
func (s *Session) ClearMasquerade() {
	if s.Values == nil {
		return
	}
	delete(s.Values, KeyIsMasquerading)
	delete(s.Values, KeyMasqueradeUserID)
	delete(s.Values, KeyMasqueradeIsSuperuser)
	delete(s.Values, KeyReturnPage)
}

// AddFlash queues a one-shot message.
func (s *Session) AddFlash(level, message string) {
	s.Flashes = append(s.Flashes, Flash{Level: level, Message: message})
}

// ConsumeFlashes drains and returns queued messages.
func (s *Session) ConsumeFlashes() []Flash {
	out := s.Flashes
	s.Flashes = nil
	return out
}
