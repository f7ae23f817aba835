// Package masquerade implements the impersonation session protocol: a
// privileged user temporarily authenticates a session as another user, then
// restores their own identity. The protocol mutates session state only; user
// records are never touched.
package masquerade

import (
	"context"
	"errors"
	"fmt"
	"log"

	"accountsplus.org/internal/accounts"
	"accountsplus.org/internal/events"
	"accountsplus.org/internal/obs"
	"accountsplus.org/internal/session"
)

// ErrNotAuthenticated means the request carried no signed-in session; the
// HTTP layer redirects to login without mutating anything.
var ErrNotAuthenticated = errors.New("masquerade: not authenticated")

// Redirect targets.
const (
	DefaultReturnPage = "/admin/users/"
	SuccessPage       = "/admin/"
)

// Service validates impersonation requests, swaps the session identity and
// restores it. Rejections surface as flash messages plus a redirect, never as
// errors; denied attempts are deliberately not audit-logged, matching the
// long-standing behavior operators depend on.
type Service struct {
	users    accounts.UserStore
	checker  accounts.CapabilityChecker
	sessions session.Store
	bus      *events.Bus
	logger   *log.Logger
}

func NewService(users accounts.UserStore, checker accounts.CapabilityChecker, sessions session.Store, bus *events.Bus) *Service {
	return &Service{
		users:    users,
		checker:  checker,
		sessions: sessions,
		bus:      bus,
		logger:   obs.Logger(),
	}
}

// Begin authenticates sess as the target user. Preconditions are checked in
// order and the first failure wins: the session must be authenticated, the
// target must exist, the requester must hold the masquerade capability
// (superusers implicitly), and the target must not be a superuser. That last
// rule has no exception, even for superuser requesters. On success the
// masquerade_start event fires before the identity swap so the audit record
// is attributed to the impersonator. Returns the redirect target.
func (s *Service) Begin(ctx context.Context, sess *session.Session, targetID, referer string) (string, error) {
	if !sess.Authenticated() {
		return "", ErrNotAuthenticated
	}

	returnPage := referer
	if returnPage == "" {
		returnPage = DefaultReturnPage
	}

	if targetID == "" {
		sess.AddFlash(session.FlashError, "Masquerade failed: no user specified")
		return s.reject(ctx, sess, returnPage)
	}

	requester, err := s.users.Find(ctx, sess.UserID)
	if err != nil {
		return "", fmt.Errorf("resolve requester: %w", err)
	}

	target, err := s.users.Find(ctx, targetID)
	if errors.Is(err, accounts.ErrNotFound) {
		s.logger.Printf(`{"level":"error","msg":"masquerade failed: unknown target","user":"%s","target":"%s"}`,
			requester.Email, targetID)
		sess.AddFlash(session.FlashError, fmt.Sprintf("Masquerade failed: unknown user %s", targetID))
		return s.reject(ctx, sess, returnPage)
	}
	if err != nil {
		return "", fmt.Errorf("resolve target: %w", err)
	}

	allowed, err := s.checker.HasCapability(ctx, requester, accounts.CapabilityMasquerade)
	if err != nil {
		return "", fmt.Errorf("capability check: %w", err)
	}
	if !allowed {
		s.logger.Printf(`{"level":"warning","msg":"masquerade denied: insufficient privileges","user":"%s"}`,
			requester.Email)
		sess.AddFlash(session.FlashError, "Masquerade failed: insufficient privileges")
		return s.reject(ctx, sess, returnPage)
	}

	if target.IsSuperuser {
		s.logger.Printf(`{"level":"warning","msg":"masquerade denied: superuser target","user":"%s","target":"%s"}`,
			requester.Email, target.Email)
		sess.AddFlash(session.FlashWarning, "Cannot masquerade as a superuser")
		return s.reject(ctx, sess, returnPage)
	}

	// Fire before the swap: the session still carries the impersonator's
	// identity, so the record is attributed to them.
	err = s.bus.Publish(ctx, events.Event{
		Name:    events.MasqueradeStart,
		User:    requester,
		Actor:   requester,
		Target:  target,
		Session: sess,
	})
	if err != nil {
		return "", err
	}

	sess.UserID = target.ID // backend carries over; no password re-entry
	sess.SetMasquerade(requester.ID, requester.IsSuperuser, returnPage)
	sess.AddFlash(session.FlashSuccess, fmt.Sprintf("Masquerading as user %s", target.Email))
	if err := s.sessions.Save(ctx, sess); err != nil {
		return "", err
	}

	s.logger.Printf(`{"level":"info","msg":"masquerade started","user":"%s","target":"%s"}`,
		requester.Email, target.Email)
	obs.MasqueradeStarted()
	return SuccessPage, nil
}

// End restores the impersonator's identity. Calling it on a session that is
// not masquerading is an idempotent no-op redirect. A recorded impersonator
// id that no longer resolves is logged at critical severity and the session
// markers are still cleared; the user sees a normal redirect either way. The
// masquerade_end event fires before the swap back so the message still names
// the target being left.
func (s *Service) End(ctx context.Context, sess *session.Session) (string, error) {
	if !sess.Authenticated() {
		return "", ErrNotAuthenticated
	}
	if !sess.IsMasquerading() {
		return SuccessPage, nil
	}

	returnPage := sess.ReturnPage()
	if returnPage == "" {
		returnPage = DefaultReturnPage
	}

	impersonatorID, ok := sess.MasqueradeUserID()
	if ok {
		impersonator, err := s.users.Find(ctx, impersonatorID)
		switch {
		case errors.Is(err, accounts.ErrNotFound):
			s.logger.Printf(`{"level":"critical","msg":"masquerading user does not exist","masquerade_user_id":"%s"}`,
				impersonatorID)
		case err != nil:
			return "", fmt.Errorf("resolve impersonator: %w", err)
		default:
			target, err := s.users.Find(ctx, sess.UserID)
			if err != nil {
				return "", fmt.Errorf("resolve target: %w", err)
			}
			err = s.bus.Publish(ctx, events.Event{
				Name:    events.MasqueradeEnd,
				User:    impersonator,
				Actor:   impersonator,
				Target:  target,
				Session: sess,
			})
			if err != nil {
				return "", err
			}
			sess.UserID = impersonator.ID
			sess.AddFlash(session.FlashSuccess, "Masquerade ended")
			s.logger.Printf(`{"level":"info","msg":"masquerade ended","user":"%s","target":"%s"}`,
				impersonator.Email, target.Email)
			obs.MasqueradeEnded()
		}
	}

	sess.ClearMasquerade()
	if err := s.sessions.Save(ctx, sess); err != nil {
		return "", err
	}
	return returnPage, nil
}

// reject persists the flash message without touching identity or markers.
func (s *Service) reject(ctx context.Context, sess *session.Session, returnPage string) (string, error) {
	if err := s.sessions.Save(ctx, sess); err != nil {
		return "", err
	}
	return returnPage, nil
}
