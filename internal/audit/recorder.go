package audit

import (
	"context"
	"errors"
	"time"

	"accountsplus.org/internal/accounts"
	"accountsplus.org/internal/ids"
	"accountsplus.org/internal/obs"
	"accountsplus.org/internal/session"
)

// Recorder builds and persists audit records. It is the single write path for
// the audit log.
type Recorder struct {
	enabled   bool
	store     Store
	users     accounts.UserStore
	companies accounts.CompanyStore
	factory   Factory
	now       func() time.Time
}

// RecorderOption configures a Recorder.
type RecorderOption func(*Recorder)

// WithFactory swaps the record constructor so deployments can extend the
// schema.
func WithFactory(f Factory) RecorderOption {
	return func(r *Recorder) {
		if f != nil {
			r.factory = f
		}
	}
}

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) RecorderOption {
	return func(r *Recorder) {
		if fn != nil {
			r.now = fn
		}
	}
}

// NewRecorder constructs a Recorder. When enabled is false every Log call is
// a silent no-op.
func NewRecorder(enabled bool, store Store, users accounts.UserStore, companies accounts.CompanyStore, opts ...RecorderOption) *Recorder {
	r := &Recorder{
		enabled:   enabled,
		store:     store,
		users:     users,
		companies: companies,
		factory:   func() *Event { return &Event{} },
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Log persists one record attributed to actor. Actor identity and company are
// denormalized at write time. When sess is currently masquerading the
// impersonator is resolved freshly from the recorded id and attached to the
// same record. Persistence failures propagate; the only no-op paths are a
// disabled recorder and a missing actor.
func (r *Recorder) Log(ctx context.Context, message string, actor *accounts.User, sess *session.Session) (*Event, error) {
	if r == nil || !r.enabled || actor == nil {
		return nil, nil
	}

	e := r.factory()
	e.ID = ids.New()
	e.RecordedAt = r.now().UTC()
	e.UserID = actor.ID
	e.UserEmail = actor.Email
	e.Message = message

	if actor.CompanyID != "" {
		company, err := r.companies.Find(ctx, actor.CompanyID)
		switch {
		case errors.Is(err, accounts.ErrNotFound):
			// Company removed since; record the action without attribution.
		case err != nil:
			return nil, err
		default:
			e.CompanyID = company.ID
			e.CompanyName = company.Name
		}
	}

	if sess.IsMasquerading() {
		if impersonatorID, ok := sess.MasqueradeUserID(); ok {
			impersonator, err := r.users.Find(ctx, impersonatorID)
			if err != nil {
				return nil, err
			}
			e.MasqueradingUserID = impersonator.ID
			e.MasqueradingUserEmail = impersonator.Email
		}
	}

	if err := r.store.Append(ctx, e); err != nil {
		return nil, err
	}
	obs.AuditEventWritten()
	return e, nil
}
