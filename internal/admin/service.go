// Package admin implements the staff-facing account lifecycle operations.
// Every mutation publishes an event naming the staff member who performed it
// so the audit trail distinguishes self-service changes from administrative
// ones.
package admin

import (
	"context"
	"errors"
	"fmt"

	"accountsplus.org/internal/accounts"
	"accountsplus.org/internal/events"
	"accountsplus.org/internal/session"
)

// ErrForbidden means the acting user lacks the manage-users capability.
var ErrForbidden = errors.New("admin: forbidden")

// Service performs account lifecycle changes on behalf of a staff actor.
type Service struct {
	users     accounts.UserStore
	companies accounts.CompanyStore
	checker   accounts.CapabilityChecker
	bus       *events.Bus
	policy    accounts.PasswordPolicy
}

func NewService(users accounts.UserStore, companies accounts.CompanyStore, checker accounts.CapabilityChecker, bus *events.Bus) *Service {
	return &Service{users: users, companies: companies, checker: checker, bus: bus}
}

// Authorize reports whether the actor may perform user administration.
// Handlers that only read admin data call it directly.
func (s *Service) Authorize(ctx context.Context, actor *accounts.User) error {
	ok, err := s.checker.HasCapability(ctx, actor, accounts.CapabilityManageUsers)
	if err != nil {
		return fmt.Errorf("capability check: %w", err)
	}
	if !ok {
		return ErrForbidden
	}
	return nil
}

// CreateUser validates the initial password, hashes it and stores the new
// account.
func (s *Service) CreateUser(ctx context.Context, actor *accounts.User, sess *session.Session, user *accounts.User, password string) error {
	if err := s.Authorize(ctx, actor); err != nil {
		return err
	}
	if err := s.policy.Validate(password); err != nil {
		return err
	}
	hash, err := accounts.HashPassword(password)
	if err != nil {
		return err
	}
	user.Email = accounts.NormalizeEmail(user.Email)
	user.PasswordHash = hash
	user.IsActive = true
	if err := s.users.Create(ctx, user); err != nil {
		return err
	}
	return s.bus.Publish(ctx, events.Event{Name: events.UserCreated, User: user, Actor: actor, Session: sess})
}

// Activate re-enables a deactivated account. Already-active accounts are a
// no-op and publish nothing.
func (s *Service) Activate(ctx context.Context, actor *accounts.User, sess *session.Session, userID string) error {
	return s.setActive(ctx, actor, sess, userID, true, events.UserActivated)
}

// Deactivate disables an account without deleting it. Sessions already open
// for the account expire on their own.
func (s *Service) Deactivate(ctx context.Context, actor *accounts.User, sess *session.Session, userID string) error {
	return s.setActive(ctx, actor, sess, userID, false, events.UserDeactivated)
}

func (s *Service) setActive(ctx context.Context, actor *accounts.User, sess *session.Session, userID string, active bool, name events.Name) error {
	if err := s.Authorize(ctx, actor); err != nil {
		return err
	}
	user, err := s.users.Find(ctx, userID)
	if err != nil {
		return err
	}
	if user.IsActive == active {
		return nil
	}
	user.IsActive = active
	if err := s.users.Update(ctx, user); err != nil {
		return err
	}
	return s.bus.Publish(ctx, events.Event{Name: name, User: user, Actor: actor, Session: sess})
}

// ChangeEmail replaces a user's address. The event carries both the old and
// new values so the audit record preserves the transition.
func (s *Service) ChangeEmail(ctx context.Context, actor *accounts.User, sess *session.Session, userID, newEmail string) error {
	if err := s.Authorize(ctx, actor); err != nil {
		return err
	}
	newEmail = accounts.NormalizeEmail(newEmail)
	if newEmail == "" {
		return fmt.Errorf("%w: email required", accounts.ErrInvalidInput)
	}
	user, err := s.users.Find(ctx, userID)
	if err != nil {
		return err
	}
	old := user.Email
	if old == newEmail {
		return nil
	}
	user.Email = newEmail
	if err := s.users.Update(ctx, user); err != nil {
		return err
	}
	return s.bus.Publish(ctx, events.Event{
		Name:    events.EmailChanged,
		User:    user,
		Actor:   actor,
		Old:     old,
		New:     newEmail,
		Session: sess,
	})
}

// RenameCompany updates the company name, recording the old and new values.
func (s *Service) RenameCompany(ctx context.Context, actor *accounts.User, sess *session.Session, companyID, newName string) error {
	if err := s.Authorize(ctx, actor); err != nil {
		return err
	}
	if newName == "" {
		return fmt.Errorf("%w: company name required", accounts.ErrInvalidInput)
	}
	company, err := s.companies.Find(ctx, companyID)
	if err != nil {
		return err
	}
	old := company.Name
	if old == newName {
		return nil
	}
	company.Name = newName
	if err := s.companies.Update(ctx, company); err != nil {
		return err
	}
	return s.bus.Publish(ctx, events.Event{
		Name:    events.CompanyRenamed,
		User:    actor,
		Actor:   actor,
		Company: company,
		Old:     old,
		New:     newName,
		Session: sess,
	})
}
