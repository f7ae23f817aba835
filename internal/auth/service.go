// Package auth implements sign-in, sign-out and the password lifecycle on top
// of the account and session stores.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"accountsplus.org/internal/accounts"
	"accountsplus.org/internal/events"
	"accountsplus.org/internal/lockout"
	"accountsplus.org/internal/obs"
	"accountsplus.org/internal/session"
)

var (
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
	ErrLockedOut          = errors.New("auth: locked out")
	ErrInvalidToken       = errors.New("auth: invalid reset token")
)

const resetTokenPurpose = "password_reset"

// Service owns authentication flows. All state changes publish events; the
// audit subscriber turns those into records.
type Service struct {
	users    accounts.UserStore
	sessions session.Store
	bus      *events.Bus
	guard    *lockout.Guard
	policy   accounts.PasswordPolicy
	logger   *log.Logger

	resetSecret   []byte
	resetLifetime time.Duration
}

func NewService(users accounts.UserStore, sessions session.Store, bus *events.Bus, guard *lockout.Guard, resetSecret string, resetLifetime time.Duration) *Service {
	if resetLifetime <= 0 {
		resetLifetime = 24 * time.Hour
	}
	return &Service{
		users:         users,
		sessions:      sessions,
		bus:           bus,
		guard:         guard,
		logger:        obs.Logger(),
		resetSecret:   []byte(resetSecret),
		resetLifetime: resetLifetime,
	}
}

// SignIn verifies credentials and opens a session. Unknown emails, inactive
// accounts and wrong passwords all return ErrInvalidCredentials so callers
// cannot probe which accounts exist; wrong passwords additionally count
// toward the lockout.
func (s *Service) SignIn(ctx context.Context, email, password string) (*session.Session, error) {
	key := accounts.NormalizeEmail(email)
	if s.guard != nil && s.guard.Locked(key) {
		return nil, ErrLockedOut
	}

	user, err := s.users.FindByEmail(ctx, key)
	if errors.Is(err, accounts.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	if !user.IsActive {
		return nil, ErrInvalidCredentials
	}
	if err := accounts.VerifyPassword(user.PasswordHash, password); err != nil {
		if s.guard != nil && s.guard.Failure(key) {
			s.logger.Printf(`{"level":"warning","msg":"sign-in locked out","email":"%s"}`, key)
			return nil, ErrLockedOut
		}
		return nil, ErrInvalidCredentials
	}
	if s.guard != nil {
		s.guard.Reset(key)
	}

	sess := session.New(user.ID, session.BackendPassword)
	if err := s.sessions.Create(ctx, sess); err != nil {
		return nil, err
	}
	err = s.bus.Publish(ctx, events.Event{Name: events.SignedIn, User: user, Actor: user, Session: sess})
	if err != nil {
		return nil, err
	}
	return sess, nil
}

// SignOut closes the session and returns the post-logout redirect. A session
// that is mid-masquerade is not closed: the caller is redirected to end the
// masquerade first, and no sign-out event fires for that request.
func (s *Service) SignOut(ctx context.Context, sess *session.Session) (string, error) {
	if !sess.Authenticated() {
		return "/login/", nil
	}
	if sess.IsMasquerading() {
		return "/admin/masquerade/end/", nil
	}

	user, err := s.users.Find(ctx, sess.UserID)
	if err == nil {
		err = s.bus.Publish(ctx, events.Event{Name: events.SignedOut, User: user, Actor: user, Session: sess})
		if err != nil {
			return "", err
		}
	} else if !errors.Is(err, accounts.ErrNotFound) {
		return "", fmt.Errorf("find user: %w", err)
	}

	if err := s.sessions.Delete(ctx, sess.ID); err != nil {
		return "", err
	}
	return "/login/", nil
}

// ChangePassword verifies the current password, validates the replacement
// against the complexity policy and stores the new hash.
func (s *Service) ChangePassword(ctx context.Context, sess *session.Session, current, replacement string) error {
	if !sess.Authenticated() {
		return ErrInvalidCredentials
	}
	user, err := s.users.Find(ctx, sess.UserID)
	if err != nil {
		return fmt.Errorf("find user: %w", err)
	}
	if err := accounts.VerifyPassword(user.PasswordHash, current); err != nil {
		return ErrInvalidCredentials
	}
	if err := s.policy.Validate(replacement); err != nil {
		return err
	}
	hash, err := accounts.HashPassword(replacement)
	if err != nil {
		return err
	}
	if err := s.users.UpdatePassword(ctx, user.ID, hash); err != nil {
		return err
	}
	return s.bus.Publish(ctx, events.Event{Name: events.PasswordChanged, User: user, Actor: user, Session: sess})
}

// RequestPasswordReset issues a signed, time-limited reset token for the
// given email. Unknown and inactive addresses return an empty token and nil
// error so the endpoint cannot be used to enumerate accounts.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) (string, error) {
	user, err := s.users.FindByEmail(ctx, accounts.NormalizeEmail(email))
	if errors.Is(err, accounts.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("find user: %w", err)
	}
	if !user.IsActive {
		return "", nil
	}

	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":     user.ID,
		"purpose": resetTokenPurpose,
		"iat":     now.Unix(),
		"exp":     now.Add(s.resetLifetime).Unix(),
	})
	signed, err := token.SignedString(s.resetSecret)
	if err != nil {
		return "", err
	}

	err = s.bus.Publish(ctx, events.Event{Name: events.PasswordResetRequested, User: user, Actor: user})
	if err != nil {
		return "", err
	}
	return signed, nil
}

// ResetPassword consumes a reset token and stores the new password. Expired,
// malformed or repurposed tokens return ErrInvalidToken.
func (s *Service) ResetPassword(ctx context.Context, tokenString, replacement string) error {
	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.resetSecret, nil
	})
	if err != nil || !token.Valid {
		return ErrInvalidToken
	}
	if purpose, _ := claims["purpose"].(string); purpose != resetTokenPurpose {
		return ErrInvalidToken
	}
	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return ErrInvalidToken
	}

	user, err := s.users.Find(ctx, sub)
	if errors.Is(err, accounts.ErrNotFound) {
		return ErrInvalidToken
	}
	if err != nil {
		return fmt.Errorf("find user: %w", err)
	}
	if err := s.policy.Validate(replacement); err != nil {
		return err
	}
	hash, err := accounts.HashPassword(replacement)
	if err != nil {
		return err
	}
	return s.users.UpdatePassword(ctx, user.ID, hash)
}

// BulkRequestPasswordReset issues reset requests for the selected users and
// returns how many were sent. Unknown ids are skipped without error so a stale
// selection does not abort the run; inactive users are skipped the same way.
func (s *Service) BulkRequestPasswordReset(ctx context.Context, userIDs []string) (int, error) {
	sent := 0
	for _, id := range userIDs {
		user, err := s.users.Find(ctx, id)
		if errors.Is(err, accounts.ErrNotFound) {
			continue
		}
		if err != nil {
			return sent, err
		}
		if !user.IsActive {
			continue
		}
		if _, err := s.RequestPasswordReset(ctx, user.Email); err != nil {
			return sent, err
		}
		sent++
	}
	return sent, nil
}
