package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"accountsplus.org/internal/accounts"
	"accountsplus.org/internal/events"
	"accountsplus.org/internal/lockout"
	"accountsplus.org/internal/session"
)

const testSecret = "test-reset-secret"

type fixture struct {
	svc      *Service
	users    accounts.UserStore
	sessions session.Store
	bus      *events.Bus
	guard    *lockout.Guard
	user     *accounts.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	acc := accounts.NewMemoryStore()

	hash, err := accounts.HashPassword("aab1234AAAA$#")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	user := &accounts.User{Email: "worker@example.com", IsActive: true, PasswordHash: hash}
	if err := acc.Users(ctx).Create(ctx, user); err != nil {
		t.Fatalf("create user: %v", err)
	}

	sessions := session.NewMemoryStore()
	bus := events.NewBus()
	guard := lockout.NewGuard(3, time.Hour)
	t.Cleanup(guard.Close)
	svc := NewService(acc.Users(ctx), sessions, bus, guard, testSecret, time.Hour)
	return &fixture{svc: svc, users: acc.Users(ctx), sessions: sessions, bus: bus, guard: guard, user: user}
}

func (f *fixture) recorded(name events.Name) *[]events.Event {
	var seen []events.Event
	f.bus.Subscribe(name, func(_ context.Context, ev events.Event) error {
		seen = append(seen, ev)
		return nil
	})
	return &seen
}

func TestSignIn(t *testing.T) {
	f := newFixture(t)
	seen := f.recorded(events.SignedIn)

	sess, err := f.svc.SignIn(context.Background(), "Worker@Example.com", "aab1234AAAA$#")
	if err != nil {
		t.Fatalf("sign in: %v", err)
	}
	if sess.UserID != f.user.ID {
		t.Fatalf("session user = %s", sess.UserID)
	}
	if sess.Backend != session.BackendPassword {
		t.Fatalf("backend = %q", sess.Backend)
	}
	if _, err := f.sessions.Find(context.Background(), sess.ID); err != nil {
		t.Fatalf("session not persisted: %v", err)
	}
	if len(*seen) != 1 || (*seen)[0].User.ID != f.user.ID {
		t.Fatalf("events = %+v", *seen)
	}
}

func TestSignInRejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.svc.SignIn(ctx, "nobody@example.com", "whatever"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("unknown email err = %v", err)
	}
	if _, err := f.svc.SignIn(ctx, "worker@example.com", "wrong-password"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("wrong password err = %v", err)
	}

	f.user.IsActive = false
	if err := f.users.Update(ctx, f.user); err != nil {
		t.Fatalf("update: %v", err)
	}
	if _, err := f.svc.SignIn(ctx, "worker@example.com", "aab1234AAAA$#"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("inactive err = %v", err)
	}
}

func TestSignInLockout(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := f.svc.SignIn(ctx, "worker@example.com", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("attempt %d err = %v", i+1, err)
		}
	}
	if _, err := f.svc.SignIn(ctx, "worker@example.com", "wrong"); !errors.Is(err, ErrLockedOut) {
		t.Fatalf("third failure err = %v, want ErrLockedOut", err)
	}
	// Correct password is not even checked while locked.
	if _, err := f.svc.SignIn(ctx, "worker@example.com", "aab1234AAAA$#"); !errors.Is(err, ErrLockedOut) {
		t.Fatalf("locked err = %v, want ErrLockedOut", err)
	}
}

func TestSignInSuccessResetsLockout(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		f.svc.SignIn(ctx, "worker@example.com", "wrong")
	}
	if _, err := f.svc.SignIn(ctx, "worker@example.com", "aab1234AAAA$#"); err != nil {
		t.Fatalf("sign in: %v", err)
	}
	// Counter restarted: two more failures do not lock.
	for i := 0; i < 2; i++ {
		if _, err := f.svc.SignIn(ctx, "worker@example.com", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("attempt %d err = %v", i+1, err)
		}
	}
}

func TestSignOut(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	seen := f.recorded(events.SignedOut)

	sess, err := f.svc.SignIn(ctx, "worker@example.com", "aab1234AAAA$#")
	if err != nil {
		t.Fatalf("sign in: %v", err)
	}
	redirect, err := f.svc.SignOut(ctx, sess)
	if err != nil {
		t.Fatalf("sign out: %v", err)
	}
	if redirect != "/login/" {
		t.Fatalf("redirect = %q", redirect)
	}
	if len(*seen) != 1 {
		t.Fatalf("events = %+v", *seen)
	}
	if _, err := f.sessions.Find(ctx, sess.ID); !errors.Is(err, session.ErrNotFound) {
		t.Fatalf("session still present: %v", err)
	}
}

func TestSignOutWhileMasquerading(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	seen := f.recorded(events.SignedOut)

	sess, err := f.svc.SignIn(ctx, "worker@example.com", "aab1234AAAA$#")
	if err != nil {
		t.Fatalf("sign in: %v", err)
	}
	sess.SetMasquerade("someone-else", false, "/admin/users/")

	redirect, err := f.svc.SignOut(ctx, sess)
	if err != nil {
		t.Fatalf("sign out: %v", err)
	}
	if redirect != "/admin/masquerade/end/" {
		t.Fatalf("redirect = %q, want masquerade end", redirect)
	}
	if len(*seen) != 0 {
		t.Fatal("sign-out event fired mid-masquerade")
	}
	if _, err := f.sessions.Find(ctx, sess.ID); err != nil {
		t.Fatalf("session was closed: %v", err)
	}
}

func TestChangePassword(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	seen := f.recorded(events.PasswordChanged)

	sess, err := f.svc.SignIn(ctx, "worker@example.com", "aab1234AAAA$#")
	if err != nil {
		t.Fatalf("sign in: %v", err)
	}

	if err := f.svc.ChangePassword(ctx, sess, "wrong", "bbb1234BBBB$#"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("wrong current err = %v", err)
	}
	if err := f.svc.ChangePassword(ctx, sess, "aab1234AAAA$#", "weak"); !errors.Is(err, accounts.ErrWeakPassword) {
		t.Fatalf("weak replacement err = %v", err)
	}
	if err := f.svc.ChangePassword(ctx, sess, "aab1234AAAA$#", "bbb1234BBBB$#"); err != nil {
		t.Fatalf("change: %v", err)
	}
	if len(*seen) != 1 {
		t.Fatalf("events = %+v", *seen)
	}

	updated, err := f.users.Find(ctx, f.user.ID)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if err := accounts.VerifyPassword(updated.PasswordHash, "bbb1234BBBB$#"); err != nil {
		t.Fatalf("new password rejected: %v", err)
	}
}

func TestPasswordResetRoundTrip(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	seen := f.recorded(events.PasswordResetRequested)

	token, err := f.svc.RequestPasswordReset(ctx, "Worker@Example.com")
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if token == "" {
		t.Fatal("no token for known active user")
	}
	if len(*seen) != 1 {
		t.Fatalf("events = %+v", *seen)
	}

	if err := f.svc.ResetPassword(ctx, token, "weak"); !errors.Is(err, accounts.ErrWeakPassword) {
		t.Fatalf("weak err = %v", err)
	}
	if err := f.svc.ResetPassword(ctx, token, "ccc1234CCCC$#"); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if _, err := f.svc.SignIn(ctx, "worker@example.com", "ccc1234CCCC$#"); err != nil {
		t.Fatalf("sign in with new password: %v", err)
	}
}

func TestPasswordResetUnknownEmailSilent(t *testing.T) {
	f := newFixture(t)
	seen := f.recorded(events.PasswordResetRequested)

	token, err := f.svc.RequestPasswordReset(context.Background(), "nobody@example.com")
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if token != "" {
		t.Fatal("token issued for unknown email")
	}
	if len(*seen) != 0 {
		t.Fatal("event fired for unknown email")
	}
}

func TestResetPasswordBadTokens(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if err := f.svc.ResetPassword(ctx, "not-a-token", "ccc1234CCCC$#"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("garbage err = %v", err)
	}

	expired := NewService(f.users, f.sessions, f.bus, nil, testSecret, time.Nanosecond)
	token, err := expired.RequestPasswordReset(ctx, "worker@example.com")
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	time.Sleep(2 * time.Second)
	if err := f.svc.ResetPassword(ctx, token, "ccc1234CCCC$#"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expired err = %v", err)
	}

	otherKey := NewService(f.users, f.sessions, f.bus, nil, "other-secret", time.Hour)
	token, err = otherKey.RequestPasswordReset(ctx, "worker@example.com")
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if err := f.svc.ResetPassword(ctx, token, "ccc1234CCCC$#"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("wrong key err = %v", err)
	}
}

func TestBulkRequestPasswordReset(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	acc := accounts.NewMemoryStore()

	company := &accounts.Company{Name: "Initech"}
	if err := acc.Companies(ctx).Create(ctx, company); err != nil {
		t.Fatalf("create company: %v", err)
	}
	selected := []*accounts.User{
		{Email: "a@example.com", CompanyID: company.ID, IsActive: true},
		{Email: "b@example.com", CompanyID: company.ID, IsActive: true},
		{Email: "gone@example.com", CompanyID: company.ID, IsActive: false},
	}
	ids := make([]string, 0, len(selected)+1)
	for _, u := range selected {
		if err := acc.Users(ctx).Create(ctx, u); err != nil {
			t.Fatalf("create: %v", err)
		}
		ids = append(ids, u.ID)
	}
	// A deleted user may linger in the caller's selection.
	ids = append(ids, "no-such-user")

	svc := NewService(acc.Users(ctx), f.sessions, f.bus, nil, testSecret, time.Hour)
	seen := f.recorded(events.PasswordResetRequested)

	sent, err := svc.BulkRequestPasswordReset(ctx, ids)
	if err != nil {
		t.Fatalf("bulk: %v", err)
	}
	if sent != 2 {
		t.Fatalf("sent = %d, want 2 (inactive and unknown skipped)", sent)
	}
	if len(*seen) != 2 {
		t.Fatalf("events = %d", len(*seen))
	}
}
