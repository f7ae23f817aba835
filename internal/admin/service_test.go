package admin

import (
	"context"
	"errors"
	"testing"

	"accountsplus.org/internal/accounts"
	"accountsplus.org/internal/events"
)

type fixture struct {
	svc       *Service
	users     accounts.UserStore
	companies accounts.CompanyStore
	bus       *events.Bus
	staff     *accounts.User
	plain     *accounts.User
	company   *accounts.Company
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	acc := accounts.NewMemoryStore()

	company := &accounts.Company{Name: "Initech"}
	if err := acc.Companies(ctx).Create(ctx, company); err != nil {
		t.Fatalf("create company: %v", err)
	}
	staff := &accounts.User{Email: "staff@example.com", IsActive: true, IsStaff: true}
	if err := acc.Users(ctx).Create(ctx, staff); err != nil {
		t.Fatalf("create staff: %v", err)
	}
	if err := acc.Grants(ctx).Grant(ctx, staff.ID, accounts.CapabilityManageUsers); err != nil {
		t.Fatalf("grant: %v", err)
	}
	plain := &accounts.User{Email: "plain@example.com", CompanyID: company.ID, IsActive: true}
	if err := acc.Users(ctx).Create(ctx, plain); err != nil {
		t.Fatalf("create plain: %v", err)
	}

	bus := events.NewBus()
	svc := NewService(acc.Users(ctx), acc.Companies(ctx), accounts.NewGrantChecker(acc.Grants(ctx)), bus)
	return &fixture{svc: svc, users: acc.Users(ctx), companies: acc.Companies(ctx), bus: bus, staff: staff, plain: plain, company: company}
}

func (f *fixture) recorded(name events.Name) *[]events.Event {
	var seen []events.Event
	f.bus.Subscribe(name, func(_ context.Context, ev events.Event) error {
		seen = append(seen, ev)
		return nil
	})
	return &seen
}

func TestCreateUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	seen := f.recorded(events.UserCreated)

	user := &accounts.User{Email: "New@Example.com", CompanyID: f.company.ID, FirstName: "New", LastName: "Hire"}
	if err := f.svc.CreateUser(ctx, f.staff, nil, user, "aab1234AAAA$#"); err != nil {
		t.Fatalf("create: %v", err)
	}
	if user.Email != "new@example.com" {
		t.Fatalf("email not normalized: %q", user.Email)
	}
	if !user.IsActive {
		t.Fatal("new user not active")
	}
	if err := accounts.VerifyPassword(user.PasswordHash, "aab1234AAAA$#"); err != nil {
		t.Fatalf("stored hash rejects password: %v", err)
	}
	if len(*seen) != 1 || (*seen)[0].Actor.ID != f.staff.ID || (*seen)[0].User.ID != user.ID {
		t.Fatalf("events = %+v", *seen)
	}
}

func TestCreateUserWeakPassword(t *testing.T) {
	f := newFixture(t)
	user := &accounts.User{Email: "new@example.com"}
	err := f.svc.CreateUser(context.Background(), f.staff, nil, user, "weak")
	if !errors.Is(err, accounts.ErrWeakPassword) {
		t.Fatalf("err = %v, want ErrWeakPassword", err)
	}
}

func TestLifecycleForbiddenWithoutCapability(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cases := map[string]error{
		"create":     f.svc.CreateUser(ctx, f.plain, nil, &accounts.User{Email: "x@example.com"}, "aab1234AAAA$#"),
		"deactivate": f.svc.Deactivate(ctx, f.plain, nil, f.staff.ID),
		"activate":   f.svc.Activate(ctx, f.plain, nil, f.staff.ID),
		"email":      f.svc.ChangeEmail(ctx, f.plain, nil, f.staff.ID, "y@example.com"),
		"company":    f.svc.RenameCompany(ctx, f.plain, nil, f.company.ID, "Initrode"),
	}
	for name, err := range cases {
		if !errors.Is(err, ErrForbidden) {
			t.Errorf("%s err = %v, want ErrForbidden", name, err)
		}
	}
}

func TestSuperuserImplicitlyAuthorized(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	super := &accounts.User{Email: "root@example.com", IsActive: true, IsSuperuser: true}
	if err := f.users.Create(ctx, super); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := f.svc.Deactivate(ctx, super, nil, f.plain.ID); err != nil {
		t.Fatalf("deactivate as superuser: %v", err)
	}
}

func TestActivateDeactivate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	deactivated := f.recorded(events.UserDeactivated)
	activated := f.recorded(events.UserActivated)

	if err := f.svc.Deactivate(ctx, f.staff, nil, f.plain.ID); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	got, _ := f.users.Find(ctx, f.plain.ID)
	if got.IsActive {
		t.Fatal("still active")
	}
	// Repeat is a no-op and publishes nothing.
	if err := f.svc.Deactivate(ctx, f.staff, nil, f.plain.ID); err != nil {
		t.Fatalf("repeat deactivate: %v", err)
	}
	if len(*deactivated) != 1 {
		t.Fatalf("deactivate events = %d", len(*deactivated))
	}

	if err := f.svc.Activate(ctx, f.staff, nil, f.plain.ID); err != nil {
		t.Fatalf("activate: %v", err)
	}
	got, _ = f.users.Find(ctx, f.plain.ID)
	if !got.IsActive {
		t.Fatal("not reactivated")
	}
	if len(*activated) != 1 {
		t.Fatalf("activate events = %d", len(*activated))
	}
}

func TestChangeEmail(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	seen := f.recorded(events.EmailChanged)

	if err := f.svc.ChangeEmail(ctx, f.staff, nil, f.plain.ID, "Renamed@Example.com"); err != nil {
		t.Fatalf("change email: %v", err)
	}
	got, _ := f.users.Find(ctx, f.plain.ID)
	if got.Email != "renamed@example.com" {
		t.Fatalf("email = %q", got.Email)
	}
	if len(*seen) != 1 {
		t.Fatalf("events = %d", len(*seen))
	}
	ev := (*seen)[0]
	if ev.Old != "plain@example.com" || ev.New != "renamed@example.com" {
		t.Fatalf("old/new = %q/%q", ev.Old, ev.New)
	}

	// Unchanged address publishes nothing.
	if err := f.svc.ChangeEmail(ctx, f.staff, nil, f.plain.ID, "renamed@example.com"); err != nil {
		t.Fatalf("repeat: %v", err)
	}
	if len(*seen) != 1 {
		t.Fatal("no-op change published an event")
	}
}

func TestRenameCompany(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	seen := f.recorded(events.CompanyRenamed)

	if err := f.svc.RenameCompany(ctx, f.staff, nil, f.company.ID, "Initrode"); err != nil {
		t.Fatalf("rename: %v", err)
	}
	got, _ := f.companies.Find(ctx, f.company.ID)
	if got.Name != "Initrode" {
		t.Fatalf("name = %q", got.Name)
	}
	if len(*seen) != 1 {
		t.Fatalf("events = %d", len(*seen))
	}
	ev := (*seen)[0]
	if ev.Company.ID != f.company.ID || ev.Old != "Initech" || ev.New != "Initrode" {
		t.Fatalf("event = %+v", ev)
	}
}
