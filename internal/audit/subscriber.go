package audit

import (
	"context"
	"fmt"

	"accountsplus.org/internal/events"
)

// Register subscribes the recorder to every account notification with its
// message template. Message text is part of the external contract; operators
// grep these exact strings.
func Register(bus *events.Bus, rec *Recorder) {
	fixed := func(message string) events.Handler {
		return func(ctx context.Context, ev events.Event) error {
			_, err := rec.Log(ctx, message, ev.User, ev.Session)
			return err
		}
	}

	bus.Subscribe(events.SignedIn, fixed("Sign in"))
	bus.Subscribe(events.SignedOut, fixed("Sign out"))
	bus.Subscribe(events.PasswordResetRequested, fixed("Request password reset"))
	bus.Subscribe(events.PasswordChanged, fixed("Change password"))

	bus.Subscribe(events.MasqueradeStart, func(ctx context.Context, ev events.Event) error {
		message := fmt.Sprintf("Masquerade start as %s (%s)", ev.Target.Email, ev.Target.ID)
		_, err := rec.Log(ctx, message, ev.User, ev.Session)
		return err
	})

	bus.Subscribe(events.MasqueradeEnd, func(ctx context.Context, ev events.Event) error {
		message := fmt.Sprintf("Masquerade end as %s (%s)", ev.Target.Email, ev.Target.ID)
		_, err := rec.Log(ctx, message, ev.User, ev.Session)
		return err
	})

	byActor := func(verb string) events.Handler {
		return func(ctx context.Context, ev events.Event) error {
			message := fmt.Sprintf("%s by: %s (%s)", verb, ev.Actor.Email, ev.Actor.ID)
			_, err := rec.Log(ctx, message, ev.User, ev.Session)
			return err
		}
	}
	bus.Subscribe(events.UserCreated, byActor("Create"))
	bus.Subscribe(events.UserDeactivated, byActor("Deactivate"))
	bus.Subscribe(events.UserActivated, byActor("Activate"))

	bus.Subscribe(events.EmailChanged, func(ctx context.Context, ev events.Event) error {
		message := fmt.Sprintf("Email change from: %s to: %s", ev.Old, ev.New)
		_, err := rec.Log(ctx, message, ev.User, ev.Session)
		return err
	})

	bus.Subscribe(events.CompanyRenamed, func(ctx context.Context, ev events.Event) error {
		message := fmt.Sprintf("Company id: %s name change from: %s to: %s", ev.Company.ID, ev.Old, ev.New)
		_, err := rec.Log(ctx, message, ev.User, ev.Session)
		return err
	})
}
