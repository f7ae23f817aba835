package events

import (
	"context"
	"errors"
	"testing"
)

func TestPublishRunsHandlersInOrder(t *testing.T) {
	bus := NewBus()
	var calls []string
	bus.Subscribe(SignedIn, func(context.Context, Event) error {
		calls = append(calls, "first")
		return nil
	})
	bus.Subscribe(SignedIn, func(context.Context, Event) error {
		calls = append(calls, "second")
		return nil
	})
	bus.Subscribe(SignedOut, func(context.Context, Event) error {
		calls = append(calls, "other")
		return nil
	})

	if err := bus.Publish(context.Background(), Event{Name: SignedIn}); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if len(calls) != 2 || calls[0] != "first" || calls[1] != "second" {
		t.Fatalf("calls = %v", calls)
	}
}

func TestPublishFirstErrorAborts(t *testing.T) {
	bus := NewBus()
	boom := errors.New("handler failed")
	ran := false
	bus.Subscribe(MasqueradeStart, func(context.Context, Event) error { return boom })
	bus.Subscribe(MasqueradeStart, func(context.Context, Event) error {
		ran = true
		return nil
	})

	err := bus.Publish(context.Background(), Event{Name: MasqueradeStart})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want %v", err, boom)
	}
	if ran {
		t.Fatal("handler after failing handler still ran")
	}
}

func TestPublishNoSubscribers(t *testing.T) {
	bus := NewBus()
	if err := bus.Publish(context.Background(), Event{Name: PasswordChanged}); err != nil {
		t.Fatalf("publish: %v", err)
	}
}

func TestSubscribeNilHandlerIgnored(t *testing.T) {
	bus := NewBus()
	bus.Subscribe(SignedIn, nil)
	if err := bus.Publish(context.Background(), Event{Name: SignedIn}); err != nil {
		t.Fatalf("publish: %v", err)
	}
}
