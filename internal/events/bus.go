// Package events carries the named account notifications between the
// identity/session logic and its subscribers. Dispatch is synchronous and
// in-process: handlers run, in registration order, before the triggering
// request returns, and the first handler error aborts dispatch and propagates
// to the publisher.
package events

import (
	"context"
	"sync"

	"accountsplus.org/internal/accounts"
	"accountsplus.org/internal/session"
)

// Name identifies one notification.
type Name string

const (
	SignedIn               Name = "user_logged_in"
	SignedOut              Name = "user_logged_out"
	MasqueradeStart        Name = "masquerade_start"
	MasqueradeEnd          Name = "masquerade_end"
	PasswordChanged        Name = "user_password_change"
	PasswordResetRequested Name = "user_password_reset_request"
	UserCreated            Name = "user_create"
	UserActivated          Name = "user_activate"
	UserDeactivated        Name = "user_deactivate"
	EmailChanged           Name = "user_email_change"
	CompanyRenamed         Name = "company_name_change"
)

// Event is one notification instance. User is the principal the notification
// is about (audit records are attributed to it); Actor is the principal
// performing the action when different; Target is the masquerade counterpart.
type Event struct {
	Name    Name
	User    *accounts.User
	Actor   *accounts.User
	Target  *accounts.User
	Company *accounts.Company
	Old     string
	New     string
	Session *session.Session
}

// Handler consumes one event. Errors abort dispatch and reach the publisher.
type Handler func(ctx context.Context, ev Event) error

// Bus dispatches events synchronously to subscribed handlers.
type Bus struct {
	mu       sync.RWMutex
	handlers map[Name][]Handler
}

func NewBus() *Bus {
	return &Bus{handlers: make(map[Name][]Handler)}
}

// Subscribe registers a handler for one event name.
func (b *Bus) Subscribe(name Name, h Handler) {
	if h == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[name] = append(b.handlers[name], h)
}

// Publish runs every handler registered for ev.Name in order.
func (b *Bus) Publish(ctx context.Context, ev Event) error {
	b.mu.RLock()
	handlers := b.handlers[ev.Name]
	b.mu.RUnlock()
	for _, h := range handlers {
		if err := h(ctx, ev); err != nil {
			return err
		}
	}
	return nil
}
