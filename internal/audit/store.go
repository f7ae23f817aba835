package audit

import (
	"context"
	"sort"
	"sync"
)

// Store persists audit events. Append is the only mutation; Delete exists so
// admin tooling can call it uniformly, but implementations never remove rows.
type Store interface {
	Append(ctx context.Context, e *Event) error
	ListByUser(ctx context.Context, userID string) ([]Event, error)
	// Delete is a silent no-op on every implementation.
	Delete(ctx context.Context, id string) error
}

// MemoryStore keeps events in process.
type MemoryStore struct {
	mu     sync.RWMutex
	events []Event
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Append(_ context.Context, e *Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, *e)
	return nil
}

func (s *MemoryStore) ListByUser(_ context.Context, userID string) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var res []Event
	for _, e := range s.events {
		if e.UserID == userID {
			res = append(res, e)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].RecordedAt.Before(res[j].RecordedAt) })
	return res, nil
}

// Delete never removes anything.
func (s *MemoryStore) Delete(context.Context, string) error {
	return nil
}

// All returns every recorded event in append order. Test helper.
func (s *MemoryStore) All() []Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Event(nil), s.events...)
}
