package session

import (
	"context"
	"errors"
	"sync"
	"time"
)

var ErrNotFound = errors.New("session: not found")

// Store persists sessions between requests.
type Store interface {
	Create(ctx context.Context, s *Session) error
	Find(ctx context.Context, id string) (*Session, error)
	Save(ctx context.Context, s *Session) error
	Delete(ctx context.Context, id string) error
}

// MemoryStore keeps sessions in process.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]*Session)}
}

func (m *MemoryStore) Create(_ context.Context, s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := clone(s)
	m.sessions[s.ID] = cp
	return nil
}

func (m *MemoryStore) Find(_ context.Context, id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok || time.Now().After(s.ExpiresAt) {
		return nil, ErrNotFound
	}
	return clone(s), nil
}

func (m *MemoryStore) Save(_ context.Context, s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[s.ID]; !ok {
		return ErrNotFound
	}
	s.UpdatedAt = time.Now().UTC()
	m.sessions[s.ID] = clone(s)
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

func clone(s *Session) *Session {
	cp := *s
	cp.Values = make(map[string]any, len(s.Values))
	for k, v := range s.Values {
		cp.Values[k] = v
	}
	cp.Flashes = append([]Flash(nil), s.Flashes...)
	return &cp
}
