package accounts

import (
	"context"
	"sort"
	"sync"
	"time"

	"accountsplus.org/internal/ids"
)

var _ Store = (*MemoryStore)(nil)

// MemoryStore keeps everything in process. Used by tests and by deployments
// that have no database configured.
type MemoryStore struct {
	mu        sync.RWMutex
	users     map[string]*User
	companies map[string]*Company
	grants    map[string]map[string]struct{}
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:     make(map[string]*User),
		companies: make(map[string]*Company),
		grants:    make(map[string]map[string]struct{}),
	}
}

func (s *MemoryStore) Users(context.Context) UserStore { return (*memUserStore)(s) }

func (s *MemoryStore) Companies(context.Context) CompanyStore { return (*memCompanyStore)(s) }

func (s *MemoryStore) Grants(context.Context) GrantStore { return (*memGrantStore)(s) }

type memUserStore MemoryStore

func (s *memUserStore) Create(_ context.Context, u *User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.ID == "" {
		u.ID = ids.New()
	}
	u.Email = NormalizeEmail(u.Email)
	for _, existing := range s.users {
		if existing.Email == u.Email {
			return ErrConflict
		}
	}
	now := time.Now().UTC()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	u.UpdatedAt = now
	cp := *u
	s.users[u.ID] = &cp
	return nil
}

func (s *memUserStore) Find(_ context.Context, id string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *memUserStore) FindByEmail(_ context.Context, email string) (*User, error) {
	email = NormalizeEmail(email)
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (s *memUserStore) ListByCompany(_ context.Context, companyID string) ([]*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var res []*User
	for _, u := range s.users {
		if u.CompanyID == companyID {
			cp := *u
			res = append(res, &cp)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	return res, nil
}

func (s *memUserStore) Update(_ context.Context, u *User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.users[u.ID]
	if !ok {
		return ErrNotFound
	}
	u.Email = NormalizeEmail(u.Email)
	for _, other := range s.users {
		if other.ID != u.ID && other.Email == u.Email {
			return ErrConflict
		}
	}
	u.CreatedAt = existing.CreatedAt
	u.UpdatedAt = time.Now().UTC()
	cp := *u
	s.users[u.ID] = &cp
	return nil
}

func (s *memUserStore) UpdatePassword(_ context.Context, userID, passwordHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return ErrNotFound
	}
	u.PasswordHash = passwordHash
	u.UpdatedAt = time.Now().UTC()
	return nil
}

type memCompanyStore MemoryStore

func (s *memCompanyStore) Create(_ context.Context, c *Company) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.ID == "" {
		c.ID = ids.New()
	}
	now := time.Now().UTC()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now
	cp := *c
	s.companies[c.ID] = &cp
	return nil
}

func (s *memCompanyStore) Find(_ context.Context, id string) (*Company, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.companies[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (s *memCompanyStore) List(_ context.Context) ([]*Company, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	res := make([]*Company, 0, len(s.companies))
	for _, c := range s.companies {
		cp := *c
		res = append(res, &cp)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	return res, nil
}

func (s *memCompanyStore) Update(_ context.Context, c *Company) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.companies[c.ID]
	if !ok {
		return ErrNotFound
	}
	c.CreatedAt = existing.CreatedAt
	c.UpdatedAt = time.Now().UTC()
	cp := *c
	s.companies[c.ID] = &cp
	return nil
}

type memGrantStore MemoryStore

func (s *memGrantStore) Grant(_ context.Context, userID, capability string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	set, ok := s.grants[userID]
	if !ok {
		set = make(map[string]struct{})
		s.grants[userID] = set
	}
	set[capability] = struct{}{}
	return nil
}

func (s *memGrantStore) Revoke(_ context.Context, userID, capability string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if set, ok := s.grants[userID]; ok {
		delete(set, capability)
	}
	return nil
}

func (s *memGrantStore) List(_ context.Context, userID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	set := s.grants[userID]
	res := make([]string, 0, len(set))
	for capability := range set {
		res = append(res, capability)
	}
	sort.Strings(res)
	return res, nil
}
