// Package authtest provides an in-memory auth.AccountStore for tests.
package authtest

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/taskmanager/backend/internal/auth"
)

// MemoryStore is a concurrency-safe AccountStore.
type MemoryStore struct {
	mu      sync.Mutex
	byID    map[string]*auth.Account
	byEmail map[string]string
	err     error
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:    make(map[string]*auth.Account),
		byEmail: make(map[string]string),
	}
}

func (s *MemoryStore) FindByEmail(ctx context.Context, email string) (*auth.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	id, ok := s.byEmail[auth.NormalizeEmail(email)]
	if !ok {
		return nil, auth.ErrAccountNotFound
	}
	return clone(s.byID[id]), nil
}

func (s *MemoryStore) FindByID(ctx context.Context, id string) (*auth.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	a, ok := s.byID[id]
	if !ok {
		return nil, auth.ErrAccountNotFound
	}
	return clone(a), nil
}

func (s *MemoryStore) Insert(ctx context.Context, a *auth.Account) (*auth.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	key := auth.NormalizeEmail(a.Email)
	if _, taken := s.byEmail[key]; taken {
		return nil, auth.ErrDuplicateEmail
	}
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	s.byID[a.ID] = clone(a)
	s.byEmail[key] = a.ID
	return clone(a), nil
}

func (s *MemoryStore) Update(ctx context.Context, a *auth.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	if _, ok := s.byID[a.ID]; !ok {
		return auth.ErrAccountNotFound
	}
	s.byID[a.ID] = clone(a)
	return nil
}

// FailWith makes every store call return err until cleared with nil,
// simulating a broken database.
func (s *MemoryStore) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

// Get returns a copy of the stored account, ignoring FailWith.
func (s *MemoryStore) Get(id string) (*auth.Account, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.byID[id]
	return clone(a), ok
}

// SetActive flips the active flag of a stored account.
func (s *MemoryStore) SetActive(id string, active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a, ok := s.byID[id]; ok {
		a.IsActive = active
	}
}

// Delete removes an account entirely.
func (s *MemoryStore) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a, ok := s.byID[id]; ok {
		delete(s.byEmail, auth.NormalizeEmail(a.Email))
		delete(s.byID, id)
	}
}

func clone(a *auth.Account) *auth.Account {
	if a == nil {
		return nil
	}
	c := *a
	if a.LastLoginAt != nil {
		t := *a.LastLoginAt
		c.LastLoginAt = &t
	}
	return &c
}
