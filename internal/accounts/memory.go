package accounts

import (
	"context"
	"sync"
	"time"
)

// InMemory implements Store for tests and DSN-less runs. The email
// uniqueness check spans deactivated rows, matching the database's
// unique index.
type InMemory struct {
	mu      sync.RWMutex
	byID    map[string]*Account
	byEmail map[string]string // normalized email -> account id
	hashes  map[string]string // account id -> secret hash
}

var _ Store = (*InMemory)(nil)

func NewInMemory() *InMemory {
	return &InMemory{
		byID:    make(map[string]*Account),
		byEmail: make(map[string]string),
		hashes:  make(map[string]string),
	}
}

func (m *InMemory) Create(ctx context.Context, acc *Account, secretHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byEmail[acc.Email]; ok {
		return ErrDuplicateAccount
	}
	cp := *acc
	m.byID[acc.ID] = &cp
	m.byEmail[acc.Email] = acc.ID
	m.hashes[acc.ID] = secretHash
	return nil
}

func (m *InMemory) FindByID(ctx context.Context, id string) (Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	acc, ok := m.byID[id]
	if !ok || !acc.Active {
		return Account{}, ErrNotFound
	}
	return *acc, nil
}

func (m *InMemory) FindByEmailWithSecret(ctx context.Context, email string) (Account, string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.byEmail[email]
	if !ok {
		return Account{}, "", ErrNotFound
	}
	acc := m.byID[id]
	if !acc.Active {
		return Account{}, "", ErrNotFound
	}
	return *acc, m.hashes[id], nil
}

func (m *InMemory) UpdateRole(ctx context.Context, id string, role Role) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	acc, ok := m.byID[id]
	if !ok {
		return ErrNotFound
	}
	acc.Role = role
	acc.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *InMemory) Deactivate(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	acc, ok := m.byID[id]
	if !ok {
		return ErrNotFound
	}
	acc.Active = false
	acc.UpdatedAt = time.Now().UTC()
	return nil
}
