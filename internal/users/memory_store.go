package users

import (
	"context"
	"strings"
	"sync"
)

// MemoryStore is an in-memory user store for demo/development mode.
type MemoryStore struct {
	users   map[string]*User
	byEmail map[string]string // email -> id
	mu      sync.RWMutex
}

// NewMemoryStore creates a new in-memory user store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:   make(map[string]*User),
		byEmail: make(map[string]string),
	}
}

func (m *MemoryStore) Create(ctx context.Context, user *User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	email := strings.ToLower(user.Email)
	if _, taken := m.byEmail[email]; taken {
		return ErrEmailTaken
	}
	cp := *user
	m.users[user.ID] = &cp
	m.byEmail[email] = user.ID
	return nil
}

func (m *MemoryStore) Get(ctx context.Context, id string) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	user, ok := m.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	cp := *user
	return &cp, nil
}

func (m *MemoryStore) GetByEmail(ctx context.Context, email string) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.byEmail[strings.ToLower(email)]
	if !ok {
		return nil, ErrUserNotFound
	}
	cp := *m.users[id]
	return &cp, nil
}

func (m *MemoryStore) Update(ctx context.Context, user *User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.users[user.ID]; !ok {
		return ErrUserNotFound
	}
	cp := *user
	m.users[user.ID] = &cp
	return nil
}

func (m *MemoryStore) AddAuthorSales(ctx context.Context, authorID string, qty int, revenue float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	user, ok := m.users[authorID]
	if !ok {
		return ErrUserNotFound
	}
	user.TotalSales += qty
	user.TotalRevenue += revenue
	return nil
}

// Compile-time assertion that MemoryStore implements Store.
var _ Store = (*MemoryStore)(nil)
