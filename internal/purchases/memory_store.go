package purchases

import (
	"context"
	"sync"
)

// MemoryStore is an in-memory purchase store for demo/development mode.
type MemoryStore struct {
	purchases map[string]*Purchase // keyed by userID+"/"+bookID
	mu        sync.RWMutex
}

// NewMemoryStore creates a new in-memory purchase store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		purchases: make(map[string]*Purchase),
	}
}

func key(userID, bookID string) string {
	return userID + "/" + bookID
}

func (m *MemoryStore) Record(ctx context.Context, p *Purchase) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	k := key(p.UserID, p.BookID)
	if _, exists := m.purchases[k]; exists {
		return nil // already owned
	}
	cp := *p
	m.purchases[k] = &cp
	return nil
}

func (m *MemoryStore) HasPurchased(ctx context.Context, userID, bookID string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, ok := m.purchases[key(userID, bookID)]
	return ok, nil
}

func (m *MemoryStore) ListByUser(ctx context.Context, userID string, limit int) ([]*Purchase, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []*Purchase
	for _, p := range m.purchases {
		if p.UserID == userID {
			cp := *p
			result = append(result, &cp)
			if len(result) >= limit {
				break
			}
		}
	}
	return result, nil
}

// Compile-time assertion that MemoryStore implements Store.
var _ Store = (*MemoryStore)(nil)
