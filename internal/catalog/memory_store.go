package catalog

import (
	"context"
	"sync"
)

// MemoryStore is an in-memory catalog store for demo/development mode.
type MemoryStore struct {
	books map[string]*Book
	mu    sync.RWMutex
}

// NewMemoryStore creates a new in-memory catalog store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		books: make(map[string]*Book),
	}
}

func (m *MemoryStore) Create(ctx context.Context, book *Book) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.books[book.ID] = book
	return nil
}

func (m *MemoryStore) Get(ctx context.Context, id string) (*Book, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	book, ok := m.books[id]
	if !ok {
		return nil, ErrBookNotFound
	}
	cp := *book
	return &cp, nil
}

func (m *MemoryStore) List(ctx context.Context, limit int) ([]*Book, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []*Book
	for _, b := range m.books {
		cp := *b
		result = append(result, &cp)
		if len(result) >= limit {
			break
		}
	}
	return result, nil
}

func (m *MemoryStore) Update(ctx context.Context, book *Book) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.books[book.ID]; !ok {
		return ErrBookNotFound
	}
	cp := *book
	m.books[book.ID] = &cp
	return nil
}

func (m *MemoryStore) DecrementStock(ctx context.Context, id string, qty int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	book, ok := m.books[id]
	if !ok {
		return false, ErrBookNotFound
	}
	if book.Stock < qty {
		return false, nil
	}
	book.Stock -= qty
	return true, nil
}

func (m *MemoryStore) AddSales(ctx context.Context, id string, qty int, revenue float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	book, ok := m.books[id]
	if !ok {
		return ErrBookNotFound
	}
	book.Sales += qty
	book.Revenue += revenue
	return nil
}

func (m *MemoryStore) ListLowStock(ctx context.Context, limit int) ([]*Book, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []*Book
	for _, b := range m.books {
		if b.NeedsReorder() {
			cp := *b
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
