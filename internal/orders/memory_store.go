package orders

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-memory order store for demo/development mode.
type MemoryStore struct {
	orders     map[string]*Order
	byProvider map[string]string // providerOrderID -> orderID
	mu         sync.RWMutex
}

// NewMemoryStore creates a new in-memory order store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		orders:     make(map[string]*Order),
		byProvider: make(map[string]string),
	}
}

func (m *MemoryStore) Create(ctx context.Context, order *Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.orders[order.ID] = copyOrder(order)
	if order.ProviderOrderID != "" {
		m.byProvider[order.ProviderOrderID] = order.ID
	}
	return nil
}

func (m *MemoryStore) Get(ctx context.Context, id string) (*Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	order, ok := m.orders[id]
	if !ok {
		return nil, ErrOrderNotFound
	}
	return copyOrder(order), nil
}

func (m *MemoryStore) ListByUser(ctx context.Context, userID string, limit int) ([]*Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []*Order
	for _, o := range m.orders {
		if o.UserID == userID {
			result = append(result, copyOrder(o))
			if len(result) >= limit {
				break
			}
		}
	}
	return result, nil
}

func (m *MemoryStore) SetProviderOrder(ctx context.Context, id, providerOrderID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	order, ok := m.orders[id]
	if !ok {
		return ErrOrderNotFound
	}
	order.ProviderOrderID = providerOrderID
	order.UpdatedAt = time.Now()
	m.byProvider[providerOrderID] = id
	return nil
}

func (m *MemoryStore) CompleteOrder(ctx context.Context, id, paymentID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	order, ok := m.orders[id]
	if !ok {
		return false, ErrOrderNotFound
	}

	switch order.Status {
	case StatusCompleted:
		return true, nil
	case StatusPending:
		now := time.Now()
		order.Status = StatusCompleted
		order.PaymentID = paymentID
		order.CompletedAt = &now
		order.UpdatedAt = now
		return false, nil
	default:
		return false, ErrInvalidStatus
	}
}

func (m *MemoryStore) MarkFailed(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	order, ok := m.orders[id]
	if !ok {
		return ErrOrderNotFound
	}
	if order.Status != StatusPending {
		return ErrInvalidStatus
	}
	order.Status = StatusFailed
	order.UpdatedAt = time.Now()
	return nil
}

func (m *MemoryStore) Cancel(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	order, ok := m.orders[id]
	if !ok {
		return ErrOrderNotFound
	}
	if order.Status != StatusPending {
		return ErrInvalidStatus
	}
	order.Status = StatusCancelled
	order.UpdatedAt = time.Now()
	return nil
}

func (m *MemoryStore) ListStalePending(ctx context.Context, olderThan time.Time, limit int) ([]*Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []*Order
	for _, o := range m.orders {
		if o.Status == StatusPending && o.UpdatedAt.Before(olderThan) {
			result = append(result, copyOrder(o))
			if len(result) >= limit {
				break
			}
		}
	}
	return result, nil
}

func (m *MemoryStore) FindByProviderOrder(ctx context.Context, providerOrderID string) (*Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.byProvider[providerOrderID]
	if !ok {
		return nil, ErrOrderNotFound
	}
	return copyOrder(m.orders[id]), nil
}

// copyOrder deep-copies an order so callers cannot mutate stored state
// through the shared Items backing array.
func copyOrder(o *Order) *Order {
	cp := *o
	if o.Items != nil {
		cp.Items = make([]OrderItem, len(o.Items))
		copy(cp.Items, o.Items)
	}
	if o.ShippingAddress != nil {
		addr := *o.ShippingAddress
		cp.ShippingAddress = &addr
	}
	return &cp
}

// Compile-time assertion that MemoryStore implements Store.
var _ Store = (*MemoryStore)(nil)
