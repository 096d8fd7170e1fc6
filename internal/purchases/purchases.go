// Package purchases records which books a user owns. The checkout
// duplicate-purchase check and the post-payment library both read it.
package purchases

import (
	"context"
	"errors"
	"time"
)

var ErrPurchaseNotFound = errors.New("purchase not found")

// Purchase links a user to a book they have bought.
type Purchase struct {
	UserID      string    `json:"userId"`
	BookID      string    `json:"bookId"`
	OrderID     string    `json:"orderId"`
	PurchasedAt time.Time `json:"purchasedAt"`
}

// Store persists purchase records. Record is idempotent on
// (user, book): re-recording an owned book is a no-op.
type Store interface {
	Record(ctx context.Context, p *Purchase) error
	HasPurchased(ctx context.Context, userID, bookID string) (bool, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]*Purchase, error)
}

// Service implements purchase-library logic.
type Service struct {
	store Store
}

// NewService creates a new purchases service.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// Record marks a book as owned by the user.
func (s *Service) Record(ctx context.Context, userID, bookID, orderID string) error {
	return s.store.Record(ctx, &Purchase{
		UserID:      userID,
		BookID:      bookID,
		OrderID:     orderID,
		PurchasedAt: time.Now(),
	})
}

// HasPurchased reports whether the user already owns the book.
func (s *Service) HasPurchased(ctx context.Context, userID, bookID string) (bool, error) {
	return s.store.HasPurchased(ctx, userID, bookID)
}

// ListByUser returns the user's library.
func (s *Service) ListByUser(ctx context.Context, userID string, limit int) ([]*Purchase, error) {
	if limit <= 0 {
		limit = 100
	}
	return s.store.ListByUser(ctx, userID, limit)
}
