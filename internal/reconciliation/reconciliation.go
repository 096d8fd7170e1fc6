// Package reconciliation sweeps for orders abandoned mid-payment and
// books that need restocking.
//
// A pending order whose payment never arrived stays pending forever:
// the client opened checkout, the provider order was registered, and
// the buyer walked away. The sweeper cancels those after a TTL so they
// stop counting against stock forecasts and order listings.
package reconciliation

import (
	"context"
	"fmt"
	"time"

	"bookvault/internal/catalog"
	"bookvault/internal/logging"
	"bookvault/internal/metrics"
	"bookvault/internal/orders"
)

// OrderStore is the slice of the order store the sweeper needs.
type OrderStore interface {
	ListStalePending(ctx context.Context, olderThan time.Time, limit int) ([]*orders.Order, error)
	Cancel(ctx context.Context, id string) error
}

// CatalogStore reports books at or below their reorder point.
type CatalogStore interface {
	ListLowStock(ctx context.Context, limit int) ([]*catalog.Book, error)
}

// Result holds the outcome of a sweep run.
type Result struct {
	StalePending    int `json:"stalePending"`
	CancelledOrders int `json:"cancelledOrders"`
	LowStockBooks   int `json:"lowStockBooks"`
}

// Runner performs the periodic sweep.
type Runner struct {
	orders     OrderStore
	books      CatalogStore
	pendingTTL time.Duration
	batchSize  int
}

// NewRunner creates a sweep runner. Pending orders untouched for an
// hour are considered abandoned.
func NewRunner(orderStore OrderStore, bookStore CatalogStore) *Runner {
	return &Runner{
		orders:     orderStore,
		books:      bookStore,
		pendingTTL: time.Hour,
		batchSize:  100,
	}
}

// SetPendingTTL overrides how long a pending order may idle before the
// sweeper cancels it.
func (r *Runner) SetPendingTTL(ttl time.Duration) {
	if ttl > 0 {
		r.pendingTTL = ttl
	}
}

// RunAll executes every sweep check and updates the gauges.
func (r *Runner) RunAll(ctx context.Context) (*Result, error) {
	start := time.Now()
	defer func() {
		reconcileDuration.Observe(time.Since(start).Seconds())
	}()

	result := &Result{}

	cutoff := time.Now().Add(-r.pendingTTL)
	stale, err := r.orders.ListStalePending(ctx, cutoff, r.batchSize)
	if err != nil {
		reconcileErrors.Inc()
		return nil, fmt.Errorf("failed to list stale pending orders: %w", err)
	}
	result.StalePending = len(stale)
	reconcileStaleOrders.Set(float64(len(stale)))

	for _, o := range stale {
		if err := r.orders.Cancel(ctx, o.ID); err != nil {
			// The order may have completed between list and cancel.
			logging.L(ctx).Warn("failed to cancel abandoned order",
				"orderId", o.ID, "error", err)
			continue
		}
		result.CancelledOrders++
		reconcileCancelledTotal.Inc()
		logging.L(ctx).Info("cancelled abandoned order",
			"orderId", o.ID, "userId", o.UserID, "idleSince", o.UpdatedAt)
	}

	low, err := r.books.ListLowStock(ctx, r.batchSize)
	if err != nil {
		reconcileErrors.Inc()
		return result, fmt.Errorf("failed to list low-stock books: %w", err)
	}
	result.LowStockBooks = len(low)
	reconcileLowStock.Set(float64(len(low)))
	metrics.BooksLowStock.Set(float64(len(low)))

	return result, nil
}
