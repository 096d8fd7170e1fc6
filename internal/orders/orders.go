// Package orders owns the checkout pipeline and the payment
// completion reconciler.
//
// Flow:
//  1. Checkout validates the cart, gates on network risk, creates a
//     pending order, and registers it with the payment provider
//  2. The client pays against the provider order
//  3. The provider callback hits CompletePayment: signature verified,
//     order atomically moved pending → completed, downstream effects
//     (stock, sales aggregates, library, email) applied exactly once
//  4. A bad signature marks the order failed
package orders

import (
	"context"
	"errors"
	"time"
)

var (
	ErrOrderNotFound        = errors.New("order not found")
	ErrEmptyOrder           = errors.New("order must contain at least one book")
	ErrInvalidPaymentMethod = errors.New("invalid payment method")
	ErrDuplicatePurchase    = errors.New("duplicate purchase")
	ErrInsufficientStock    = errors.New("insufficient stock")
	ErrInvalidAmount        = errors.New("invalid payment amount")
	ErrSecurityBlock        = errors.New("payment blocked for security reasons")
	ErrVerificationFailed   = errors.New("payment verification failed")
	ErrCompletionFailed     = errors.New("payment verified but completion failed")
	ErrInvalidStatus        = errors.New("invalid order status for this operation")
)

// Status represents the state of an order.
type Status string

const (
	StatusPending    Status = "pending"    // Created, awaiting payment
	StatusProcessing Status = "processing" // Reserved for multi-step settlement
	StatusCompleted  Status = "completed"  // Payment verified, effects applied
	StatusCancelled  Status = "cancelled"  // Abandoned before payment
	StatusFailed     Status = "failed"     // Payment verification failed
)

// Payment methods accepted at checkout.
const (
	MethodUPI        = "upi"
	MethodCreditCard = "credit_card"
	MethodDebitCard  = "debit_card"
)

// ValidPaymentMethod reports whether a method is accepted.
func ValidPaymentMethod(m string) bool {
	switch m {
	case MethodUPI, MethodCreditCard, MethodDebitCard:
		return true
	}
	return false
}

// OrderItem is one cart line, priced at checkout time.
type OrderItem struct {
	BookID    string  `json:"bookId"`
	Title     string  `json:"title"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unitPrice"`
}

// ShippingAddress is the delivery address captured at checkout.
type ShippingAddress struct {
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country"`
}

// Order is a purchase attempt and its settlement state.
type Order struct {
	ID              string           `json:"id"`
	UserID          string           `json:"userId"`
	Items           []OrderItem      `json:"items"`
	TotalAmount     float64          `json:"totalAmount"`
	Status          Status           `json:"status"`
	PaymentMethod   string           `json:"paymentMethod"`
	PaymentGateway  string           `json:"paymentGateway"`
	ProviderOrderID string           `json:"providerOrderId,omitempty"`
	PaymentID       string           `json:"paymentId,omitempty"`
	ShippingAddress *ShippingAddress `json:"shippingAddress,omitempty"`
	CreatedAt       time.Time        `json:"createdAt"`
	UpdatedAt       time.Time        `json:"updatedAt"`
	CompletedAt     *time.Time       `json:"completedAt,omitempty"`
}

// IsTerminal returns true if the order is in a final state.
func (o *Order) IsTerminal() bool {
	switch o.Status {
	case StatusCompleted, StatusCancelled, StatusFailed:
		return true
	}
	return false
}

// Store persists order data.
type Store interface {
	Create(ctx context.Context, order *Order) error
	Get(ctx context.Context, id string) (*Order, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]*Order, error)
	// SetProviderOrder binds the provider-side order id after registration.
	SetProviderOrder(ctx context.Context, id, providerOrderID string) error
	// CompleteOrder atomically moves a pending order to completed and
	// records the payment id. alreadyCompleted is true when the order
	// was completed before this call (idempotent retry); a terminal
	// non-completed status returns ErrInvalidStatus.
	CompleteOrder(ctx context.Context, id, paymentID string) (alreadyCompleted bool, err error)
	// MarkFailed moves a pending order to failed. No-op error
	// semantics mirror CompleteOrder.
	MarkFailed(ctx context.Context, id string) error
	// Cancel moves a pending order to cancelled (abandoned checkout).
	Cancel(ctx context.Context, id string) error
	// ListStalePending returns pending orders last touched before the
	// given cutoff, oldest first.
	ListStalePending(ctx context.Context, olderThan time.Time, limit int) ([]*Order, error)
	// FindByProviderOrder resolves the internal order for a provider
	// callback.
	FindByProviderOrder(ctx context.Context, providerOrderID string) (*Order, error)
}
