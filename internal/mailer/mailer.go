// Package mailer sends transactional email. The production transport
// is out of scope; LogMailer records what would have been sent.
package mailer

import (
	"context"
	"fmt"

	"bookvault/internal/logging"
)

// OrderConfirmation is the payload for a completion email.
type OrderConfirmation struct {
	To        string
	Name      string
	OrderID   string
	PaymentID string
	Amount    float64
	Items     []LineItem
}

// LineItem is one title on the confirmation.
type LineItem struct {
	Title    string
	Quantity int
	Price    float64
}

// Mailer sends transactional email.
type Mailer interface {
	SendOrderConfirmation(ctx context.Context, msg OrderConfirmation) error
}

// LogMailer logs messages instead of sending them.
type LogMailer struct{}

// NewLogMailer creates a log-only mailer.
func NewLogMailer() *LogMailer {
	return &LogMailer{}
}

func (m *LogMailer) SendOrderConfirmation(ctx context.Context, msg OrderConfirmation) error {
	summary := make([]string, 0, len(msg.Items))
	for _, item := range msg.Items {
		summary = append(summary, fmt.Sprintf("%dx %s", item.Quantity, item.Title))
	}
	logging.L(ctx).Info("order confirmation email",
		"to", msg.To,
		"orderId", msg.OrderID,
		"paymentId", msg.PaymentID,
		"amount", msg.Amount,
		"items", summary,
	)
	return nil
}

// Compile-time assertion that LogMailer implements Mailer.
var _ Mailer = (*LogMailer)(nil)
