// Package gateway integrates with the payment provider: order
// creation, amount and fee rules, and callback signature verification.
package gateway

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	razorpay "github.com/razorpay/razorpay-go"
)

var (
	ErrProviderUnavailable = errors.New("payment provider unavailable")
)

// Name identifies the gateway on persisted orders. The mock provider
// fabricates orders in the same shape, so it shares the name.
const Name = "razorpay"

// ProviderOrder is an order registered with the payment provider.
// Amount is in minor currency units (paise for INR).
type ProviderOrder struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	Status   string `json:"status"`
}

// Provider creates provider-side orders ahead of client payment.
type Provider interface {
	CreateOrder(ctx context.Context, amountMinor int64, currency, receipt string, notes map[string]string) (*ProviderOrder, error)
}

// RazorpayProvider creates orders through the Razorpay Orders API.
type RazorpayProvider struct {
	client *razorpay.Client
}

// NewRazorpayProvider creates a provider from API credentials.
func NewRazorpayProvider(keyID, keySecret string) *RazorpayProvider {
	return &RazorpayProvider{client: razorpay.NewClient(keyID, keySecret)}
}

func (p *RazorpayProvider) CreateOrder(ctx context.Context, amountMinor int64, currency, receipt string, notes map[string]string) (*ProviderOrder, error) {
	data := map[string]interface{}{
		"amount":   amountMinor,
		"currency": currency,
		"receipt":  receipt,
	}
	if len(notes) > 0 {
		n := make(map[string]interface{}, len(notes))
		for k, v := range notes {
			n[k] = v
		}
		data["notes"] = n
	}

	body, err := p.client.Order.Create(data, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}

	order := &ProviderOrder{
		Amount:   amountMinor,
		Currency: currency,
		Receipt:  receipt,
	}
	if id, ok := body["id"].(string); ok {
		order.ID = id
	}
	if status, ok := body["status"].(string); ok {
		order.Status = status
	}
	if order.ID == "" {
		return nil, fmt.Errorf("%w: response missing order id", ErrProviderUnavailable)
	}
	return order, nil
}

// MockProvider fabricates provider orders locally. Used when gateway
// credentials are absent (development) and in tests.
type MockProvider struct{}

// NewMockProvider creates a mock provider.
func NewMockProvider() *MockProvider {
	return &MockProvider{}
}

func (p *MockProvider) CreateOrder(ctx context.Context, amountMinor int64, currency, receipt string, notes map[string]string) (*ProviderOrder, error) {
	return &ProviderOrder{
		ID:       "mock_order_" + uuid.NewString(),
		Amount:   amountMinor,
		Currency: currency,
		Receipt:  receipt,
		Status:   "created",
	}, nil
}

// Compile-time assertions.
var (
	_ Provider = (*RazorpayProvider)(nil)
	_ Provider = (*MockProvider)(nil)
)
