package gateway

import (
	"context"
	"strings"
	"testing"
)

func TestMockProvider_CreateOrder(t *testing.T) {
	p := NewMockProvider()

	order, err := p.CreateOrder(context.Background(), 149900, "INR", "ord_abc123", map[string]string{"orderId": "ord_abc123"})
	if err != nil {
		t.Fatalf("CreateOrder failed: %v", err)
	}

	if !strings.HasPrefix(order.ID, "mock_order_") {
		t.Errorf("order ID = %q, want mock_order_ prefix", order.ID)
	}
	if order.Amount != 149900 {
		t.Errorf("amount = %d, want 149900", order.Amount)
	}
	if order.Currency != "INR" || order.Receipt != "ord_abc123" {
		t.Errorf("order = %+v", order)
	}
	if order.Status != "created" {
		t.Errorf("status = %q, want created", order.Status)
	}
}

func TestMockProvider_UniqueIDs(t *testing.T) {
	p := NewMockProvider()

	seen := make(map[string]bool)
	for i := 0; i < 10; i++ {
		order, err := p.CreateOrder(context.Background(), 100, "INR", "r", nil)
		if err != nil {
			t.Fatalf("CreateOrder failed: %v", err)
		}
		if seen[order.ID] {
			t.Fatalf("duplicate provider order ID %q", order.ID)
		}
		seen[order.ID] = true
	}
}

func TestBuildPaymentOptions(t *testing.T) {
	order := &ProviderOrder{ID: "mock_order_1", Amount: 149900, Currency: "INR"}
	opts := BuildPaymentOptions("rzp_test_key", order, "Asha Rao", "asha@example.com", "9999999999")

	if opts.Key != "rzp_test_key" || opts.OrderID != "mock_order_1" {
		t.Errorf("opts = %+v", opts)
	}
	if opts.Amount != 149900 || opts.Currency != "INR" {
		t.Errorf("amount/currency = %d %s", opts.Amount, opts.Currency)
	}
	if opts.Prefill.Email != "asha@example.com" || opts.Prefill.Name != "Asha Rao" {
		t.Errorf("prefill = %+v", opts.Prefill)
	}
	for _, m := range []string{"upi", "card", "netbanking", "wallet"} {
		if !opts.Methods[m] {
			t.Errorf("method %s not enabled", m)
		}
	}
}
