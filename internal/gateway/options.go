package gateway

// PaymentOptions is the client-side checkout payload: everything the
// payment widget needs to collect a payment against a provider order.
type PaymentOptions struct {
	Key         string            `json:"key"`
	Amount      int64             `json:"amount"` // minor units
	Currency    string            `json:"currency"`
	Name        string            `json:"name"`
	Description string            `json:"description"`
	OrderID     string            `json:"orderId"`
	Prefill     Prefill           `json:"prefill"`
	Methods     map[string]bool   `json:"method"`
	Notes       map[string]string `json:"notes,omitempty"`
}

// Prefill carries buyer identity for the payment form.
type Prefill struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Contact string `json:"contact,omitempty"`
}

// BuildPaymentOptions assembles the checkout payload for a provider order.
func BuildPaymentOptions(keyID string, order *ProviderOrder, name, email, phone string) *PaymentOptions {
	return &PaymentOptions{
		Key:         keyID,
		Amount:      order.Amount,
		Currency:    order.Currency,
		Name:        "Bookvault",
		Description: "Book purchase",
		OrderID:     order.ID,
		Prefill: Prefill{
			Name:    name,
			Email:   email,
			Contact: phone,
		},
		Methods: map[string]bool{
			"upi":        true,
			"card":       true,
			"netbanking": true,
			"wallet":     true,
		},
	}
}
