package gateway

import "math"

// MaxPaymentAmount is the per-transaction ceiling in major units.
const MaxPaymentAmount = 500000

// Processing fee rates by payment method.
const (
	cardRate       = 0.0236
	netbankingRate = 0.019
	walletRate     = 0.024
	gstRate        = 0.18 // GST applied on the processing fee
)

// upiFreeLimit is the amount up to which UPI carries no fee.
const upiFreeLimit = 2000

// ValidatePaymentAmount reports whether an order total is chargeable:
// strictly positive and at most MaxPaymentAmount.
func ValidatePaymentAmount(amount float64) bool {
	return amount > 0 && amount <= MaxPaymentAmount
}

// CalculateProcessingFees returns the processing fee (including GST)
// for an amount and payment method, rounded to two decimal places.
// UPI is free up to the free limit; above it, and for unknown methods,
// the card rate applies.
func CalculateProcessingFees(amount float64, method string) float64 {
	rate := cardRate
	switch method {
	case "upi":
		if amount <= upiFreeLimit {
			rate = 0
		}
	case "netbanking":
		rate = netbankingRate
	case "wallet":
		rate = walletRate
	case "card":
		rate = cardRate
	}

	fee := amount * rate
	total := fee + fee*gstRate
	return math.Round(total*100) / 100
}
