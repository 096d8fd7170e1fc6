package gateway

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Signer verifies payment callback signatures. The provider signs
// "<orderID>|<paymentID>" with the shared secret using HMAC-SHA256 and
// sends the hex digest alongside the callback.
type Signer struct {
	secret    string
	allowMock bool
}

// NewSigner creates a signer. allowMock enables the development-only
// mock signature scheme; it is only honored when no secret is set.
func NewSigner(secret string, allowMock bool) *Signer {
	return &Signer{secret: secret, allowMock: allowMock}
}

// Sign computes the expected signature for a provider order/payment pair.
func (s *Signer) Sign(orderID, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(s.secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify reports whether a callback signature is authentic. Comparison
// is constant-time. Without a configured secret, mock signatures are
// accepted only when explicitly enabled.
func (s *Signer) Verify(orderID, paymentID, signature string) bool {
	if s.secret == "" {
		if s.allowMock {
			return signature == "mock_signature" || strings.HasPrefix(signature, "mock_")
		}
		return false
	}

	expected := s.Sign(orderID, paymentID)
	return hmac.Equal([]byte(expected), []byte(signature))
}
