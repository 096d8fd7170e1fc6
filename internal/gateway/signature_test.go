package gateway

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"
)

func TestSigner_RoundTrip(t *testing.T) {
	s := NewSigner("test-secret", false)

	sig := s.Sign("order_abc", "pay_xyz")
	if !s.Verify("order_abc", "pay_xyz", sig) {
		t.Fatal("signature from Sign did not verify")
	}
}

func TestSigner_KnownDigest(t *testing.T) {
	s := NewSigner("test-secret", false)

	mac := hmac.New(sha256.New, []byte("test-secret"))
	mac.Write([]byte("order_abc|pay_xyz"))
	want := hex.EncodeToString(mac.Sum(nil))

	if got := s.Sign("order_abc", "pay_xyz"); got != want {
		t.Errorf("Sign = %s, want %s", got, want)
	}
}

func TestSigner_RejectsTamperedSignature(t *testing.T) {
	s := NewSigner("test-secret", false)

	sig := s.Sign("order_abc", "pay_xyz")

	// Flip the last hex character.
	last := sig[len(sig)-1]
	flipped := byte('0')
	if last == '0' {
		flipped = '1'
	}
	tampered := sig[:len(sig)-1] + string(flipped)

	if s.Verify("order_abc", "pay_xyz", tampered) {
		t.Error("tampered signature verified")
	}
}

func TestSigner_RejectsWrongPair(t *testing.T) {
	s := NewSigner("test-secret", false)

	sig := s.Sign("order_abc", "pay_xyz")
	if s.Verify("order_abc", "pay_other", sig) {
		t.Error("signature verified against a different payment id")
	}
	if s.Verify("order_other", "pay_xyz", sig) {
		t.Error("signature verified against a different order id")
	}
}

func TestSigner_MockMode(t *testing.T) {
	tests := []struct {
		name      string
		secret    string
		allowMock bool
		signature string
		want      bool
	}{
		{"mock accepted when enabled", "", true, "mock_signature", true},
		{"mock prefix accepted when enabled", "", true, "mock_12345", true},
		{"non-mock rejected in mock mode", "", true, "deadbeef", false},
		{"mock rejected when disabled", "", false, "mock_signature", false},
		{"mock rejected when secret configured", "test-secret", true, "mock_signature", false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := NewSigner(tc.secret, tc.allowMock)
			if got := s.Verify("order_abc", "pay_xyz", tc.signature); got != tc.want {
				t.Errorf("Verify = %v, want %v", got, tc.want)
			}
		})
	}
}
