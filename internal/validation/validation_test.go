package validation

import (
	"testing"
)

func TestIsValidEmail(t *testing.T) {
	tests := []struct {
		email string
		valid bool
	}{
		{"reader@example.com", true},
		{"a.b+tag@sub.domain.co", true},
		{"UPPER@EXAMPLE.COM", true},

		// Invalid cases
		{"", false},
		{"no-at-sign", false},
		{"two@@example.com", false},
		{"@example.com", false},
		{"user@", false},
		{"user@nodot", false},
		{"spaces in@example.com", false},
	}

	for _, tc := range tests {
		result := IsValidEmail(tc.email)
		if result != tc.valid {
			t.Errorf("IsValidEmail(%q) = %v, want %v", tc.email, result, tc.valid)
		}
	}
}

func TestIsValidID(t *testing.T) {
	tests := []struct {
		id    string
		valid bool
	}{
		{"ord_a1b2c3d4", true},
		{"bk_0123456789abcdef", true},
		{"usr_deadbeefdeadbeef", true},

		// Invalid cases
		{"", false},
		{"ord_", false},
		{"a1b2c3d4", false},          // no prefix
		{"ORD_a1b2c3d4", false},      // uppercase prefix
		{"ord_XYZ123", false},        // non-hex body
		{"ord-a1b2c3d4", false},      // wrong separator
		{"ord_a1b", false},           // body too short
		{"verylongprefix_a1b2c3d4", false},
	}

	for _, tc := range tests {
		result := IsValidID(tc.id)
		if result != tc.valid {
			t.Errorf("IsValidID(%q) = %v, want %v", tc.id, result, tc.valid)
		}
	}
}

func TestSanitizeString(t *testing.T) {
	tests := []struct {
		input    string
		maxLen   int
		expected string
	}{
		{"hello", 10, "hello"},
		{"  hello  ", 10, "hello"},
		{"hello world", 5, "hello"},
		{"with\x00null", 20, "withnull"},
		{"", 10, ""},
	}

	for _, tc := range tests {
		result := SanitizeString(tc.input, tc.maxLen)
		if result != tc.expected {
			t.Errorf("SanitizeString(%q, %d) = %q, want %q", tc.input, tc.maxLen, result, tc.expected)
		}
	}
}

func TestValidate(t *testing.T) {
	errs := Validate(
		Required("email", ""),
		ValidEmail("email", "not-an-email"),
		MaxLength("title", "ok", 10),
	)
	if len(errs) != 2 {
		t.Fatalf("Validate returned %d errors, want 2", len(errs))
	}
	if errs[0].Field != "email" || errs[0].Message != "is required" {
		t.Errorf("first error = %+v", errs[0])
	}
	if errs.Error() != "email: is required" {
		t.Errorf("Error() = %q", errs.Error())
	}
}

func TestValidate_NoErrors(t *testing.T) {
	errs := Validate(
		Required("email", "reader@example.com"),
		ValidEmail("email", "reader@example.com"),
		PositiveQuantity("quantity", 2),
	)
	if len(errs) != 0 {
		t.Errorf("Validate returned %d errors, want 0: %v", len(errs), errs)
	}
}

func TestPositiveQuantity(t *testing.T) {
	tests := []struct {
		qty     int
		wantErr bool
	}{
		{1, false},
		{100, false},
		{0, true},
		{-3, true},
		{101, true},
	}

	for _, tc := range tests {
		err := PositiveQuantity("quantity", tc.qty)()
		if (err != nil) != tc.wantErr {
			t.Errorf("PositiveQuantity(%d) error = %v, wantErr %v", tc.qty, err, tc.wantErr)
		}
	}
}
