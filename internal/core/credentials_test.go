package core

import (
	"errors"
	"testing"
)

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want error
	}{
		{"valid", "Abcde1!", nil},
		{"too short", "Ab1!", ErrPasswordTooShort},
		{"no upper", "abcde1!", ErrPasswordNoUpper},
		{"no lower", "ABCDE1!", ErrPasswordNoLower},
		{"no digit", "Abcdef!", ErrPasswordNoDigit},
		{"no special", "Abcdef1", ErrPasswordNoSpecial},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := ValidatePassword(tt.in); !errors.Is(err, tt.want) {
				t.Errorf("ValidatePassword(%q) = %v, want %v", tt.in, err, tt.want)
			}
		})
	}
}

func TestValidateNewPasswordMismatch(t *testing.T) {
	if err := ValidateNewPassword("Abcde1!", "Abcde1?"); !errors.Is(err, ErrPasswordMismatch) {
		t.Fatalf("expected mismatch, got %v", err)
	}
}

func TestValidateEmailAndOTP(t *testing.T) {
	if err := ValidateEmail("asha@example.com"); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	for _, bad := range []string{"", "nope", "Asha <asha@example.com>"} {
		if err := ValidateEmail(bad); err == nil {
			t.Errorf("ValidateEmail(%q) expected error", bad)
		}
	}
	if err := ValidateOTP("123456"); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	for _, bad := range []string{"12", "12a456", "123456789"} {
		if err := ValidateOTP(bad); err == nil {
			t.Errorf("ValidateOTP(%q) expected error", bad)
		}
	}
}

func TestCredentialsValidate(t *testing.T) {
	if err := (Credentials{Email: "a@b.co", Password: "x"}).Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if err := (Credentials{Email: "a@b.co"}).Validate(); !errors.Is(err, ErrEmptyPassword) {
		t.Fatalf("expected ErrEmptyPassword, got %v", err)
	}
	if err := (Registration{Name: "", Email: "a@b.co", Password: "Abcde1!"}).Validate(); !errors.Is(err, ErrEmptyName) {
		t.Fatalf("expected ErrEmptyName, got %v", err)
	}
}
