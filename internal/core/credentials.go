package core

import (
	"errors"
	"net/mail"
	"strings"
)

var (
	ErrPasswordTooShort  = errors.New("password must be at least 6 characters")
	ErrPasswordNoUpper   = errors.New("password must contain at least one uppercase letter")
	ErrPasswordNoLower   = errors.New("password must contain at least one lowercase letter")
	ErrPasswordNoDigit   = errors.New("password must contain at least one number")
	ErrPasswordNoSpecial = errors.New("password must contain at least one special character")
	ErrPasswordMismatch  = errors.New("passwords do not match")
	ErrInvalidEmail      = errors.New("invalid email address")
	ErrEmptyPassword     = errors.New("password is required")
	ErrInvalidOTP        = errors.New("otp must be 4 to 8 digits")
)

const specialChars = `!@#$%^&*(),.?":{}|<>`

// ValidatePassword applies the complexity rules shared by registration,
// password change and password reset.
func ValidatePassword(p string) error {
	if len(p) < 6 {
		return ErrPasswordTooShort
	}
	var upper, lower, digit, special bool
	for _, r := range p {
		switch {
		case r >= 'A' && r <= 'Z':
			upper = true
		case r >= 'a' && r <= 'z':
			lower = true
		case r >= '0' && r <= '9':
			digit = true
		case strings.ContainsRune(specialChars, r):
			special = true
		}
	}
	switch {
	case !upper:
		return ErrPasswordNoUpper
	case !lower:
		return ErrPasswordNoLower
	case !digit:
		return ErrPasswordNoDigit
	case !special:
		return ErrPasswordNoSpecial
	}
	return nil
}

// ValidateNewPassword checks complexity and the confirmation field.
func ValidateNewPassword(p, confirm string) error {
	if err := ValidatePassword(p); err != nil {
		return err
	}
	if p != confirm {
		return ErrPasswordMismatch
	}
	return nil
}

func ValidateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return ErrInvalidEmail
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return ErrInvalidEmail
	}
	return nil
}

func ValidateOTP(otp string) error {
	otp = strings.TrimSpace(otp)
	if len(otp) < 4 || len(otp) > 8 {
		return ErrInvalidOTP
	}
	for _, r := range otp {
		if r < '0' || r > '9' {
			return ErrInvalidOTP
		}
	}
	return nil
}

// Credentials is the login form payload.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (c Credentials) Validate() error {
	if err := ValidateEmail(c.Email); err != nil {
		return err
	}
	if c.Password == "" {
		return ErrEmptyPassword
	}
	return nil
}

// Registration is the self-service sign-up payload.
type Registration struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r Registration) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return ErrEmptyName
	}
	if err := ValidateEmail(r.Email); err != nil {
		return err
	}
	return ValidatePassword(r.Password)
}
