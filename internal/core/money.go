// Package core provides money parsing and handling utilities.
//
// Amounts travel as JSON numbers from the backend and are kept as
// decimal.Decimal so that totals and pending balances never drift.
package core

import (
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

func init() {
	// The backend expects amounts as JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true
}

// DefaultCurrencySymbol prefixes every rendered amount unless configured otherwise.
const DefaultCurrencySymbol = "₹"

// ParseAmount converts a user-entered decimal string to an amount rounded to
// two places.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators and performs
// half-up rounding on the third decimal place. Returns ErrInvalidAmount for
// invalid formats, signs, or values that are not strictly positive.
//
// Examples:
//
//	ParseAmount("12.34")  -> 12.34
//	ParseAmount("12,34")  -> 12.34
//	ParseAmount("12.345") -> 12.35
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.Count(s, ".") > 1 {
		return decimal.Zero, ErrInvalidAmount
	}
	for _, r := range s {
		if r != '.' && !unicode.IsDigit(r) {
			return decimal.Zero, ErrInvalidAmount
		}
	}
	if s == "." {
		return decimal.Zero, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	d = d.Round(2)
	if !d.IsPositive() {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

// ParseOptionalAmount is ParseAmount that maps an empty field to zero.
func ParseOptionalAmount(s string) (decimal.Decimal, error) {
	if strings.TrimSpace(s) == "" {
		return decimal.Zero, nil
	}
	d, err := ParseAmount(s)
	if err != nil {
		if z, zerr := decimal.NewFromString(strings.TrimSpace(s)); zerr == nil && z.IsZero() {
			return decimal.Zero, nil
		}
		return decimal.Zero, err
	}
	return d, nil
}

// FormatAmount renders d with exactly two decimals behind the symbol.
func FormatAmount(symbol string, d decimal.Decimal) string {
	if d.IsNegative() {
		return "-" + symbol + d.Abs().StringFixed(2)
	}
	return symbol + d.StringFixed(2)
}
