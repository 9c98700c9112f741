package table

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestFormatCell(t *testing.T) {
	tests := []struct {
		name string
		in   any
		kind FormatKind
		want string
	}{
		{"currency", 1234.5, FormatCurrency, "₹1234.50"},
		{"currency string", "99", FormatCurrency, "₹99.00"},
		{"currency garbage", "n/a", FormatCurrency, "n/a"},
		{"date only", "2024-01-05", FormatDate, "5/1/2024"},
		{"timestamp", "2024-01-05T10:30:00.000Z", FormatDate, "5/1/2024"},
		{"bad date", "someday", FormatDate, "someday"},
		{"bool true", true, FormatBoolean, "Yes"},
		{"bool false", false, FormatBoolean, "No"},
		{"bool zero", 0.0, FormatBoolean, "No"},
		{"text", 42.0, FormatText, "42"},
		{"nil", nil, FormatCurrency, ""},
		{"array dedup", []any{"Asha", "Ravi", "Asha"}, FormatText, "Asha, Ravi"},
		{"array nested", []any{[]any{"a"}, nil, "b"}, FormatText, "a, b"},
		{"array empty", []any{}, FormatText, "-"},
		{"array currency", []any{10.0, 5.5}, FormatCurrency, "₹10.00, ₹5.50"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatCell(tt.in, tt.kind); got != tt.want {
				t.Errorf("FormatCell(%v, %q) = %q, want %q", tt.in, tt.kind, got, tt.want)
			}
		})
	}
}

func TestFormatterLocales(t *testing.T) {
	tests := []struct {
		locale string
		want   string
	}{
		{"en-US", "1/5/2024"},
		{"en-GB", "05/01/2024"},
		{"de-DE", "5.1.2024"},
		{"ja", "2024/1/5"},
		{"not a locale!", "5/1/2024"},
	}
	for _, tt := range tests {
		f := NewFormatter("$", tt.locale, time.UTC)
		if got := f.FormatCell("2024-01-05", FormatDate); got != tt.want {
			t.Errorf("%s: got %q, want %q", tt.locale, got, tt.want)
		}
	}
	if got := NewFormatter("$", "en-US", nil).FormatCell(3.0, FormatCurrency); got != "$3.00" {
		t.Errorf("custom symbol: %q", got)
	}
}

func TestFormatDateHonoursZone(t *testing.T) {
	ist := time.FixedZone("IST", 5*3600+1800)
	f := NewFormatter("", "en-IN", ist)
	if got := f.FormatCell("2024-01-05T20:00:00Z", FormatDate); got != "6/1/2024" {
		t.Fatalf("timestamp should shift into zone, got %q", got)
	}
	if got := f.FormatCell("2024-01-05", FormatDate); got != "5/1/2024" {
		t.Fatalf("calendar date must not shift, got %q", got)
	}
}

func TestFormatKindValid(t *testing.T) {
	for _, k := range []FormatKind{FormatText, FormatCurrency, FormatDate, FormatBoolean} {
		if !k.Valid() {
			t.Errorf("%q should be valid", k)
		}
	}
	if FormatKind("percent").Valid() {
		t.Error("unknown kind reported valid")
	}
}

func TestFormatterGrouped(t *testing.T) {
	tests := []struct {
		locale, amount, want string
	}{
		{"en-US", "1234567.5", "$1,234,567.50"},
		{"de-DE", "1234567.5", "$1.234.567,50"},
		{"en-US", "-12", "-$12.00"},
	}
	for _, tt := range tests {
		f := NewFormatter("$", tt.locale, time.UTC)
		if got := f.Grouped(decimal.RequireFromString(tt.amount)); got != tt.want {
			t.Errorf("%s %s: got %q, want %q", tt.locale, tt.amount, got, tt.want)
		}
	}
}
