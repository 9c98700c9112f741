package sheets

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestTabName(t *testing.T) {
	tests := []struct {
		name, title, job, want string
	}{
		{"plain", "Expenses", "01HZX8N2Q3ABCDEF", "Expenses ABCDEF"},
		{"forbidden characters", "Goa: 2024/25 [draft]", "123456", "Goa 2024 25 draft 123456"},
		{"empty title", "  ", "abcdef", "Export abcdef"},
		{"short job id", "Cash", "42", "Cash 42"},
		{"no job id", "Cash", "", "Cash"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TabName(tt.title, tt.job); got != tt.want {
				t.Errorf("TabName(%q, %q) = %q, want %q", tt.title, tt.job, got, tt.want)
			}
		})
	}

	long := TabName(strings.Repeat("ü", 150), "ABCDEF")
	if n := utf8.RuneCountInString(long); n > maxTabName {
		t.Errorf("long tab name has %d runes", n)
	}
	if !strings.HasSuffix(long, " ABCDEF") {
		t.Errorf("long tab name lost its job suffix: %q", long)
	}
}
