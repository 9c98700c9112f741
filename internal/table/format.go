package table

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"budgetbook/internal/core"
)

// FormatKind selects how a cell value is rendered.
type FormatKind string

const (
	FormatText     FormatKind = ""
	FormatCurrency FormatKind = "currency"
	FormatDate     FormatKind = "date"
	FormatBoolean  FormatKind = "boolean"
)

func (k FormatKind) Valid() bool {
	switch k {
	case FormatText, FormatCurrency, FormatDate, FormatBoolean:
		return true
	}
	return false
}

// Short numeric date layouts per locale, as browsers print them.
var (
	dateLocales = []language.Tag{
		language.AmericanEnglish,
		language.MustParse("en-IN"),
		language.BritishEnglish,
		language.German,
		language.French,
		language.Italian,
		language.Spanish,
		language.Japanese,
	}
	dateLayouts = []string{
		"1/2/2006",
		"2/1/2006",
		"02/01/2006",
		"2.1.2006",
		"02/01/2006",
		"2/1/2006",
		"2/1/2006",
		"2006/1/2",
	}
	dateMatcher = language.NewMatcher(dateLocales)
)

// Formatter renders cells for one currency symbol, locale and time zone.
type Formatter struct {
	symbol     string
	dateLayout string
	loc        *time.Location
	printer    *message.Printer
}

// NewFormatter builds a formatter. An empty symbol falls back to the
// rupee sign, an unknown locale to en-IN, a nil location to UTC.
func NewFormatter(symbol, locale string, loc *time.Location) *Formatter {
	if symbol == "" {
		symbol = core.DefaultCurrencySymbol
	}
	if loc == nil {
		loc = time.UTC
	}
	if locale == "" {
		locale = "en-IN"
	}
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.MustParse("en-IN")
	}
	_, idx, conf := dateMatcher.Match(tag)
	if conf == language.No {
		idx = 1
	}
	return &Formatter{symbol: symbol, dateLayout: dateLayouts[idx], loc: loc, printer: message.NewPrinter(tag)}
}

var defaultFormatter = NewFormatter(core.DefaultCurrencySymbol, "en-IN", time.UTC)

// FormatCell renders v with the default formatter.
func FormatCell(v any, kind FormatKind) string {
	return defaultFormatter.FormatCell(v, kind)
}

// FormatCell renders a resolved value. nil is empty; arrays are flattened,
// each element formatted, duplicates dropped and the rest joined with ", "
// ("-" when nothing remains).
func (f *Formatter) FormatCell(v any, kind FormatKind) string {
	if v == nil {
		return ""
	}
	if arr, ok := v.([]any); ok {
		seen := make(map[string]bool, len(arr))
		parts := make([]string, 0, len(arr))
		for _, el := range appendFlat(nil, arr) {
			if el == nil {
				continue
			}
			s := f.formatScalar(el, kind)
			if seen[s] {
				continue
			}
			seen[s] = true
			parts = append(parts, s)
		}
		if len(parts) == 0 {
			return "-"
		}
		return strings.Join(parts, ", ")
	}
	return f.formatScalar(v, kind)
}

func (f *Formatter) formatScalar(v any, kind FormatKind) string {
	switch kind {
	case FormatCurrency:
		d, ok := toDecimal(v)
		if !ok {
			s, isStr := v.(string)
			if !isStr {
				return Stringify(v)
			}
			parsed, err := decimal.NewFromString(strings.TrimSpace(s))
			if err != nil {
				return s
			}
			d = parsed
		}
		return f.symbol + d.StringFixed(2)
	case FormatDate:
		t, ok := f.parseTime(v)
		if !ok {
			return Stringify(v)
		}
		return t.Format(f.dateLayout)
	case FormatBoolean:
		if truthy(v) {
			return "Yes"
		}
		return "No"
	default:
		return Stringify(v)
	}
}

// Currency renders an amount with the formatter's symbol.
func (f *Formatter) Currency(d decimal.Decimal) string {
	return f.symbol + d.StringFixed(2)
}

// Grouped renders an amount with the locale's digit grouping, for totals
// shown outside tables (1,00,000.00 in en-IN).
func (f *Formatter) Grouped(d decimal.Decimal) string {
	sign := ""
	if d.IsNegative() {
		sign, d = "-", d.Neg()
	}
	return sign + f.symbol + f.printer.Sprint(number.Decimal(d.Round(2).InexactFloat64(), number.Scale(2)))
}

// Date renders t in the formatter's locale and zone.
func (f *Formatter) Date(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.In(f.loc).Format(f.dateLayout)
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.000Z07:00",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// parseTime accepts time values, ISO strings and millisecond epochs.
// Date-only strings are calendar dates and are not shifted between zones.
func (f *Formatter) parseTime(v any) (time.Time, bool) {
	switch x := v.(type) {
	case time.Time:
		return x.In(f.loc), !x.IsZero()
	case float64:
		return time.UnixMilli(int64(x)).In(f.loc), true
	case int64:
		return time.UnixMilli(x).In(f.loc), true
	case string:
		s := strings.TrimSpace(x)
		if t, err := time.ParseInLocation("2006-01-02", s, f.loc); err == nil {
			return t, true
		}
		for _, layout := range timestampLayouts {
			if t, err := time.ParseInLocation(layout, s, f.loc); err == nil {
				return t.In(f.loc), true
			}
		}
	}
	return time.Time{}, false
}

func truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case string:
		return x != ""
	}
	if d, ok := toDecimal(v); ok {
		return !d.IsZero()
	}
	return true
}

// String describes the formatter, mostly for logs.
func (f *Formatter) String() string {
	return fmt.Sprintf("symbol=%s layout=%s zone=%s", f.symbol, f.dateLayout, f.loc)
}
