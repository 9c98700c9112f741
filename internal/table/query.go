package table

import (
	"cmp"
	"encoding/json"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
)

// FilterState maps a field path to the accepted values. A field with no
// values does not constrain anything.
type FilterState map[string][]string

// Active reports whether any field carries a selection.
func (f FilterState) Active() bool {
	for _, v := range f {
		if len(v) > 0 {
			return true
		}
	}
	return false
}

// Clone returns a deep copy.
func (f FilterState) Clone() FilterState {
	out := make(FilterState, len(f))
	for k, v := range f {
		out[k] = slices.Clone(v)
	}
	return out
}

// SortState selects the active column and direction.
type SortState struct {
	Column    int
	Ascending bool
}

// Toggle flips the direction when col is already active and otherwise
// switches to col ascending.
func (s SortState) Toggle(col int) SortState {
	if s.Column == col {
		return SortState{Column: col, Ascending: !s.Ascending}
	}
	return SortState{Column: col, Ascending: true}
}

// ApplySearch keeps records where any of fields, stringified, contains
// text ignoring case. Empty text or no fields keeps everything.
func ApplySearch(records []Record, text string, fields []string) []Record {
	if text == "" || len(fields) == 0 {
		return slices.Clone(records)
	}
	folder := cases.Fold()
	needle := folder.String(text)
	out := make([]Record, 0, len(records))
	for _, rec := range records {
		for _, f := range fields {
			v, ok := ResolveField(rec, f)
			if !ok || v == nil {
				continue
			}
			if strings.Contains(folder.String(Stringify(v)), needle) {
				out = append(out, rec)
				break
			}
		}
	}
	return out
}

// ApplyFilters keeps records that satisfy every non-empty field of state.
// Array values pass when any element is selected.
func ApplyFilters(records []Record, state FilterState) []Record {
	out := make([]Record, 0, len(records))
	for _, rec := range records {
		if matchesAll(rec, state) {
			out = append(out, rec)
		}
	}
	return out
}

func matchesAll(rec Record, state FilterState) bool {
	for field, allowed := range state {
		if len(allowed) == 0 {
			continue
		}
		v, ok := ResolveField(rec, field)
		if !ok || v == nil {
			return false
		}
		if arr, isArr := v.([]any); isArr {
			if !slices.ContainsFunc(arr, func(el any) bool {
				return el != nil && slices.Contains(allowed, Stringify(el))
			}) {
				return false
			}
			continue
		}
		if !slices.Contains(allowed, Stringify(v)) {
			return false
		}
	}
	return true
}

// ApplySort orders records by the active column's resolved values. The
// sort is stable: equal keys keep their relative order in both
// directions. An out-of-range column leaves the order untouched.
func ApplySort(records []Record, state SortState, columns []Column) []Record {
	out := slices.Clone(records)
	if state.Column < 0 || state.Column >= len(columns) || columns[state.Column].Field == "" {
		return out
	}
	field := columns[state.Column].Field
	slices.SortStableFunc(out, func(a, b Record) int {
		va, _ := ResolveField(a, field)
		vb, _ := ResolveField(b, field)
		c := Compare(va, vb)
		if !state.Ascending {
			c = -c
		}
		return c
	})
	return out
}

// Compare orders two resolved values. Missing values sort first, numbers
// compare numerically, timestamps chronologically and everything else by
// its string form.
func Compare(a, b any) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	if fa, ok := toDecimal(a); ok {
		if fb, ok := toDecimal(b); ok {
			return fa.Cmp(fb)
		}
	}
	if ba, ok := a.(bool); ok {
		if bb, ok := b.(bool); ok {
			switch {
			case ba == bb:
				return 0
			case !ba:
				return -1
			default:
				return 1
			}
		}
	}
	if ta, ok := a.(time.Time); ok {
		if tb, ok := b.(time.Time); ok {
			return ta.Compare(tb)
		}
	}
	return cmp.Compare(Stringify(a), Stringify(b))
}

func toDecimal(v any) (decimal.Decimal, bool) {
	switch x := v.(type) {
	case float64:
		return decimal.NewFromFloat(x), true
	case float32:
		return decimal.NewFromFloat32(x), true
	case int:
		return decimal.NewFromInt(int64(x)), true
	case int64:
		return decimal.NewFromInt(x), true
	case json.Number:
		d, err := decimal.NewFromString(x.String())
		return d, err == nil
	case decimal.Decimal:
		return x, true
	}
	return decimal.Zero, false
}

// Page is one slice of a result set with its navigation bounds.
type Page struct {
	Rows       []Record
	Number     int
	Size       int
	Total      int
	TotalPages int
	HasPrev    bool
	HasNext    bool
}

const DefaultPageSize = 10

// Paginate returns rows [(page-1)*size, page*size). A page past the end is
// clamped to the last page; page and size below 1 fall back to 1 and
// DefaultPageSize.
func Paginate(records []Record, page, size int) Page {
	if size < 1 {
		size = DefaultPageSize
	}
	total := len(records)
	totalPages := (total + size - 1) / size
	if page < 1 {
		page = 1
	}
	if totalPages > 0 && page > totalPages {
		page = totalPages
	}
	start := min((page-1)*size, total)
	end := min(start+size, total)
	return Page{
		Rows:       records[start:end],
		Number:     page,
		Size:       size,
		Total:      total,
		TotalPages: totalPages,
		HasPrev:    page > 1,
		HasNext:    page < totalPages,
	}
}
