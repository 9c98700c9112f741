// Package table turns a slice of loosely shaped records into a searched,
// filtered, sorted and paginated view, rendered either as an HTML table or
// as stacked cards on narrow viewports.
package table

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Record is one row as decoded from the backend's JSON.
type Record = map[string]any

// ResolveField looks up a dotted path in rec. When a segment lands on an
// array the remaining path is mapped over its elements and the result is
// flattened, so "payments.paidAmount" yields every payment's amount.
// Elements lacking the key are skipped. A missing segment returns false.
func ResolveField(rec Record, path string) (any, bool) {
	if rec == nil || path == "" {
		return nil, false
	}
	var cur any = rec
	for _, key := range strings.Split(path, ".") {
		switch v := cur.(type) {
		case map[string]any:
			next, ok := v[key]
			if !ok {
				return nil, false
			}
			cur = next
		case []any:
			cur = mapKey(v, key)
		case []map[string]any:
			items := make([]any, len(v))
			for i := range v {
				items[i] = v[i]
			}
			cur = mapKey(items, key)
		default:
			return nil, false
		}
	}
	return cur, true
}

func mapKey(items []any, key string) []any {
	out := make([]any, 0, len(items))
	for _, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		if val, ok := m[key]; ok {
			out = appendFlat(out, val)
		}
	}
	return out
}

func appendFlat(dst []any, v any) []any {
	if arr, ok := v.([]any); ok {
		for _, el := range arr {
			dst = appendFlat(dst, el)
		}
		return dst
	}
	return append(dst, v)
}

// Stringify coerces a resolved value the way the search box and filters
// see it. Arrays join their elements with commas; nil is empty.
func Stringify(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case json.Number:
		return x.String()
	case decimal.Decimal:
		return x.String()
	case time.Time:
		return x.Format(time.RFC3339)
	case []any:
		parts := make([]string, len(x))
		for i, el := range x {
			parts[i] = Stringify(el)
		}
		return strings.Join(parts, ",")
	case map[string]any:
		b, err := json.Marshal(x)
		if err != nil {
			return ""
		}
		return string(b)
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}

// RowKey returns the record's identity, "_id" first then "id".
func RowKey(rec Record) string {
	for _, k := range []string{"_id", "id"} {
		if v, ok := rec[k]; ok && v != nil {
			if s := Stringify(v); s != "" {
				return s
			}
		}
	}
	return ""
}

// Records converts any JSON-encodable slice into records.
func Records(v any) ([]Record, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode records: %w", err)
	}
	var out []Record
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("decode records: %w", err)
	}
	return out, nil
}
