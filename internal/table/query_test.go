package table

import (
	"encoding/json"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func decode(t *testing.T, s string) Record {
	t.Helper()
	var r Record
	if err := json.Unmarshal([]byte(s), &r); err != nil {
		t.Fatalf("decode %s: %v", s, err)
	}
	return r
}

func TestResolveField(t *testing.T) {
	tests := []struct {
		name   string
		record string
		path   string
		want   any
		found  bool
	}{
		{"nested", `{"a":{"b":5}}`, "a.b", 5.0, true},
		{"array maps", `{"a":[{"b":1},{"b":2}]}`, "a.b", []any{1.0, 2.0}, true},
		{"missing", `{}`, "x.y", nil, false},
		{"null midway", `{"a":null}`, "a.b", nil, false},
		{"array flattens", `{"p":[{"u":["x","y"]},{"u":["z"]}]}`, "p.u", []any{"x", "y", "z"}, true},
		{"array skips missing", `{"p":[{"n":"a"},{"m":1}]}`, "p.n", []any{"a"}, true},
		{"deep through arrays", `{"p":[{"by":{"name":"A"}},{"by":{"name":"B"}}]}`, "p.by.name", []any{"A", "B"}, true},
		{"scalar midway", `{"a":3}`, "a.b", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ResolveField(decode(t, tt.record), tt.path)
			if ok != tt.found || !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ResolveField = %v, %v; want %v, %v", got, ok, tt.want, tt.found)
			}
		})
	}
}

func TestApplySearch(t *testing.T) {
	rows := []Record{{"name": "Vegetables"}, {"name": "Fruits"}}

	got := ApplySearch(rows, "veg", []string{"name"})
	if len(got) != 1 || got[0]["name"] != "Vegetables" {
		t.Fatalf("search veg = %v", got)
	}
	if got := ApplySearch(rows, "", []string{"name"}); len(got) != 2 {
		t.Fatalf("empty search should keep all, got %d", len(got))
	}
	if got := ApplySearch(rows, "VEG", []string{"name"}); len(got) != 1 {
		t.Fatal("search must ignore case")
	}
	if got := ApplySearch(rows, "veg", nil); len(got) != 2 {
		t.Fatal("no searchable fields keeps all")
	}

	nested := []Record{
		{"name": "Tea", "paidBy": map[string]any{"name": "Asha"}},
		{"name": "Bus", "paidBy": map[string]any{"name": "Ravi"}, "amount": 120.0},
	}
	if got := ApplySearch(nested, "ash", []string{"name", "paidBy.name"}); len(got) != 1 || got[0]["name"] != "Tea" {
		t.Fatalf("search on nested field = %v", got)
	}
	if got := ApplySearch(nested, "12", []string{"amount"}); len(got) != 1 {
		t.Fatal("numbers are searched by their string form")
	}
}

func TestApplyFilters(t *testing.T) {
	rows := []Record{
		{"category": "Food", "status": "Paid"},
		{"category": "Travel", "status": "Paid"},
		{"category": "Food", "status": "Pending"},
	}
	got := ApplyFilters(rows[:2], FilterState{"category": {"Food"}})
	if len(got) != 1 || got[0]["category"] != "Food" {
		t.Fatalf("filter category = %v", got)
	}

	got = ApplyFilters(rows, FilterState{"category": {"Food"}, "status": {"Paid"}})
	if len(got) != 1 {
		t.Fatalf("filters are conjunctive, got %d rows", len(got))
	}

	got = ApplyFilters(rows, FilterState{"category": {"Food", "Travel"}, "status": nil})
	if len(got) != 3 {
		t.Fatalf("empty selection must not constrain, got %d rows", len(got))
	}

	withArrays := []Record{
		decode(t, `{"payments":[{"paymentMethod":"cash"},{"paymentMethod":"upi"}]}`),
		decode(t, `{"payments":[{"paymentMethod":"cash"}]}`),
		decode(t, `{}`),
	}
	got = ApplyFilters(withArrays, FilterState{"payments.paymentMethod": {"upi"}})
	if len(got) != 1 {
		t.Fatalf("array value should pass when any element matches, got %d", len(got))
	}
}

func TestApplySortIsStable(t *testing.T) {
	cols := []Column{{Label: "Category", Field: "category"}, {Label: "Amount", Field: "amount"}}
	rows := []Record{
		{"id": "1", "category": "B", "amount": 10.0},
		{"id": "2", "category": "A", "amount": 2.0},
		{"id": "3", "category": "B", "amount": 100.0},
		{"id": "4", "category": "A", "amount": nil},
	}
	ids := func(rs []Record) string {
		var b strings.Builder
		for _, r := range rs {
			b.WriteString(r["id"].(string))
		}
		return b.String()
	}

	if got := ids(ApplySort(rows, SortState{Column: 0, Ascending: true}, cols)); got != "2413" {
		t.Fatalf("asc by category = %s", got)
	}
	if got := ids(ApplySort(rows, SortState{Column: 0, Ascending: false}, cols)); got != "1324" {
		t.Fatalf("desc by category = %s", got)
	}
	if got := ids(ApplySort(rows, SortState{Column: 1, Ascending: true}, cols)); got != "4213" {
		t.Fatalf("numbers compare numerically, got %s", got)
	}
	if got := ids(ApplySort(rows, SortState{Column: 9, Ascending: true}, cols)); got != "1234" {
		t.Fatalf("out-of-range column keeps order, got %s", got)
	}
	if ids(rows) != "1234" {
		t.Fatal("input must not be reordered")
	}
}

func TestSortToggle(t *testing.T) {
	s := SortState{Column: 0, Ascending: true}
	s = s.Toggle(0)
	if s.Column != 0 || s.Ascending {
		t.Fatalf("same column should flip, got %+v", s)
	}
	s = s.Toggle(2)
	if s.Column != 2 || !s.Ascending {
		t.Fatalf("new column should reset to ascending, got %+v", s)
	}
}

func TestCompare(t *testing.T) {
	now := time.Now()
	tests := []struct {
		a, b any
		want int
	}{
		{nil, nil, 0},
		{nil, "a", -1},
		{"a", nil, 1},
		{9.0, 10.0, -1},
		{decimal.NewFromInt(3), 3.0, 0},
		{"apple", "banana", -1},
		{false, true, -1},
		{now, now.Add(time.Hour), -1},
	}
	for _, tt := range tests {
		if got := Compare(tt.a, tt.b); got != tt.want {
			t.Errorf("Compare(%v, %v) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestPaginate(t *testing.T) {
	rows := make([]Record, 25)
	for i := range rows {
		rows[i] = Record{"i": i}
	}

	p := Paginate(rows, 3, 10)
	if p.TotalPages != 3 || len(p.Rows) != 5 || p.HasNext || !p.HasPrev {
		t.Fatalf("page 3 = %+v", p)
	}
	if p.Rows[0]["i"] != 20 {
		t.Fatalf("page 3 should start at row 20, got %v", p.Rows[0]["i"])
	}

	p = Paginate(rows, 1, 10)
	if p.HasPrev || !p.HasNext || len(p.Rows) != 10 {
		t.Fatalf("page 1 = %+v", p)
	}

	p = Paginate(rows, 7, 10)
	if p.Number != 3 || len(p.Rows) != 5 {
		t.Fatalf("past the end should clamp to last page, got %+v", p)
	}

	p = Paginate(nil, 1, 10)
	if p.TotalPages != 0 || len(p.Rows) != 0 || p.HasNext || p.HasPrev {
		t.Fatalf("empty = %+v", p)
	}

	if p := Paginate(rows, 0, 0); p.Size != DefaultPageSize || p.Number != 1 {
		t.Fatalf("defaults not applied: %+v", p)
	}
}

func TestStringify(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{nil, ""},
		{"x", "x"},
		{true, "true"},
		{1234.5, "1234.5"},
		{3.0, "3"},
		{[]any{"a", 1.0}, "a,1"},
		{decimal.RequireFromString("1.50"), "1.5"},
	}
	for _, tt := range tests {
		if got := Stringify(tt.in); got != tt.want {
			t.Errorf("Stringify(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestRecords(t *testing.T) {
	type item struct {
		ID     string          `json:"_id"`
		Amount decimal.Decimal `json:"amount"`
	}
	recs, err := Records([]item{{ID: "a", Amount: decimal.RequireFromString("12.5")}})
	if err != nil {
		t.Fatal(err)
	}
	if RowKey(recs[0]) != "a" {
		t.Fatalf("row key = %q", RowKey(recs[0]))
	}
	if RowKey(Record{"id": 7.0}) != "7" || RowKey(Record{}) != "" {
		t.Fatal("row key falls back to id")
	}
}
