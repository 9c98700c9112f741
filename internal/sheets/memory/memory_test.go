package memory

import (
	"context"
	"testing"

	"budgetbook/internal/sheets"
)

func TestWriteTable(t *testing.T) {
	s := New()
	ctx := context.Background()
	rows := [][]string{{"Tea", "₹12.50"}}

	ref, err := s.WriteTable(ctx, sheets.Table{Name: "Expenses abc123", Header: []string{"Name", "Amount"}, Rows: rows})
	if err != nil {
		t.Fatal(err)
	}
	if ref != "mem:Expenses abc123" {
		t.Errorf("ref = %q", ref)
	}
	rows[0][0] = "mutated"

	got, ok := s.Get("Expenses abc123")
	if !ok || got.Rows[0][0] != "Tea" {
		t.Fatalf("stored table = %+v, %v", got, ok)
	}

	// Same name replaces without duplicating the listing.
	s.WriteTable(ctx, sheets.Table{Name: "Expenses abc123", Header: []string{"Name"}})
	s.WriteTable(ctx, sheets.Table{Name: "Cash def456", Header: []string{"Name"}})
	if names := s.Names(); len(names) != 2 || names[0] != "Expenses abc123" {
		t.Errorf("Names() = %v", names)
	}
	if got, _ := s.Get("Expenses abc123"); len(got.Rows) != 0 {
		t.Errorf("rewrite kept old rows: %+v", got)
	}

	if _, err := s.WriteTable(ctx, sheets.Table{}); err == nil {
		t.Error("expected error for unnamed table")
	}
}
