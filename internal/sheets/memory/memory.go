// Package memory is the export sink used when no spreadsheet is configured.
package memory

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"budgetbook/internal/sheets"
)

type Store struct {
	mu     sync.Mutex
	tables map[string]sheets.Table
	order  []string
}

var _ sheets.TableWriter = (*Store)(nil)

func New() *Store {
	return &Store{tables: map[string]sheets.Table{}}
}

// WriteTable keeps a deep copy of t and returns a synthetic reference.
func (s *Store) WriteTable(_ context.Context, t sheets.Table) (string, error) {
	if t.Name == "" {
		return "", errors.New("table has no name")
	}
	rows := make([][]string, len(t.Rows))
	for i, r := range t.Rows {
		rows[i] = slices.Clone(r)
	}
	t = sheets.Table{Name: t.Name, Header: slices.Clone(t.Header), Rows: rows}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tables[t.Name]; !ok {
		s.order = append(s.order, t.Name)
	}
	s.tables[t.Name] = t
	return fmt.Sprintf("mem:%s", t.Name), nil
}

func (s *Store) Get(name string) (sheets.Table, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tables[name]
	return t, ok
}

// Names lists the written tables in first-write order.
func (s *Store) Names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.order)
}
