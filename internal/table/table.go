package table

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"slices"
	"sort"
	"strconv"
	"strings"

	"budgetbook/internal/nav"
)

const (
	DefaultBreakpoint = 768
	DefaultAccent     = "#27ae60"
	EmptyMessage      = "No data found"
)

var (
	ErrUnknownAction = errors.New("unknown table action")
	ErrRowNotFound   = errors.New("row not found")
	ErrActionHidden  = errors.New("action not available for this row")
)

// Column describes one displayed field. Render, when set, replaces the
// formatter for this column.
type Column struct {
	Label  string
	Field  string
	Format FormatKind
	Render func(value any, row Record) string
}

type Filter struct {
	Field   string
	Label   string
	Options []string
}

// Action is a per-row button. Visible nil means always visible. Confirm,
// when set, is the question asked before the action posts.
type Action struct {
	ID      string
	Label   string
	Icon    nav.Icon
	Variant string
	Confirm string
	Visible func(row Record) bool
	Handler func(ctx context.Context, row Record) error
}

func (a Action) visible(row Record) bool {
	return a.Visible == nil || a.Visible(row)
}

type Config struct {
	Name         string
	Columns      []Column
	Filters      []Filter
	SearchFields []string
	Actions      []Action
	PageSize     int
	// Breakpoint is the viewport width in pixels below which rows render
	// as cards.
	Breakpoint int
	Accent     func(row Record) string
	Formatter  *Formatter
	// BasePath is the page the table lives on; sort, page and filter
	// links point there. Action forms post to BasePath/actions/{id}/{row}.
	BasePath string
}

// Table is a configured presenter over one data set. It is not safe for
// concurrent mutation; build one per request.
type Table struct {
	cfg  Config
	data []Record
}

// New validates cfg: at least one column, known format kinds, and every
// action needs a unique id and a handler.
func New(cfg Config) (*Table, error) {
	if len(cfg.Columns) == 0 {
		return nil, errors.New("table: at least one column is required")
	}
	for i, c := range cfg.Columns {
		if c.Field == "" && c.Render == nil {
			return nil, fmt.Errorf("table: column %d (%s) has neither field nor renderer", i, c.Label)
		}
		if !c.Format.Valid() {
			return nil, fmt.Errorf("table: column %s has unknown format %q", c.Label, c.Format)
		}
	}
	seen := make(map[string]bool, len(cfg.Actions))
	for _, a := range cfg.Actions {
		if a.ID == "" || a.Handler == nil {
			return nil, fmt.Errorf("table: action %q needs an id and a handler", a.Label)
		}
		if seen[a.ID] {
			return nil, fmt.Errorf("table: duplicate action %q", a.ID)
		}
		seen[a.ID] = true
	}
	if cfg.PageSize < 1 {
		cfg.PageSize = DefaultPageSize
	}
	if cfg.Breakpoint <= 0 {
		cfg.Breakpoint = DefaultBreakpoint
	}
	if cfg.Formatter == nil {
		cfg.Formatter = defaultFormatter
	}
	return &Table{cfg: cfg}, nil
}

// SetData swaps the underlying records. Filter state lives with the
// caller and is not touched.
func (t *Table) SetData(records []Record) {
	t.data = records
}

func (t *Table) Data() []Record { return t.data }

func (t *Table) Config() Config { return t.cfg }

// State is the interactive part of a table: what the user typed, picked
// and clicked. It round-trips through URL query values.
type State struct {
	Search  string
	Filters FilterState
	Sort    SortState
	Page    int
}

// DefaultState sorts by the first column ascending on page one.
func DefaultState() State {
	return State{Filters: FilterState{}, Sort: SortState{Column: 0, Ascending: true}, Page: 1}
}

// SetSearch changes the search text and returns to page one.
func (s *State) SetSearch(text string) {
	s.Search = text
	s.Page = 1
}

// SetFilter replaces the selection for field and returns to page one.
func (s *State) SetFilter(field string, values []string) {
	if s.Filters == nil {
		s.Filters = FilterState{}
	}
	if len(values) == 0 {
		delete(s.Filters, field)
	} else {
		s.Filters[field] = slices.Clone(values)
	}
	s.Page = 1
}

// ClearFilters drops every selection.
func (s *State) ClearFilters() {
	s.Filters = FilterState{}
	s.Page = 1
}

// ToggleSort applies SortState.Toggle and returns to page one.
func (s *State) ToggleSort(col int) {
	s.Sort = s.Sort.Toggle(col)
	s.Page = 1
}

func (s *State) SetPage(p int) {
	if p < 1 {
		p = 1
	}
	s.Page = p
}

const filterPrefix = "f."

// ParseState reads q, sort, dir, page and f.<field> values.
func ParseState(v url.Values) State {
	s := DefaultState()
	s.Search = v.Get("q")
	if col, err := strconv.Atoi(v.Get("sort")); err == nil && col >= 0 {
		s.Sort.Column = col
	}
	s.Sort.Ascending = v.Get("dir") != "desc"
	if p, err := strconv.Atoi(v.Get("page")); err == nil && p > 0 {
		s.Page = p
	}
	for key, vals := range v {
		field, ok := strings.CutPrefix(key, filterPrefix)
		if !ok || field == "" {
			continue
		}
		var kept []string
		for _, val := range vals {
			if val != "" {
				kept = append(kept, val)
			}
		}
		if len(kept) > 0 {
			s.Filters[field] = kept
		}
	}
	return s
}

// Values encodes s as query values, omitting defaults.
func (s State) Values() url.Values {
	v := url.Values{}
	if s.Search != "" {
		v.Set("q", s.Search)
	}
	if s.Sort.Column != 0 {
		v.Set("sort", strconv.Itoa(s.Sort.Column))
	}
	if !s.Sort.Ascending {
		v.Set("dir", "desc")
	}
	if s.Page > 1 {
		v.Set("page", strconv.Itoa(s.Page))
	}
	for field, vals := range s.Filters {
		for _, val := range vals {
			v.Add(filterPrefix+field, val)
		}
	}
	return v
}

// Query returns the encoded query string; url.Values.Encode sorts keys.
func (s State) Query() string { return s.Values().Encode() }

func (s State) clone() State {
	c := s
	c.Filters = s.Filters.Clone()
	return c
}

// Refine runs search, filters and sort over the current data, in that
// order, without paginating.
func (t *Table) Refine(s State) []Record {
	s = t.declared(s)
	rows := ApplySearch(t.data, s.Search, t.cfg.SearchFields)
	if s.Filters.Active() {
		rows = ApplyFilters(rows, s.Filters)
	}
	return ApplySort(rows, s.Sort, t.cfg.Columns)
}

// declared drops filter selections for fields the table does not offer.
func (t *Table) declared(s State) State {
	if len(s.Filters) == 0 {
		return s
	}
	kept := FilterState{}
	for _, f := range t.cfg.Filters {
		if vals, ok := s.Filters[f.Field]; ok {
			kept[f.Field] = vals
		}
	}
	s.Filters = kept
	return s
}

// Cell renders one column of row.
func (t *Table) Cell(c Column, row Record) string {
	val, _ := ResolveField(row, c.Field)
	if c.Render != nil {
		return c.Render(val, row)
	}
	return t.cfg.Formatter.FormatCell(val, c.Format)
}

// Activate runs actionID's handler for the row whose key is rowKey. The
// action must be visible for that row.
func (t *Table) Activate(ctx context.Context, actionID, rowKey string) error {
	idx := slices.IndexFunc(t.cfg.Actions, func(a Action) bool { return a.ID == actionID })
	if idx < 0 {
		return fmt.Errorf("%w: %s", ErrUnknownAction, actionID)
	}
	action := t.cfg.Actions[idx]
	ri := slices.IndexFunc(t.data, func(r Record) bool { return RowKey(r) == rowKey })
	if ri < 0 {
		return fmt.Errorf("%w: %s", ErrRowNotFound, rowKey)
	}
	row := t.data[ri]
	if !action.visible(row) {
		return fmt.Errorf("%w: %s on %s", ErrActionHidden, actionID, rowKey)
	}
	return action.Handler(ctx, row)
}

// Export returns the header labels and formatted cells of every refined
// row, ignoring pagination.
func (t *Table) Export(s State) ([]string, [][]string) {
	header := make([]string, len(t.cfg.Columns))
	for i, c := range t.cfg.Columns {
		header[i] = c.Label
	}
	rows := t.Refine(s)
	out := make([][]string, len(rows))
	for i, r := range rows {
		cells := make([]string, len(t.cfg.Columns))
		for j, c := range t.cfg.Columns {
			cells[j] = t.Cell(c, r)
		}
		out[i] = cells
	}
	return header, out
}

// FilterOptions lists the distinct values present in the data for field,
// sorted, for filters declared without explicit options.
func (t *Table) FilterOptions(field string) []string {
	set := map[string]bool{}
	for _, r := range t.data {
		v, ok := ResolveField(r, field)
		if !ok || v == nil {
			continue
		}
		if arr, isArr := v.([]any); isArr {
			for _, el := range arr {
				if s := Stringify(el); s != "" {
					set[s] = true
				}
			}
			continue
		}
		if s := Stringify(v); s != "" {
			set[s] = true
		}
	}
	out := make([]string, 0, len(set))
	for s := range set {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
