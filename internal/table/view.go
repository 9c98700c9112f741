package table

import (
	"html/template"
	"net/url"
	"slices"
	"strconv"

	"budgetbook/internal/nav"
)

type Layout string

const (
	LayoutTable Layout = "table"
	LayoutCards Layout = "cards"
)

// LayoutFor picks cards for a known width below breakpoint. An unknown
// width (0) gets the table.
func LayoutFor(width, breakpoint int) Layout {
	if breakpoint <= 0 {
		breakpoint = DefaultBreakpoint
	}
	if width > 0 && width < breakpoint {
		return LayoutCards
	}
	return LayoutTable
}

type Header struct {
	Label     string
	Active    bool
	Ascending bool
	Href      string
}

type Cell struct {
	Label string
	Text  string
}

type RowAction struct {
	ID      string
	Label   string
	Icon    template.HTML
	Variant string
	Confirm string
	Href    string
}

type Row struct {
	Key     string
	Accent  string
	Cells   []Cell
	Actions []RowAction
}

type Option struct {
	Value    string
	Selected bool
}

type FilterView struct {
	Field   string
	Label   string
	Param   string
	Options []Option
}

type PageLink struct {
	Number int
	Href   string
	Active bool
}

// View is everything the templates need to draw one table state.
type View struct {
	Name         string
	Layout       Layout
	Headers      []Header
	Rows         []Row
	HasActions   bool
	Empty        bool
	EmptyMessage string
	Searchable   bool
	Search       string
	Filters      []FilterView
	FiltersOn    bool
	Hidden       map[string][]string
	Page         int
	TotalPages   int
	Total        int
	HasPrev      bool
	HasNext      bool
	FirstHref    string
	PrevHref     string
	NextHref     string
	LastHref     string
	Pages        []PageLink
	ResetHref    string
	BasePath     string
}

// Build produces the view of state s for a viewport width in pixels.
func (t *Table) Build(s State, width int) View {
	if s.Filters == nil {
		s.Filters = FilterState{}
	}
	s = t.declared(s)
	refined := t.Refine(s)
	page := Paginate(refined, s.Page, t.cfg.PageSize)
	s.Page = page.Number

	v := View{
		Name:         t.cfg.Name,
		Layout:       LayoutFor(width, t.cfg.Breakpoint),
		HasActions:   len(t.cfg.Actions) > 0,
		Empty:        len(page.Rows) == 0,
		EmptyMessage: EmptyMessage,
		Searchable:   len(t.cfg.SearchFields) > 0,
		Search:       s.Search,
		FiltersOn:    s.Filters.Active(),
		Page:         page.Number,
		TotalPages:   page.TotalPages,
		Total:        page.Total,
		HasPrev:      page.HasPrev,
		HasNext:      page.HasNext,
		BasePath:     t.cfg.BasePath,
	}

	for i, c := range t.cfg.Columns {
		next := s.clone()
		next.ToggleSort(i)
		v.Headers = append(v.Headers, Header{
			Label:     c.Label,
			Active:    s.Sort.Column == i,
			Ascending: s.Sort.Ascending,
			Href:      t.href(next),
		})
	}

	for _, f := range t.cfg.Filters {
		opts := f.Options
		if len(opts) == 0 {
			opts = t.FilterOptions(f.Field)
		}
		fv := FilterView{Field: f.Field, Label: f.Label, Param: filterPrefix + f.Field}
		for _, o := range opts {
			fv.Options = append(fv.Options, Option{Value: o, Selected: slices.Contains(s.Filters[f.Field], o)})
		}
		v.Filters = append(v.Filters, fv)
	}

	// Search and filter forms carry the sort along; submitting them
	// starts again at page one.
	v.Hidden = map[string][]string{}
	if s.Sort.Column != 0 {
		v.Hidden["sort"] = []string{strconv.Itoa(s.Sort.Column)}
	}
	if !s.Sort.Ascending {
		v.Hidden["dir"] = []string{"desc"}
	}
	reset := s.clone()
	reset.ClearFilters()
	v.ResetHref = t.href(reset)

	for _, r := range page.Rows {
		v.Rows = append(v.Rows, t.row(r))
	}

	if page.TotalPages > 1 {
		link := func(n int) string {
			p := s.clone()
			p.SetPage(n)
			return t.href(p)
		}
		v.FirstHref = link(1)
		v.PrevHref = link(max(page.Number-1, 1))
		v.NextHref = link(min(page.Number+1, page.TotalPages))
		v.LastHref = link(page.TotalPages)
		for n := 1; n <= page.TotalPages; n++ {
			v.Pages = append(v.Pages, PageLink{Number: n, Href: link(n), Active: n == page.Number})
		}
	}
	return v
}

func (t *Table) row(r Record) Row {
	key := RowKey(r)
	accent := DefaultAccent
	if t.cfg.Accent != nil {
		if a := t.cfg.Accent(r); a != "" {
			accent = a
		}
	}
	row := Row{Key: key, Accent: accent}
	for _, c := range t.cfg.Columns {
		row.Cells = append(row.Cells, Cell{Label: c.Label, Text: t.Cell(c, r)})
	}
	for _, a := range t.cfg.Actions {
		if !a.visible(r) {
			continue
		}
		row.Actions = append(row.Actions, RowAction{
			ID:      a.ID,
			Label:   a.Label,
			Icon:    iconHTML(a.Icon),
			Variant: a.Variant,
			Confirm: a.Confirm,
			Href:    t.cfg.BasePath + "/actions/" + a.ID + "/" + url.PathEscape(key),
		})
	}
	return row
}

func iconHTML(i nav.Icon) template.HTML { return i.SVG() }

func (t *Table) href(s State) string {
	q := s.Query()
	if q == "" {
		return t.cfg.BasePath
	}
	return t.cfg.BasePath + "?" + q
}
