// Package sheets defines where exported table views are written.
package sheets

import (
	"context"
	"strings"
	"unicode/utf8"
)

// Table is one exported view: header labels and already formatted cells.
type Table struct {
	Name   string
	Header []string
	Rows   [][]string
}

// TableWriter writes a table under t.Name, replacing anything already
// stored under that name, and returns a reference to where it landed.
type TableWriter interface {
	WriteTable(ctx context.Context, t Table) (ref string, err error)
}

const maxTabName = 100

// TabName builds the tab title for an export job. It is derived from the
// job id so a redelivered message overwrites the same tab.
func TabName(title, jobID string) string {
	title = strings.Map(func(r rune) rune {
		switch r {
		case '[', ']', '*', '?', ':', '/', '\\', '\'':
			return ' '
		}
		return r
	}, title)
	title = strings.Join(strings.Fields(title), " ")
	if title == "" {
		title = "Export"
	}

	suffix := jobID
	if len(suffix) > 6 {
		suffix = suffix[len(suffix)-6:]
	}
	if suffix == "" {
		return truncate(title, maxTabName)
	}
	return truncate(title, maxTabName-len(suffix)-1) + " " + suffix
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return strings.TrimSpace(string([]rune(s)[:n]))
}
