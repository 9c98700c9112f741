package nav

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

type Crumb struct {
	Label  string
	URL    string
	Icon   Icon
	Active bool
}

var (
	segmentLabels = map[string]string{
		"home":            "Home",
		"dashboard":       "Dashboard",
		"solution":        "Solutions",
		"expense-data":    "Expense Data",
		"collected-cash":  "Collected Cash",
		"create-user":     "Create User",
		"change-password": "Change Password",
	}
	paramLabels = map[string]string{
		"solution": "Solution Card #",
		"user":     "User #",
	}
	numericParam = regexp.MustCompile(`^\d+$`)
	hexParam     = regexp.MustCompile(`^[0-9a-fA-F-]{8,}$`)
)

// Breadcrumbs builds the trail for a request path. The first crumb always
// points home. Segments that look like ids take their label from the
// segment before them; names can replace a raw id with a friendlier label.
func Breadcrumbs(path string, names map[string]string) []Crumb {
	crumbs := []Crumb{{Label: "Home", URL: "/home", Icon: IconHome}}
	segs := strings.FieldsFunc(path, func(r rune) bool { return r == '/' })
	if len(segs) == 1 && segs[0] == "home" {
		crumbs[0].Active = true
		return crumbs
	}
	prefix := ""
	for i, seg := range segs {
		prefix += "/" + seg
		label := labelFor(seg, i, segs, names)
		crumbs = append(crumbs, Crumb{Label: label, URL: prefix, Active: i == len(segs)-1})
	}
	return crumbs
}

func labelFor(seg string, i int, segs []string, names map[string]string) string {
	if i > 0 && IsParam(seg) {
		if name, ok := names[seg]; ok && name != "" {
			return name
		}
		if p, ok := paramLabels[segs[i-1]]; ok {
			return p + seg
		}
		return seg
	}
	if l, ok := segmentLabels[seg]; ok {
		return l
	}
	return titleCase(strings.ReplaceAll(seg, "-", " "))
}

// IsParam reports whether a path segment looks like an identifier.
func IsParam(seg string) bool {
	return numericParam.MatchString(seg) || hexParam.MatchString(seg)
}

func titleCase(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if size == 0 {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
