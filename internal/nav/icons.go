// Package nav holds the icon set, the role-filtered menus and the
// breadcrumb trail shared by every page.
package nav

import (
	"fmt"
	"html/template"
)

// Icon is a closed set of glyphs. The zero value renders nothing.
type Icon uint8

const (
	IconNone Icon = iota
	IconHome
	IconFolder
	IconUserPlus
	IconSignOut
	IconDashboard
	IconInvoice
	IconTable
	IconView
	IconEdit
	IconDelete
	IconShare
	IconAdd
	IconExport
	IconSun
	IconMoon
	iconCount
)

var iconNames = [iconCount]string{
	"", "home", "folder", "user-plus", "sign-out", "dashboard", "invoice",
	"table", "view", "edit", "delete", "share", "add", "export", "sun", "moon",
}

// 24x24 outline paths.
var iconPaths = [iconCount]string{
	IconHome:      "M3 11l9-8 9 8M5 10v10h5v-6h4v6h5V10",
	IconFolder:    "M3 6h6l2 2h10v11H3z",
	IconUserPlus:  "M9 11a4 4 0 100-8 4 4 0 000 8zM2 21v-2a5 5 0 015-5h4a5 5 0 015 5v2M19 8v6M16 11h6",
	IconSignOut:   "M9 21H5V3h4M16 17l5-5-5-5M21 12H9",
	IconDashboard: "M12 13l4-4M3 17a9 9 0 1118 0",
	IconInvoice:   "M6 2h9l5 5v15H6zM14 2v6h6M9 13h6M9 17h6",
	IconTable:     "M3 4h18v16H3zM3 10h18M3 15h18M9 4v16",
	IconView:      "M1 12s4-7 11-7 11 7 11 7-4 7-11 7S1 12 1 12zM12 15a3 3 0 100-6 3 3 0 000 6z",
	IconEdit:      "M4 20h4L19 9l-4-4L4 16zM14 6l4 4",
	IconDelete:    "M4 7h16M10 11v6M14 11v6M5 7l1 13h12l1-13M9 7V4h6v3",
	IconShare:     "M18 8a3 3 0 100-6 3 3 0 000 6zM6 15a3 3 0 100-6 3 3 0 000 6zM18 22a3 3 0 100-6 3 3 0 000 6zM8.6 13.5l6.8 4M15.4 6.5l-6.8 4",
	IconAdd:       "M12 5v14M5 12h14",
	IconExport:    "M12 3v12M7 8l5-5 5 5M5 21h14",
	IconSun:       "M12 17a5 5 0 100-10 5 5 0 000 10zM12 1v2M12 21v2M4.2 4.2l1.4 1.4M18.4 18.4l1.4 1.4M1 12h2M21 12h2",
	IconMoon:      "M21 12.8A9 9 0 1111.2 3a7 7 0 009.8 9.8z",
}

func (i Icon) Valid() bool { return i > IconNone && i < iconCount }

func (i Icon) String() string {
	if i >= iconCount {
		return fmt.Sprintf("Icon(%d)", uint8(i))
	}
	return iconNames[i]
}

// SVG returns the inline markup for i, or "" for IconNone.
func (i Icon) SVG() template.HTML {
	if !i.Valid() {
		return ""
	}
	return template.HTML(fmt.Sprintf(
		`<svg class="icon icon-%s" width="16" height="16" viewBox="0 0 24 24" fill="none" stroke="currentColor" stroke-width="2" stroke-linecap="round" stroke-linejoin="round" aria-hidden="true"><path d="%s"/></svg>`,
		iconNames[i], iconPaths[i]))
}
