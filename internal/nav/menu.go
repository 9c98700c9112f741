package nav

import (
	"slices"
	"strings"

	"budgetbook/internal/core"
)

type MenuItem struct {
	ID    string
	Title string
	URL   string
	Icon  Icon
	Roles []core.Role
	// Action items post instead of linking (logout).
	Action bool
}

var everyone = []core.Role{core.RoleUser, core.RoleAdmin, core.RoleSuperAdmin}

var mainMenu = []MenuItem{
	{ID: "home", Title: "Home", URL: "/home", Icon: IconHome, Roles: everyone},
	{ID: "solution", Title: "Solution", URL: "/solution", Icon: IconFolder, Roles: everyone},
	{ID: "create-user", Title: "Create User", URL: "/create-user", Icon: IconUserPlus, Roles: []core.Role{core.RoleSuperAdmin, core.RoleAdmin}},
	{ID: "logout", Title: "Logout", URL: "/logout", Icon: IconSignOut, Roles: everyone, Action: true},
}

var solutionMenu = []MenuItem{
	{ID: "dashboard", Title: "Dashboard", URL: "/solution/:id/dashboard", Icon: IconDashboard, Roles: everyone},
	{ID: "collected-cash", Title: "Collected Cash", URL: "/solution/:id/collected-cash", Icon: IconInvoice, Roles: everyone},
	{ID: "expense-data", Title: "Expense Data", URL: "/solution/:id/expense-data", Icon: IconTable, Roles: everyone},
}

// Entry is a menu item resolved for one request.
type Entry struct {
	MenuItem
	Active bool
}

// MainMenu returns the items visible to role, marking the one whose URL
// prefixes path.
func MainMenu(role core.Role, path string) []Entry {
	return filter(mainMenu, role, "", path)
}

// SolutionMenu returns the per-solution sub menu with :id replaced.
// It is empty when solutionID is.
func SolutionMenu(role core.Role, solutionID, path string) []Entry {
	if solutionID == "" {
		return nil
	}
	return filter(solutionMenu, role, solutionID, path)
}

func filter(items []MenuItem, role core.Role, id, path string) []Entry {
	out := make([]Entry, 0, len(items))
	for _, it := range items {
		if !slices.Contains(it.Roles, role) {
			continue
		}
		if id != "" {
			it.URL = strings.ReplaceAll(it.URL, ":id", id)
		}
		out = append(out, Entry{MenuItem: it, Active: !it.Action && isUnder(path, it.URL)})
	}
	return out
}

func isUnder(path, url string) bool {
	return path == url || strings.HasPrefix(path, url+"/")
}
