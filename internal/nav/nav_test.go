package nav

import (
	"strings"
	"testing"

	"budgetbook/internal/core"
)

func TestIconsAreClosed(t *testing.T) {
	for i := IconHome; i < iconCount; i++ {
		if !i.Valid() || i.String() == "" {
			t.Fatalf("icon %d has no name", i)
		}
		if !strings.Contains(string(i.SVG()), "<path d=\"M") {
			t.Fatalf("icon %s has no path", i)
		}
	}
	if IconNone.SVG() != "" || Icon(200).SVG() != "" {
		t.Fatal("invalid icons must render nothing")
	}
	if Icon(200).String() != "Icon(200)" {
		t.Fatalf("unexpected name %q", Icon(200).String())
	}
}

func TestMainMenuByRole(t *testing.T) {
	ids := func(es []Entry) string {
		var out []string
		for _, e := range es {
			out = append(out, e.ID)
		}
		return strings.Join(out, ",")
	}
	if got := ids(MainMenu(core.RoleUser, "/home")); got != "home,solution,logout" {
		t.Fatalf("user menu = %s", got)
	}
	if got := ids(MainMenu(core.RoleAdmin, "/home")); got != "home,solution,create-user,logout" {
		t.Fatalf("admin menu = %s", got)
	}

	for _, e := range MainMenu(core.RoleUser, "/solution/abc123ef/dashboard") {
		if e.Active != (e.ID == "solution") {
			t.Fatalf("%s active=%v", e.ID, e.Active)
		}
	}
}

func TestSolutionMenu(t *testing.T) {
	if SolutionMenu(core.RoleUser, "", "/home") != nil {
		t.Fatal("no solution, no sub menu")
	}
	es := SolutionMenu(core.RoleUser, "42", "/solution/42/expense-data")
	if len(es) != 3 || es[2].URL != "/solution/42/expense-data" || !es[2].Active || es[0].Active {
		t.Fatalf("unexpected sub menu: %+v", es)
	}
}

func TestBreadcrumbs(t *testing.T) {
	crumbs := Breadcrumbs("/solution/64f0c2a1b2/expense-data", nil)
	want := []string{"Home", "Solutions", "Solution Card #64f0c2a1b2", "Expense Data"}
	if len(crumbs) != len(want) {
		t.Fatalf("got %d crumbs", len(crumbs))
	}
	for i, c := range crumbs {
		if c.Label != want[i] {
			t.Errorf("crumb %d = %q, want %q", i, c.Label, want[i])
		}
	}
	if crumbs[2].URL != "/solution/64f0c2a1b2" || !crumbs[3].Active || crumbs[0].Icon != IconHome {
		t.Fatalf("unexpected crumbs: %+v", crumbs)
	}

	named := Breadcrumbs("/solution/64f0c2a1b2/dashboard", map[string]string{"64f0c2a1b2": "Goa Trip"})
	if named[2].Label != "Goa Trip" {
		t.Fatalf("expected named crumb, got %q", named[2].Label)
	}

	if got := Breadcrumbs("/home", nil); len(got) != 1 || !got[0].Active {
		t.Fatalf("home trail: %+v", got)
	}
	if got := Breadcrumbs("/forgot-password", nil); got[1].Label != "Forgot password" {
		t.Fatalf("fallback label: %q", got[1].Label)
	}
}

func TestIsParam(t *testing.T) {
	for seg, want := range map[string]bool{
		"123":                                  true,
		"64f0c2a1b2c3d4e5f6a7b8c9":             true,
		"3f2504e0-4f89-11d3-9a0c-0305e82c3301": true,
		"dashboard":                            false,
		"abc":                                  false,
	} {
		if got := IsParam(seg); got != want {
			t.Errorf("IsParam(%q) = %v", seg, got)
		}
	}
}
