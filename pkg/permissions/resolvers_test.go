package permissions

import (
	"reflect"
	"testing"
)

func testRouteTable(t *testing.T, catalog *Catalog) *RouteTable {
	t.Helper()
	routes, err := NewRouteTable(catalog, map[string]Key{
		"/portal":             "nav_home",
		"/portal/sales":       "nav_sales",
		"/portal/sales/leads": "nav_sales_leads",
		"/portal/export":      "action_export",
	})
	if err != nil {
		t.Fatalf("NewRouteTable: %v", err)
	}
	return routes
}

func TestNewRouteTableValidation(t *testing.T) {
	catalog := testCatalog(t)

	t.Run("unknown key", func(t *testing.T) {
		_, err := NewRouteTable(catalog, map[string]Key{"/portal": "ghost"})
		if err == nil {
			t.Error("expected error for unknown key")
		}
	})

	t.Run("path without leading slash", func(t *testing.T) {
		_, err := NewRouteTable(catalog, map[string]Key{"portal": "nav_home"})
		if err == nil {
			t.Error("expected error for relative path")
		}
	})
}

func TestRouteResolveExactMatch(t *testing.T) {
	catalog := testCatalog(t)
	routes := testRouteTable(t, catalog)

	key, ok := routes.Resolve("/portal/sales")
	if !ok || key != "nav_sales" {
		t.Errorf("Resolve(/portal/sales) = %q, %v", key, ok)
	}
}

func TestRouteResolveLongestPrefixWins(t *testing.T) {
	catalog := testCatalog(t)
	routes := testRouteTable(t, catalog)

	cases := []struct {
		path string
		want Key
	}{
		{"/portal/sales/leads/42", "nav_sales_leads"},
		{"/portal/sales/quotes", "nav_sales"},
		{"/portal/anything/else", "nav_home"},
		{"/portal/export/csv", "action_export"},
	}
	for _, tc := range cases {
		t.Run(tc.path, func(t *testing.T) {
			key, ok := routes.Resolve(tc.path)
			if !ok || key != tc.want {
				t.Errorf("Resolve(%s) = %q, %v; want %q", tc.path, key, ok, tc.want)
			}
		})
	}
}

func TestRouteResolveUnmapped(t *testing.T) {
	catalog := testCatalog(t)
	routes := testRouteTable(t, catalog)

	if _, ok := routes.Resolve("/public/login"); ok {
		t.Error("/public/login should not resolve to any key")
	}
}

func TestRouteAllowed(t *testing.T) {
	catalog := testCatalog(t)
	routes := testRouteTable(t, catalog)
	perms := Set{"nav_home": true, "nav_sales": false}

	t.Run("granted key", func(t *testing.T) {
		if !routes.Allowed(perms, "/portal") {
			t.Error("/portal should be allowed with nav_home")
		}
	})

	t.Run("denied key", func(t *testing.T) {
		if routes.Allowed(perms, "/portal/sales") {
			t.Error("/portal/sales should be denied without nav_sales")
		}
	})

	t.Run("unmapped path always allowed", func(t *testing.T) {
		if !routes.Allowed(perms, "/public/login") {
			t.Error("unmapped paths must always be allowed")
		}
	})

	t.Run("key absent from set is denied", func(t *testing.T) {
		if routes.Allowed(Set{}, "/portal/export") {
			t.Error("missing keys read as disabled")
		}
	})
}

func TestNavTable(t *testing.T) {
	catalog := testCatalog(t)
	nav, err := NewNavTable(catalog, map[string]Key{
		"home":        "nav_home",
		"sales-leads": "nav_sales_leads",
	})
	if err != nil {
		t.Fatalf("NewNavTable: %v", err)
	}

	perms := Set{"nav_home": true}

	t.Run("visible with grant", func(t *testing.T) {
		if !nav.IsVisible(perms, "home") {
			t.Error("home should be visible")
		}
	})

	t.Run("hidden without grant", func(t *testing.T) {
		if nav.IsVisible(perms, "sales-leads") {
			t.Error("sales-leads should be hidden")
		}
	})

	t.Run("unmapped id always visible", func(t *testing.T) {
		if !nav.IsVisible(perms, "help-center") {
			t.Error("unmapped sidebar ids must always be visible")
		}
	})

	t.Run("ids sorted", func(t *testing.T) {
		want := []string{"home", "sales-leads"}
		if got := nav.IDs(); !reflect.DeepEqual(got, want) {
			t.Errorf("IDs = %v, want %v", got, want)
		}
	})
}

func TestNewNavTableValidation(t *testing.T) {
	catalog := testCatalog(t)

	if _, err := NewNavTable(catalog, map[string]Key{"x": "ghost"}); err == nil {
		t.Error("expected error for unknown key")
	}
	if _, err := NewNavTable(catalog, map[string]Key{"": "nav_home"}); err == nil {
		t.Error("expected error for empty sidebar id")
	}
}

func TestDefaultTablesBuild(t *testing.T) {
	catalog := DefaultCatalog()
	templates := DefaultTemplates(catalog)

	if templates.Fallback() != RoleBroker {
		t.Errorf("default fallback = %q, want broker", templates.Fallback())
	}

	routes := DefaultRouteTable(catalog)
	if routes.Len() == 0 {
		t.Error("default route table is empty")
	}

	nav := DefaultNavTable(catalog)
	if nav.Len() == 0 {
		t.Error("default nav table is empty")
	}

	// Administrator template covers every route in the default table.
	admin := templates.Resolve(RoleAdministrator)
	for _, k := range catalog.Keys() {
		if !admin.Enabled(k) {
			t.Errorf("administrator template missing %s", k)
		}
	}
}
