package permissions

import (
	"sort"
	"testing"
)

func TestTemplatesResolveKnownRole(t *testing.T) {
	catalog := testCatalog(t)
	templates := testTemplates(t, catalog)

	admin := templates.Resolve(RoleAdministrator)
	if len(admin) != catalog.Len() {
		t.Fatalf("administrator template has %d keys, want %d", len(admin), catalog.Len())
	}
	for _, k := range catalog.Keys() {
		if !admin.Enabled(k) {
			t.Errorf("administrator missing %s", k)
		}
	}
}

func TestTemplatesCompleteWithExplicitFalse(t *testing.T) {
	catalog := testCatalog(t)
	templates := testTemplates(t, catalog)

	broker := templates.Resolve(RoleBroker)
	if len(broker) != catalog.Len() {
		t.Fatalf("broker template has %d keys, want %d (explicit false for each)", len(broker), catalog.Len())
	}
	if !broker.Enabled("nav_home") {
		t.Error("broker should have nav_home")
	}
	if v, ok := broker["action_export"]; !ok || v {
		t.Errorf("action_export = %v, %v; want explicit false", v, ok)
	}
}

func TestTemplatesUnknownRoleFallsBack(t *testing.T) {
	catalog := testCatalog(t)
	templates := testTemplates(t, catalog)

	got := templates.Resolve("regional_director")
	want := templates.Resolve(RoleBroker)
	if got.CountEnabled() != want.CountEnabled() {
		t.Errorf("unknown role resolved to %d grants, fallback has %d", got.CountEnabled(), want.CountEnabled())
	}
	if !got.Enabled("nav_home") || got.Enabled("nav_sales") {
		t.Error("unknown role should get the least-privileged broker template")
	}
}

func TestTemplatesResolveReturnsCopy(t *testing.T) {
	catalog := testCatalog(t)
	templates := testTemplates(t, catalog)

	first := templates.Resolve(RoleBroker)
	first["nav_sales"] = true

	second := templates.Resolve(RoleBroker)
	if second.Enabled("nav_sales") {
		t.Error("mutating a resolved template leaked into the stored template")
	}
}

func TestNewTemplatesRejectsUnknownFallback(t *testing.T) {
	catalog := testCatalog(t)
	_, err := NewTemplates(catalog, map[string][]Key{
		RoleAdministrator: catalog.Keys(),
	}, "nonexistent", testLogger())
	if err == nil {
		t.Error("expected error for undefined fallback role")
	}
}

func TestNewTemplatesRejectsUnknownGrantKey(t *testing.T) {
	catalog := testCatalog(t)
	_, err := NewTemplates(catalog, map[string][]Key{
		RoleBroker: {"nav_home", "not_a_key"},
	}, RoleBroker, testLogger())
	if err == nil {
		t.Error("expected error for unknown key in template")
	}
}

func TestTemplatesRolesAndKnown(t *testing.T) {
	catalog := testCatalog(t)
	templates := testTemplates(t, catalog)

	roles := templates.Roles()
	sort.Strings(roles)
	if len(roles) != 3 {
		t.Fatalf("Roles = %v, want 3 entries", roles)
	}
	if !templates.Known(RoleAssistant) {
		t.Error("assistant should be known")
	}
	if templates.Known("regional_director") {
		t.Error("regional_director should be unknown")
	}
	if templates.Fallback() != RoleBroker {
		t.Errorf("Fallback = %q, want broker", templates.Fallback())
	}
}
