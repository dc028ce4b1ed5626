package permissions

import (
	"fmt"

	"github.com/brokerhive/portal/pkg/observability"
)

// Built-in role names. RoleBroker is the least-privileged template and
// doubles as the fallback for unknown role names.
const (
	RoleAdministrator  = "administrator"
	RoleTrafficManager = "traffic_manager"
	RoleAssistant      = "assistant"
	RoleBroker         = "broker"
)

// Templates maps role names to complete default permission assignments.
// Every template covers every catalog key, so a freshly seeded
// principal always has an explicit true/false for each flag.
type Templates struct {
	catalog  *Catalog
	roles    map[string]Set
	fallback string
	logger   *observability.Logger
}

// NewTemplates validates the role definitions against the catalog and
// completes each one: keys granted in defs become true, every other
// catalog key becomes false. The fallback role must be one of the
// defined roles; it is resolved for any unknown role name so a
// misconfigured role never grants elevated access by accident.
func NewTemplates(catalog *Catalog, defs map[string][]Key, fallback string, logger *observability.Logger) (*Templates, error) {
	if _, ok := defs[fallback]; !ok {
		return nil, fmt.Errorf("fallback role %q is not defined", fallback)
	}
	if logger == nil {
		logger = observability.NewLogger(observability.InfoLevel, nil)
	}

	roles := make(map[string]Set, len(defs))
	for role, grants := range defs {
		if err := catalog.ValidateKeys(grants...); err != nil {
			return nil, fmt.Errorf("template %q: %w", role, err)
		}
		tpl := make(Set, catalog.Len())
		for _, k := range catalog.Keys() {
			tpl[k] = false
		}
		for _, k := range grants {
			tpl[k] = true
		}
		roles[role] = tpl
	}

	return &Templates{catalog: catalog, roles: roles, fallback: fallback, logger: logger}, nil
}

// Roles returns the defined role names in unspecified order.
func (t *Templates) Roles() []string {
	names := make([]string, 0, len(t.roles))
	for name := range t.roles {
		names = append(names, name)
	}
	return names
}

// Known reports whether the role name has its own template.
func (t *Templates) Known(role string) bool {
	_, ok := t.roles[role]
	return ok
}

// Fallback returns the role used for unknown role names.
func (t *Templates) Fallback() string {
	return t.fallback
}

// Resolve returns a copy of the complete template for a role. An
// unknown role resolves to the fallback template with a warning rather
// than an error, so role metadata drift degrades to least privilege.
func (t *Templates) Resolve(role string) Set {
	tpl, ok := t.roles[role]
	if !ok {
		t.logger.WithField("role", role).
			WithField("fallback", t.fallback).
			Warn("unknown role, using fallback template")
		tpl = t.roles[t.fallback]
	}
	return tpl.Clone()
}
