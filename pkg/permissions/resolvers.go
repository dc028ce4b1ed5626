package permissions

import (
	"fmt"
	"sort"
	"strings"
)

// RouteTable resolves request paths to the permission key guarding
// them. Paths not covered by the table resolve to nothing, which the
// guard treats as "no permission required".
type RouteTable struct {
	routes   map[string]Key
	prefixes []string // route paths sorted longest first
}

// NewRouteTable validates every mapped key against the catalog and
// precomputes the prefix order for Resolve.
func NewRouteTable(catalog *Catalog, routes map[string]Key) (*RouteTable, error) {
	for path, key := range routes {
		if path == "" || !strings.HasPrefix(path, "/") {
			return nil, fmt.Errorf("route %q must start with /", path)
		}
		if err := catalog.ValidateKeys(key); err != nil {
			return nil, fmt.Errorf("route %q: %w", path, err)
		}
	}

	prefixes := make([]string, 0, len(routes))
	for path := range routes {
		prefixes = append(prefixes, path)
	}
	sort.Slice(prefixes, func(i, j int) bool {
		if len(prefixes[i]) != len(prefixes[j]) {
			return len(prefixes[i]) > len(prefixes[j])
		}
		return prefixes[i] < prefixes[j]
	})

	return &RouteTable{routes: routes, prefixes: prefixes}, nil
}

// Resolve returns the permission key for a path. Exact matches win;
// otherwise the longest mapped prefix of the path is used, so
// /portal/finance/statement picks its own key rather than the
// /portal/finance one.
func (t *RouteTable) Resolve(path string) (Key, bool) {
	if key, ok := t.routes[path]; ok {
		return key, true
	}
	for _, prefix := range t.prefixes {
		if strings.HasPrefix(path, prefix) {
			return t.routes[prefix], true
		}
	}
	return "", false
}

// Allowed reports whether the permission set grants access to a path.
// Paths outside the table are always allowed.
func (t *RouteTable) Allowed(perms Set, path string) bool {
	key, ok := t.Resolve(path)
	if !ok {
		return true
	}
	return perms.Enabled(key)
}

// Len returns the number of mapped routes.
func (t *RouteTable) Len() int {
	return len(t.routes)
}

// NavTable resolves sidebar item ids to permission keys. Ids absent
// from the table are always visible, so new sidebar entries show up
// before they are wired into the permission catalog.
type NavTable struct {
	entries map[string]Key
}

// NewNavTable validates every mapped key against the catalog.
func NewNavTable(catalog *Catalog, entries map[string]Key) (*NavTable, error) {
	for id, key := range entries {
		if id == "" {
			return nil, fmt.Errorf("empty sidebar id")
		}
		if err := catalog.ValidateKeys(key); err != nil {
			return nil, fmt.Errorf("sidebar id %q: %w", id, err)
		}
	}
	return &NavTable{entries: entries}, nil
}

// Resolve returns the permission key mapped to a sidebar id.
func (t *NavTable) Resolve(id string) (Key, bool) {
	key, ok := t.entries[id]
	return key, ok
}

// IsVisible reports whether a sidebar item should render for the given
// permission set. A child item's visibility depends only on its own
// key, never on its parent's aggregate.
func (t *NavTable) IsVisible(perms Set, id string) bool {
	key, ok := t.entries[id]
	if !ok {
		return true
	}
	return perms.Enabled(key)
}

// IDs returns the mapped sidebar ids in sorted order.
func (t *NavTable) IDs() []string {
	ids := make([]string, 0, len(t.entries))
	for id := range t.entries {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Len returns the number of mapped sidebar ids.
func (t *NavTable) Len() int {
	return len(t.entries)
}
