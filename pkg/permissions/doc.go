// Package permissions implements the broker portal's permission engine.
//
// The engine is built around a static Catalog of permission keys grouped
// into categories, items, and child items. A broker's effective state is a
// flat Set from key to enabled, persisted as a single JSON snapshot on the
// broker row.
//
// The main pieces:
//
//   - Catalog: the key hierarchy, lookup indexes, and snapshot sanitizing
//   - Templates: role to default-permission-set resolution with a
//     least-privileged fallback for unknown roles
//   - Editor: in-memory cascade logic for the admin UI (parent toggles fan
//     out to children, child toggles recompute the parent aggregate by OR)
//   - Store: PostgreSQL persistence with full-snapshot saves, template
//     seeding on first read, and an audit trail written in the same
//     transaction
//   - SnapshotCache: two-tier LRU plus Redis read cache in front of the
//     Store
//   - RouteTable / NavTable: longest-prefix route gating and sidebar
//     visibility; unmapped routes and nav ids are always allowed
//   - RouteGuard: HTTP middleware enforcing the RouteTable
//   - Handlers: the REST surface for the admin UI
//
// Catalogs and templates can be loaded from YAML (LoadCatalogFile,
// LoadTemplates) or taken from the built-in defaults (DefaultCatalog,
// DefaultTemplates).
package permissions
