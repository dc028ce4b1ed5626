package permissions

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"github.com/brokerhive/portal/pkg/observability"
)

// testCatalog builds a small catalog used across the package tests:
//
//	nav:      nav_home (leaf), nav_sales (parent of leads/quotes/pipeline)
//	actions:  action_export, action_import
func testCatalog(t *testing.T) *Catalog {
	t.Helper()
	catalog, err := NewCatalog([]Category{
		{
			ID:    "nav",
			Label: "Navigation",
			Items: []Item{
				{Key: "nav_home", Label: "Home"},
				{
					Key:   "nav_sales",
					Label: "Sales",
					Children: []SubItem{
						{Key: "nav_sales_leads", Label: "Leads", SidebarID: "sales-leads"},
						{Key: "nav_sales_quotes", Label: "Quotes", SidebarID: "sales-quotes"},
						{Key: "nav_sales_pipeline", Label: "Pipeline", SidebarID: "sales-pipeline"},
					},
				},
			},
		},
		{
			ID:    "actions",
			Label: "Actions",
			Items: []Item{
				{Key: "action_export", Label: "Export data"},
				{Key: "action_import", Label: "Import data"},
			},
		},
	})
	if err != nil {
		t.Fatalf("NewCatalog: %v", err)
	}
	return catalog
}

// testTemplates builds role templates over testCatalog. administrator
// gets everything, broker only nav_home, assistant a middle ground.
func testTemplates(t *testing.T, catalog *Catalog) *Templates {
	t.Helper()
	templates, err := NewTemplates(catalog, map[string][]Key{
		RoleAdministrator: catalog.Keys(),
		RoleAssistant:     {"nav_home", "nav_sales", "nav_sales_leads", "nav_sales_quotes", "nav_sales_pipeline"},
		RoleBroker:        {"nav_home"},
	}, RoleBroker, testLogger())
	if err != nil {
		t.Fatalf("NewTemplates: %v", err)
	}
	return templates
}

func testLogger() *observability.Logger {
	return observability.NewLogger(observability.ErrorLevel, nil)
}

// newTestDB opens an in-memory SQLite database with the portal schema.
// SQLite accepts the $N placeholders the store uses against PostgreSQL.
func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	schema := `
	CREATE TABLE brokers (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT NOT NULL UNIQUE,
		role TEXT NOT NULL,
		permissions TEXT,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE permission_audit_log (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		broker_id TEXT NOT NULL REFERENCES brokers(id),
		actor_id TEXT NOT NULL,
		action TEXT NOT NULL,
		old_permissions TEXT NOT NULL,
		new_permissions TEXT NOT NULL,
		changed_keys TEXT NOT NULL,
		reason TEXT,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	);
	`
	if _, err := db.Exec(schema); err != nil {
		t.Fatalf("create schema: %v", err)
	}
	return db
}

// insertBroker seeds a broker row. perms nil leaves the snapshot column
// NULL so reads trigger template seeding.
func insertBroker(t *testing.T, db *sql.DB, id, role string, perms Set) {
	t.Helper()
	var permsJSON interface{}
	if perms != nil {
		data, err := json.Marshal(perms)
		if err != nil {
			t.Fatalf("marshal permissions: %v", err)
		}
		permsJSON = string(data)
	}
	_, err := db.Exec(
		"INSERT INTO brokers (id, name, email, role, permissions) VALUES ($1, $2, $3, $4, $5)",
		id, "Broker "+id, id+"@example.com", role, permsJSON)
	if err != nil {
		t.Fatalf("insert broker: %v", err)
	}
}

// newTestStore wires a Store over a fresh in-memory database.
func newTestStore(t *testing.T) (*Store, *sql.DB) {
	t.Helper()
	catalog := testCatalog(t)
	templates := testTemplates(t, catalog)
	db := newTestDB(t)
	return NewStore(db, catalog, templates, testLogger()), db
}

// storedSnapshot reads the raw permissions column for assertions.
func storedSnapshot(t *testing.T, db *sql.DB, brokerID string) Set {
	t.Helper()
	var raw sql.NullString
	err := db.QueryRow("SELECT permissions FROM brokers WHERE id = $1", brokerID).Scan(&raw)
	if err != nil {
		t.Fatalf("read snapshot: %v", err)
	}
	if !raw.Valid {
		return nil
	}
	var s Set
	if err := json.Unmarshal([]byte(raw.String), &s); err != nil {
		t.Fatalf("unmarshal snapshot: %v", err)
	}
	return s
}

func mustGetPermissions(t *testing.T, ctx context.Context, store *Store, brokerID string) Set {
	t.Helper()
	perms, err := store.GetPermissions(ctx, brokerID)
	if err != nil {
		t.Fatalf("GetPermissions(%s): %v", brokerID, err)
	}
	return perms
}
