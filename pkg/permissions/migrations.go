package permissions

import (
	"context"
	"database/sql"
	"fmt"
)

// Migration represents a database migration
type Migration struct {
	Version     int
	Description string
	SQL         string
}

// GetMigrations returns the permission schema migrations. The SQL is
// written for PostgreSQL; tests use an equivalent SQLite schema from
// the test helpers instead.
func GetMigrations() []Migration {
	return []Migration{
		{
			Version:     1,
			Description: "Create brokers table",
			SQL: `
				CREATE TABLE IF NOT EXISTS brokers (
					id VARCHAR(64) PRIMARY KEY,
					name VARCHAR(255) NOT NULL,
					email VARCHAR(255) NOT NULL,
					role VARCHAR(50) NOT NULL,
					permissions JSONB,
					created_at TIMESTAMP NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMP NOT NULL DEFAULT NOW(),
					UNIQUE(email)
				);

				CREATE INDEX idx_brokers_role ON brokers(role);
			`,
		},
		{
			Version:     2,
			Description: "Create permission_audit_log table",
			SQL: `
				CREATE TABLE IF NOT EXISTS permission_audit_log (
					id BIGSERIAL PRIMARY KEY,
					broker_id VARCHAR(64) NOT NULL REFERENCES brokers(id) ON DELETE CASCADE,
					actor_id VARCHAR(64) NOT NULL,
					action VARCHAR(32) NOT NULL,
					old_permissions JSONB NOT NULL,
					new_permissions JSONB NOT NULL,
					changed_keys JSONB NOT NULL,
					reason TEXT,
					created_at TIMESTAMP NOT NULL DEFAULT NOW()
				);

				CREATE INDEX idx_permission_audit_broker_id ON permission_audit_log(broker_id);
				CREATE INDEX idx_permission_audit_created_at ON permission_audit_log(created_at);
			`,
		},
	}
}

// RunMigrations executes all pending migrations
func RunMigrations(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS permission_migrations (
			version INT PRIMARY KEY,
			description TEXT NOT NULL,
			applied_at TIMESTAMP NOT NULL DEFAULT NOW()
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	rows, err := db.QueryContext(ctx, "SELECT version FROM permission_migrations ORDER BY version")
	if err != nil {
		return fmt.Errorf("failed to query migrations: %w", err)
	}

	appliedVersions := make(map[int]bool)
	for rows.Next() {
		var version int
		if err := rows.Scan(&version); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan migration version: %w", err)
		}
		appliedVersions[version] = true
	}
	rows.Close()

	for _, migration := range GetMigrations() {
		if appliedVersions[migration.Version] {
			continue
		}

		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to start transaction: %w", err)
		}

		if _, err := tx.ExecContext(ctx, migration.SQL); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to execute migration %d: %w", migration.Version, err)
		}

		if _, err := tx.ExecContext(ctx,
			"INSERT INTO permission_migrations (version, description) VALUES ($1, $2)",
			migration.Version, migration.Description,
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to record migration %d: %w", migration.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, err)
		}
	}

	return nil
}
