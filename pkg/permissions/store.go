package permissions

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/brokerhive/portal/pkg/observability"
)

// ErrBrokerNotFound is returned when the principal does not exist.
var ErrBrokerNotFound = errors.New("broker not found")

// Audit actions recorded in permission_audit_log.
const (
	AuditActionUpdate = "update"
	AuditActionReset  = "reset"
)

// ResetAllMarker is the single changed_keys entry recorded for a reset,
// standing in for the full key list.
const ResetAllMarker = "RESET_ALL"

// Broker is the principal whose permissions are stored. Permissions is
// nil when the broker has never been seeded.
type Broker struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	Role        string    `json:"role"`
	Permissions Set       `json:"permissions,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// AuditEntry is one row of the permission audit trail. Old and new are
// full snapshots; ChangedKeys is the diff, or [RESET_ALL] for resets.
type AuditEntry struct {
	ID             int64     `json:"id"`
	BrokerID       string    `json:"broker_id"`
	ActorID        string    `json:"actor_id"`
	Action         string    `json:"action"`
	OldPermissions Set       `json:"old_permissions"`
	NewPermissions Set       `json:"new_permissions"`
	ChangedKeys    []string  `json:"changed_keys"`
	Reason         string    `json:"reason,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// SaveResult reports what a save changed.
type SaveResult struct {
	ChangedKeys []Key `json:"changed_keys"`
	// Seeded is true when the broker had no stored permissions and the
	// old snapshot in the audit row is the role template.
	Seeded bool `json:"seeded,omitempty"`
}

// Store persists permission snapshots. Saves are full-snapshot writes:
// the new set replaces the old one and an audit row records both sides
// of the change in the same transaction, so a snapshot without its
// audit row cannot exist.
type Store struct {
	db        *sql.DB
	catalog   *Catalog
	templates *Templates
	logger    *observability.Logger
}

// NewStore creates a permission store over an open database handle.
func NewStore(db *sql.DB, catalog *Catalog, templates *Templates, logger *observability.Logger) *Store {
	if logger == nil {
		logger = observability.NewLogger(observability.InfoLevel, nil)
	}
	return &Store{db: db, catalog: catalog, templates: templates, logger: logger}
}

// GetBroker retrieves a broker with their stored permissions.
func (s *Store) GetBroker(ctx context.Context, brokerID string) (*Broker, error) {
	query := `
		SELECT id, name, email, role, permissions, created_at, updated_at
		FROM brokers
		WHERE id = $1
	`

	var b Broker
	var permsJSON sql.NullString

	err := s.db.QueryRowContext(ctx, query, brokerID).Scan(
		&b.ID,
		&b.Name,
		&b.Email,
		&b.Role,
		&permsJSON,
		&b.CreatedAt,
		&b.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", ErrBrokerNotFound, brokerID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get broker: %w", err)
	}

	if permsJSON.Valid && permsJSON.String != "" && permsJSON.String != "null" {
		if err := json.Unmarshal([]byte(permsJSON.String), &b.Permissions); err != nil {
			return nil, fmt.Errorf("failed to unmarshal permissions: %w", err)
		}
	}

	return &b, nil
}

// GetPermissions returns the broker's effective permission set. A
// broker with no stored snapshot is seeded from their role template:
// the template is written back so the next read hits storage, but no
// audit row is recorded since nothing was decided by a person. Unknown
// keys in the stored snapshot are dropped and logged.
func (s *Store) GetPermissions(ctx context.Context, brokerID string) (Set, error) {
	b, err := s.GetBroker(ctx, brokerID)
	if err != nil {
		return nil, err
	}

	if len(b.Permissions) == 0 {
		tpl := s.templates.Resolve(b.Role)
		if err := s.writeSnapshot(ctx, s.db, brokerID, tpl); err != nil {
			return nil, fmt.Errorf("failed to seed permissions: %w", err)
		}
		s.logger.WithField("broker_id", brokerID).
			WithField("role", b.Role).
			Info("seeded permissions from role template")
		return tpl, nil
	}

	perms, dropped := s.catalog.Sanitize(b.Permissions)
	if len(dropped) > 0 {
		s.logger.WithField("broker_id", brokerID).
			WithField("dropped_keys", dropped).
			Warn("dropped unknown permission keys from stored snapshot")
	}
	return perms, nil
}

// SavePermissions replaces the broker's snapshot with next and records
// the audit row in the same transaction. Unknown keys in next fail the
// save. A save that changes nothing is a no-op and writes no audit row.
//
// On any error the stored snapshot is untouched; the caller keeps
// their draft and can retry.
func (s *Store) SavePermissions(ctx context.Context, brokerID, actorID string, next Set, reason string) (*SaveResult, error) {
	keys := make([]Key, 0, len(next))
	for k := range next {
		keys = append(keys, k)
	}
	if err := s.catalog.ValidateKeys(keys...); err != nil {
		return nil, fmt.Errorf("invalid permission set: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	old, _, seeded, err := s.currentSnapshot(ctx, tx, brokerID)
	if err != nil {
		return nil, err
	}

	var changed []Key
	for _, k := range s.catalog.Keys() {
		if next.Enabled(k) != old.Enabled(k) {
			changed = append(changed, k)
		}
	}
	if len(changed) == 0 && !seeded {
		s.logger.WithField("broker_id", brokerID).Debug("save changed nothing, skipping")
		return &SaveResult{}, nil
	}

	full := s.complete(next)
	if err := s.writeSnapshot(ctx, tx, brokerID, full); err != nil {
		return nil, err
	}
	if err := s.writeAudit(ctx, tx, brokerID, actorID, AuditActionUpdate, old, full, keysToStrings(changed), reason); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit save: %w", err)
	}

	s.logger.WithField("broker_id", brokerID).
		WithField("actor_id", actorID).
		WithField("changed", len(changed)).
		Info("saved permission snapshot")

	return &SaveResult{ChangedKeys: changed, Seeded: seeded}, nil
}

// ResetToTemplate replaces the broker's snapshot with their role
// template. The audit row records [RESET_ALL] instead of the key diff.
func (s *Store) ResetToTemplate(ctx context.Context, brokerID, actorID, reason string) (Set, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	old, role, _, err := s.currentSnapshot(ctx, tx, brokerID)
	if err != nil {
		return nil, err
	}

	tpl := s.templates.Resolve(role)
	if err := s.writeSnapshot(ctx, tx, brokerID, tpl); err != nil {
		return nil, err
	}
	if err := s.writeAudit(ctx, tx, brokerID, actorID, AuditActionReset, old, tpl, []string{ResetAllMarker}, reason); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit reset: %w", err)
	}

	s.logger.WithField("broker_id", brokerID).
		WithField("actor_id", actorID).
		WithField("role", role).
		Info("reset permissions to role template")

	return tpl, nil
}

// AuditLog returns the broker's audit trail, newest first.
func (s *Store) AuditLog(ctx context.Context, brokerID string, limit int) ([]AuditEntry, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	query := `
		SELECT id, broker_id, actor_id, action, old_permissions, new_permissions, changed_keys, reason, created_at
		FROM permission_audit_log
		WHERE broker_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`

	rows, err := s.db.QueryContext(ctx, query, brokerID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit log: %w", err)
	}
	defer rows.Close()

	var entries []AuditEntry
	for rows.Next() {
		var e AuditEntry
		var oldJSON, newJSON, changedJSON string
		var reason sql.NullString

		if err := rows.Scan(&e.ID, &e.BrokerID, &e.ActorID, &e.Action, &oldJSON, &newJSON, &changedJSON, &reason, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}
		if err := json.Unmarshal([]byte(oldJSON), &e.OldPermissions); err != nil {
			return nil, fmt.Errorf("failed to unmarshal old snapshot: %w", err)
		}
		if err := json.Unmarshal([]byte(newJSON), &e.NewPermissions); err != nil {
			return nil, fmt.Errorf("failed to unmarshal new snapshot: %w", err)
		}
		if err := json.Unmarshal([]byte(changedJSON), &e.ChangedKeys); err != nil {
			return nil, fmt.Errorf("failed to unmarshal changed keys: %w", err)
		}
		e.Reason = reason.String
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// PruneAuditLog deletes audit rows older than the retention window and
// returns the number removed. Wired to the retention cron job.
func (s *Store) PruneAuditLog(ctx context.Context, retention time.Duration) (int64, error) {
	cutoff := time.Now().Add(-retention)
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM permission_audit_log WHERE created_at < $1", cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune audit log: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count pruned rows: %w", err)
	}
	return n, nil
}

// execer covers both *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// currentSnapshot loads the broker's stored set inside the transaction.
// A broker without a snapshot yields their role template as the old
// side of the diff, flagged as seeded.
func (s *Store) currentSnapshot(ctx context.Context, tx execer, brokerID string) (Set, string, bool, error) {
	var role string
	var permsJSON sql.NullString

	err := tx.QueryRowContext(ctx,
		"SELECT role, permissions FROM brokers WHERE id = $1", brokerID,
	).Scan(&role, &permsJSON)
	if err == sql.ErrNoRows {
		return nil, "", false, fmt.Errorf("%w: %s", ErrBrokerNotFound, brokerID)
	}
	if err != nil {
		return nil, "", false, fmt.Errorf("failed to load current snapshot: %w", err)
	}

	if !permsJSON.Valid || permsJSON.String == "" || permsJSON.String == "null" {
		return s.templates.Resolve(role), role, true, nil
	}

	var stored Set
	if err := json.Unmarshal([]byte(permsJSON.String), &stored); err != nil {
		return nil, "", false, fmt.Errorf("failed to unmarshal stored snapshot: %w", err)
	}
	old, _ := s.catalog.Sanitize(stored)
	return old, role, false, nil
}

func (s *Store) writeSnapshot(ctx context.Context, tx execer, brokerID string, perms Set) error {
	data, err := json.Marshal(perms)
	if err != nil {
		return fmt.Errorf("failed to marshal permissions: %w", err)
	}

	res, err := tx.ExecContext(ctx,
		"UPDATE brokers SET permissions = $1, updated_at = $2 WHERE id = $3",
		string(data), time.Now(), brokerID)
	if err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check snapshot write: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrBrokerNotFound, brokerID)
	}
	return nil
}

func (s *Store) writeAudit(ctx context.Context, tx execer, brokerID, actorID, action string, old, next Set, changed []string, reason string) error {
	oldJSON, err := json.Marshal(old)
	if err != nil {
		return fmt.Errorf("failed to marshal old snapshot: %w", err)
	}
	newJSON, err := json.Marshal(next)
	if err != nil {
		return fmt.Errorf("failed to marshal new snapshot: %w", err)
	}
	if changed == nil {
		changed = []string{}
	}
	changedJSON, err := json.Marshal(changed)
	if err != nil {
		return fmt.Errorf("failed to marshal changed keys: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO permission_audit_log (broker_id, actor_id, action, old_permissions, new_permissions, changed_keys, reason, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		brokerID, actorID, action, string(oldJSON), string(newJSON), string(changedJSON), reason, time.Now())
	if err != nil {
		return fmt.Errorf("failed to write audit entry: %w", err)
	}
	return nil
}

// complete fills in an explicit false for every catalog key missing
// from the set, so stored snapshots always cover the whole catalog.
func (s *Store) complete(partial Set) Set {
	full := make(Set, s.catalog.Len())
	for _, k := range s.catalog.Keys() {
		full[k] = partial.Enabled(k)
	}
	return full
}

func keysToStrings(ks []Key) []string {
	out := make([]string, len(ks))
	for i, k := range ks {
		out[i] = string(k)
	}
	return out
}
