package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// DBLogger implements audit logging to PostgreSQL
type DBLogger struct {
	db *sql.DB
}

// NewDBLogger creates a new database-backed audit logger
func NewDBLogger(db *sql.DB) (*DBLogger, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}

	logger := &DBLogger{db: db}

	if err := logger.ensureTable(); err != nil {
		return nil, fmt.Errorf("failed to ensure audit_events table: %w", err)
	}

	return logger, nil
}

// ensureTable creates the audit_events table if it doesn't exist
func (l *DBLogger) ensureTable() error {
	query := `
	CREATE TABLE IF NOT EXISTS audit_events (
		id BIGSERIAL PRIMARY KEY,
		timestamp TIMESTAMP WITH TIME ZONE NOT NULL,
		event_type VARCHAR(100) NOT NULL,
		status VARCHAR(20) NOT NULL,
		actor_id VARCHAR(64),
		actor_name VARCHAR(255),
		resource_type VARCHAR(50),
		resource_id VARCHAR(255),
		ip_address VARCHAR(45),
		user_agent TEXT,
		request_id VARCHAR(100),
		method VARCHAR(10),
		path TEXT,
		message TEXT,
		error_message TEXT,
		metadata JSONB,
		changes JSONB,
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_audit_events_timestamp ON audit_events(timestamp DESC);
	CREATE INDEX IF NOT EXISTS idx_audit_events_event_type ON audit_events(event_type);
	CREATE INDEX IF NOT EXISTS idx_audit_events_actor_id ON audit_events(actor_id);
	CREATE INDEX IF NOT EXISTS idx_audit_events_resource ON audit_events(resource_type, resource_id);
	`

	_, err := l.db.Exec(query)
	return err
}

// Log writes an audit event to the database
func (l *DBLogger) Log(ctx context.Context, event *AuditEvent) error {
	var metadataJSON, changesJSON []byte
	var err error

	if event.Metadata != nil {
		metadataJSON, err = json.Marshal(event.Metadata)
		if err != nil {
			return fmt.Errorf("failed to marshal metadata: %w", err)
		}
	}

	if event.Changes != nil {
		changesJSON, err = json.Marshal(event.Changes)
		if err != nil {
			return fmt.Errorf("failed to marshal changes: %w", err)
		}
	}

	query := `
		INSERT INTO audit_events (
			timestamp, event_type, status, actor_id, actor_name,
			resource_type, resource_id, ip_address, user_agent,
			request_id, method, path, message, error_message,
			metadata, changes
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`

	_, err = l.db.ExecContext(ctx, query,
		event.Timestamp,
		string(event.EventType),
		string(event.Status),
		nullString(event.ActorID),
		nullString(event.ActorName),
		nullString(string(event.ResourceType)),
		nullString(event.ResourceID),
		nullString(event.IPAddress),
		nullString(event.UserAgent),
		nullString(event.RequestID),
		nullString(event.Method),
		nullString(event.Path),
		nullString(event.Message),
		nullString(event.ErrorMessage),
		nullBytes(metadataJSON),
		nullBytes(changesJSON),
	)
	if err != nil {
		return fmt.Errorf("failed to insert audit event: %w", err)
	}

	return nil
}

// LogPermissionChange records a permission snapshot mutation
func (l *DBLogger) LogPermissionChange(ctx context.Context, eventType EventType, actorID, brokerID string, changes *ChangeDetails, message string) error {
	event := buildBaseEvent(ctx, eventType, EventStatusSuccess)
	event.ActorID = actorID
	event.ResourceType = ResourceTypePermission
	event.ResourceID = brokerID
	event.Changes = changes
	event.Message = message
	return l.Log(ctx, event)
}

// LogAccessDenied records a rejected route or resource access
func (l *DBLogger) LogAccessDenied(ctx context.Context, actorID string, resourceType ResourceType, resourceID, reason string) error {
	event := buildBaseEvent(ctx, EventTypeAccessDenied, EventStatusDenied)
	event.ActorID = actorID
	event.ResourceType = resourceType
	event.ResourceID = resourceID
	event.Message = fmt.Sprintf("access denied: %s", reason)
	return l.Log(ctx, event)
}

// LogAdminAction records an administrative action against a broker
func (l *DBLogger) LogAdminAction(ctx context.Context, eventType EventType, actorID, brokerID, message string) error {
	event := buildBaseEvent(ctx, eventType, EventStatusSuccess)
	event.ActorID = actorID
	event.ResourceType = ResourceTypeBroker
	event.ResourceID = brokerID
	event.Message = message
	return l.Log(ctx, event)
}

// Search queries audit events matching the filter, newest first
func (l *DBLogger) Search(ctx context.Context, filter SearchFilter) ([]*AuditEvent, error) {
	var conditions []string
	var args []interface{}
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.StartTime != nil {
		conditions = append(conditions, "timestamp >= "+arg(*filter.StartTime))
	}
	if filter.EndTime != nil {
		conditions = append(conditions, "timestamp <= "+arg(*filter.EndTime))
	}
	if filter.ActorID != "" {
		conditions = append(conditions, "actor_id = "+arg(filter.ActorID))
	}
	if len(filter.EventTypes) > 0 {
		placeholders := make([]string, len(filter.EventTypes))
		for i, et := range filter.EventTypes {
			placeholders[i] = arg(string(et))
		}
		conditions = append(conditions, "event_type IN ("+strings.Join(placeholders, ", ")+")")
	}
	if filter.Status != nil {
		conditions = append(conditions, "status = "+arg(string(*filter.Status)))
	}
	if filter.ResourceType != "" {
		conditions = append(conditions, "resource_type = "+arg(string(filter.ResourceType)))
	}
	if filter.ResourceID != "" {
		conditions = append(conditions, "resource_id = "+arg(filter.ResourceID))
	}

	query := `
		SELECT id, timestamp, event_type, status, actor_id, actor_name,
		       resource_type, resource_id, ip_address, user_agent,
		       request_id, method, path, message, error_message,
		       metadata, changes
		FROM audit_events
	`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY timestamp DESC, id DESC"

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += " LIMIT " + arg(limit)
	if filter.Offset > 0 {
		query += " OFFSET " + arg(filter.Offset)
	}

	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit events: %w", err)
	}
	defer rows.Close()

	var events []*AuditEvent
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	return events, rows.Err()
}

// Prune deletes events older than the retention policy allows and returns
// the number of deleted rows
func (l *DBLogger) Prune(ctx context.Context, policy RetentionPolicy) (int64, error) {
	cutoff := time.Now().UTC().AddDate(0, 0, -policy.RetentionDays)
	result, err := l.db.ExecContext(ctx,
		"DELETE FROM audit_events WHERE timestamp < $1", cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune audit events: %w", err)
	}
	return result.RowsAffected()
}

// Close is a no-op for the database logger; the pool is owned by the caller
func (l *DBLogger) Close() error {
	return nil
}

func scanEvent(rows *sql.Rows) (*AuditEvent, error) {
	var event AuditEvent
	var actorID, actorName, resourceType, resourceID sql.NullString
	var ipAddress, userAgent, requestID, method, path sql.NullString
	var message, errorMessage sql.NullString
	var metadataJSON, changesJSON []byte

	err := rows.Scan(
		&event.ID, &event.Timestamp, &event.EventType, &event.Status,
		&actorID, &actorName, &resourceType, &resourceID,
		&ipAddress, &userAgent, &requestID, &method, &path,
		&message, &errorMessage, &metadataJSON, &changesJSON,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan audit event: %w", err)
	}

	event.ActorID = actorID.String
	event.ActorName = actorName.String
	event.ResourceType = ResourceType(resourceType.String)
	event.ResourceID = resourceID.String
	event.IPAddress = ipAddress.String
	event.UserAgent = userAgent.String
	event.RequestID = requestID.String
	event.Method = method.String
	event.Path = path.String
	event.Message = message.String
	event.ErrorMessage = errorMessage.String

	if len(metadataJSON) > 0 {
		if err := json.Unmarshal(metadataJSON, &event.Metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
		}
	}
	if len(changesJSON) > 0 {
		if err := json.Unmarshal(changesJSON, &event.Changes); err != nil {
			return nil, fmt.Errorf("failed to unmarshal changes: %w", err)
		}
	}

	return &event, nil
}

func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func nullBytes(b []byte) interface{} {
	if len(b) == 0 {
		return nil
	}
	return b
}
