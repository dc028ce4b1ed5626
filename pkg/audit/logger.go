package audit

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/brokerhive/portal/pkg/contextkeys"
)

// Logger is the interface for audit logging
type Logger interface {
	// Log records an audit event
	Log(ctx context.Context, event *AuditEvent) error

	// LogPermissionChange records a permission snapshot mutation with
	// before/after details
	LogPermissionChange(ctx context.Context, eventType EventType, actorID, brokerID string, changes *ChangeDetails, message string) error

	// LogAccessDenied records a rejected route or resource access
	LogAccessDenied(ctx context.Context, actorID string, resourceType ResourceType, resourceID, reason string) error

	// LogAdminAction records an administrative action against a broker
	LogAdminAction(ctx context.Context, eventType EventType, actorID, brokerID, message string) error

	// Close flushes any buffered events and releases resources
	Close() error
}

// WithLogger adds an audit logger to the context
func WithLogger(ctx context.Context, logger Logger) context.Context {
	return contextkeys.WithAuditLogger(ctx, logger)
}

// FromContext retrieves the audit logger from context, falling back to a
// no-op logger when none is set
func FromContext(ctx context.Context) Logger {
	if logger, ok := ctx.Value(contextkeys.AuditLoggerKey).(Logger); ok {
		return logger
	}
	return &noOpLogger{}
}

// noOpLogger discards all events
type noOpLogger struct{}

// NewNoopLogger returns a logger that discards all events
func NewNoopLogger() Logger {
	return &noOpLogger{}
}

func (l *noOpLogger) Log(ctx context.Context, event *AuditEvent) error {
	return nil
}

func (l *noOpLogger) LogPermissionChange(ctx context.Context, eventType EventType, actorID, brokerID string, changes *ChangeDetails, message string) error {
	return nil
}

func (l *noOpLogger) LogAccessDenied(ctx context.Context, actorID string, resourceType ResourceType, resourceID, reason string) error {
	return nil
}

func (l *noOpLogger) LogAdminAction(ctx context.Context, eventType EventType, actorID, brokerID, message string) error {
	return nil
}

func (l *noOpLogger) Close() error {
	return nil
}

// buildBaseEvent creates an audit event with request context populated
func buildBaseEvent(ctx context.Context, eventType EventType, status EventStatus) *AuditEvent {
	return &AuditEvent{
		Timestamp: time.Now().UTC(),
		EventType: eventType,
		Status:    status,
		RequestID: contextkeys.GetRequestID(ctx),
	}
}

// EnrichFromRequest copies request metadata onto an event
func EnrichFromRequest(event *AuditEvent, r *http.Request) {
	if r == nil {
		return
	}
	event.IPAddress = clientIP(r)
	event.UserAgent = r.UserAgent()
	event.Method = r.Method
	event.Path = r.URL.Path
}

// clientIP extracts the client IP from the request
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		return xff
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	return r.RemoteAddr
}

// LogDenied is a convenience helper that records an access denial through
// the context logger
func LogDenied(ctx context.Context, resourceType ResourceType, resourceID, reason string) error {
	logger := FromContext(ctx)
	event := buildBaseEvent(ctx, EventTypeAccessDenied, EventStatusDenied)
	event.ResourceType = resourceType
	event.ResourceID = resourceID
	event.Message = fmt.Sprintf("access denied: %s", reason)
	return logger.Log(ctx, event)
}
