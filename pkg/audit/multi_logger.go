package audit

import (
	"context"
)

// MultiLogger fans audit events out to multiple loggers
type MultiLogger struct {
	loggers []Logger
}

// NewMultiLogger creates a logger that writes to every given destination
func NewMultiLogger(loggers ...Logger) *MultiLogger {
	return &MultiLogger{loggers: loggers}
}

// Log writes the event to all loggers, continuing past failures and
// returning the first error encountered
func (m *MultiLogger) Log(ctx context.Context, event *AuditEvent) error {
	var firstErr error
	for _, logger := range m.loggers {
		if err := logger.Log(ctx, event); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// LogPermissionChange records a permission snapshot mutation on all loggers
func (m *MultiLogger) LogPermissionChange(ctx context.Context, eventType EventType, actorID, brokerID string, changes *ChangeDetails, message string) error {
	var firstErr error
	for _, logger := range m.loggers {
		if err := logger.LogPermissionChange(ctx, eventType, actorID, brokerID, changes, message); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// LogAccessDenied records a rejected access on all loggers
func (m *MultiLogger) LogAccessDenied(ctx context.Context, actorID string, resourceType ResourceType, resourceID, reason string) error {
	var firstErr error
	for _, logger := range m.loggers {
		if err := logger.LogAccessDenied(ctx, actorID, resourceType, resourceID, reason); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// LogAdminAction records an administrative action on all loggers
func (m *MultiLogger) LogAdminAction(ctx context.Context, eventType EventType, actorID, brokerID, message string) error {
	var firstErr error
	for _, logger := range m.loggers {
		if err := logger.LogAdminAction(ctx, eventType, actorID, brokerID, message); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Close closes all loggers, returning the first error encountered
func (m *MultiLogger) Close() error {
	var firstErr error
	for _, logger := range m.loggers {
		if err := logger.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
