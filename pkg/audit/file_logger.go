package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

// FileLogger implements audit logging to newline-delimited JSON files
type FileLogger struct {
	basePath string
	file     *os.File
	mu       sync.Mutex
	encoder  *json.Encoder
	rotate   bool
	maxSize  int64
	maxFiles int
}

// FileLoggerConfig configures the file logger
type FileLoggerConfig struct {
	BasePath string // Base directory for audit logs
	Rotate   bool   // Enable size-based rotation
	MaxSize  int64  // Max file size in bytes (default: 100MB)
	MaxFiles int    // Max number of rotated files to keep (default: 10)
}

// DefaultFileLoggerConfig returns the default configuration
func DefaultFileLoggerConfig() FileLoggerConfig {
	return FileLoggerConfig{
		BasePath: "/var/log/portal/audit",
		Rotate:   true,
		MaxSize:  100 * 1024 * 1024,
		MaxFiles: 10,
	}
}

// NewFileLogger creates a new file-based audit logger
func NewFileLogger(config FileLoggerConfig) (*FileLogger, error) {
	if err := os.MkdirAll(config.BasePath, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create audit log directory: %w", err)
	}

	logger := &FileLogger{
		basePath: config.BasePath,
		rotate:   config.Rotate,
		maxSize:  config.MaxSize,
		maxFiles: config.MaxFiles,
	}
	if logger.maxSize == 0 {
		logger.maxSize = 100 * 1024 * 1024
	}
	if logger.maxFiles == 0 {
		logger.maxFiles = 10
	}

	if err := logger.openLogFile(); err != nil {
		return nil, err
	}

	return logger, nil
}

// openLogFile opens or creates the current log file, rotating first when the
// existing file exceeds the size limit
func (l *FileLogger) openLogFile() error {
	filename := filepath.Join(l.basePath, "audit.log")

	if l.rotate {
		if info, err := os.Stat(filename); err == nil && info.Size() >= l.maxSize {
			if err := l.rotateFile(); err != nil {
				return fmt.Errorf("failed to rotate audit log: %w", err)
			}
		}
	}

	file, err := os.OpenFile(filename, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open audit log file: %w", err)
	}

	l.file = file
	l.encoder = json.NewEncoder(file)
	return nil
}

// rotateFile renames the current log to a timestamped file and prunes old ones
func (l *FileLogger) rotateFile() error {
	current := filepath.Join(l.basePath, "audit.log")
	rotated := filepath.Join(l.basePath, fmt.Sprintf("audit-%s.log", time.Now().UTC().Format("20060102-150405")))

	if l.file != nil {
		l.file.Close()
		l.file = nil
	}

	if err := os.Rename(current, rotated); err != nil {
		return err
	}

	return l.pruneOldFiles()
}

// pruneOldFiles removes the oldest rotated files beyond maxFiles
func (l *FileLogger) pruneOldFiles() error {
	pattern := filepath.Join(l.basePath, "audit-*.log")
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return err
	}
	if len(matches) <= l.maxFiles {
		return nil
	}

	sort.Strings(matches)
	for _, path := range matches[:len(matches)-l.maxFiles] {
		if err := os.Remove(path); err != nil {
			return err
		}
	}
	return nil
}

// Log appends an audit event as one JSON line
func (l *FileLogger) Log(ctx context.Context, event *AuditEvent) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		if err := l.openLogFile(); err != nil {
			return err
		}
	}

	if l.rotate {
		if info, err := l.file.Stat(); err == nil && info.Size() >= l.maxSize {
			if err := l.rotateFile(); err != nil {
				return err
			}
			if err := l.openLogFile(); err != nil {
				return err
			}
		}
	}

	if err := l.encoder.Encode(event); err != nil {
		return fmt.Errorf("failed to write audit event: %w", err)
	}
	return nil
}

// LogPermissionChange records a permission snapshot mutation
func (l *FileLogger) LogPermissionChange(ctx context.Context, eventType EventType, actorID, brokerID string, changes *ChangeDetails, message string) error {
	event := buildBaseEvent(ctx, eventType, EventStatusSuccess)
	event.ActorID = actorID
	event.ResourceType = ResourceTypePermission
	event.ResourceID = brokerID
	event.Changes = changes
	event.Message = message
	return l.Log(ctx, event)
}

// LogAccessDenied records a rejected route or resource access
func (l *FileLogger) LogAccessDenied(ctx context.Context, actorID string, resourceType ResourceType, resourceID, reason string) error {
	event := buildBaseEvent(ctx, EventTypeAccessDenied, EventStatusDenied)
	event.ActorID = actorID
	event.ResourceType = resourceType
	event.ResourceID = resourceID
	event.Message = fmt.Sprintf("access denied: %s", reason)
	return l.Log(ctx, event)
}

// LogAdminAction records an administrative action against a broker
func (l *FileLogger) LogAdminAction(ctx context.Context, eventType EventType, actorID, brokerID, message string) error {
	event := buildBaseEvent(ctx, eventType, EventStatusSuccess)
	event.ActorID = actorID
	event.ResourceType = ResourceTypeBroker
	event.ResourceID = brokerID
	event.Message = message
	return l.Log(ctx, event)
}

// Close flushes and closes the current log file
func (l *FileLogger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	l.encoder = nil
	return err
}
