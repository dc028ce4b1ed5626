package audit

import (
	"bufio"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestFileLoggerWritesNDJSON(t *testing.T) {
	dir := t.TempDir()
	logger, err := NewFileLogger(FileLoggerConfig{BasePath: dir})
	if err != nil {
		t.Fatalf("NewFileLogger: %v", err)
	}
	defer logger.Close()

	events := []*AuditEvent{
		{Timestamp: time.Now().UTC(), EventType: EventTypePermissionUpdate, Status: EventStatusSuccess, ActorID: "admin-1"},
		{Timestamp: time.Now().UTC(), EventType: EventTypeAccessDenied, Status: EventStatusDenied, ActorID: "broker-2"},
	}
	for _, event := range events {
		if err := logger.Log(context.Background(), event); err != nil {
			t.Fatalf("Log: %v", err)
		}
	}

	file, err := os.Open(filepath.Join(dir, "audit.log"))
	if err != nil {
		t.Fatalf("open log: %v", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	var lines []string
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2", len(lines))
	}

	first, err := FromJSON([]byte(lines[0]))
	if err != nil {
		t.Fatalf("FromJSON: %v", err)
	}
	if first.EventType != EventTypePermissionUpdate {
		t.Errorf("first event type = %q", first.EventType)
	}
	second, err := FromJSON([]byte(lines[1]))
	if err != nil {
		t.Fatalf("FromJSON: %v", err)
	}
	if second.Status != EventStatusDenied {
		t.Errorf("second status = %q", second.Status)
	}
}

func TestFileLoggerRotation(t *testing.T) {
	dir := t.TempDir()
	logger, err := NewFileLogger(FileLoggerConfig{
		BasePath: dir,
		Rotate:   true,
		MaxSize:  64, // tiny, forces rotation after a single event
		MaxFiles: 3,
	})
	if err != nil {
		t.Fatalf("NewFileLogger: %v", err)
	}
	defer logger.Close()

	for i := 0; i < 3; i++ {
		event := &AuditEvent{
			Timestamp: time.Now().UTC(),
			EventType: EventTypePermissionUpdate,
			Status:    EventStatusSuccess,
			ActorID:   "admin-1",
			Message:   "a reasonably sized audit message to exceed the limit",
		}
		if err := logger.Log(context.Background(), event); err != nil {
			t.Fatalf("Log %d: %v", i, err)
		}
		// Rotated filenames are second-granular
		time.Sleep(1100 * time.Millisecond)
	}

	rotated, err := filepath.Glob(filepath.Join(dir, "audit-*.log"))
	if err != nil {
		t.Fatalf("glob: %v", err)
	}
	if len(rotated) == 0 {
		t.Error("expected at least one rotated file")
	}
}

func TestFileLoggerCloseIdempotent(t *testing.T) {
	dir := t.TempDir()
	logger, err := NewFileLogger(FileLoggerConfig{BasePath: dir, Rotate: false})
	if err != nil {
		t.Fatalf("NewFileLogger: %v", err)
	}
	if err := logger.Close(); err != nil {
		t.Errorf("first Close: %v", err)
	}
	if err := logger.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
}
