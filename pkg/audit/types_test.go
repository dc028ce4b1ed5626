package audit

import (
	"testing"
	"time"
)

func TestAuditEventJSONRoundtrip(t *testing.T) {
	event := &AuditEvent{
		Timestamp:    time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC),
		EventType:    EventTypePermissionUpdate,
		Status:       EventStatusSuccess,
		ActorID:      "admin-1",
		ResourceType: ResourceTypePermission,
		ResourceID:   "broker-42",
		Message:      "permissions saved",
		Metadata:     map[string]interface{}{"changed": float64(3)},
		Changes: &ChangeDetails{
			Before: map[string]interface{}{"nav_home": true},
			After:  map[string]interface{}{"nav_home": false},
		},
	}

	data, err := event.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON: %v", err)
	}

	parsed, err := FromJSON(data)
	if err != nil {
		t.Fatalf("FromJSON: %v", err)
	}

	if parsed.EventType != event.EventType {
		t.Errorf("event type = %q, want %q", parsed.EventType, event.EventType)
	}
	if parsed.ActorID != "admin-1" {
		t.Errorf("actor id = %q, want admin-1", parsed.ActorID)
	}
	if parsed.Changes == nil || parsed.Changes.After["nav_home"] != false {
		t.Errorf("changes not preserved: %+v", parsed.Changes)
	}
	if !parsed.Timestamp.Equal(event.Timestamp) {
		t.Errorf("timestamp = %v, want %v", parsed.Timestamp, event.Timestamp)
	}
}

func TestFromJSONInvalid(t *testing.T) {
	if _, err := FromJSON([]byte("{not json")); err == nil {
		t.Error("expected error for invalid JSON")
	}
}

func TestDefaultRetentionPolicy(t *testing.T) {
	policy := DefaultRetentionPolicy()
	if policy.RetentionDays != 365 {
		t.Errorf("retention days = %d, want 365", policy.RetentionDays)
	}
}
