package audit

import (
	"encoding/json"
	"time"
)

// EventType identifies the kind of audited action
type EventType string

const (
	// Permission lifecycle events
	EventTypePermissionUpdate EventType = "permission.update"
	EventTypePermissionReset  EventType = "permission.reset"
	EventTypePermissionSeed   EventType = "permission.seed"

	// Authorization events
	EventTypeAccessDenied  EventType = "authz.access_denied"
	EventTypeAccessGranted EventType = "authz.access_granted"

	// Broker administration events
	EventTypeBrokerRoleChange EventType = "broker.role_change"
)

// EventStatus represents the outcome of an audited action
type EventStatus string

const (
	EventStatusSuccess EventStatus = "success"
	EventStatusFailure EventStatus = "failure"
	EventStatusDenied  EventStatus = "denied"
)

// ResourceType identifies what kind of resource an event touched
type ResourceType string

const (
	ResourceTypeBroker     ResourceType = "broker"
	ResourceTypePermission ResourceType = "permission"
	ResourceTypeTemplate   ResourceType = "template"
	ResourceTypeRoute      ResourceType = "route"
)

// AuditEvent is a single audit log entry
type AuditEvent struct {
	ID        int64       `json:"id,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	EventType EventType   `json:"event_type"`
	Status    EventStatus `json:"status"`

	// Actor information (who performed the action)
	ActorID   string `json:"actor_id,omitempty"`
	ActorName string `json:"actor_name,omitempty"`

	// Resource information (what was acted upon)
	ResourceType ResourceType `json:"resource_type,omitempty"`
	ResourceID   string       `json:"resource_id,omitempty"`

	// Request context
	IPAddress string `json:"ip_address,omitempty"`
	UserAgent string `json:"user_agent,omitempty"`
	RequestID string `json:"request_id,omitempty"`
	Method    string `json:"method,omitempty"`
	Path      string `json:"path,omitempty"`

	// Event details
	Message      string                 `json:"message,omitempty"`
	ErrorMessage string                 `json:"error_message,omitempty"`
	Metadata     map[string]interface{} `json:"metadata,omitempty"`

	// Changes tracking (before/after for permission updates)
	Changes *ChangeDetails `json:"changes,omitempty"`
}

// ChangeDetails tracks before/after values for updates
type ChangeDetails struct {
	Before map[string]interface{} `json:"before,omitempty"`
	After  map[string]interface{} `json:"after,omitempty"`
}

// ToJSON converts the audit event to JSON
func (e *AuditEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// FromJSON parses an audit event from JSON
func FromJSON(data []byte) (*AuditEvent, error) {
	var event AuditEvent
	err := json.Unmarshal(data, &event)
	return &event, err
}

// SearchFilter represents filters for querying audit events
type SearchFilter struct {
	StartTime *time.Time
	EndTime   *time.Time

	ActorID string

	EventTypes []EventType
	Status     *EventStatus

	ResourceType ResourceType
	ResourceID   string

	Limit  int
	Offset int
}

// RetentionPolicy defines how long audit events are kept
type RetentionPolicy struct {
	// RetentionDays is the number of days to keep audit events
	RetentionDays int
}

// DefaultRetentionPolicy returns the default retention policy (365 days,
// permission changes carry compliance weight for brokerage audits)
func DefaultRetentionPolicy() RetentionPolicy {
	return RetentionPolicy{RetentionDays: 365}
}
