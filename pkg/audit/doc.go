// Package audit records security-relevant events for the broker portal.
//
// Events cover permission snapshot updates and resets, template seeding,
// access denials from the route guard, and administrative actions against
// brokers. Three logger implementations are provided:
//
//   - DBLogger writes events to the audit_events table in PostgreSQL and
//     supports filtered search and retention-based pruning
//   - FileLogger appends newline-delimited JSON with size-based rotation
//   - MultiLogger fans events out to several destinations
//
// Handlers obtain the logger through the request context:
//
//	logger := audit.FromContext(r.Context())
//	logger.LogPermissionChange(ctx, audit.EventTypePermissionUpdate, actorID, brokerID, changes, "permissions saved")
//
// When no logger is configured, FromContext returns a no-op implementation
// so call sites never need nil checks.
package audit
