// Package config loads broker portal configuration from environment
// variables.
//
// All variables share the PORTAL_ prefix. The only required setting is
// PORTAL_POSTGRES_URL; everything else has a sensible default:
//
//	PORTAL_HOST                     bind address (0.0.0.0)
//	PORTAL_PORT                     API port (8080)
//	PORTAL_HEALTH_PORT              health/metrics port (9090)
//	PORTAL_POSTGRES_URL             PostgreSQL connection string (required)
//	PORTAL_REDIS_ENABLED            enable the Redis cache tier (false)
//	PORTAL_REDIS_ADDR               Redis address (localhost:6379)
//	PORTAL_AUTH_INTROSPECT_URL      identity service session endpoint
//	PORTAL_AUTH_OPTIONAL            let anonymous requests reach ungated routes (true)
//	PORTAL_CATALOG_PATH             YAML catalog override (compiled-in default)
//	PORTAL_TEMPLATES_PATH           YAML templates override (compiled-in default)
//	PORTAL_PERMISSION_CACHE_SIZE    snapshot cache entries (1024)
//	PORTAL_PERMISSION_CACHE_TTL     snapshot cache TTL (5m)
//	PORTAL_AUDIT_RETENTION          audit retention window (8760h)
//	PORTAL_AUDIT_PRUNE_SCHEDULE     cron expression for the prune job (0 3 * * *)
//	PORTAL_LOG_LEVEL                debug, info, warn, error (info)
//	PORTAL_OTEL_ENABLED             enable trace export (false)
//
// LoadConfig fails fast: an invalid combination (for example a missing
// database URL or identical API and health ports) is returned as an
// error before any component starts.
package config
