package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/brokerhive/portal/pkg/observability"
)

// Config holds all application configuration
type Config struct {
	Server        ServerConfig
	Database      DatabaseConfig
	Redis         RedisConfig
	Auth          AuthConfig
	Permissions   PermissionsConfig
	Audit         AuditConfig
	Observability ObservabilityConfig
}

// AuthConfig holds session validation settings
type AuthConfig struct {
	// IntrospectURL is the identity service endpoint that resolves
	// bearer tokens to principals.
	IntrospectURL string
	// Optional lets unauthenticated requests through to ungated routes;
	// gated routes still deny them.
	Optional bool
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	// Health/metrics server (separate port for k8s probes)
	HealthPort string

	// CORS origins allowed to call the API. "*" allows any origin.
	AllowedOrigins []string
}

// DatabaseConfig holds PostgreSQL settings
type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// RedisConfig holds the optional snapshot cache tier
type RedisConfig struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
	PoolSize int
}

// PermissionsConfig holds permission engine settings
type PermissionsConfig struct {
	// CatalogPath and TemplatesPath point at YAML definitions. Empty
	// paths fall back to the compiled-in defaults.
	CatalogPath   string
	TemplatesPath string

	// Cache settings for the snapshot cache.
	CacheMaxEntries int
	CacheTTL        time.Duration
}

// AuditConfig holds audit trail settings
type AuditConfig struct {
	// FileEnabled adds a file logger next to the database logger.
	FileEnabled bool
	FilePath    string

	// Retention controls the prune job for both audit stores.
	Retention     time.Duration
	PruneSchedule string // cron expression
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	LogLevel       observability.LogLevel
	MetricsEnabled bool

	OTelEnabled        bool
	OTelEndpoint       string
	OTelServiceName    string
	OTelServiceVersion string
	OTelInsecure       bool
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Server:        loadServerConfig(),
		Database:      loadDatabaseConfig(),
		Redis:         loadRedisConfig(),
		Auth:          loadAuthConfig(),
		Permissions:   loadPermissionsConfig(),
		Audit:         loadAuditConfig(),
		Observability: loadObservabilityConfig(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func loadServerConfig() ServerConfig {
	return ServerConfig{
		Host:            getEnv("PORTAL_HOST", "0.0.0.0"),
		Port:            getEnv("PORTAL_PORT", "8080"),
		ReadTimeout:     getEnvDuration("PORTAL_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:    getEnvDuration("PORTAL_WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:     getEnvDuration("PORTAL_IDLE_TIMEOUT", 60*time.Second),
		ShutdownTimeout: getEnvDuration("PORTAL_SHUTDOWN_TIMEOUT", 30*time.Second),
		HealthPort:      getEnv("PORTAL_HEALTH_PORT", "9090"),
		AllowedOrigins:  splitAndTrim(getEnv("PORTAL_ALLOWED_ORIGINS", "*")),
	}
}

func loadDatabaseConfig() DatabaseConfig {
	return DatabaseConfig{
		URL:             getEnv("PORTAL_POSTGRES_URL", ""),
		MaxOpenConns:    getEnvInt("PORTAL_POSTGRES_MAX_CONNS", 25),
		MaxIdleConns:    getEnvInt("PORTAL_POSTGRES_IDLE_CONNS", 5),
		ConnMaxLifetime: getEnvDuration("PORTAL_POSTGRES_CONN_LIFETIME", 30*time.Minute),
	}
}

func loadRedisConfig() RedisConfig {
	return RedisConfig{
		Enabled:  getEnvBool("PORTAL_REDIS_ENABLED", false),
		Addr:     getEnv("PORTAL_REDIS_ADDR", "localhost:6379"),
		Password: getEnv("PORTAL_REDIS_PASSWORD", ""),
		DB:       getEnvInt("PORTAL_REDIS_DB", 0),
		PoolSize: getEnvInt("PORTAL_REDIS_POOL_SIZE", 10),
	}
}

func loadAuthConfig() AuthConfig {
	return AuthConfig{
		IntrospectURL: getEnv("PORTAL_AUTH_INTROSPECT_URL", ""),
		Optional:      getEnvBool("PORTAL_AUTH_OPTIONAL", true),
	}
}

func loadPermissionsConfig() PermissionsConfig {
	return PermissionsConfig{
		CatalogPath:     getEnv("PORTAL_CATALOG_PATH", ""),
		TemplatesPath:   getEnv("PORTAL_TEMPLATES_PATH", ""),
		CacheMaxEntries: getEnvInt("PORTAL_PERMISSION_CACHE_SIZE", 1024),
		CacheTTL:        getEnvDuration("PORTAL_PERMISSION_CACHE_TTL", 5*time.Minute),
	}
}

func loadAuditConfig() AuditConfig {
	return AuditConfig{
		FileEnabled:   getEnvBool("PORTAL_AUDIT_FILE_ENABLED", false),
		FilePath:      getEnv("PORTAL_AUDIT_FILE_PATH", "/var/log/portal/audit"),
		Retention:     getEnvDuration("PORTAL_AUDIT_RETENTION", 365*24*time.Hour),
		PruneSchedule: getEnv("PORTAL_AUDIT_PRUNE_SCHEDULE", "0 3 * * *"),
	}
}

func loadObservabilityConfig() ObservabilityConfig {
	return ObservabilityConfig{
		LogLevel:           parseLogLevel(getEnv("PORTAL_LOG_LEVEL", "info")),
		MetricsEnabled:     getEnvBool("PORTAL_METRICS_ENABLED", true),
		OTelEnabled:        getEnvBool("PORTAL_OTEL_ENABLED", false),
		OTelEndpoint:       getEnv("PORTAL_OTEL_ENDPOINT", "localhost:4317"),
		OTelServiceName:    getEnv("PORTAL_OTEL_SERVICE_NAME", "broker-portal"),
		OTelServiceVersion: getEnv("PORTAL_OTEL_SERVICE_VERSION", "1.0.0"),
		OTelInsecure:       getEnvBool("PORTAL_OTEL_INSECURE", true),
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Server.HealthPort == "" {
		return fmt.Errorf("health port is required")
	}
	if c.Server.Port == c.Server.HealthPort {
		return fmt.Errorf("server port and health port must be different")
	}

	if c.Database.URL == "" {
		return fmt.Errorf("postgres URL is required (set PORTAL_POSTGRES_URL)")
	}

	if c.Redis.Enabled && c.Redis.Addr == "" {
		return fmt.Errorf("redis address is required when redis is enabled")
	}

	if c.Auth.IntrospectURL == "" && !c.Auth.Optional {
		return fmt.Errorf("auth introspect URL is required when authentication is mandatory")
	}

	if c.Permissions.CacheMaxEntries <= 0 {
		return fmt.Errorf("permission cache size must be positive")
	}
	if c.Permissions.CacheTTL <= 0 {
		return fmt.Errorf("permission cache TTL must be positive")
	}

	if c.Audit.Retention < 24*time.Hour {
		return fmt.Errorf("audit retention must be at least 24h")
	}
	if c.Audit.FileEnabled && c.Audit.FilePath == "" {
		return fmt.Errorf("audit file path is required when file logging is enabled")
	}

	if c.Observability.OTelEnabled {
		if c.Observability.OTelEndpoint == "" {
			return fmt.Errorf("OpenTelemetry endpoint is required when OTel is enabled")
		}
		if c.Observability.OTelServiceName == "" {
			return fmt.Errorf("OpenTelemetry service name is required when OTel is enabled")
		}
	}

	return nil
}

// parseLogLevel parses a log level string
func parseLogLevel(level string) observability.LogLevel {
	switch strings.ToLower(level) {
	case "debug":
		return observability.DebugLevel
	case "info":
		return observability.InfoLevel
	case "warn", "warning":
		return observability.WarnLevel
	case "error":
		return observability.ErrorLevel
	default:
		return observability.InfoLevel
	}
}

func splitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
