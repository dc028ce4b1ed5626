package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/gorilla/mux"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/robfig/cron/v3"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/sync/errgroup"

	"github.com/brokerhive/portal/pkg/audit"
	"github.com/brokerhive/portal/pkg/config"
	"github.com/brokerhive/portal/pkg/httputil"
	"github.com/brokerhive/portal/pkg/middleware"
	"github.com/brokerhive/portal/pkg/observability"
	"github.com/brokerhive/portal/pkg/permissions"
)

func main() {
	if err := run(); err != nil {
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		observability.NewLogger(observability.ErrorLevel, os.Stderr).
			WithError(err).Error("Invalid configuration")
		return err
	}

	logger := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Tracing
	otelProviders, err := observability.InitOTel(ctx, observability.OTelConfig{
		Enabled:        cfg.Observability.OTelEnabled,
		Endpoint:       cfg.Observability.OTelEndpoint,
		ServiceName:    cfg.Observability.OTelServiceName,
		ServiceVersion: cfg.Observability.OTelServiceVersion,
		Insecure:       cfg.Observability.OTelInsecure,
	}, logger)
	if err != nil {
		logger.WithError(err).Error("Failed to initialize tracing")
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		observability.ShutdownOTel(shutdownCtx, otelProviders, logger)
	}()

	// Database
	db, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		logger.WithError(err).Error("Failed to open database")
		return err
	}
	defer db.Close()
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)

	if err := db.PingContext(ctx); err != nil {
		logger.WithError(err).Error("Failed to ping database")
		return err
	}

	if err := permissions.RunMigrations(ctx, db); err != nil {
		logger.WithError(err).Error("Failed to run migrations")
		return err
	}

	// Permission catalog and role templates: YAML overrides or the
	// compiled-in defaults. Any inconsistency fails startup.
	catalog, templates, err := loadPermissionModel(cfg, logger)
	if err != nil {
		logger.WithError(err).Error("Failed to load permission model")
		return err
	}
	routeTable := permissions.DefaultRouteTable(catalog)
	navTable := permissions.DefaultNavTable(catalog)
	logger.WithField("keys", catalog.Len()).
		WithField("routes", routeTable.Len()).
		WithField("nav_entries", navTable.Len()).
		Info("Permission model loaded")

	// Optional Redis cache tier
	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
		})
		defer redisClient.Close()
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.WithError(err).Warn("Redis unreachable at startup, cache will degrade to the database")
		}
	}

	metrics := observability.NewMetrics(prometheus.NewRegistry())

	store := permissions.NewStore(db, catalog, templates, logger)
	cache := permissions.NewSnapshotCache(store, redisClient, permissions.SnapshotCacheConfig{
		MaxEntries: cfg.Permissions.CacheMaxEntries,
		TTL:        cfg.Permissions.CacheTTL,
	}, metrics, logger)

	// Audit trail: database always, file alongside when configured.
	auditLogger, dbAuditLogger, err := buildAuditLogger(cfg, db, logger)
	if err != nil {
		logger.WithError(err).Error("Failed to initialize audit logging")
		return err
	}
	defer auditLogger.Close()

	handlers := permissions.NewHandlers(store, cache, catalog, templates, routeTable, navTable, auditLogger, logger)
	router := mux.NewRouter()
	handlers.RegisterRoutes(router)

	guard := permissions.NewRouteGuard(cache, routeTable, metrics, logger)

	chain := []func(http.Handler) http.Handler{
		httputil.RecoveryMiddleware(logger),
		middleware.RequestID,
		httputil.LoggingMiddleware(logger),
		httputil.CORSMiddleware(cfg.Server.AllowedOrigins),
		httputil.MaxBytesMiddleware(1 << 20),
		withAuditLogger(auditLogger),
	}
	if cfg.Auth.IntrospectURL != "" {
		validator := middleware.NewHTTPSessionValidator(cfg.Auth.IntrospectURL)
		chain = append(chain, middleware.NewAuthMiddleware(validator, cfg.Auth.Optional).Handler)
	}
	rateLimiter := middleware.NewRateLimitMiddleware()
	chain = append(chain, rateLimiter.Handler, guard.Handler)

	var apiHandler http.Handler = metrics.InstrumentHandler("api", httputil.Chain(chain...)(router))
	if cfg.Observability.OTelEnabled {
		apiHandler = otelhttp.NewHandler(apiHandler, "portal")
	}

	apiServer := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      apiHandler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Health and metrics on a separate port for probes and scraping
	health := observability.NewHealthChecker(db, redisClient)
	healthMux := http.NewServeMux()
	healthMux.HandleFunc("/healthz", health.Liveness)
	healthMux.HandleFunc("/readyz", health.Readiness)
	if cfg.Observability.MetricsEnabled {
		healthMux.Handle("/metrics", metrics.Handler())
	}
	healthServer := &http.Server{
		Addr:    cfg.Server.Host + ":" + cfg.Server.HealthPort,
		Handler: healthMux,
	}

	// Audit retention job
	scheduler := cron.New()
	_, err = scheduler.AddFunc(cfg.Audit.PruneSchedule, func() {
		pruneCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		pruneAudit(pruneCtx, store, dbAuditLogger, cfg.Audit.Retention, logger)
	})
	if err != nil {
		logger.WithError(err).Error("Invalid audit prune schedule")
		return err
	}
	scheduler.Start()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.WithField("addr", apiServer.Addr).Info("API server listening")
		if err := apiServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		logger.WithField("addr", healthServer.Addr).Info("Health server listening")
		if err := healthServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		<-scheduler.Stop().Done()
		if err := apiServer.Shutdown(shutdownCtx); err != nil {
			logger.WithError(err).Warn("API server shutdown failed")
		}
		if err := healthServer.Shutdown(shutdownCtx); err != nil {
			logger.WithError(err).Warn("Health server shutdown failed")
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.WithError(err).Error("Server error")
		return err
	}
	logger.Info("Stopped")
	return nil
}

// loadPermissionModel builds the catalog and templates from YAML files
// when configured, falling back to the compiled-in defaults.
func loadPermissionModel(cfg *config.Config, logger *observability.Logger) (*permissions.Catalog, *permissions.Templates, error) {
	var catalog *permissions.Catalog
	var err error

	if cfg.Permissions.CatalogPath != "" {
		catalog, err = permissions.LoadCatalogFile(cfg.Permissions.CatalogPath)
		if err != nil {
			return nil, nil, err
		}
	} else {
		catalog = permissions.DefaultCatalog()
	}

	if cfg.Permissions.TemplatesPath != "" {
		f, err := os.Open(cfg.Permissions.TemplatesPath)
		if err != nil {
			return nil, nil, err
		}
		defer f.Close()

		templates, err := permissions.LoadTemplates(f, catalog, logger)
		if err != nil {
			return nil, nil, err
		}
		return catalog, templates, nil
	}

	return catalog, permissions.DefaultTemplates(catalog), nil
}

// buildAuditLogger wires the configured audit destinations.
func buildAuditLogger(cfg *config.Config, db *sql.DB, logger *observability.Logger) (audit.Logger, *audit.DBLogger, error) {
	dbLogger, err := audit.NewDBLogger(db)
	if err != nil {
		return nil, nil, err
	}

	if !cfg.Audit.FileEnabled {
		return dbLogger, dbLogger, nil
	}

	fileLogger, err := audit.NewFileLogger(audit.FileLoggerConfig{
		BasePath: cfg.Audit.FilePath,
		Rotate:   true,
	})
	if err != nil {
		return nil, nil, err
	}
	logger.WithField("path", cfg.Audit.FilePath).Info("File audit logging enabled")
	return audit.NewMultiLogger(dbLogger, fileLogger), dbLogger, nil
}

// withAuditLogger puts the audit logger on every request context so
// handlers can use audit.FromContext.
func withAuditLogger(auditLogger audit.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(audit.WithLogger(r.Context(), auditLogger)))
		})
	}
}

// pruneAudit enforces the retention window on both audit stores.
func pruneAudit(ctx context.Context, store *permissions.Store, dbLogger *audit.DBLogger, retention time.Duration, logger *observability.Logger) {
	pruned, err := store.PruneAuditLog(ctx, retention)
	if err != nil {
		logger.WithError(err).Error("Failed to prune permission audit log")
	} else if pruned > 0 {
		logger.WithField("rows", pruned).Info("Pruned permission audit log")
	}

	days := int(retention.Hours() / 24)
	deleted, err := dbLogger.Prune(ctx, audit.RetentionPolicy{RetentionDays: days})
	if err != nil {
		logger.WithError(err).Error("Failed to prune audit events")
	} else if deleted > 0 {
		logger.WithField("rows", deleted).Info("Pruned audit events")
	}
}
