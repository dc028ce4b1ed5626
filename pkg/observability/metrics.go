package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the permission service
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Access control metrics
	RouteChecksTotal    *prometheus.CounterVec
	PermissionSaves     *prometheus.CounterVec
	PermissionResets    prometheus.Counter
	ChangedKeysPerSave  prometheus.Histogram
	TemplateFallbacks   prometheus.Counter

	// Snapshot cache metrics
	CacheHitsTotal   *prometheus.CounterVec
	CacheMissesTotal prometheus.Counter

	// Database metrics
	DBConnectionsActive prometheus.Gauge
	DBConnectionsIdle   prometheus.Gauge

	registry *prometheus.Registry
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "portal_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "portal_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		RouteChecksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "portal_route_checks_total",
				Help: "Route guard decisions by result (allowed, denied, ungated)",
			},
			[]string{"result"},
		),
		PermissionSaves: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "portal_permission_saves_total",
				Help: "Permission snapshot saves by outcome",
			},
			[]string{"outcome"},
		),
		PermissionResets: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "portal_permission_resets_total",
				Help: "Resets of a principal's permissions to their role template",
			},
		),
		ChangedKeysPerSave: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "portal_permission_changed_keys",
				Help:    "Number of keys changed per successful save",
				Buckets: []float64{0, 1, 2, 5, 10, 25, 50, 100},
			},
		),
		TemplateFallbacks: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "portal_template_fallbacks_total",
				Help: "Template resolutions that fell back due to an unknown role",
			},
		),
		CacheHitsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "portal_snapshot_cache_hits_total",
				Help: "Permission snapshot cache hits by tier (l1, l2)",
			},
			[]string{"tier"},
		),
		CacheMissesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "portal_snapshot_cache_misses_total",
				Help: "Permission snapshot cache misses",
			},
		),
		DBConnectionsActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "portal_db_connections_active",
				Help: "Active database connections",
			},
		),
		DBConnectionsIdle: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "portal_db_connections_idle",
				Help: "Idle database connections",
			},
		),
		registry: registry,
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.RouteChecksTotal,
		m.PermissionSaves,
		m.PermissionResets,
		m.ChangedKeysPerSave,
		m.TemplateFallbacks,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
		m.DBConnectionsActive,
		m.DBConnectionsIdle,
	)

	return m
}

// Handler returns the HTTP handler serving the /metrics endpoint
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// InstrumentHandler wraps an HTTP handler with request count and
// duration metrics. The path label uses the mux route template, not the
// raw URL, to keep cardinality bounded.
func (m *Metrics) InstrumentHandler(path string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		m.HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(rec.status)).Inc()
		m.HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
	})
}

// statusRecorder captures the response status code
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
