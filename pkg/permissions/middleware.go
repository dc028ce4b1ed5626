package permissions

import (
	"context"
	"errors"
	"net/http"

	"github.com/brokerhive/portal/pkg/httputil"
	mw "github.com/brokerhive/portal/pkg/middleware"
	"github.com/brokerhive/portal/pkg/observability"
)

// Source yields a principal's effective permission set. Both Store and
// SnapshotCache satisfy it; the guard does not care which tier it reads
// from.
type Source interface {
	GetPermissions(ctx context.Context, brokerID string) (Set, error)
}

// RouteGuard denies requests whose path maps to a permission the
// principal does not hold. Paths outside the route table pass through
// untouched.
type RouteGuard struct {
	source  Source
	routes  *RouteTable
	metrics *observability.Metrics
	logger  *observability.Logger
}

// NewRouteGuard creates the guard middleware.
func NewRouteGuard(source Source, routes *RouteTable, metrics *observability.Metrics, logger *observability.Logger) *RouteGuard {
	if logger == nil {
		logger = observability.NewLogger(observability.InfoLevel, nil)
	}
	return &RouteGuard{source: source, routes: routes, metrics: metrics, logger: logger}
}

// Handler wraps next with the permission check. It requires the auth
// middleware to have run first; an unauthenticated request to a gated
// path is a 401.
func (g *RouteGuard) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key, gated := g.routes.Resolve(r.URL.Path)
		if !gated {
			g.count("ungated")
			next.ServeHTTP(w, r)
			return
		}

		principal := mw.GetPrincipal(r)
		if principal == nil {
			g.count("denied")
			httputil.WriteUnauthorized(w, "authentication required")
			return
		}

		perms, err := g.source.GetPermissions(r.Context(), principal.ID)
		if err != nil {
			if errors.Is(err, ErrBrokerNotFound) {
				g.count("denied")
				httputil.WriteForbidden(w, "unknown principal")
				return
			}
			g.logger.WithError(err).
				WithField("broker_id", principal.ID).
				Error("permission lookup failed")
			httputil.WriteInternalError(w, errors.New("permission check failed"))
			return
		}

		if !perms.Enabled(key) {
			g.count("denied")
			g.logger.WithField("broker_id", principal.ID).
				WithField("path", r.URL.Path).
				WithField("key", string(key)).
				Info("route access denied")
			httputil.WriteForbidden(w, "insufficient permissions")
			return
		}

		g.count("allowed")
		next.ServeHTTP(w, r)
	})
}

func (g *RouteGuard) count(result string) {
	if g.metrics != nil {
		g.metrics.RouteChecksTotal.WithLabelValues(result).Inc()
	}
}
