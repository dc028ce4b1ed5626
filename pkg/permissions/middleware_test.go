package permissions

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/brokerhive/portal/pkg/contextkeys"
	mw "github.com/brokerhive/portal/pkg/middleware"
	"github.com/brokerhive/portal/pkg/observability"
)

// fixedSource serves a static permission set, or an error.
type fixedSource struct {
	perms Set
	err   error
}

func (s *fixedSource) GetPermissions(ctx context.Context, brokerID string) (Set, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.perms, nil
}

func guardRequest(t *testing.T, guard *RouteGuard, path string, principal *mw.Principal) *httptest.ResponseRecorder {
	t.Helper()
	handler := guard.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	r := httptest.NewRequest("GET", path, nil)
	if principal != nil {
		r = r.WithContext(contextkeys.WithPrincipal(r.Context(), principal))
	}
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)
	return w
}

func TestRouteGuard(t *testing.T) {
	catalog := testCatalog(t)
	routes := testRouteTable(t, catalog)
	principal := &mw.Principal{ID: "b1", Role: RoleBroker}

	t.Run("allowed with permission", func(t *testing.T) {
		guard := NewRouteGuard(&fixedSource{perms: Set{"nav_sales": true}}, routes, nil, testLogger())
		w := guardRequest(t, guard, "/portal/sales", principal)
		if w.Code != http.StatusOK {
			t.Errorf("status = %d, want 200", w.Code)
		}
	})

	t.Run("denied without permission", func(t *testing.T) {
		guard := NewRouteGuard(&fixedSource{perms: Set{"nav_home": true}}, routes, nil, testLogger())
		w := guardRequest(t, guard, "/portal/sales", principal)
		if w.Code != http.StatusForbidden {
			t.Errorf("status = %d, want 403", w.Code)
		}
	})

	t.Run("ungated path passes without auth", func(t *testing.T) {
		guard := NewRouteGuard(&fixedSource{perms: Set{}}, routes, nil, testLogger())
		w := guardRequest(t, guard, "/public/login", nil)
		if w.Code != http.StatusOK {
			t.Errorf("status = %d, want 200", w.Code)
		}
	})

	t.Run("gated path requires auth", func(t *testing.T) {
		guard := NewRouteGuard(&fixedSource{perms: Set{}}, routes, nil, testLogger())
		w := guardRequest(t, guard, "/portal", nil)
		if w.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", w.Code)
		}
	})

	t.Run("unknown principal is forbidden", func(t *testing.T) {
		guard := NewRouteGuard(&fixedSource{err: ErrBrokerNotFound}, routes, nil, testLogger())
		w := guardRequest(t, guard, "/portal", principal)
		if w.Code != http.StatusForbidden {
			t.Errorf("status = %d, want 403", w.Code)
		}
	})

	t.Run("lookup failure is a 500", func(t *testing.T) {
		guard := NewRouteGuard(&fixedSource{err: errors.New("db down")}, routes, nil, testLogger())
		w := guardRequest(t, guard, "/portal", principal)
		if w.Code != http.StatusInternalServerError {
			t.Errorf("status = %d, want 500", w.Code)
		}
	})

	t.Run("longest prefix governs the check", func(t *testing.T) {
		// Principal holds the parent key but not the leads child.
		guard := NewRouteGuard(&fixedSource{perms: Set{"nav_sales": true}}, routes, nil, testLogger())
		w := guardRequest(t, guard, "/portal/sales/leads/42", principal)
		if w.Code != http.StatusForbidden {
			t.Errorf("status = %d, want 403 for child-gated path", w.Code)
		}
	})
}

func TestRouteGuardMetrics(t *testing.T) {
	catalog := testCatalog(t)
	routes := testRouteTable(t, catalog)
	metrics := observability.NewMetrics(prometheus.NewRegistry())
	guard := NewRouteGuard(&fixedSource{perms: Set{"nav_home": true}}, routes, metrics, testLogger())
	principal := &mw.Principal{ID: "b1"}

	guardRequest(t, guard, "/portal", principal)        // allowed
	guardRequest(t, guard, "/portal/sales", principal)  // denied
	guardRequest(t, guard, "/public/healthz", principal) // ungated

	checks := map[string]float64{"allowed": 1, "denied": 1, "ungated": 1}
	for result, want := range checks {
		if got := testutil.ToFloat64(metrics.RouteChecksTotal.WithLabelValues(result)); got != want {
			t.Errorf("%s checks = %v, want %v", result, got, want)
		}
	}
}
