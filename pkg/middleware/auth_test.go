package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

type stubValidator struct {
	principal *Principal
	err       error
}

func (v *stubValidator) Validate(ctx context.Context, token string) (*Principal, error) {
	if v.err != nil {
		return nil, v.err
	}
	return v.principal, nil
}

func TestAuthMiddleware_Handler(t *testing.T) {
	validator := &stubValidator{principal: &Principal{ID: "b-1", Role: "broker"}}

	t.Run("missing header rejected", func(t *testing.T) {
		m := NewAuthMiddleware(validator, false)
		handler := m.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Error("handler should not be called")
		}))

		req := httptest.NewRequest(http.MethodGet, "/api/catalog", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Errorf("expected 401, got %d", rec.Code)
		}
	})

	t.Run("missing header allowed when optional", func(t *testing.T) {
		m := NewAuthMiddleware(validator, true)
		called := false
		handler := m.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			called = true
			if GetPrincipal(r) != nil {
				t.Error("expected no principal on anonymous request")
			}
		}))

		req := httptest.NewRequest(http.MethodGet, "/api/catalog", nil)
		handler.ServeHTTP(httptest.NewRecorder(), req)

		if !called {
			t.Error("handler not called")
		}
	})

	t.Run("malformed header rejected", func(t *testing.T) {
		m := NewAuthMiddleware(validator, false)
		handler := m.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Error("handler should not be called")
		}))

		req := httptest.NewRequest(http.MethodGet, "/api/catalog", nil)
		req.Header.Set("Authorization", "Basic abc")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Errorf("expected 401, got %d", rec.Code)
		}
	})

	t.Run("invalid session rejected", func(t *testing.T) {
		m := NewAuthMiddleware(&stubValidator{err: errors.New("expired")}, false)
		handler := m.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Error("handler should not be called")
		}))

		req := httptest.NewRequest(http.MethodGet, "/api/catalog", nil)
		req.Header.Set("Authorization", "Bearer bad-token")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Errorf("expected 401, got %d", rec.Code)
		}
	})

	t.Run("valid session sets principal", func(t *testing.T) {
		m := NewAuthMiddleware(validator, false)
		handler := m.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p := GetPrincipal(r)
			if p == nil {
				t.Fatal("expected principal on context")
			}
			if p.ID != "b-1" {
				t.Errorf("expected principal b-1, got %s", p.ID)
			}
		}))

		req := httptest.NewRequest(http.MethodGet, "/api/catalog", nil)
		req.Header.Set("Authorization", "Bearer good-token")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Errorf("expected 200, got %d", rec.Code)
		}
	})
}

func TestGetPrincipal_NoContext(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if GetPrincipal(req) != nil {
		t.Error("expected nil principal on bare request")
	}
}
