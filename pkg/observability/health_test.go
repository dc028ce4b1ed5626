package observability

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
)

func TestNewHealthChecker(t *testing.T) {
	t.Run("with nil dependencies", func(t *testing.T) {
		checker := NewHealthChecker(nil, nil)
		if checker == nil {
			t.Fatal("Expected non-nil checker")
		}
	})

	t.Run("with database", func(t *testing.T) {
		db, _, err := sqlmock.New()
		if err != nil {
			t.Fatalf("Failed to create mock db: %v", err)
		}
		defer db.Close()

		checker := NewHealthChecker(db, nil)
		if checker.db == nil {
			t.Error("Expected non-nil db")
		}
	})
}

func TestHealthChecker_Liveness(t *testing.T) {
	checker := NewHealthChecker(nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	checker.Liveness(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", rec.Code)
	}

	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("Failed to unmarshal body: %v", err)
	}
	if body["status"] != StatusHealthy {
		t.Errorf("Expected status %q, got %v", StatusHealthy, body["status"])
	}
}

func TestHealthChecker_Check(t *testing.T) {
	t.Run("healthy database", func(t *testing.T) {
		db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
		if err != nil {
			t.Fatalf("Failed to create mock db: %v", err)
		}
		defer db.Close()
		mock.ExpectPing()

		checker := NewHealthChecker(db, nil)
		status := checker.Check(context.Background())

		if status.Status != StatusHealthy {
			t.Errorf("Expected status %q, got %q", StatusHealthy, status.Status)
		}
		if status.Dependencies["database"].Status != StatusHealthy {
			t.Errorf("Expected healthy database dependency, got %+v", status.Dependencies["database"])
		}
	})

	t.Run("healthy redis", func(t *testing.T) {
		mr, err := miniredis.Run()
		if err != nil {
			t.Fatalf("Failed to start miniredis: %v", err)
		}
		defer mr.Close()

		client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		defer client.Close()

		checker := NewHealthChecker(nil, client)
		status := checker.Check(context.Background())

		if status.Status != StatusHealthy {
			t.Errorf("Expected status %q, got %q", StatusHealthy, status.Status)
		}
	})

	t.Run("redis failure degrades", func(t *testing.T) {
		db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
		if err != nil {
			t.Fatalf("Failed to create mock db: %v", err)
		}
		defer db.Close()
		mock.ExpectPing()

		mr, err := miniredis.Run()
		if err != nil {
			t.Fatalf("Failed to start miniredis: %v", err)
		}
		client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		defer client.Close()
		mr.Close()

		checker := NewHealthChecker(db, client)
		status := checker.Check(context.Background())

		if status.Status != StatusDegraded {
			t.Errorf("Expected status %q when only redis is down, got %q", StatusDegraded, status.Status)
		}
	})
}

func TestHealthChecker_Readiness(t *testing.T) {
	t.Run("unhealthy database returns 503", func(t *testing.T) {
		db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
		if err != nil {
			t.Fatalf("Failed to create mock db: %v", err)
		}
		mock.ExpectPing().WillReturnError(context.DeadlineExceeded)

		checker := NewHealthChecker(db, nil)

		req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
		rec := httptest.NewRecorder()
		checker.Readiness(rec, req)

		if rec.Code != http.StatusServiceUnavailable {
			t.Errorf("Expected status 503, got %d", rec.Code)
		}
	})

	t.Run("healthy returns 200", func(t *testing.T) {
		db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
		if err != nil {
			t.Fatalf("Failed to create mock db: %v", err)
		}
		defer db.Close()
		mock.ExpectPing()

		checker := NewHealthChecker(db, nil)

		req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
		rec := httptest.NewRecorder()
		checker.Readiness(rec, req)

		if rec.Code != http.StatusOK {
			t.Errorf("Expected status 200, got %d", rec.Code)
		}
	})
}
