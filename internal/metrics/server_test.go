package metrics

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestServerRoutes(t *testing.T) {
	m := New()
	m.StepsCreatedTotal.Inc()

	t.Run("metrics exposed", func(t *testing.T) {
		s := NewServer(m, ":0", "/metrics", nil, discardLogger())
		req := httptest.NewRequest("GET", "/metrics", nil)
		rec := httptest.NewRecorder()
		s.routes().ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
		}
		if !strings.Contains(rec.Body.String(), "leadflow_steps_created_total") {
			t.Error("metrics output missing leadflow_steps_created_total")
		}
	})

	t.Run("denied IP", func(t *testing.T) {
		s := NewServer(m, ":0", "/metrics", []string{"192.168.1.0/24"}, discardLogger())
		req := httptest.NewRequest("GET", "/metrics", nil)
		req.RemoteAddr = "10.0.0.1:12345"
		rec := httptest.NewRecorder()
		s.routes().ServeHTTP(rec, req)

		if rec.Code != http.StatusForbidden {
			t.Errorf("status = %d, want %d", rec.Code, http.StatusForbidden)
		}
	})

	t.Run("health skips filter", func(t *testing.T) {
		s := NewServer(m, ":0", "/metrics", []string{"192.168.1.0/24"}, discardLogger())
		req := httptest.NewRequest("GET", "/health", nil)
		req.RemoteAddr = "10.0.0.1:12345"
		rec := httptest.NewRecorder()
		s.routes().ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
		}
	})
}
