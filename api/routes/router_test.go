package routes

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/paprflow/paprflow-backend/pkg/config"
	"github.com/paprflow/paprflow-backend/pkg/logger"
)

func testRouter(t *testing.T) http.Handler {
	t.Helper()
	return NewRouter(Dependencies{
		Config: &config.Config{
			App: config.AppConfig{Env: "test"},
			JWT: config.JWTConfig{Secret: "secret", Issuer: "paprflow-test", ExpirationMinutes: 10},
		},
		Logger: logger.New(logger.Options{ServiceName: "routes-test", Output: io.Discard}),
	})
}

func TestHealthLiveIsPublic(t *testing.T) {
	router := testRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if got := resp.Header().Get("X-PaprFlow-Env"); got != "test" {
		t.Fatalf("expected env header, got %q", got)
	}
}

func TestMetricsIsPublic(t *testing.T) {
	router := testRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}

func TestAPIRequiresAuth(t *testing.T) {
	router := testRouter(t)

	paths := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/v1/invoices"},
		{http.MethodPost, "/api/v1/invoices"},
		{http.MethodGet, "/api/v1/vendors"},
		{http.MethodGet, "/api/v1/rules"},
		{http.MethodGet, "/api/v1/activities"},
	}

	for _, tc := range paths {
		req := httptest.NewRequest(tc.method, tc.path, nil)
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, req)
		if resp.Code != http.StatusUnauthorized {
			t.Fatalf("%s %s: expected 401 got %d", tc.method, tc.path, resp.Code)
		}
	}
}
