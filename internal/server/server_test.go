package server_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Yotam17/nl2sql/internal/config"
	"github.com/Yotam17/nl2sql/internal/handler"
	"github.com/Yotam17/nl2sql/internal/middleware"
	"github.com/Yotam17/nl2sql/internal/pipeline"
	"github.com/Yotam17/nl2sql/internal/security"
	"github.com/Yotam17/nl2sql/internal/server"
)

type echoAsker struct{}

func (echoAsker) Run(_ context.Context, query string) (*pipeline.State, error) {
	return pipeline.NewState(query), nil
}

func newRouter(t *testing.T, cfg *config.Config) http.Handler {
	t.Helper()
	audit := security.NewAuditLogger(false)
	h := server.Handlers{
		Health: handler.NewHealthHandler(nil),
		Ask:    handler.NewAskHandler(echoAsker{}, audit),
		Query:  handler.NewQueryHandler(nil, security.NewSQLValidator(), audit),
	}
	limiter := middleware.NewMemoryLimiter(cfg.RateLimitPerMinute)
	t.Cleanup(func() { limiter.Close() })
	return server.NewRouter(cfg, h, limiter)
}

func do(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(method, path, strings.NewReader(body)))
	return rr
}

func TestRouterEndpoints(t *testing.T) {
	cfg := config.Default()
	r := newRouter(t, cfg)

	tests := []struct {
		method, path, body string
		code               int
	}{
		{http.MethodGet, "/health", "", http.StatusOK},
		{http.MethodGet, "/", "", http.StatusOK},
		{http.MethodPost, "/api/v1/ask", `{"query": "show customers"}`, http.StatusOK},
		{http.MethodPost, "/api/v1/ask", `{"query": ""}`, http.StatusBadRequest},
		{http.MethodPost, "/api/v1/query", `{"sql": "DROP TABLE customers"}`, http.StatusBadRequest},
		{http.MethodGet, "/api/v1/ask", "", http.StatusMethodNotAllowed},
		{http.MethodGet, "/api/v1/unknown", "", http.StatusNotFound},
	}
	for _, tt := range tests {
		rr := do(r, tt.method, tt.path, tt.body)
		if rr.Code != tt.code {
			t.Errorf("%s %s: got %d, want %d", tt.method, tt.path, rr.Code, tt.code)
		}
		if rr.Header().Get("X-Request-ID") == "" {
			t.Errorf("%s %s: missing X-Request-ID", tt.method, tt.path)
		}
		if rr.Header().Get("X-Content-Type-Options") != "nosniff" {
			t.Errorf("%s %s: missing security headers", tt.method, tt.path)
		}
	}
}

func TestRouterMetrics(t *testing.T) {
	cfg := config.Default()
	cfg.MetricsEnabled = true
	if rr := do(newRouter(t, cfg), http.MethodGet, "/metrics", ""); rr.Code != http.StatusOK {
		t.Errorf("metrics enabled: got %d", rr.Code)
	}

	cfg.MetricsEnabled = false
	if rr := do(newRouter(t, cfg), http.MethodGet, "/metrics", ""); rr.Code != http.StatusNotFound {
		t.Errorf("metrics disabled: got %d", rr.Code)
	}
}

func TestRouterRateLimitsAPIOnly(t *testing.T) {
	cfg := config.Default()
	cfg.RateLimitPerMinute = 1
	r := newRouter(t, cfg)

	if rr := do(r, http.MethodPost, "/api/v1/ask", `{"query": "a"}`); rr.Code != http.StatusOK {
		t.Fatalf("first request: got %d", rr.Code)
	}
	if rr := do(r, http.MethodPost, "/api/v1/ask", `{"query": "b"}`); rr.Code != http.StatusTooManyRequests {
		t.Errorf("second request: got %d, want 429", rr.Code)
	}
	if rr := do(r, http.MethodGet, "/health", ""); rr.Code != http.StatusOK {
		t.Errorf("health must not be rate limited, got %d", rr.Code)
	}
}
