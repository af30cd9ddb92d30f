package server

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"linkedin-optimizer/internal/optimizations"
	"linkedin-optimizer/internal/progress"
	"linkedin-optimizer/internal/shared/config"
	"linkedin-optimizer/internal/shared/metrics"
	"linkedin-optimizer/internal/workflow"
)

func newTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := optimizations.NewHandler(optimizations.Deps{
		Workflow:      workflow.New(workflow.Deps{Store: progress.NewMemoryStore(0)}),
		Provider:      "openai",
		HasDefaultKey: true,
	})
	return NewRouter(RouterDeps{
		Config:        config.Config{CORSAllowOrigin: []string{"http://localhost:3000"}},
		Optimizations: h,
	})
}

func TestRouterServesHealth(t *testing.T) {
	r := newTestRouter()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if resp.Header().Get("X-Request-Id") == "" {
		t.Fatalf("expected request id header")
	}
}

func TestRouterServesMetrics(t *testing.T) {
	r := newTestRouter()
	metrics.IncOptimizationStarted()

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if ct := resp.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Fatalf("unexpected content type %q", ct)
	}
	if !strings.Contains(resp.Body.String(), "optimization_started_total") {
		t.Fatalf("expected optimization_started_total in body: %s", resp.Body.String())
	}
}

func TestRateLimitGroups(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cases := map[string]string{
		"/api/v1/optimize-profile": groupOptimize,
		"/api/v1/posts":            groupOptimize,
		"/api/v1/progress/:id":     groupPolling,
		"/api/v1/results/:id":      groupDefault,
	}
	for path, want := range cases {
		var got string
		r := gin.New()
		r.Any(path, func(c *gin.Context) { got = rateLimitGroup(c) })
		target := strings.Replace(path, ":id", "opt-123456", 1)
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, target, nil))
		if got != want {
			t.Fatalf("%s: expected group %s, got %s", path, want, got)
		}
	}
}

func TestAddr(t *testing.T) {
	cases := map[string]string{"": ":8080", "9000": ":9000", ":7000": ":7000"}
	for in, want := range cases {
		if got := Addr(in); got != want {
			t.Fatalf("Addr(%q) = %q, want %q", in, got, want)
		}
	}
}
