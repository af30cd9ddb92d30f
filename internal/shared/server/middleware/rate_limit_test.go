package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

// frozenRouter rate limits with a clock that never advances, so only the
// burst is available to each group.
func frozenRouter(groupFor func(*gin.Context) string, rules map[string]RateLimitRule) *gin.Engine {
	gin.SetMode(gin.TestMode)
	now := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)

	r := gin.New()
	r.Use(RateLimit(RateLimitConfig{
		DefaultGroup: "DEFAULT",
		GroupFor:     groupFor,
		Limiter:      NewRateLimiter(func() time.Time { return now }),
		Rules:        rules,
	}))
	ok := func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": true}) }
	r.GET("/api/v1/progress/:id", ok)
	r.POST("/api/v1/optimize-profile", ok)
	return r
}

func hit(r *gin.Engine, method, path string) *httptest.ResponseRecorder {
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(method, path, nil))
	return resp
}

func TestRateLimitGroupsHaveSeparateBudgets(t *testing.T) {
	r := frozenRouter(func(c *gin.Context) string {
		if c.FullPath() == "/api/v1/progress/:id" {
			return "POLLING"
		}
		return "DEFAULT"
	}, map[string]RateLimitRule{
		"DEFAULT": {Rate: 1, Burst: 2},
		"POLLING": {Rate: 5, Burst: 10},
	})

	for i := 1; i <= 3; i++ {
		if code := hit(r, http.MethodGet, "/api/v1/progress/opt-123456").Code; code != http.StatusOK {
			t.Fatalf("poll %d: status %d", i, code)
		}
	}
	for i := 1; i <= 2; i++ {
		if code := hit(r, http.MethodPost, "/api/v1/optimize-profile").Code; code != http.StatusOK {
			t.Fatalf("upload %d: status %d", i, code)
		}
	}
	if code := hit(r, http.MethodPost, "/api/v1/optimize-profile").Code; code != http.StatusTooManyRequests {
		t.Fatalf("upload over burst: status %d, want 429", code)
	}
}

func TestRateLimitRejectionEnvelope(t *testing.T) {
	r := frozenRouter(func(*gin.Context) string { return "DEFAULT" },
		map[string]RateLimitRule{"DEFAULT": {Rate: 1, Burst: 1}})

	if code := hit(r, http.MethodGet, "/api/v1/progress/opt-123456").Code; code != http.StatusOK {
		t.Fatalf("first request: status %d", code)
	}
	resp := hit(r, http.MethodGet, "/api/v1/progress/opt-123456")
	if resp.Code != http.StatusTooManyRequests {
		t.Fatalf("second request: status %d, want 429", resp.Code)
	}
	if resp.Header().Get("Retry-After") == "" {
		t.Fatal("expected Retry-After header")
	}

	var payload struct {
		Error struct {
			Code    string         `json:"code"`
			Details map[string]any `json:"details"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload.Error.Code != "rate_limited" {
		t.Fatalf("code = %q", payload.Error.Code)
	}
	if payload.Error.Details["group"] != "DEFAULT" {
		t.Fatalf("group detail = %v", payload.Error.Details["group"])
	}
	if _, ok := payload.Error.Details["retry_after_ms"]; !ok {
		t.Fatal("expected retry_after_ms in details")
	}
}

func TestRateLimiterPrunesIdleBuckets(t *testing.T) {
	now := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)
	limiter := NewRateLimiter(func() time.Time { return now })
	rule := RateLimitRule{Rate: 1, Burst: 1}

	limiter.Allow("idle|DEFAULT", rule)
	now = now.Add(bucketIdleTTL + time.Minute)
	for i := 0; i < pruneEvery; i++ {
		limiter.Allow("busy|DEFAULT", rule)
	}
	if got := limiter.Len(); got != 1 {
		t.Fatalf("expected idle bucket to be pruned, have %d buckets", got)
	}
}

func TestRateLimiterUnlimitedRule(t *testing.T) {
	limiter := NewRateLimiter(nil)
	for i := 0; i < 5; i++ {
		if ok, _ := limiter.Allow("k", RateLimitRule{}); !ok {
			t.Fatalf("zero rule should not limit")
		}
	}
	if limiter.Len() != 0 {
		t.Fatalf("zero rule should not allocate buckets")
	}
}
