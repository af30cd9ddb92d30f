package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func corsRouter(origins ...string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(CORS(origins))
	router.POST("/api/v1/optimize-profile", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	return router
}

func TestCORSPreflight(t *testing.T) {
	router := corsRouter("http://localhost:3000/")

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/optimize-profile", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Headers", "content-type, x-custom")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.Code)
	}
	if got := resp.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Fatalf("Allow-Origin = %q", got)
	}
	if got := resp.Header().Get("Access-Control-Allow-Headers"); got != "content-type, x-custom" {
		t.Fatalf("expected requested headers to be echoed, got %q", got)
	}
	if got := resp.Header().Get("Access-Control-Allow-Methods"); got == "" {
		t.Fatal("expected Allow-Methods header")
	}
	if got := resp.Header().Get("Access-Control-Max-Age"); got != "600" {
		t.Fatalf("Max-Age = %q", got)
	}
}

func TestCORSSimpleRequest(t *testing.T) {
	router := corsRouter("http://localhost:3000")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/optimize-profile", nil)
	req.Header.Set("Origin", "HTTP://LOCALHOST:3000")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if got := resp.Header().Get("Access-Control-Allow-Credentials"); got != "true" {
		t.Fatalf("Allow-Credentials = %q", got)
	}
	if got := resp.Header().Get("Access-Control-Expose-Headers"); got == "" {
		t.Fatal("expected Expose-Headers")
	}
	if got := resp.Header().Get("Access-Control-Allow-Methods"); got != "" {
		t.Fatalf("simple requests should not carry preflight headers, got %q", got)
	}
}

func TestCORSWildcard(t *testing.T) {
	router := corsRouter("*")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/optimize-profile", nil)
	req.Header.Set("Origin", "https://app.example.com")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if got := resp.Header().Get("Access-Control-Allow-Origin"); got != "https://app.example.com" {
		t.Fatalf("Allow-Origin = %q", got)
	}
}

func TestCORSIgnoresUnknownOrigin(t *testing.T) {
	router := corsRouter("http://localhost:3000")

	for _, method := range []string{http.MethodPost, http.MethodOptions} {
		req := httptest.NewRequest(method, "/api/v1/optimize-profile", nil)
		req.Header.Set("Origin", "http://evil.example")
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, req)

		if got := resp.Header().Get("Access-Control-Allow-Origin"); got != "" {
			t.Fatalf("%s: expected no Allow-Origin, got %q", method, got)
		}
		if got := resp.Header().Get("Vary"); got != "Origin" {
			t.Fatalf("%s: Vary = %q", method, got)
		}
	}
}
