package bootstrap

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"linkedin-optimizer/internal/llm"
	"linkedin-optimizer/internal/progress"
	"linkedin-optimizer/internal/shared/config"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	return config.Config{
		Env:               "dev",
		LogLevel:          "info",
		MaxFileSize:       10 << 20,
		LLMProvider:       "openai",
		LLMModel:          "gpt-4o",
		LLMMaxTokens:      4000,
		LLMTimeoutSeconds: 120,
		ProgressStore:     "memory",
		DynamoTable:       "linkedin-optimization-results",
		ResultTTLDays:     30,
		ObjectStoreType:   "local",
		LocalStoreDir:     t.TempDir(),
		WorkerConcurrency: 1,
	}
}

func TestBuildWiresMemoryStack(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := testConfig(t)
	cfg.OpenAIAPIKey = "sk-test-0123456789abcdef"

	app, err := Build(cfg)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if _, ok := app.Progress.(*progress.MemoryStore); !ok {
		t.Fatalf("expected memory progress store, got %T", app.Progress)
	}
	if app.Queue != nil {
		t.Fatalf("expected no queue without QUEUE_URL")
	}
	if app.DB != nil {
		t.Fatalf("expected no database for memory store")
	}
	if app.Workflow == nil || app.Handler == nil || app.Router == nil {
		t.Fatalf("expected workflow, handler and router to be wired")
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	resp := httptest.NewRecorder()
	app.Router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
}

func TestBuildWithoutServerKey(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := testConfig(t)
	cfg.ProgressStore = "disabled"

	app, err := Build(cfg)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if app.Progress.Enabled() {
		t.Fatalf("expected disabled progress store")
	}
	if _, ok := app.LLM.(llm.KeyedGenerator); !ok {
		t.Fatalf("expected generator to accept per-request keys, got %T", app.LLM)
	}

	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	fw, err := w.CreateFormFile("file", "profile.pdf")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	fw.Write([]byte("%PDF-1.4"))
	w.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/optimize-profile", body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	resp := httptest.NewRecorder()
	app.Router.ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), "OpenAI API key required") {
		t.Fatalf("unexpected body: %s", resp.Body.String())
	}
}

func TestBuildRejectsMissingPrompts(t *testing.T) {
	cfg := testConfig(t)
	cfg.OpenAIAPIKey = "sk-test-0123456789abcdef"
	cfg.PromptsFile = t.TempDir() + "/missing.yaml"

	if _, err := Build(cfg); err == nil {
		t.Fatalf("expected error for missing prompts file")
	}
}
