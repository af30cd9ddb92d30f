package optimizations

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"linkedin-optimizer/internal/analysis"
	"linkedin-optimizer/internal/content"
	"linkedin-optimizer/internal/llm"
	"linkedin-optimizer/internal/profile"
	"linkedin-optimizer/internal/progress"
	"linkedin-optimizer/internal/prompts"
	"linkedin-optimizer/internal/queue"
	localstore "linkedin-optimizer/internal/shared/storage/object/local"
	"linkedin-optimizer/internal/workflow"
)

type fakeExtractor struct{}

func (fakeExtractor) ExtractText(ctx context.Context, data []byte) (string, error) {
	return "Alan Turing\nMathematician", nil
}

// agentGenerator answers according to which stage is calling.
type agentGenerator struct {
	catalog *prompts.Catalog
	postErr error
}

func (g agentGenerator) Generate(ctx context.Context, system, user string) (llm.Completion, error) {
	collector, _ := g.catalog.System(prompts.ProfileCollector)
	analyzer, _ := g.catalog.System(prompts.ProfileAnalyzer)
	switch {
	case strings.Contains(user, " post about "):
		if g.postErr != nil {
			return llm.Completion{}, g.postErr
		}
		return llm.Completion{Content: `{"title":"On computable numbers","content":"...","hashtags":["#math"]}`}, nil
	case system == collector:
		return llm.Completion{Content: `{"personal_info":{"name":"Alan Turing","title":"Mathematician"},"skills":["Logic"]}`}, nil
	case system == analyzer:
		return llm.Completion{Content: `{"overall_score":81,"next_steps":["Add a headline"]}`}, nil
	default:
		return llm.Completion{Content: `{"content_strategy":{"posting_frequency":"twice a week"},"content_ideas":[{"topic":"Enigma"}]}`}, nil
	}
}

type testEnv struct {
	router *gin.Engine
	store  *progress.MemoryStore
	queue  *queue.MemoryClient
}

func newEnv(t *testing.T, mutate func(*Deps)) testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	catalog := prompts.Default()
	gen := agentGenerator{catalog: catalog}
	store := progress.NewMemoryStore(0)
	rec := progress.NewRecorder(store)
	posts := content.NewGenerator(gen, catalog, rec)
	q := &queue.MemoryClient{}

	deps := Deps{
		Workflow: workflow.New(workflow.Deps{
			Collector: profile.NewCollector(gen, fakeExtractor{}, catalog, rec),
			Analyzer:  analysis.NewAnalyzer(gen, catalog, rec),
			Generator: posts,
			Store:     store,
		}),
		Posts:         posts,
		Objects:       localstore.New(t.TempDir()),
		Queue:         q,
		Provider:      "openai",
		HasDefaultKey: true,
	}
	if mutate != nil {
		mutate(&deps)
	}

	r := gin.New()
	NewHandler(deps).RegisterRoutes(r.Group("/api/v1"))
	return testEnv{router: r, store: store, queue: q}
}

func (e testEnv) do(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	resp := httptest.NewRecorder()
	e.router.ServeHTTP(resp, req)
	return resp
}

func uploadRequest(t *testing.T, fileName string, data []byte, fields map[string]string) *http.Request {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for k, v := range fields {
		if err := writer.WriteField(k, v); err != nil {
			t.Fatalf("write field: %v", err)
		}
	}
	if fileName != "" {
		fw, err := writer.CreateFormFile("file", fileName)
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		if _, err := fw.Write(data); err != nil {
			t.Fatalf("write file: %v", err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/optimize-profile", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func decode(t *testing.T, resp *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

type errorEnvelope struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func expectError(t *testing.T, resp *httptest.ResponseRecorder, status int, message string) {
	t.Helper()
	if resp.Code != status {
		t.Fatalf("expected status %d, got %d: %s", status, resp.Code, resp.Body.String())
	}
	var env errorEnvelope
	decode(t, resp, &env)
	if env.Error.Message != message {
		t.Fatalf("expected message %q, got %q", message, env.Error.Message)
	}
}

func TestHealthAndCatalogues(t *testing.T) {
	env := newEnv(t, nil)

	resp := env.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))
	if resp.Code != http.StatusOK || !strings.Contains(resp.Body.String(), `"healthy"`) {
		t.Fatalf("unexpected health response %d %s", resp.Code, resp.Body.String())
	}

	resp = env.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/content/categories", nil))
	var cats struct {
		Categories []string `json:"categories"`
	}
	decode(t, resp, &cats)
	if len(cats.Categories) != 12 {
		t.Fatalf("expected 12 categories, got %d", len(cats.Categories))
	}

	resp = env.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/content/post-types", nil))
	var types struct {
		PostTypes []string `json:"post_types"`
	}
	decode(t, resp, &types)
	if len(types.PostTypes) != 8 {
		t.Fatalf("expected 8 post types, got %d", len(types.PostTypes))
	}

	resp = env.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/workflow-status/thread-1", nil))
	if !strings.Contains(resp.Body.String(), "Workflow status tracking not implemented") {
		t.Fatalf("unexpected status body: %s", resp.Body.String())
	}
}

func TestOptimizeSyncAndReadBack(t *testing.T) {
	env := newEnv(t, nil)

	resp := env.do(t, uploadRequest(t, "turing.PDF", []byte("%PDF-1.4 turing"), map[string]string{
		"target_role":     "Research Lead",
		"optimization_id": "opt-sync-001",
	}))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	var result workflow.FinalResult
	decode(t, resp, &result)
	if !result.Success || result.OptimizationID != "opt-sync-001" {
		t.Fatalf("unexpected result: %+v", result)
	}
	if result.Summary == nil || result.Summary.OptimizationScore != 81 {
		t.Fatalf("unexpected summary: %+v", result.Summary)
	}

	resp = env.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/results/opt-sync-001", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	var stored workflow.FinalResult
	decode(t, resp, &stored)
	if stored.StorageInfo == nil || stored.StorageInfo.Status != progress.StatusCompleted {
		t.Fatalf("unexpected storage info: %+v", stored.StorageInfo)
	}
	if stored.RequestMetadata["file_name"] != "turing.PDF" || stored.RequestMetadata["object_key"] == nil {
		t.Fatalf("unexpected metadata: %+v", stored.RequestMetadata)
	}

	resp = env.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/progress/opt-sync-001", nil))
	var snap progress.Snapshot
	decode(t, resp, &snap)
	if snap.Status != progress.StatusCompleted || snap.ProgressPercentage != 100 {
		t.Fatalf("unexpected progress: %+v", snap)
	}

	resp = env.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/results?limit=500", nil))
	var list struct {
		Results []progress.ResultSummary `json:"results"`
		Count   int                      `json:"count"`
	}
	decode(t, resp, &list)
	if list.Count != 1 || list.Results[0].OptimizationID != "opt-sync-001" {
		t.Fatalf("unexpected list: %+v", list)
	}

	resp = env.do(t, httptest.NewRequest(http.MethodDelete, "/api/v1/results/opt-sync-001", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected delete 200, got %d", resp.Code)
	}
	resp = env.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/results/opt-sync-001", nil))
	expectError(t, resp, http.StatusNotFound, "Optimization results not found")
}

func TestOptimizeValidation(t *testing.T) {
	pdf := []byte("%PDF-1.4")
	cases := []struct {
		name    string
		mutate  func(*Deps)
		file    string
		data    []byte
		fields  map[string]string
		message string
	}{
		{"not pdf", nil, "profile.docx", pdf, nil, "Only PDF files are accepted"},
		{"missing file", nil, "", nil, nil, "file is required"},
		{"empty file", nil, "p.pdf", []byte{}, nil, "Empty file uploaded"},
		{"too large", func(d *Deps) { d.MaxFileSize = 1 << 20 }, "p.pdf", bytes.Repeat([]byte("x"), 1<<20+1), nil, "File size exceeds 1MB limit"},
		{"bad key prefix", nil, "p.pdf", pdf, map[string]string{"api_key": "pk-1234567890123456789"}, "Invalid API key format. OpenAI API keys should start with 'sk-'"},
		{"short key", nil, "p.pdf", pdf, map[string]string{"api_key": "sk-short"}, "Invalid API key length"},
		{"no key anywhere", func(d *Deps) { d.HasDefaultKey = false }, "p.pdf", pdf, nil, "OpenAI API key required. Please provide your API key or contact administrator."},
		{"no gemini key", func(d *Deps) { d.HasDefaultKey = false; d.Provider = "gemini" }, "p.pdf", pdf, nil, "Gemini API key required. Please provide your API key or contact administrator."},
		{"no key unknown provider", func(d *Deps) { d.HasDefaultKey = false; d.Provider = "" }, "p.pdf", pdf, nil, "AI provider API key required. Please provide your API key or contact administrator."},
		{"bad id", nil, "p.pdf", pdf, map[string]string{"optimization_id": "abc"}, "Invalid optimization ID format"},
		{"async with key", nil, "p.pdf", pdf, map[string]string{"async": "true", "api_key": "sk-abcdefghijklmnopqrstuvwxyz"}, "api_key is not supported for async optimizations"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			env := newEnv(t, tc.mutate)
			resp := env.do(t, uploadRequest(t, tc.file, tc.data, tc.fields))
			expectError(t, resp, http.StatusBadRequest, tc.message)
		})
	}
}

func TestOptimizeBodyOverLimit(t *testing.T) {
	env := newEnv(t, func(d *Deps) {
		d.MaxFileSize = 1 << 20
		d.HasDefaultKey = false
	})
	resp := env.do(t, uploadRequest(t, "p.pdf", bytes.Repeat([]byte("x"), 3<<20), nil))
	expectError(t, resp, http.StatusRequestEntityTooLarge, "File size exceeds 1MB limit")
	if len(env.queue.Sent()) != 0 {
		t.Fatal("oversized upload must not be enqueued")
	}
}

func TestOptimizeAsyncEnqueues(t *testing.T) {
	env := newEnv(t, nil)

	resp := env.do(t, uploadRequest(t, "p.pdf", []byte("%PDF-1.4"), map[string]string{
		"async":           "true",
		"optimization_id": "opt-async-01",
		"target_role":     "CTO",
	}))
	if resp.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", resp.Code, resp.Body.String())
	}

	sent := env.queue.Sent()
	if len(sent) != 1 {
		t.Fatalf("expected one message, got %d", len(sent))
	}
	msg := sent[0]
	if msg.OptimizationID != "opt-async-01" || msg.ObjectKey == "" || msg.TargetRole != "CTO" || msg.Version != queue.MessageVersion {
		t.Fatalf("unexpected message: %+v", msg)
	}

	p, err := env.store.GetProgress(context.Background(), "opt-async-01")
	if err != nil {
		t.Fatalf("get progress: %v", err)
	}
	if p.Status != progress.StatusProcessing || p.CurrentStep != progress.StepStarted {
		t.Fatalf("unexpected progress: %+v", p)
	}
}

func TestOptimizeAsyncWithoutQueue(t *testing.T) {
	env := newEnv(t, func(d *Deps) { d.Queue = nil })
	resp := env.do(t, uploadRequest(t, "p.pdf", []byte("%PDF-1.4"), map[string]string{"async": "1"}))
	expectError(t, resp, http.StatusServiceUnavailable, "async processing is not configured")
}

func TestResultAndProgressLookups(t *testing.T) {
	env := newEnv(t, nil)

	resp := env.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/results/abc", nil))
	expectError(t, resp, http.StatusBadRequest, "Invalid optimization ID format")

	resp = env.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/progress/"+strings.Repeat("x", 51), nil))
	expectError(t, resp, http.StatusBadRequest, "Invalid optimization ID format")

	resp = env.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/progress/missing-id", nil))
	expectError(t, resp, http.StatusNotFound, "Optimization not found")

	resp = env.do(t, httptest.NewRequest(http.MethodDelete, "/api/v1/results/missing-id", nil))
	expectError(t, resp, http.StatusNotFound, "Optimization results not found")
}

func TestDisabledStorage(t *testing.T) {
	env := newEnv(t, func(d *Deps) {
		d.Workflow = workflow.New(workflow.Deps{Store: progress.DisabledStore{}})
	})
	resp := env.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/results/opt-123456", nil))
	expectError(t, resp, http.StatusServiceUnavailable, "Result storage is not configured")
}

func postRequestBody(t *testing.T, v any) *http.Request {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/posts", bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestGeneratePost(t *testing.T) {
	env := newEnv(t, nil)

	resp := env.do(t, postRequestBody(t, map[string]any{"post_type": "poll"}))
	expectError(t, resp, http.StatusBadRequest, "topic is required")

	resp = env.do(t, postRequestBody(t, map[string]any{
		"topic":   "Machine intelligence",
		"profile": map[string]any{"personal_info": map[string]any{"name": "Alan Turing"}},
	}))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	var post content.Post
	decode(t, resp, &post)
	if post.Title != "On computable numbers" || len(post.Hashtags) != 1 {
		t.Fatalf("unexpected post: %+v", post)
	}

	resp = env.do(t, postRequestBody(t, map[string]any{"topic": "Enigma", "optimization_id": "missing-id"}))
	expectError(t, resp, http.StatusNotFound, "Optimization results not found")
}

func TestGeneratePostQuotaError(t *testing.T) {
	env := newEnv(t, func(d *Deps) {
		catalog := prompts.Default()
		d.Posts = content.NewGenerator(agentGenerator{catalog: catalog, postErr: &llm.Error{Kind: llm.KindRateLimited, Message: "slow down"}}, catalog, nil)
	})
	resp := env.do(t, postRequestBody(t, map[string]any{"topic": "Enigma"}))
	expectError(t, resp, http.StatusTooManyRequests, "AI provider rate limit or quota exceeded. Please check your usage limits or try again later.")
}
