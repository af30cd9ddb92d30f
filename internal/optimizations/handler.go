package optimizations

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"linkedin-optimizer/internal/content"
	"linkedin-optimizer/internal/extract"
	"linkedin-optimizer/internal/llm"
	"linkedin-optimizer/internal/profile"
	"linkedin-optimizer/internal/progress"
	"linkedin-optimizer/internal/queue"
	"linkedin-optimizer/internal/shared/server/middleware"
	"linkedin-optimizer/internal/shared/server/respond"
	"linkedin-optimizer/internal/shared/storage/object"
	"linkedin-optimizer/internal/shared/telemetry"
	"linkedin-optimizer/internal/workflow"
)

const (
	defaultMaxFileSize = 10 << 20 // 10MB
	multipartOverhead  = 1 << 20
	formMemory         = 32 << 20
	minIDLength        = 6
	maxIDLength        = 50
	defaultListLimit   = 10
	maxListLimit       = 100
	apiVersion         = "1.0.0"
)

// Deps are the collaborators of a Handler. Objects and Queue are optional;
// without a queue async requests are rejected.
type Deps struct {
	Workflow      *workflow.Workflow
	Posts         *content.Generator
	Objects       object.ObjectStore
	Queue         queue.Client
	MaxFileSize   int64
	Provider      string
	HasDefaultKey bool
	Now           func() time.Time
}

// Handler wires HTTP handlers to the optimization workflow.
type Handler struct {
	Deps
}

// NewHandler constructs a Handler.
func NewHandler(deps Deps) *Handler {
	if deps.MaxFileSize <= 0 {
		deps.MaxFileSize = defaultMaxFileSize
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Handler{Deps: deps}
}

// RegisterRoutes attaches optimization routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/", h.info)
	rg.GET("/health", h.health)
	rg.POST("/optimize-profile", h.optimize)
	rg.GET("/results", h.listResults)
	rg.GET("/results/:id", h.getResult)
	rg.DELETE("/results/:id", h.deleteResult)
	rg.GET("/progress/:id", h.getProgress)
	rg.GET("/workflow-status/:threadId", h.workflowStatus)
	rg.POST("/posts", h.generatePost)
	rg.GET("/content/categories", h.categories)
	rg.GET("/content/post-types", h.postTypes)
}

func (h *Handler) info(c *gin.Context) {
	respond.OK(c, gin.H{
		"message": "LinkedIn Profile Optimizer API",
		"version": apiVersion,
		"status":  "active",
		"endpoints": []string{
			"POST /optimize-profile - Upload PDF and get optimization results",
			"GET /results/{optimization_id} - Retrieve saved optimization results by ID",
			"DELETE /results/{optimization_id} - Delete saved optimization results",
			"GET /results - List recent optimizations",
			"GET /progress/{optimization_id} - Get real-time optimization progress",
			"POST /posts - Generate a single LinkedIn post",
			"GET /content/categories - List content categories",
			"GET /content/post-types - List post types",
			"GET /health - Health check endpoint",
		},
	})
}

func (h *Handler) health(c *gin.Context) {
	respond.OK(c, gin.H{
		"status":  "healthy",
		"message": "LinkedIn Profile Optimizer API is running",
	})
}

func (h *Handler) optimize(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.MaxFileSize+multipartOverhead)
	if err := c.Request.ParseMultipartForm(formMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respond.Error(c, http.StatusRequestEntityTooLarge, respond.CodeValidation, h.sizeMessage(), gin.H{"limit_bytes": h.MaxFileSize})
			return
		}
	}

	apiKey := strings.TrimSpace(c.PostForm("api_key"))
	if msg := h.checkAPIKey(apiKey); msg != "" {
		respond.BadRequest(c, msg)
		return
	}

	id := strings.TrimSpace(c.PostForm("optimization_id"))
	if id == "" {
		id = uuid.NewString()
	} else if !validID(id) {
		respond.BadRequest(c, "Invalid optimization ID format")
		return
	}
	c.Set("optimizationId", id)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		respond.BadRequest(c, "file is required")
		return
	}
	if !extract.IsPDFName(fileHeader.Filename) {
		respond.BadRequest(c, "Only PDF files are accepted")
		return
	}
	if fileHeader.Size > h.MaxFileSize {
		respond.BadRequest(c, h.sizeMessage())
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		respond.BadRequest(c, "unable to read file")
		return
	}
	defer file.Close()
	pdf, err := io.ReadAll(file)
	if err != nil {
		respond.BadRequest(c, "unable to read file")
		return
	}
	if len(pdf) == 0 {
		respond.BadRequest(c, "Empty file uploaded")
		return
	}

	targetRole := strings.TrimSpace(c.PostForm("target_role"))
	async, _ := strconv.ParseBool(c.PostForm("async"))
	if async {
		h.enqueue(c, id, apiKey, fileHeader.Filename, targetRole, pdf)
		return
	}

	meta := map[string]any{
		"file_name":  fileHeader.Filename,
		"request_id": middleware.RequestIDFromContext(c),
		"mode":       "sync",
	}
	if key := h.archive(c, id, fileHeader.Filename, pdf); key != "" {
		meta["object_key"] = key
	}

	res := h.Workflow.Run(c.Request.Context(), workflow.Input{
		PDFBytes:   pdf,
		TargetRole: targetRole,
		RequestID:  id,
		APIKey:     apiKey,
		Metadata:   meta,
	})
	respond.OK(c, res)
}

// checkAPIKey returns a validation message, or "" when the request can use
// either the supplied key or the server default.
func (h *Handler) checkAPIKey(apiKey string) string {
	if apiKey == "" {
		if !h.HasDefaultKey {
			return providerLabel(h.Provider) + " API key required. Please provide your API key or contact administrator."
		}
		return ""
	}
	if h.Provider == "openai" && !strings.HasPrefix(apiKey, "sk-") {
		return "Invalid API key format. OpenAI API keys should start with 'sk-'"
	}
	if len(apiKey) < 20 {
		return "Invalid API key length"
	}
	return ""
}

func (h *Handler) sizeMessage() string {
	return fmt.Sprintf("File size exceeds %dMB limit", h.MaxFileSize/1024/1024)
}

func providerLabel(provider string) string {
	switch strings.ToLower(strings.TrimSpace(provider)) {
	case "openai":
		return "OpenAI"
	case "gemini":
		return "Gemini"
	}
	return "AI provider"
}

func (h *Handler) enqueue(c *gin.Context, id, apiKey, fileName, targetRole string, pdf []byte) {
	if h.Queue == nil || h.Objects == nil {
		respond.Error(c, http.StatusServiceUnavailable, respond.CodeAsyncUnavailable, "async processing is not configured", nil)
		return
	}
	if apiKey != "" {
		respond.BadRequest(c, "api_key is not supported for async optimizations")
		return
	}
	ctx := c.Request.Context()
	obj, err := h.Objects.Save(ctx, id, fileName, bytes.NewReader(pdf))
	if err != nil {
		respond.Internal(c, "failed to store upload", nil)
		return
	}

	progress.NewRecorder(h.Workflow.Store()).Record(ctx, id, progress.StepStarted, map[string]any{
		"target_role":    targetRole,
		"pdf_size_bytes": len(pdf),
		"source":         "queue",
	}, progress.StatusProcessing)

	reqID := middleware.RequestIDFromContext(c)
	if err := h.Queue.Send(ctx, queue.NewMessage(id, reqID, obj.Key, fileName, targetRole, h.Now())); err != nil {
		telemetry.Error("optimization.enqueue_failed", map[string]any{
			"optimization_id": id,
			"request_id":      reqID,
			"error":           err,
		})
		respond.Internal(c, "failed to enqueue optimization", nil)
		return
	}

	telemetry.Info("optimization.enqueued", map[string]any{
		"optimization_id": id,
		"request_id":      reqID,
		"object_key":      obj.Key,
	})
	respond.Accepted(c, gin.H{
		"optimization_id": id,
		"status":          "queued",
		"progress_url":    "/api/v1/progress/" + id,
	})
}

// archive keeps a copy of a synchronous upload. Failures are logged only.
func (h *Handler) archive(c *gin.Context, id, fileName string, pdf []byte) string {
	if h.Objects == nil {
		return ""
	}
	obj, err := h.Objects.Save(c.Request.Context(), id, fileName, bytes.NewReader(pdf))
	if err != nil {
		telemetry.Warn("optimization.archive_failed", map[string]any{
			"optimization_id": id,
			"error":           err,
		})
		return ""
	}
	return obj.Key
}

func (h *Handler) getResult(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	res, err := h.Workflow.GetResult(c.Request.Context(), id)
	if err != nil {
		storeError(c, err, "Optimization results not found", "Error retrieving optimization results")
		return
	}
	respond.OK(c, res)
}

func (h *Handler) deleteResult(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	store := h.Workflow.Store()
	if _, err := store.GetProgress(ctx, id); err != nil {
		storeError(c, err, "Optimization results not found", "Error deleting optimization results")
		return
	}
	if err := store.Delete(ctx, id); err != nil {
		storeError(c, err, "Optimization results not found", "Error deleting optimization results")
		return
	}
	respond.OK(c, gin.H{"optimization_id": id, "deleted": true})
}

func (h *Handler) listResults(c *gin.Context) {
	limit := defaultListLimit
	if v := c.Query("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			limit = parsed
		}
	}
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	items, err := h.Workflow.Store().ListRecent(c.Request.Context(), limit)
	if err != nil {
		storeError(c, err, "", "Error listing optimization results")
		return
	}
	if items == nil {
		items = []progress.ResultSummary{}
	}
	respond.OK(c, gin.H{"results": items, "count": len(items)})
}

func (h *Handler) getProgress(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	p, err := h.Workflow.Store().GetProgress(c.Request.Context(), id)
	if err != nil {
		storeError(c, err, "Optimization not found", "Error retrieving progress")
		return
	}
	respond.OK(c, progress.Overview(p))
}

func (h *Handler) workflowStatus(c *gin.Context) {
	respond.OK(c, h.Workflow.GetStatus(c.Param("threadId")))
}

type postRequest struct {
	Topic          string         `json:"topic"`
	PostType       string         `json:"post_type"`
	OptimizationID string         `json:"optimization_id"`
	Profile        map[string]any `json:"profile"`
}

func (h *Handler) generatePost(c *gin.Context) {
	var req postRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.BadRequest(c, "invalid request body")
		return
	}
	req.Topic = strings.TrimSpace(req.Topic)
	req.PostType = strings.TrimSpace(req.PostType)
	if req.Topic == "" {
		respond.BadRequest(c, "topic is required")
		return
	}
	if req.PostType == "" {
		req.PostType = content.PostTypes()[0]
	}

	ctx := c.Request.Context()
	var p *profile.Profile
	switch {
	case req.OptimizationID != "":
		if !validID(req.OptimizationID) {
			respond.BadRequest(c, "Invalid optimization ID format")
			return
		}
		res, err := h.Workflow.GetResult(ctx, req.OptimizationID)
		if err != nil {
			storeError(c, err, "Optimization results not found", "Error retrieving optimization results")
			return
		}
		p = res.ProfileData
	case req.Profile != nil:
		normalized := profile.Normalize(req.Profile)
		p = &normalized
	}

	post, err := h.Posts.GeneratePost(ctx, req.Topic, req.PostType, p)
	if err != nil {
		switch kind := llm.KindOf(err); {
		case errors.Is(err, content.ErrInvalidInput):
			respond.BadRequest(c, err.Error())
		case kind == llm.KindRateLimited:
			respond.Error(c, http.StatusTooManyRequests, kind.String(), workflow.UserMessage(err, err.Error()), nil)
		case kind.Critical():
			respond.Error(c, http.StatusBadGateway, kind.String(), workflow.UserMessage(err, err.Error()), nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "post_generation_failed", "Error generating post", err.Error())
		}
		return
	}
	respond.OK(c, post)
}

func (h *Handler) categories(c *gin.Context) {
	respond.OK(c, gin.H{"categories": content.Categories()})
}

func (h *Handler) postTypes(c *gin.Context) {
	respond.OK(c, gin.H{"post_types": content.PostTypes()})
}

func validID(id string) bool {
	return len(id) >= minIDLength && len(id) <= maxIDLength
}

func pathID(c *gin.Context) (string, bool) {
	id := c.Param("id")
	if !validID(id) {
		respond.BadRequest(c, "Invalid optimization ID format")
		return "", false
	}
	c.Set("optimizationId", id)
	return id, true
}

func storeError(c *gin.Context, err error, notFound, internal string) {
	switch {
	case errors.Is(err, progress.ErrNotFound) && notFound != "":
		respond.NotFound(c, notFound)
	case errors.Is(err, progress.ErrStorageDisabled):
		respond.Error(c, http.StatusServiceUnavailable, respond.CodeStorageUnavailable, "Result storage is not configured", nil)
	default:
		respond.Internal(c, internal, err)
	}
}
