package respond

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"linkedin-optimizer/internal/shared/telemetry"
)

// Error codes shared by handlers and middleware. LLM failures use the
// llm.Kind string as their code.
const (
	CodeValidation         = "validation_error"
	CodeNotFound           = "not_found"
	CodeInternal           = "internal_error"
	CodeStorageUnavailable = "storage_unavailable"
	CodeAsyncUnavailable   = "async_unavailable"
	CodeRateLimited        = "rate_limited"
)

// Context keys read when logging a failed request.
const (
	keyRequestID      = "requestId"
	keyOptimizationID = "optimizationId"
)

// ErrorBody is the error object clients receive.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// ErrorResponse is the {"error": {...}} envelope.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// Error logs the failure and aborts the request with the error envelope.
// Client errors log at warn, server errors at error.
func Error(c *gin.Context, status int, code, message string, details any) {
	fields := map[string]any{
		"status":     status,
		"code":       code,
		"message":    message,
		"route":      c.FullPath(),
		"method":     c.Request.Method,
		"request_id": c.GetString(keyRequestID),
	}
	if id := c.GetString(keyOptimizationID); id != "" {
		fields["optimization_id"] = id
	}
	if status >= http.StatusInternalServerError {
		if details != nil {
			fields["details"] = details
		}
		telemetry.Error("http.error", fields)
	} else {
		telemetry.Warn("http.error", fields)
	}
	c.AbortWithStatusJSON(status, ErrorResponse{Error: ErrorBody{Code: code, Message: message, Details: details}})
}

// BadRequest rejects invalid input.
func BadRequest(c *gin.Context, message string) {
	Error(c, http.StatusBadRequest, CodeValidation, message, nil)
}

// NotFound reports a missing resource.
func NotFound(c *gin.Context, message string) {
	Error(c, http.StatusNotFound, CodeNotFound, message, nil)
}

// Internal reports a server-side failure. cause is logged and echoed as
// details when non-nil.
func Internal(c *gin.Context, message string, cause error) {
	var details any
	if cause != nil {
		details = cause.Error()
	}
	Error(c, http.StatusInternalServerError, CodeInternal, message, details)
}
