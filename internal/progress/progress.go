// Package progress persists per-optimization step progress and final
// results. One item per optimization ID holds both.
package progress

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

var (
	ErrNotFound        = errors.New("optimization not found")
	ErrStorageDisabled = errors.New("progress storage disabled")
)

const (
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

const (
	StepStarted           = "optimization_started"
	StepProfileExtraction = "profile_extraction"
	StepProfileAnalysis   = "profile_analysis"
	StepContentGeneration = "content_generation"
	StepCompleted         = "optimization_completed"
	StepFailed            = "optimization_failed"
)

// DefaultTTL matches the retention of stored optimizations.
const DefaultTTL = 30 * 24 * time.Hour

// Store persists progress and results keyed by optimization ID.
type Store interface {
	SaveStepProgress(ctx context.Context, optimizationID, step string, data map[string]any, status string) error
	GetProgress(ctx context.Context, optimizationID string) (Progress, error)
	SaveResult(ctx context.Context, optimizationID string, result json.RawMessage, meta ResultMeta) error
	GetResult(ctx context.Context, optimizationID string) (StoredResult, error)
	ListRecent(ctx context.Context, limit int) ([]ResultSummary, error)
	Delete(ctx context.Context, optimizationID string) error
	Enabled() bool
}

// StepDetail records one completed step.
type StepDetail struct {
	CompletedAt time.Time      `json:"completed_at"`
	Data        map[string]any `json:"data"`
	Duration    float64        `json:"duration"`
}

// Progress is the progress view of a stored optimization.
type Progress struct {
	OptimizationID  string                `json:"optimization_id"`
	Status          string                `json:"status"`
	CurrentStep     string                `json:"current_step"`
	ProcessingSteps []string              `json:"processing_steps"`
	StepDetails     map[string]StepDetail `json:"step_details"`
	CreatedAt       time.Time             `json:"created_at"`
	UpdatedAt       time.Time             `json:"updated_at"`
	Results         json.RawMessage       `json:"results,omitempty"`
}

// ResultMeta carries the queryable summary columns written with a result.
// Score fields are only persisted when Success is true.
type ResultMeta struct {
	Success              bool
	ProfileScore         int
	CompletenessScore    float64
	RecommendationsCount int
	ContentIdeasCount    int
	Metadata             map[string]any
}

// StoredResult is a persisted result blob with its storage attributes.
type StoredResult struct {
	OptimizationID string
	Results        json.RawMessage
	Status         string
	CreatedAt      time.Time
	Metadata       map[string]any
}

// StorageInfo describes where a retrieved result came from.
type StorageInfo struct {
	OptimizationID string    `json:"optimization_id"`
	CreatedAt      time.Time `json:"created_at"`
	Status         string    `json:"status"`
	RetrievedAt    time.Time `json:"retrieved_at"`
}

// Info returns the storage attributes stamped with the retrieval time.
func (r StoredResult) Info(now time.Time) StorageInfo {
	return StorageInfo{
		OptimizationID: r.OptimizationID,
		CreatedAt:      r.CreatedAt,
		Status:         r.Status,
		RetrievedAt:    now.UTC(),
	}
}

// ResultSummary is one row of the recent-optimizations listing.
type ResultSummary struct {
	OptimizationID    string   `json:"optimization_id"`
	CreatedAt         string   `json:"created_at"`
	Status            string   `json:"status"`
	ProfileScore      *int     `json:"profile_score,omitempty"`
	CompletenessScore *float64 `json:"completeness_score,omitempty"`
}
