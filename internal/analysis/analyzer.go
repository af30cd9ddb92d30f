package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"linkedin-optimizer/internal/llm"
	"linkedin-optimizer/internal/profile"
	"linkedin-optimizer/internal/progress"
	"linkedin-optimizer/internal/prompts"
	"linkedin-optimizer/internal/shared/telemetry"
)

var ErrInvalidInput = errors.New("profile data cannot be empty")

// Analyzer scores a profile and proposes edits.
type Analyzer struct {
	LLM      llm.Generator
	Prompts  *prompts.Catalog
	Recorder *progress.Recorder
}

// NewAnalyzer wires an Analyzer. A nil catalog uses the embedded prompts.
func NewAnalyzer(g llm.Generator, catalog *prompts.Catalog, rec *progress.Recorder) *Analyzer {
	if catalog == nil {
		catalog = prompts.Default()
	}
	return &Analyzer{LLM: g, Prompts: catalog, Recorder: rec}
}

// WithLLM returns a copy that uses g for generation.
func (a *Analyzer) WithLLM(g llm.Generator) *Analyzer {
	cp := *a
	cp.LLM = g
	return &cp
}

// Analyze runs the analysis prompt for p. An empty targetRole uses
// DefaultTargetRole.
func (a *Analyzer) Analyze(ctx context.Context, optimizationID string, p *profile.Profile, targetRole string) (*Analysis, error) {
	start := time.Now()
	if p == nil {
		return nil, a.fail(ctx, optimizationID, start, ErrInvalidInput)
	}
	role := strings.TrimSpace(targetRole)
	if role == "" {
		role = DefaultTargetRole
	}

	profileJSON, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return nil, a.fail(ctx, optimizationID, start, fmt.Errorf("encode profile: %w", err))
	}
	system, err := a.Prompts.System(prompts.ProfileAnalyzer)
	if err != nil {
		return nil, a.fail(ctx, optimizationID, start, err)
	}
	user, err := a.Prompts.FormatUser(prompts.ProfileAnalyzer, map[string]string{
		"profile_data": string(profileJSON),
		"target_role":  role,
	})
	if err != nil {
		return nil, a.fail(ctx, optimizationID, start, err)
	}

	completion, err := a.LLM.Generate(ctx, system, user)
	if err != nil {
		return nil, a.fail(ctx, optimizationID, start, err)
	}
	raw, err := llm.ParseObject(completion.Content)
	if err != nil {
		return nil, a.fail(ctx, optimizationID, start, err)
	}

	result := Normalize(raw)
	if !completion.Usage.IsZero() {
		usage := completion.Usage
		result.TokenUsage = &usage
	}

	a.Recorder.Record(ctx, optimizationID, progress.StepProfileAnalysis, map[string]any{
		"duration":            time.Since(start).Seconds(),
		"overall_score":       result.OverallScore,
		"strengths_count":     len(result.Strengths),
		"improvements_count":  len(result.AreasForImprovement),
		"has_recommendations": result.HasRecommendations(),
	}, progress.StatusProcessing)
	telemetry.Info("analysis.completed", map[string]any{
		"request_id":    optimizationID,
		"duration_ms":   time.Since(start).Milliseconds(),
		"overall_score": result.OverallScore,
		"target_role":   role,
	})
	return &result, nil
}

func (a *Analyzer) fail(ctx context.Context, optimizationID string, start time.Time, err error) error {
	wrapped := fmt.Errorf("analyze profile: %w", err)
	a.Recorder.Record(ctx, optimizationID, progress.StepProfileAnalysis, map[string]any{
		"error":    wrapped.Error(),
		"duration": time.Since(start).Seconds(),
	}, progress.StatusFailed)
	telemetry.Warn("analysis.failed", map[string]any{
		"request_id": optimizationID,
		"error":      wrapped,
	})
	return wrapped
}
