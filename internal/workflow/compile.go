package workflow

import (
	"context"
	"encoding/json"
	"time"

	"linkedin-optimizer/internal/llm"
	"linkedin-optimizer/internal/progress"
	"linkedin-optimizer/internal/shared/metrics"
	"linkedin-optimizer/internal/shared/telemetry"
)

func compileResults(ctx context.Context, r *run, s *State) {
	if s.Error != "" {
		r.compileFailure(ctx, s)
		return
	}
	start := r.w.now()
	s.Status = statusCompiling

	summary := buildSummary(s.Profile, s.Analysis, s.Content)
	final := &FinalResult{
		Success:              true,
		Status:               statusResultSucceeded,
		OptimizationID:       s.RequestID,
		ProfileData:          s.Profile,
		AnalysisResults:      s.Analysis,
		ContentResults:       s.Content,
		Summary:              &summary,
		RecommendationsCount: intPtr(len(s.Analysis.NextSteps)),
		ContentIdeasCount:    intPtr(len(s.Content.ContentIdeas)),
		SamplePostsCount:     intPtr(len(s.Content.SamplePosts)),
		TokenUsage:           sumUsage(s.Profile.TokenUsage, s.Analysis.TokenUsage, s.Content.TokenUsage),
	}
	if final.TokenUsage != nil {
		metrics.AddLLMTokens(final.TokenUsage.TotalTokens)
	}

	s.StepTimings.Add(TimingResultsCompilation, r.w.sinceSeconds(start))
	final.StepTimings = append(StepTimings(nil), s.StepTimings...)
	final.StorageSaved = r.w.store.Enabled()

	blob, err := json.Marshal(final)
	if err != nil {
		s.fail(err, "Error compiling results: ", statusCompileFailed)
		r.compileFailure(ctx, s)
		return
	}

	if final.StorageSaved {
		meta := progress.ResultMeta{
			Success:              true,
			ProfileScore:         summary.OptimizationScore,
			CompletenessScore:    float64(summary.ProfileCompleteness),
			RecommendationsCount: len(summary.KeyImprovements),
			ContentIdeasCount:    len(s.Content.ContentIdeas),
			Metadata:             r.resultMetadata(),
		}
		if err := r.w.store.SaveResult(ctx, s.RequestID, blob, meta); err != nil {
			final.StorageSaved = false
			telemetry.Warn("workflow.result_save_failed", map[string]any{
				"request_id": s.RequestID,
				"error":      err,
			})
		}
	}

	r.w.record(ctx, s.RequestID, progress.StepCompleted, map[string]any{
		"duration":             s.StepTimings.Total(),
		"optimization_score":   summary.OptimizationScore,
		"profile_completeness": summary.ProfileCompleteness,
		"storage_saved":        final.StorageSaved,
	}, progress.StatusCompleted)

	s.Final = final
	s.Status = statusCompiled
	telemetry.Info("workflow.stage.completed", map[string]any{
		"request_id":  s.RequestID,
		"stage":       nodeCompile,
		"total_ms":    s.StepTimings.Total() * 1000,
		"step_timing": s.StepTimings,
	})
}

// compileFailure builds the failed result from whatever the stages produced.
func (r *run) compileFailure(ctx context.Context, s *State) {
	message := s.Error
	kind := llm.KindUnknown
	if s.Err != nil {
		kind = llm.KindOf(s.Err)
		message = UserMessage(s.Err, s.Error)
	}

	final := &FinalResult{
		Success:         false,
		Error:           message,
		Status:          s.Status,
		OptimizationID:  s.RequestID,
		ProfileData:     s.Profile,
		AnalysisResults: s.Analysis,
		ContentResults:  s.Content,
		StepTimings:     append(StepTimings(nil), s.StepTimings...),
	}
	if kind != llm.KindUnknown {
		final.ErrorKind = kind.String()
	}

	if r.w.store.Enabled() {
		final.StorageSaved = true
		blob, err := json.Marshal(final)
		if err == nil {
			err = r.w.store.SaveResult(ctx, s.RequestID, blob, progress.ResultMeta{
				Success:  false,
				Metadata: r.resultMetadata(),
			})
		}
		if err != nil {
			final.StorageSaved = false
			telemetry.Warn("workflow.result_save_failed", map[string]any{
				"request_id": s.RequestID,
				"error":      err,
			})
		}
	}

	r.w.record(ctx, s.RequestID, progress.StepFailed, map[string]any{
		"error":      message,
		"error_kind": kind.String(),
		"critical":   kind.Critical(),
	}, progress.StatusFailed)

	s.Final = final
}

func (r *run) resultMetadata() map[string]any {
	meta := map[string]any{}
	for k, v := range r.in.Metadata {
		meta[k] = v
	}
	meta["target_role"] = r.in.TargetRole
	meta["pdf_size_bytes"] = pdfSize(r.in)
	meta["source"] = source(r.in)
	meta["completed_at"] = r.w.now().UTC().Format(time.RFC3339)
	return meta
}

// sumUsage adds the usage of every record that reported one.
func sumUsage(usages ...*llm.Usage) *llm.Usage {
	var total llm.Usage
	found := false
	for _, u := range usages {
		if u == nil {
			continue
		}
		total = total.Add(*u)
		found = true
	}
	if !found {
		return nil
	}
	return &total
}
