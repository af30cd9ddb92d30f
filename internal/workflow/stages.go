package workflow

import (
	"context"
	"errors"
	"time"

	"linkedin-optimizer/internal/progress"
	"linkedin-optimizer/internal/shared/metrics"
	"linkedin-optimizer/internal/shared/telemetry"
)

// stageSteps maps pipeline nodes to the progress step they report under.
var stageSteps = map[string]string{
	nodeCollect:  progress.StepProfileExtraction,
	nodeAnalyze:  progress.StepProfileAnalysis,
	nodeGenerate: progress.StepContentGeneration,
}

var (
	errNoProfile   = errors.New("No profile data available for analysis")
	errMissingData = errors.New("Missing required data for content generation")
)

func collectProfile(ctx context.Context, r *run, s *State) {
	start := r.w.now()
	s.Status = statusExtracting

	switch {
	case len(s.PDFBytes) > 0:
		p, err := r.collector.ExtractFromBytes(ctx, s.RequestID, s.PDFBytes)
		if err != nil {
			r.stageFailed(ctx, s, nodeCollect, start, err, "Error in profile collection: ", statusExtractFailed)
			return
		}
		s.Profile = p
	case s.PDFPath != "":
		p, err := r.collector.ExtractFromFile(ctx, s.RequestID, s.PDFPath)
		if err != nil {
			r.stageFailed(ctx, s, nodeCollect, start, err, "Error in profile collection: ", statusExtractFailed)
			return
		}
		s.Profile = p
	default:
		r.stageFailed(ctx, s, nodeCollect, start, ErrNoDocument, "Error in profile collection: ", statusExtractFailed)
		return
	}

	s.Status = statusExtracted
	r.stageDone(s, nodeCollect, TimingProfileCollection, start, map[string]any{
		"sections": s.Profile.FilledSections(),
	})
}

func analyzeProfile(ctx context.Context, r *run, s *State) {
	if r.skip(s, nodeAnalyze) {
		return
	}
	start := r.w.now()
	s.Status = statusAnalyzing
	if s.Profile == nil {
		r.stageFailed(ctx, s, nodeAnalyze, start, errNoProfile, "Error in profile analysis: ", statusAnalyzeFailed)
		return
	}
	a, err := r.analyzer.Analyze(ctx, s.RequestID, s.Profile, s.TargetRole)
	if err != nil {
		r.stageFailed(ctx, s, nodeAnalyze, start, err, "Error in profile analysis: ", statusAnalyzeFailed)
		return
	}
	s.Analysis = a
	s.Status = statusAnalyzed
	r.stageDone(s, nodeAnalyze, TimingProfileAnalysis, start, map[string]any{
		"overall_score": a.OverallScore,
	})
}

func generateContent(ctx context.Context, r *run, s *State) {
	if r.skip(s, nodeGenerate) {
		return
	}
	start := r.w.now()
	s.Status = statusGenerating
	if s.Profile == nil || s.Analysis == nil {
		r.stageFailed(ctx, s, nodeGenerate, start, errMissingData, "Error in content generation: ", statusGenerateFailed)
		return
	}
	c, err := r.generator.Generate(ctx, s.RequestID, s.Profile, s.Analysis)
	if err != nil {
		r.stageFailed(ctx, s, nodeGenerate, start, err, "Error in content generation: ", statusGenerateFailed)
		return
	}
	s.Content = c
	s.Status = statusGenerated
	r.stageDone(s, nodeGenerate, TimingContentGeneration, start, map[string]any{
		"content_ideas": len(c.ContentIdeas),
	})
}

// skip reports whether an earlier stage already failed.
func (r *run) skip(s *State, stage string) bool {
	if s.Error == "" {
		return false
	}
	telemetry.Warn("workflow.stage.skipped", map[string]any{
		"request_id": s.RequestID,
		"stage":      stage,
		"error":      s.Error,
	})
	return true
}

func (r *run) stageDone(s *State, stage, timing string, start time.Time, fields map[string]any) {
	seconds := r.w.sinceSeconds(start)
	s.StepTimings.Add(timing, seconds)
	metrics.ObserveStageDurationMs(stage, seconds*1000)
	if fields == nil {
		fields = map[string]any{}
	}
	fields["request_id"] = s.RequestID
	fields["stage"] = stage
	fields["duration_ms"] = seconds * 1000
	telemetry.Info("workflow.stage.completed", fields)
}

// stageFailed marks the run failed and records the stage step as failed.
// The record replaces any detail the stage component already wrote.
func (r *run) stageFailed(ctx context.Context, s *State, stage string, start time.Time, err error, prefix, status string) {
	s.fail(err, prefix, status)
	if step, ok := stageSteps[stage]; ok {
		r.w.record(ctx, s.RequestID, step, map[string]any{
			"error":    s.Error,
			"duration": r.w.sinceSeconds(start),
			"critical": s.critical(),
		}, progress.StatusFailed)
	}
	telemetry.Error("workflow.stage.failed", map[string]any{
		"request_id":  s.RequestID,
		"stage":       stage,
		"duration_ms": r.w.sinceMillis(start),
		"critical":    s.critical(),
		"error":       err,
	})
}
