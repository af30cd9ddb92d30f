package progress

import (
	"math"
	"time"
)

// TrackedSteps are the steps a successful optimization passes through.
var TrackedSteps = []string{
	StepStarted,
	StepProfileExtraction,
	StepProfileAnalysis,
	StepContentGeneration,
	StepCompleted,
}

// SecondsPerStep is the rough per-step estimate used for remaining time.
const SecondsPerStep = 30

// Snapshot is the client-facing progress view.
type Snapshot struct {
	OptimizationID            string                `json:"optimization_id"`
	Status                    string                `json:"status"`
	CurrentStep               string                `json:"current_step"`
	CompletedSteps            []string              `json:"completed_steps"`
	ProgressPercentage        float64               `json:"progress_percentage"`
	StepDetails               map[string]StepDetail `json:"step_details"`
	ElapsedSeconds            float64               `json:"elapsed_seconds"`
	EstimatedRemainingSeconds int                   `json:"estimated_remaining_seconds"`
	CreatedAt                 time.Time             `json:"created_at"`
	UpdatedAt                 time.Time             `json:"updated_at"`
}

// Overview derives percentage and remaining-time estimates from p.
func Overview(p Progress) Snapshot {
	total := len(TrackedSteps)
	done := len(p.ProcessingSteps)

	pct := float64(done) / float64(total) * 100
	if p.Status == StatusCompleted || pct > 100 {
		pct = 100
	}
	pct = math.Round(pct*10) / 10

	var elapsed float64
	for _, d := range p.StepDetails {
		elapsed += d.Duration
	}

	remaining := 0
	if p.Status == StatusProcessing && done < total {
		remaining = (total - done) * SecondsPerStep
	}

	steps := p.ProcessingSteps
	if steps == nil {
		steps = []string{}
	}
	details := p.StepDetails
	if details == nil {
		details = map[string]StepDetail{}
	}
	current := p.CurrentStep
	if current == "" {
		current = "unknown"
	}
	return Snapshot{
		OptimizationID:            p.OptimizationID,
		Status:                    p.Status,
		CurrentStep:               current,
		CompletedSteps:            steps,
		ProgressPercentage:        pct,
		StepDetails:               details,
		ElapsedSeconds:            elapsed,
		EstimatedRemainingSeconds: remaining,
		CreatedAt:                 p.CreatedAt,
		UpdatedAt:                 p.UpdatedAt,
	}
}
