package progress

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOverview(t *testing.T) {
	tests := []struct {
		name      string
		progress  Progress
		pct       float64
		remaining int
		elapsed   float64
	}{
		{
			name: "two of five processing",
			progress: Progress{
				Status:          StatusProcessing,
				ProcessingSteps: []string{StepStarted, StepProfileExtraction},
				StepDetails: map[string]StepDetail{
					StepStarted:           {Duration: 0},
					StepProfileExtraction: {Duration: 4.25},
				},
			},
			pct:       40,
			remaining: 90,
			elapsed:   4.25,
		},
		{
			name: "completed forces full",
			progress: Progress{
				Status:          StatusCompleted,
				ProcessingSteps: []string{StepStarted, StepProfileExtraction},
			},
			pct:       100,
			remaining: 0,
		},
		{
			name: "failed has no estimate",
			progress: Progress{
				Status:          StatusFailed,
				ProcessingSteps: []string{StepStarted, StepFailed},
			},
			pct:       40,
			remaining: 0,
		},
		{
			name:      "one step rounds to one decimal",
			progress:  Progress{Status: StatusProcessing, ProcessingSteps: []string{StepStarted}},
			pct:       20,
			remaining: 120,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap := Overview(tt.progress)
			assert.Equal(t, tt.pct, snap.ProgressPercentage)
			assert.Equal(t, tt.remaining, snap.EstimatedRemainingSeconds)
			assert.InDelta(t, tt.elapsed, snap.ElapsedSeconds, 1e-9)
			assert.NotNil(t, snap.CompletedSteps)
			assert.NotNil(t, snap.StepDetails)
		})
	}
}

func TestOverviewDefaultsCurrentStep(t *testing.T) {
	assert.Equal(t, "unknown", Overview(Progress{}).CurrentStep)
}
