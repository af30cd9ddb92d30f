package workflow

import (
	"fmt"

	"linkedin-optimizer/internal/analysis"
	"linkedin-optimizer/internal/content"
	"linkedin-optimizer/internal/profile"
)

const maxRecommendedActions = 5

// Summary is the short human-facing digest of a successful run.
type Summary struct {
	ProfileCompleteness int                  `json:"profile_completeness"`
	OptimizationScore   int                  `json:"optimization_score"`
	KeyImprovements     []any                `json:"key_improvements"`
	ContentStrategy     []any                `json:"content_strategy"`
	RecommendedActions  []any                `json:"recommended_actions"`
	CompletenessDetails profile.Completeness `json:"completeness_details"`
}

func buildSummary(p *profile.Profile, a *analysis.Analysis, c *content.Content) Summary {
	completeness := p.Completeness()
	return Summary{
		ProfileCompleteness: completeness.Score,
		OptimizationScore:   a.OverallScore,
		KeyImprovements:     head(a.NextSteps, 3),
		ContentStrategy:     head(c.ContentStrategy.ContentPillars, 3),
		RecommendedActions:  recommendedActions(a, c),
		CompletenessDetails: completeness,
	}
}

// recommendedActions takes the first two next steps and adds a posting
// cadence action when the strategy names a frequency.
func recommendedActions(a *analysis.Analysis, c *content.Content) []any {
	actions := head(a.NextSteps, 2)
	if freq := c.ContentStrategy.PostingFrequency; freq != "" {
		actions = append(actions, fmt.Sprintf("Start posting %s to build your LinkedIn presence", freq))
	}
	return head(actions, maxRecommendedActions)
}

func head(list []any, n int) []any {
	if len(list) < n {
		n = len(list)
	}
	out := make([]any, n)
	copy(out, list[:n])
	return out
}
