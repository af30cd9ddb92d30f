// Package analysis holds the profile optimization analysis record and the
// stage that produces it.
package analysis

import (
	"linkedin-optimizer/internal/llm"
	"linkedin-optimizer/internal/normalize"
)

// DefaultTargetRole is used when the caller gives no role hint.
const DefaultTargetRole = "General professional development"

// Suggestion is a current/suggested pair for a profile field.
type Suggestion struct {
	Current   string `json:"current"`
	Suggested string `json:"suggested"`
	Reasoning string `json:"reasoning"`
}

// Recommendations groups the concrete profile edits.
type Recommendations struct {
	Headline               Suggestion `json:"headline"`
	Summary                Suggestion `json:"summary"`
	ExperienceOptimization []any      `json:"experience_optimization"`
	SkillsToAdd            []any      `json:"skills_to_add"`
	SkillsToEmphasize      []any      `json:"skills_to_emphasize"`
	KeywordsToInclude      []any      `json:"keywords_to_include"`
	CertificationsToPursue []any      `json:"certifications_to_pursue"`
}

// Analysis is the normalized analysis record. OverallScore is always in
// [0,100].
type Analysis struct {
	OverallScore        int             `json:"overall_score"`
	Strengths           []any           `json:"strengths"`
	AreasForImprovement []any           `json:"areas_for_improvement"`
	Recommendations     Recommendations `json:"recommendations"`
	IndustryInsights    string          `json:"industry_insights"`
	NextSteps           []any           `json:"next_steps"`
	TokenUsage          *llm.Usage      `json:"token_usage,omitempty"`
}

// Normalize builds an Analysis from decoded model output.
func Normalize(raw map[string]any) Analysis {
	recs := normalize.Object(raw["recommendations"])
	return Analysis{
		OverallScore:        normalize.Score(raw["overall_score"]),
		Strengths:           normalize.List(raw["strengths"]),
		AreasForImprovement: normalize.List(raw["areas_for_improvement"]),
		Recommendations: Recommendations{
			Headline:               suggestion(recs["headline"]),
			Summary:                suggestion(recs["summary"]),
			ExperienceOptimization: normalize.List(recs["experience_optimization"]),
			SkillsToAdd:            normalize.List(recs["skills_to_add"]),
			SkillsToEmphasize:      normalize.List(recs["skills_to_emphasize"]),
			KeywordsToInclude:      normalize.List(recs["keywords_to_include"]),
			CertificationsToPursue: normalize.List(recs["certifications_to_pursue"]),
		},
		IndustryInsights: normalize.String(raw["industry_insights"]),
		NextSteps:        normalize.List(raw["next_steps"]),
		TokenUsage:       llm.UsageFrom(raw["token_usage"]),
	}
}

func suggestion(v any) Suggestion {
	m := normalize.Object(v)
	return Suggestion{
		Current:   normalize.String(m["current"]),
		Suggested: normalize.String(m["suggested"]),
		Reasoning: normalize.String(m["reasoning"]),
	}
}

// HasRecommendations reports whether any concrete edit was suggested.
func (a Analysis) HasRecommendations() bool {
	r := a.Recommendations
	if r.Headline != (Suggestion{}) || r.Summary != (Suggestion{}) {
		return true
	}
	return len(r.ExperienceOptimization)+len(r.SkillsToAdd)+len(r.SkillsToEmphasize)+
		len(r.KeywordsToInclude)+len(r.CertificationsToPursue) > 0
}
