package content

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"linkedin-optimizer/internal/analysis"
	"linkedin-optimizer/internal/llm"
	"linkedin-optimizer/internal/profile"
	"linkedin-optimizer/internal/progress"
	"linkedin-optimizer/internal/prompts"
	"linkedin-optimizer/internal/shared/telemetry"
)

var ErrInvalidInput = errors.New("invalid content input")

// Generator builds a content plan from a profile and its analysis.
type Generator struct {
	LLM      llm.Generator
	Prompts  *prompts.Catalog
	Recorder *progress.Recorder
}

// NewGenerator wires a Generator. A nil catalog uses the embedded prompts.
func NewGenerator(g llm.Generator, catalog *prompts.Catalog, rec *progress.Recorder) *Generator {
	if catalog == nil {
		catalog = prompts.Default()
	}
	return &Generator{LLM: g, Prompts: catalog, Recorder: rec}
}

// WithLLM returns a copy that uses g for generation.
func (g *Generator) WithLLM(gen llm.Generator) *Generator {
	cp := *g
	cp.LLM = gen
	return &cp
}

// Generate produces the content plan.
func (g *Generator) Generate(ctx context.Context, optimizationID string, p *profile.Profile, a *analysis.Analysis) (*Content, error) {
	start := time.Now()
	if p == nil {
		return nil, g.fail(ctx, optimizationID, start, fmt.Errorf("%w: profile data cannot be empty", ErrInvalidInput))
	}
	if a == nil {
		return nil, g.fail(ctx, optimizationID, start, fmt.Errorf("%w: profile analysis cannot be empty", ErrInvalidInput))
	}

	profileJSON, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return nil, g.fail(ctx, optimizationID, start, err)
	}
	analysisJSON, err := json.MarshalIndent(a, "", "  ")
	if err != nil {
		return nil, g.fail(ctx, optimizationID, start, err)
	}
	system, err := g.Prompts.System(prompts.ContentGenerator)
	if err != nil {
		return nil, g.fail(ctx, optimizationID, start, err)
	}
	user, err := g.Prompts.FormatUser(prompts.ContentGenerator, map[string]string{
		"profile_data":     string(profileJSON),
		"profile_analysis": string(analysisJSON),
	})
	if err != nil {
		return nil, g.fail(ctx, optimizationID, start, err)
	}

	completion, err := g.LLM.Generate(ctx, system, user)
	if err != nil {
		return nil, g.fail(ctx, optimizationID, start, err)
	}
	raw, err := llm.ParseObject(completion.Content)
	if err != nil {
		return nil, g.fail(ctx, optimizationID, start, err)
	}

	c := Normalize(raw)
	if !completion.Usage.IsZero() {
		usage := completion.Usage
		c.TokenUsage = &usage
	}

	g.Recorder.Record(ctx, optimizationID, progress.StepContentGeneration, map[string]any{
		"duration":            time.Since(start).Seconds(),
		"content_ideas_count": len(c.ContentIdeas),
		"sample_posts_count":  len(c.SamplePosts),
		"has_strategy":        c.HasStrategy(),
		"has_calendar":        len(c.WeeklyContentCalendar) > 0,
	}, progress.StatusProcessing)
	telemetry.Info("content.generated", map[string]any{
		"request_id":    optimizationID,
		"duration_ms":   time.Since(start).Milliseconds(),
		"content_ideas": len(c.ContentIdeas),
		"sample_posts":  len(c.SamplePosts),
	})
	return &c, nil
}

// GeneratePost writes one post of postType about topic for p. It records
// no progress.
func (g *Generator) GeneratePost(ctx context.Context, topic, postType string, p *profile.Profile) (*Post, error) {
	topic = strings.TrimSpace(topic)
	postType = strings.TrimSpace(postType)
	if topic == "" || postType == "" {
		return nil, fmt.Errorf("generate post: %w: topic and post type are required", ErrInvalidInput)
	}
	if p == nil {
		empty := profile.Normalize(map[string]any{})
		p = &empty
	}
	profileJSON, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("generate post: %w", err)
	}
	system, err := g.Prompts.System(prompts.ContentGenerator)
	if err != nil {
		return nil, fmt.Errorf("generate post: %w", err)
	}
	completion, err := g.LLM.Generate(ctx, system, postPrompt(topic, postType, string(profileJSON)))
	if err != nil {
		return nil, fmt.Errorf("generate post: %w", err)
	}
	raw, err := llm.ParseObject(completion.Content)
	if err != nil {
		return nil, fmt.Errorf("generate post: %w", err)
	}
	post := NormalizePost(raw)
	if !completion.Usage.IsZero() {
		usage := completion.Usage
		post.TokenUsage = &usage
	}
	return &post, nil
}

// postPrompt builds the ad-hoc post request. It is not part of the prompt
// catalog.
func postPrompt(topic, postType, profileJSON string) string {
	return fmt.Sprintf(`Based on the following LinkedIn profile data, generate a %s post about %s.

Profile Data:
%s

The post should be:
- Professional yet engaging
- Authentic to the person's background
- Optimized for LinkedIn engagement
- Include relevant hashtags
- Have a clear call-to-action

Return the result as JSON with the following structure:
{
  "title": "string",
  "content": "string",
  "hashtags": ["string"],
  "engagement_hooks": ["string"],
  "best_posting_time": "string",
  "expected_engagement": "string"
}
`, postType, topic, profileJSON)
}

func (g *Generator) fail(ctx context.Context, optimizationID string, start time.Time, err error) error {
	wrapped := fmt.Errorf("generate content: %w", err)
	g.Recorder.Record(ctx, optimizationID, progress.StepContentGeneration, map[string]any{
		"error":    wrapped.Error(),
		"duration": time.Since(start).Seconds(),
	}, progress.StatusFailed)
	telemetry.Warn("content.failed", map[string]any{
		"request_id": optimizationID,
		"error":      wrapped,
	})
	return wrapped
}
