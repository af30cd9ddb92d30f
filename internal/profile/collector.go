package profile

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"linkedin-optimizer/internal/extract"
	"linkedin-optimizer/internal/llm"
	"linkedin-optimizer/internal/progress"
	"linkedin-optimizer/internal/prompts"
	"linkedin-optimizer/internal/shared/telemetry"
)

var (
	ErrEmptyDocument = errors.New("no text content found in PDF")
	ErrInvalidInput  = errors.New("invalid profile input")
)

// Collector turns a profile PDF into a Profile through one model call.
type Collector struct {
	LLM       llm.Generator
	Extractor extract.Extractor
	Prompts   *prompts.Catalog
	Recorder  *progress.Recorder
}

// NewCollector wires a Collector. A nil catalog uses the embedded prompts.
func NewCollector(g llm.Generator, x extract.Extractor, catalog *prompts.Catalog, rec *progress.Recorder) *Collector {
	if catalog == nil {
		catalog = prompts.Default()
	}
	return &Collector{LLM: g, Extractor: x, Prompts: catalog, Recorder: rec}
}

// WithLLM returns a copy that uses g for generation.
func (c *Collector) WithLLM(g llm.Generator) *Collector {
	cp := *c
	cp.LLM = g
	return &cp
}

// ExtractFromBytes extracts a profile from PDF content.
func (c *Collector) ExtractFromBytes(ctx context.Context, optimizationID string, pdf []byte) (*Profile, error) {
	start := time.Now()
	if len(pdf) == 0 {
		return nil, c.fail(ctx, optimizationID, start, fmt.Errorf("%w: empty PDF", ErrInvalidInput))
	}
	text, err := c.Extractor.ExtractText(ctx, pdf)
	if err != nil {
		return nil, c.fail(ctx, optimizationID, start, err)
	}
	return c.fromText(ctx, optimizationID, text, start)
}

// ExtractFromFile extracts a profile from a PDF on disk.
func (c *Collector) ExtractFromFile(ctx context.Context, optimizationID string, path string) (*Profile, error) {
	start := time.Now()
	if strings.TrimSpace(path) == "" {
		return nil, c.fail(ctx, optimizationID, start, fmt.Errorf("%w: empty path", ErrInvalidInput))
	}
	text, err := extract.ExtractFile(ctx, c.Extractor, path)
	if err != nil {
		return nil, c.fail(ctx, optimizationID, start, err)
	}
	return c.fromText(ctx, optimizationID, text, start)
}

func (c *Collector) fromText(ctx context.Context, optimizationID, text string, start time.Time) (*Profile, error) {
	if strings.TrimSpace(text) == "" {
		return nil, c.fail(ctx, optimizationID, start, ErrEmptyDocument)
	}
	system, err := c.Prompts.System(prompts.ProfileCollector)
	if err != nil {
		return nil, c.fail(ctx, optimizationID, start, err)
	}
	user, err := c.Prompts.FormatUser(prompts.ProfileCollector, map[string]string{"pdf_content": text})
	if err != nil {
		return nil, c.fail(ctx, optimizationID, start, err)
	}

	completion, err := c.LLM.Generate(ctx, system, user)
	if err != nil {
		return nil, c.fail(ctx, optimizationID, start, err)
	}
	raw, err := llm.ParseObject(completion.Content)
	if err != nil {
		return nil, c.fail(ctx, optimizationID, start, err)
	}

	p := Normalize(raw)
	if !completion.Usage.IsZero() {
		usage := completion.Usage
		p.TokenUsage = &usage
	}

	duration := time.Since(start).Seconds()
	sections := p.FilledSections()
	c.Recorder.Record(ctx, optimizationID, progress.StepProfileExtraction, map[string]any{
		"duration":           duration,
		"sections":           sections,
		"extraction_quality": p.ExtractionQuality(),
		"text_length":        len(text),
	}, progress.StatusProcessing)
	telemetry.Info("profile.extracted", map[string]any{
		"request_id":      optimizationID,
		"duration_ms":     time.Since(start).Milliseconds(),
		"text_length":     len(text),
		"filled_sections": len(sections),
	})
	return &p, nil
}

func (c *Collector) fail(ctx context.Context, optimizationID string, start time.Time, err error) error {
	wrapped := fmt.Errorf("extract profile data: %w", err)
	c.Recorder.Record(ctx, optimizationID, progress.StepProfileExtraction, map[string]any{
		"error":    wrapped.Error(),
		"duration": time.Since(start).Seconds(),
	}, progress.StatusFailed)
	telemetry.Warn("profile.extract_failed", map[string]any{
		"request_id": optimizationID,
		"error":      wrapped,
	})
	return wrapped
}
