package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"linkedin-optimizer/internal/llm"
	"linkedin-optimizer/internal/shared/telemetry"
)

const providerName = "gemini"

// Options configures a Client.
type Options struct {
	Model       string
	Temperature float64
	MaxTokens   int
	JSONMode    bool
}

// Client implements llm.Generator using the Gemini API.
type Client struct {
	client *genai.Client
	opts   Options
}

// NewClient creates a Gemini client bound to apiKey.
func NewClient(ctx context.Context, apiKey string, opts Options) (*Client, error) {
	if strings.TrimSpace(opts.Model) == "" {
		return nil, fmt.Errorf("LLM_MODEL is required for Gemini")
	}
	if strings.TrimSpace(apiKey) == "" {
		return nil, &llm.Error{Provider: providerName, Kind: llm.KindInvalidAPIKey, Message: "GEMINI_API_KEY is required"}
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &Client{client: client, opts: opts}, nil
}

// WithAPIKey returns a new client bound to apiKey.
func (c *Client) WithAPIKey(apiKey string) (llm.Generator, error) {
	if strings.TrimSpace(apiKey) == "" {
		return c, nil
	}
	return NewClient(context.Background(), apiKey, c.opts)
}

// Close releases resources held by the client.
func (c *Client) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

// Generate sends the system prompt as a system instruction and the user prompt
// as the only content part.
func (c *Client) Generate(ctx context.Context, systemPrompt, userPrompt string) (llm.Completion, error) {
	model := c.client.GenerativeModel(c.opts.Model)
	model.SetTemperature(float32(c.opts.Temperature))
	if c.opts.MaxTokens > 0 {
		model.SetMaxOutputTokens(int32(c.opts.MaxTokens))
	}
	if c.opts.JSONMode {
		model.ResponseMIMEType = "application/json"
	}
	if strings.TrimSpace(systemPrompt) != "" {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(systemPrompt)}}
	}

	start := time.Now()
	resp, err := model.GenerateContent(ctx, genai.Text(userPrompt))
	if err != nil {
		return llm.Completion{}, mapError(err)
	}
	text, err := extractText(resp)
	if err != nil {
		return llm.Completion{}, &llm.Error{Provider: providerName, Kind: llm.KindUnknown, Message: err.Error()}
	}

	out := llm.Completion{Content: strings.TrimSpace(text), Usage: usageFrom(c.opts.Model, resp)}
	telemetry.Info("llm.response", map[string]any{
		"provider":          providerName,
		"model":             out.Usage.Model,
		"prompt_tokens":     out.Usage.PromptTokens,
		"completion_tokens": out.Usage.CompletionTokens,
		"total_tokens":      out.Usage.TotalTokens,
		"duration_ms":       float64(time.Since(start).Microseconds()) / 1000.0,
	})
	return out, nil
}

func usageFrom(model string, resp *genai.GenerateContentResponse) llm.Usage {
	u := llm.Usage{Model: model}
	if resp == nil || resp.UsageMetadata == nil {
		return u
	}
	u.PromptTokens = int(resp.UsageMetadata.PromptTokenCount)
	u.CompletionTokens = int(resp.UsageMetadata.CandidatesTokenCount)
	u.TotalTokens = int(resp.UsageMetadata.TotalTokenCount)
	return u
}

func extractText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", fmt.Errorf("no candidates in response")
	}
	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return "", fmt.Errorf("no content in response")
	}
	var parts []string
	for _, part := range candidate.Content.Parts {
		if text, ok := part.(genai.Text); ok {
			parts = append(parts, string(text))
		}
	}
	if len(parts) == 0 {
		return "", fmt.Errorf("no text parts in response")
	}
	return strings.Join(parts, ""), nil
}

func mapError(err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	e := &llm.Error{Provider: providerName, Err: err, Message: err.Error()}
	var gErr *googleapi.Error
	if errors.As(err, &gErr) {
		e.StatusCode = gErr.Code
		if gErr.Message != "" {
			e.Message = gErr.Message
		}
		// Gemini reports a bad key as 400 INVALID_ARGUMENT.
		if gErr.Code == 400 && strings.Contains(strings.ToLower(gErr.Message), "api key") {
			e.Kind = llm.KindInvalidAPIKey
		} else {
			e.Kind = llm.KindFromStatus(gErr.Code)
		}
	}
	if e.Kind == llm.KindUnknown {
		e.Kind = llm.KindOf(err)
	}
	return e
}

var _ llm.KeyedGenerator = (*Client)(nil)
