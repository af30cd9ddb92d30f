package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"linkedin-optimizer/internal/llm"
	"linkedin-optimizer/internal/shared/telemetry"
)

const providerName = "openai"

var apiURL = "https://api.openai.com/v1/chat/completions"

// Options configures a Client.
type Options struct {
	Model       string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
	// JSONMode requests response_format json_object.
	JSONMode bool
}

// Client implements llm.Generator using OpenAI Chat Completions.
type Client struct {
	apiKey     string
	opts       Options
	httpClient *http.Client
}

// NewClient constructs a new OpenAI client.
func NewClient(apiKey string, opts Options) (*Client, error) {
	if strings.TrimSpace(opts.Model) == "" {
		return nil, fmt.Errorf("LLM_MODEL is required for OpenAI")
	}
	if strings.TrimSpace(apiKey) == "" {
		return nil, &llm.Error{Provider: providerName, Kind: llm.KindInvalidAPIKey, Message: "OPENAI_API_KEY is required"}
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 120 * time.Second
	}
	return &Client{
		apiKey: apiKey,
		opts:   opts,
		httpClient: &http.Client{
			Timeout: opts.Timeout,
		},
	}, nil
}

// WithAPIKey returns a copy of the client bound to apiKey.
func (c *Client) WithAPIKey(apiKey string) (llm.Generator, error) {
	if strings.TrimSpace(apiKey) == "" {
		return c, nil
	}
	cp := *c
	cp.apiKey = apiKey
	return &cp, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	Temperature    *float64        `json:"temperature,omitempty"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Usage *struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage,omitempty"`
	Error *apiError `json:"error,omitempty"`
}

type apiError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    any    `json:"code"`
}

// Generate sends one system and one user message.
func (c *Client) Generate(ctx context.Context, systemPrompt, userPrompt string) (llm.Completion, error) {
	messages := make([]chatMessage, 0, 2)
	if strings.TrimSpace(systemPrompt) != "" {
		messages = append(messages, chatMessage{Role: "system", Content: systemPrompt})
	}
	messages = append(messages, chatMessage{Role: "user", Content: userPrompt})

	reqBody := chatRequest{
		Model:     c.opts.Model,
		Messages:  messages,
		MaxTokens: c.opts.MaxTokens,
	}
	if !isGPT5(c.opts.Model) {
		temp := c.opts.Temperature
		reqBody.Temperature = &temp
	}
	if c.opts.JSONMode {
		reqBody.ResponseFormat = &responseFormat{Type: "json_object"}
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return llm.Completion{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL, bytes.NewReader(payload))
	if err != nil {
		return llm.Completion{}, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return llm.Completion{}, err
		}
		return llm.Completion{}, &llm.Error{Provider: providerName, Kind: llm.KindTransient, Message: "request failed", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return llm.Completion{}, &llm.Error{Provider: providerName, Kind: llm.KindTransient, StatusCode: resp.StatusCode, Err: err}
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		if resp.StatusCode >= 400 {
			return llm.Completion{}, statusError(resp.StatusCode, nil, strings.TrimSpace(string(body)))
		}
		return llm.Completion{}, &llm.Error{Provider: providerName, Kind: llm.KindUnknown, StatusCode: resp.StatusCode, Message: "response parse", Err: err}
	}
	if parsed.Error != nil || resp.StatusCode >= 400 {
		return llm.Completion{}, statusError(resp.StatusCode, parsed.Error, strings.TrimSpace(string(body)))
	}
	if len(parsed.Choices) == 0 {
		return llm.Completion{}, &llm.Error{Provider: providerName, Kind: llm.KindUnknown, StatusCode: resp.StatusCode, Message: "response missing choices"}
	}

	out := llm.Completion{
		Content: strings.TrimSpace(parsed.Choices[0].Message.Content),
		Usage:   llm.Usage{Model: parsed.Model},
	}
	if out.Usage.Model == "" {
		out.Usage.Model = c.opts.Model
	}
	if parsed.Usage != nil {
		out.Usage.PromptTokens = parsed.Usage.PromptTokens
		out.Usage.CompletionTokens = parsed.Usage.CompletionTokens
		out.Usage.TotalTokens = parsed.Usage.TotalTokens
	}
	logUsage(out.Usage, time.Since(start))
	return out, nil
}

// statusError maps an OpenAI error payload onto an llm.Error. The error code
// and type are more specific than the status, so they are consulted first.
func statusError(status int, apiErr *apiError, raw string) *llm.Error {
	e := &llm.Error{Provider: providerName, StatusCode: status, Message: raw}
	if apiErr != nil {
		e.Message = apiErr.Message
		e.Type = apiErr.Type
		if apiErr.Code != nil {
			e.Code = fmt.Sprint(apiErr.Code)
		}
	}
	switch {
	case e.Code == "invalid_api_key":
		e.Kind = llm.KindInvalidAPIKey
	case e.Code == "insufficient_quota" || e.Code == "rate_limit_exceeded" || e.Type == "insufficient_quota":
		e.Kind = llm.KindRateLimited
	case e.Code == "billing_not_active" || e.Code == "billing_hard_limit_reached":
		e.Kind = llm.KindBilling
	}
	if e.Kind == llm.KindUnknown {
		e.Kind = llm.KindFromStatus(status)
	}
	if e.Kind == llm.KindUnknown {
		e.Kind = llm.Classify(e.Type + " " + e.Code + " " + e.Message)
	}
	return e
}

func logUsage(usage llm.Usage, latency time.Duration) {
	telemetry.Info("llm.response", map[string]any{
		"provider":          providerName,
		"model":             usage.Model,
		"prompt_tokens":     usage.PromptTokens,
		"completion_tokens": usage.CompletionTokens,
		"total_tokens":      usage.TotalTokens,
		"duration_ms":       float64(latency.Microseconds()) / 1000.0,
	})
}

func isGPT5(model string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(model)), "gpt-5")
}

var _ llm.KeyedGenerator = (*Client)(nil)
