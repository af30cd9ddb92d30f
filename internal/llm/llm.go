package llm

import (
	"context"
)

// Generator abstracts text-generation providers. Implementations return the
// raw model text; callers extract and normalize JSON themselves.
type Generator interface {
	Generate(ctx context.Context, systemPrompt, userPrompt string) (Completion, error)
}

// KeyedGenerator is implemented by generators that can be rebound to a
// per-request credential.
type KeyedGenerator interface {
	Generator
	WithAPIKey(apiKey string) (Generator, error)
}

// Completion is a single model response.
type Completion struct {
	Content string
	Usage   Usage
}

// Usage reports token accounting for one or more calls.
type Usage struct {
	Model            string `json:"model,omitempty"`
	PromptTokens     int    `json:"prompt_tokens"`
	CompletionTokens int    `json:"completion_tokens"`
	TotalTokens      int    `json:"total_tokens"`
}

// Add returns the sum of u and other. The model of u wins when set.
func (u Usage) Add(other Usage) Usage {
	out := Usage{
		Model:            u.Model,
		PromptTokens:     u.PromptTokens + other.PromptTokens,
		CompletionTokens: u.CompletionTokens + other.CompletionTokens,
		TotalTokens:      u.TotalTokens + other.TotalTokens,
	}
	if out.Model == "" {
		out.Model = other.Model
	}
	return out
}

// IsZero reports whether no tokens and no model were recorded.
func (u Usage) IsZero() bool {
	return u == Usage{}
}

// Unconfigured is used when no provider credential is available. Every call
// fails with an invalid API key error unless a key is supplied per request.
type Unconfigured struct {
	Provider string
	// Bind builds a real generator once a key is known. Optional.
	Bind func(apiKey string) (Generator, error)
}

// Generate always fails.
func (u Unconfigured) Generate(ctx context.Context, systemPrompt, userPrompt string) (Completion, error) {
	return Completion{}, &Error{
		Provider: u.Provider,
		Kind:     KindInvalidAPIKey,
		Message:  "no API key configured",
	}
}

// WithAPIKey binds the key using Bind.
func (u Unconfigured) WithAPIKey(apiKey string) (Generator, error) {
	if u.Bind == nil {
		return u, nil
	}
	return u.Bind(apiKey)
}

var _ KeyedGenerator = Unconfigured{}

// UsageFrom reads a token_usage object carried inside decoded model JSON.
// It returns nil unless v is an object with at least one token count.
func UsageFrom(v any) *Usage {
	m, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	var u Usage
	found := false
	for key, dst := range map[string]*int{
		"prompt_tokens":     &u.PromptTokens,
		"completion_tokens": &u.CompletionTokens,
		"total_tokens":      &u.TotalTokens,
	} {
		switch n := m[key].(type) {
		case float64:
			*dst = int(n)
			found = true
		case int:
			*dst = n
			found = true
		}
	}
	if !found {
		return nil
	}
	if model, ok := m["model"].(string); ok {
		u.Model = model
	}
	return &u
}
