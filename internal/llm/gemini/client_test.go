package gemini

import (
	"errors"
	"fmt"
	"testing"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"

	"linkedin-optimizer/internal/llm"
)

func TestMapError(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want llm.Kind
	}{
		{"bad key", &googleapi.Error{Code: 400, Message: "API key not valid. Please pass a valid API key."}, llm.KindInvalidAPIKey},
		{"quota", fmt.Errorf("generate: %w", &googleapi.Error{Code: 429, Message: "Resource has been exhausted"}), llm.KindRateLimited},
		{"forbidden", &googleapi.Error{Code: 403, Message: "caller does not have permission"}, llm.KindPermission},
		{"unavailable", &googleapi.Error{Code: 503, Message: "overloaded"}, llm.KindTransient},
		{"plain", errors.New("something odd"), llm.KindUnknown},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, llm.KindOf(mapError(tc.err)))
		})
	}
}

func TestExtractTextAndUsage(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []genai.Part{genai.Text(`{"a":`), genai.Text(`1}`)}},
		}},
		UsageMetadata: &genai.UsageMetadata{PromptTokenCount: 7, CandidatesTokenCount: 3, TotalTokenCount: 10},
	}
	text, err := extractText(resp)
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, text)

	u := usageFrom("gemini-2.5-flash", resp)
	assert.Equal(t, llm.Usage{Model: "gemini-2.5-flash", PromptTokens: 7, CompletionTokens: 3, TotalTokens: 10}, u)

	_, err = extractText(&genai.GenerateContentResponse{})
	assert.Error(t, err)
}
