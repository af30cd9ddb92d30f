package llm

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrResponseParse matches any *ParseError.
var ErrResponseParse = errors.New("response parse error")

const maxSnippet = 500

var fencedBlock = regexp.MustCompile("```(?:json)?\\s*([\\s\\S]*?)\\s*```")

// ParseError reports model output that is not a JSON object.
type ParseError struct {
	Snippet string
	Err     error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse model response as JSON: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

func (e *ParseError) Is(target error) bool { return target == ErrResponseParse }

// ExtractJSON returns the interior of the first fenced code block, or the
// trimmed input when there is none.
func ExtractJSON(content string) string {
	if m := fencedBlock.FindStringSubmatch(content); m != nil {
		return strings.TrimSpace(m[1])
	}
	return strings.TrimSpace(content)
}

// ParseObject extracts and decodes a JSON object from model output.
func ParseObject(content string) (map[string]any, error) {
	raw := ExtractJSON(content)
	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	var out any
	if err := dec.Decode(&out); err != nil {
		return nil, &ParseError{Snippet: snippet(content), Err: err}
	}
	if dec.More() {
		return nil, &ParseError{Snippet: snippet(content), Err: errors.New("trailing data after JSON value")}
	}
	obj, ok := out.(map[string]any)
	if !ok {
		return nil, &ParseError{Snippet: snippet(content), Err: fmt.Errorf("expected JSON object, got %T", out)}
	}
	return obj, nil
}

func snippet(s string) string {
	if len(s) <= maxSnippet {
		return s
	}
	return s[:maxSnippet]
}
