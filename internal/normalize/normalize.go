// Package normalize coerces loosely shaped JSON values, as decoded from model
// output, into the types the record packages expect.
package normalize

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// String returns v as text. Missing values become "", scalars are formatted
// and objects or lists are rendered as compact JSON.
func String(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case json.Number:
		return t.String()
	case int:
		return strconv.Itoa(t)
	case map[string]any, []any:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(b)
	default:
		return fmt.Sprint(t)
	}
}

// NullableString is like String but keeps a missing value as nil.
func NullableString(v any) *string {
	if v == nil {
		return nil
	}
	s := String(v)
	return &s
}

// List returns v when it is a list and an empty, non-nil list otherwise.
func List(v any) []any {
	l, ok := v.([]any)
	if !ok || l == nil {
		return []any{}
	}
	out := make([]any, len(l))
	copy(out, l)
	return out
}

// Object returns v when it is an object and an empty, non-nil object otherwise.
func Object(v any) map[string]any {
	m, ok := v.(map[string]any)
	if !ok || m == nil {
		return map[string]any{}
	}
	return m
}

// Objects keeps only the object entries of a list.
func Objects(v any) []map[string]any {
	l, _ := v.([]any)
	out := make([]map[string]any, 0, len(l))
	for _, item := range l {
		if m, ok := item.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}

// Score truncates a numeric value toward zero and clamps it to [0,100].
// Anything that is not a JSON number scores 0.
func Score(v any) int {
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case int:
		f = float64(t)
	case json.Number:
		parsed, err := t.Float64()
		if err != nil {
			return 0
		}
		f = parsed
	default:
		return 0
	}
	if math.IsNaN(f) {
		return 0
	}
	f = math.Trunc(f)
	switch {
	case f < 0:
		return 0
	case f > 100:
		return 100
	}
	return int(f)
}

// ToMap round-trips a typed record through JSON into a generic object.
func ToMap(v any) (map[string]any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	return out, nil
}
