package normalize

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestString(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "", String(nil))
	assert.Equal(t, "hi", String("hi"))
	assert.Equal(t, "42", String(float64(42)))
	assert.Equal(t, "4.5", String(4.5))
	assert.Equal(t, "true", String(true))
	assert.Equal(t, `{"a":1}`, String(map[string]any{"a": float64(1)}))
	assert.Equal(t, `["x"]`, String([]any{"x"}))
}

func TestNullableString(t *testing.T) {
	t.Parallel()
	assert.Nil(t, NullableString(nil))
	got := NullableString("Jane")
	if assert.NotNil(t, got) {
		assert.Equal(t, "Jane", *got)
	}
}

func TestListAndObject(t *testing.T) {
	t.Parallel()
	assert.Equal(t, []any{}, List(nil))
	assert.Equal(t, []any{}, List("not a list"))
	assert.Equal(t, []any{"a", float64(1)}, List([]any{"a", float64(1)}))
	assert.Equal(t, map[string]any{}, Object([]any{}))
	assert.Len(t, Objects([]any{map[string]any{"a": 1}, "skip", float64(3)}), 1)
}

func TestScore(t *testing.T) {
	t.Parallel()
	cases := []struct {
		in   any
		want int
	}{
		{float64(-5), 0},
		{float64(150), 100},
		{"bad", 0},
		{float64(42), 42},
		{42.9, 42},
		{json.Number("77"), 77},
		{nil, 0},
		{true, 0},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Score(tc.in), "%v", tc.in)
	}
}
