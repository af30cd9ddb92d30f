package workflow

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Timing keys, one per stage.
const (
	TimingProfileCollection  = "profile_collection"
	TimingProfileAnalysis    = "profile_analysis"
	TimingContentGeneration  = "content_generation"
	TimingResultsCompilation = "results_compilation"
)

// Timing is the elapsed time of one completed stage.
type Timing struct {
	Step    string
	Seconds float64
}

// StepTimings keeps stage timings in completion order and encodes them as a
// JSON object with keys in that order.
type StepTimings []Timing

// Add appends a timing. Steps are never removed.
func (t *StepTimings) Add(step string, seconds float64) {
	*t = append(*t, Timing{Step: step, Seconds: seconds})
}

// Keys returns the step names in order.
func (t StepTimings) Keys() []string {
	out := make([]string, len(t))
	for i, v := range t {
		out[i] = v.Step
	}
	return out
}

// Total sums every timing.
func (t StepTimings) Total() float64 {
	var sum float64
	for _, v := range t {
		sum += v.Seconds
	}
	return sum
}

func (t StepTimings) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, v := range t {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(v.Step)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(v.Seconds)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (t *StepTimings) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*t = nil
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("step timings: expected object")
	}
	out := StepTimings{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("step timings: expected key")
		}
		var seconds float64
		if err := dec.Decode(&seconds); err != nil {
			return fmt.Errorf("step timings %s: %w", key, err)
		}
		out = append(out, Timing{Step: key, Seconds: seconds})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*t = out
	return nil
}
