package progress

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"
)

// record is the storage shape shared by every backend.
type record struct {
	OptimizationID       string              `dynamodbav:"optimization_id"`
	Status               string              `dynamodbav:"status"`
	CurrentStep          string              `dynamodbav:"current_step,omitempty"`
	ProcessingSteps      []string            `dynamodbav:"processing_steps"`
	StepDetails          map[string]stepItem `dynamodbav:"step_details"`
	Results              string              `dynamodbav:"results,omitempty"`
	Metadata             string              `dynamodbav:"metadata,omitempty"`
	ProfileScore         *int                `dynamodbav:"profile_score,omitempty"`
	CompletenessScore    *float64            `dynamodbav:"completeness_score,omitempty"`
	RecommendationsCount *int                `dynamodbav:"recommendations_count,omitempty"`
	ContentIdeasCount    *int                `dynamodbav:"content_ideas_count,omitempty"`
	CreatedAt            string              `dynamodbav:"created_at"`
	UpdatedAt            string              `dynamodbav:"updated_at"`
	TTL                  int64               `dynamodbav:"ttl"`
}

type stepItem struct {
	CompletedAt string         `dynamodbav:"completed_at" json:"completed_at"`
	Data        map[string]any `dynamodbav:"data" json:"data"`
	Duration    float64        `dynamodbav:"duration" json:"duration"`
}

// expiredAt reports whether the item's ttl has passed. Items without a ttl
// never expire.
func (r record) expiredAt(now time.Time) bool {
	return r.TTL > 0 && now.Unix() > r.TTL
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func (r *record) applyStep(id, step string, data map[string]any, status string, now time.Time, ttl time.Duration) error {
	cloned, err := cloneData(data)
	if err != nil {
		return fmt.Errorf("encode step data: %w", err)
	}
	if r.StepDetails == nil {
		r.StepDetails = map[string]stepItem{}
	}
	if !containsString(r.ProcessingSteps, step) {
		r.ProcessingSteps = append(r.ProcessingSteps, step)
	}
	duration, _ := number(cloned["duration"])
	stamp := formatTime(now)
	r.StepDetails[step] = stepItem{CompletedAt: stamp, Data: cloned, Duration: duration}

	r.OptimizationID = id
	r.CurrentStep = step
	r.Status = status
	r.UpdatedAt = stamp
	r.TTL = now.Add(ttl).Unix()
	if r.CreatedAt == "" {
		r.CreatedAt = stamp
	}
	return nil
}

// applyResult merges a result into the item. Progress fields and
// created_at survive so the progress view stays intact after completion.
func (r *record) applyResult(id string, result json.RawMessage, meta ResultMeta, now time.Time, ttl time.Duration) error {
	if !json.Valid(result) {
		return fmt.Errorf("result is not valid JSON")
	}
	stamp := formatTime(now)
	r.OptimizationID = id
	r.Results = string(result)
	r.UpdatedAt = stamp
	if r.CreatedAt == "" {
		r.CreatedAt = stamp
	}
	r.TTL = now.Add(ttl).Unix()
	if meta.Success {
		r.Status = StatusCompleted
		score := meta.ProfileScore
		completeness := meta.CompletenessScore
		recs := meta.RecommendationsCount
		ideas := meta.ContentIdeasCount
		r.ProfileScore = &score
		r.CompletenessScore = &completeness
		r.RecommendationsCount = &recs
		r.ContentIdeasCount = &ideas
	} else {
		r.Status = StatusFailed
	}
	if len(meta.Metadata) > 0 {
		raw, err := json.Marshal(meta.Metadata)
		if err != nil {
			return fmt.Errorf("encode metadata: %w", err)
		}
		r.Metadata = string(raw)
	}
	return nil
}

func (r record) progress() Progress {
	steps := append([]string{}, r.ProcessingSteps...)
	details := make(map[string]StepDetail, len(r.StepDetails))
	for name, item := range r.StepDetails {
		data := item.Data
		if data == nil {
			data = map[string]any{}
		}
		details[name] = StepDetail{
			CompletedAt: parseTime(item.CompletedAt),
			Data:        data,
			Duration:    item.Duration,
		}
	}
	status := r.Status
	if status == "" {
		status = "unknown"
	}
	p := Progress{
		OptimizationID:  r.OptimizationID,
		Status:          status,
		CurrentStep:     r.CurrentStep,
		ProcessingSteps: steps,
		StepDetails:     details,
		CreatedAt:       parseTime(r.CreatedAt),
		UpdatedAt:       parseTime(r.UpdatedAt),
	}
	if r.Results != "" {
		p.Results = json.RawMessage(r.Results)
	}
	return p
}

func (r record) stored() (StoredResult, error) {
	if r.Results == "" {
		return StoredResult{}, ErrNotFound
	}
	out := StoredResult{
		OptimizationID: r.OptimizationID,
		Results:        json.RawMessage(r.Results),
		Status:         r.Status,
		CreatedAt:      parseTime(r.CreatedAt),
	}
	if r.Metadata != "" {
		var meta map[string]any
		if err := json.Unmarshal([]byte(r.Metadata), &meta); err != nil {
			return StoredResult{}, fmt.Errorf("decode metadata: %w", err)
		}
		out.Metadata = meta
	}
	return out, nil
}

func (r record) summary() ResultSummary {
	return ResultSummary{
		OptimizationID:    r.OptimizationID,
		CreatedAt:         r.CreatedAt,
		Status:            r.Status,
		ProfileScore:      r.ProfileScore,
		CompletenessScore: r.CompletenessScore,
	}
}

// newestFirst sorts by created_at descending and truncates to limit.
func newestFirst(items []ResultSummary, limit int) []ResultSummary {
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].CreatedAt > items[j].CreatedAt
	})
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items
}

// cloneData round-trips through JSON so every backend sees the same
// number and nesting representation.
func cloneData(data map[string]any) (map[string]any, error) {
	if len(data) == 0 {
		return map[string]any{}, nil
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	out := map[string]any{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
