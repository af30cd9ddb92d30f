package metrics

import (
	"bytes"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"
)

var (
	optimizationStartedTotal   atomic.Uint64
	optimizationCompletedTotal atomic.Uint64
	optimizationFailedTotal    atomic.Uint64
	criticalFailuresTotal      atomic.Uint64
	llmTokensTotal             atomic.Uint64

	jobsReceivedTotal             atomic.Uint64
	jobsFailedTotal               atomic.Uint64
	jobsDeletedUnrecoverableTotal atomic.Uint64

	stageMu        sync.Mutex
	stageDurations = map[string]*histogram{}
	stageBuckets   = []float64{100, 250, 500, 1000, 2000, 5000, 10000, 30000, 60000, 120000}

	optimizationDuration = newHistogram([]float64{1000, 5000, 10000, 30000, 60000, 120000, 300000})
)

// IncOptimizationStarted increments the started counter.
func IncOptimizationStarted() {
	optimizationStartedTotal.Add(1)
}

// IncOptimizationCompleted increments the completed counter.
func IncOptimizationCompleted() {
	optimizationCompletedTotal.Add(1)
}

// IncOptimizationFailed increments the failed counter. critical marks failures
// caused by credential, quota or billing problems upstream.
func IncOptimizationFailed(critical bool) {
	optimizationFailedTotal.Add(1)
	if critical {
		criticalFailuresTotal.Add(1)
	}
}

// AddLLMTokens adds to the total token counter.
func AddLLMTokens(n int) {
	if n > 0 {
		llmTokensTotal.Add(uint64(n))
	}
}

func IncJobsReceived() { jobsReceivedTotal.Add(1) }

func IncJobsFailed() { jobsFailedTotal.Add(1) }

func IncJobsDeletedUnrecoverable() { jobsDeletedUnrecoverableTotal.Add(1) }

// ObserveStageDurationMs records a workflow stage duration in milliseconds.
func ObserveStageDurationMs(stage string, value float64) {
	if value < 0 {
		value = 0
	}
	stageMu.Lock()
	h, ok := stageDurations[stage]
	if !ok {
		h = newHistogram(stageBuckets)
		stageDurations[stage] = h
	}
	stageMu.Unlock()
	h.Observe(value)
}

// ObserveOptimizationDurationMs records a full run duration in milliseconds.
func ObserveOptimizationDurationMs(value float64) {
	if value < 0 {
		value = 0
	}
	optimizationDuration.Observe(value)
}

// ContentType is the Prometheus text exposition content type.
const ContentType = "text/plain; version=0.0.4"

// Render renders metrics in Prometheus text format.
func Render() string {
	var buf bytes.Buffer
	writeCounter(&buf, "optimization_started_total", "Total optimizations started", optimizationStartedTotal.Load())
	writeCounter(&buf, "optimization_completed_total", "Total optimizations completed", optimizationCompletedTotal.Load())
	writeCounter(&buf, "optimization_failed_total", "Total optimizations failed", optimizationFailedTotal.Load())
	writeCounter(&buf, "optimization_critical_failures_total", "Failures caused by critical upstream errors", criticalFailuresTotal.Load())
	writeCounter(&buf, "llm_tokens_total", "Total LLM tokens consumed", llmTokensTotal.Load())
	writeCounter(&buf, "optimization_jobs_received_total", "Queue messages received", jobsReceivedTotal.Load())
	writeCounter(&buf, "optimization_jobs_failed_total", "Queue messages that failed processing", jobsFailedTotal.Load())
	writeCounter(&buf, "optimization_jobs_deleted_unrecoverable_total", "Unrecoverable queue messages deleted", jobsDeletedUnrecoverableTotal.Load())
	writeHistogram(&buf, "optimization_duration_ms", "", "Optimization duration in milliseconds", optimizationDuration.Snapshot())

	stageMu.Lock()
	stages := make([]string, 0, len(stageDurations))
	for name := range stageDurations {
		stages = append(stages, name)
	}
	stageMu.Unlock()
	sort.Strings(stages)
	if len(stages) > 0 {
		fmt.Fprintf(&buf, "# HELP workflow_stage_duration_ms Workflow stage duration in milliseconds\n")
		fmt.Fprintf(&buf, "# TYPE workflow_stage_duration_ms histogram\n")
	}
	for _, name := range stages {
		stageMu.Lock()
		h := stageDurations[name]
		stageMu.Unlock()
		writeSeries(&buf, "workflow_stage_duration_ms", fmt.Sprintf("stage=%q", name), h.Snapshot())
	}
	return buf.String()
}

type histogram struct {
	mu      sync.Mutex
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

type histogramSnapshot struct {
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

func newHistogram(buckets []float64) *histogram {
	return &histogram{
		buckets: buckets,
		counts:  make([]uint64, len(buckets)),
	}
}

func (h *histogram) Observe(value float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.count++
	h.sum += value
	for i, bound := range h.buckets {
		if value <= bound {
			h.counts[i]++
			break
		}
	}
}

func (h *histogram) Snapshot() histogramSnapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := histogramSnapshot{
		buckets: append([]float64(nil), h.buckets...),
		counts:  append([]uint64(nil), h.counts...),
		sum:     h.sum,
		count:   h.count,
	}
	return out
}

func writeCounter(buf *bytes.Buffer, name, help string, value uint64) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s counter\n", name)
	fmt.Fprintf(buf, "%s %d\n", name, value)
}

func writeHistogram(buf *bytes.Buffer, name, labels, help string, snap histogramSnapshot) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s histogram\n", name)
	writeSeries(buf, name, labels, snap)
}

func writeSeries(buf *bytes.Buffer, name, labels string, snap histogramSnapshot) {
	prefix := ""
	suffix := ""
	if labels != "" {
		prefix = labels + ","
		suffix = "{" + labels + "}"
	}
	var cumulative uint64
	for i, bound := range snap.buckets {
		cumulative += snap.counts[i]
		fmt.Fprintf(buf, "%s_bucket{%sle=\"%s\"} %d\n", name, prefix, formatFloat(bound), cumulative)
	}
	fmt.Fprintf(buf, "%s_bucket{%sle=\"+Inf\"} %d\n", name, prefix, snap.count)
	fmt.Fprintf(buf, "%s_sum%s %s\n", name, suffix, formatFloat(snap.sum))
	fmt.Fprintf(buf, "%s_count%s %d\n", name, suffix, snap.count)
}

func formatFloat(value float64) string {
	if value == float64(int64(value)) {
		return strconv.FormatInt(int64(value), 10)
	}
	return strconv.FormatFloat(value, 'f', -1, 64)
}

// SinceMillis returns the milliseconds elapsed since start.
func SinceMillis(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000.0
}
