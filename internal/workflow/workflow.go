// Package workflow runs the optimization pipeline: profile collection,
// analysis, content generation and result compilation over one shared state.
package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"linkedin-optimizer/internal/analysis"
	"linkedin-optimizer/internal/content"
	"linkedin-optimizer/internal/llm"
	"linkedin-optimizer/internal/profile"
	"linkedin-optimizer/internal/progress"
	"linkedin-optimizer/internal/shared/metrics"
	"linkedin-optimizer/internal/shared/telemetry"
)

// ErrNoDocument is returned when a run has neither a PDF path nor PDF bytes.
var ErrNoDocument = errors.New("No PDF data provided (neither path nor bytes)")

// Deps are the collaborators of a Workflow. Store and Clock are optional.
type Deps struct {
	Collector *profile.Collector
	Analyzer  *analysis.Analyzer
	Generator *content.Generator
	Store     progress.Store
	Clock     func() time.Time
}

// Workflow is safe for concurrent runs; every run owns its State.
type Workflow struct {
	collector *profile.Collector
	analyzer  *analysis.Analyzer
	generator *content.Generator
	store     progress.Store
	now       func() time.Time
	graph     graph
}

// Input describes one run. PDFBytes wins over PDFPath when both are set.
type Input struct {
	PDFPath    string
	PDFBytes   []byte
	TargetRole string
	RequestID  string
	// APIKey overrides the configured provider credential for this run.
	APIKey   string
	Metadata map[string]any
}

func New(deps Deps) *Workflow {
	w := &Workflow{
		collector: deps.Collector,
		analyzer:  deps.Analyzer,
		generator: deps.Generator,
		store:     deps.Store,
		now:       deps.Clock,
	}
	if w.store == nil {
		w.store = progress.DisabledStore{}
	}
	if w.now == nil {
		w.now = time.Now
	}
	w.graph = newGraph()
	return w
}

// Store returns the durable store used for progress and results.
func (w *Workflow) Store() progress.Store {
	return w.store
}

// Run executes the pipeline and always returns a result. Failures are
// reported through FinalResult.Success and FinalResult.Error.
func (w *Workflow) Run(ctx context.Context, in Input) (result *FinalResult) {
	id := in.RequestID
	if id == "" {
		id = uuid.NewString()
	}
	start := w.now()

	defer func() {
		if r := recover(); r != nil {
			telemetry.Error("workflow.panic", map[string]any{
				"request_id":  id,
				"error":       fmt.Sprint(r),
				"duration_ms": w.sinceMillis(start),
			})
			metrics.IncOptimizationFailed(false)
			result = &FinalResult{
				Success:        false,
				Error:          fmt.Sprintf("Workflow execution error: %v", r),
				Status:         statusCritical,
				OptimizationID: id,
			}
		}
	}()

	metrics.IncOptimizationStarted()
	telemetry.Info("workflow.started", map[string]any{
		"request_id":  id,
		"target_role": in.TargetRole,
		"source":      source(in),
	})

	r, err := w.newRun(in)
	if err != nil {
		kind := llm.KindOf(err)
		metrics.IncOptimizationFailed(kind.Critical())
		telemetry.Warn("workflow.credential_rejected", map[string]any{
			"request_id": id,
			"error":      err,
		})
		return &FinalResult{
			Success:        false,
			Status:         statusCritical,
			Error:          UserMessage(err, "Invalid API key: "+err.Error()),
			ErrorKind:      kind.String(),
			OptimizationID: id,
		}
	}
	defer r.close()

	state := &State{
		RequestID:  id,
		PDFPath:    in.PDFPath,
		PDFBytes:   in.PDFBytes,
		TargetRole: in.TargetRole,
		Metadata:   in.Metadata,
		Status:     statusStarting,
	}

	w.record(ctx, id, progress.StepStarted, map[string]any{
		"target_role":    in.TargetRole,
		"pdf_size_bytes": pdfSize(in),
		"source":         source(in),
	}, progress.StatusProcessing)

	w.graph.run(ctx, r, state)

	final := state.Final
	if final == nil {
		final = &FinalResult{
			Success: false,
			Error:   "No final results generated",
			Status:  statusNoResults,
		}
	}
	final.OptimizationID = id

	elapsed := w.sinceMillis(start)
	metrics.ObserveOptimizationDurationMs(elapsed)
	if final.Success {
		metrics.IncOptimizationCompleted()
		telemetry.Info("workflow.completed", map[string]any{
			"request_id":    id,
			"duration_ms":   elapsed,
			"storage_saved": final.StorageSaved,
		})
	} else {
		metrics.IncOptimizationFailed(state.critical())
		telemetry.Warn("workflow.failed", map[string]any{
			"request_id":  id,
			"duration_ms": elapsed,
			"error":       final.Error,
			"status":      final.Status,
		})
	}
	return final
}

// Status is the placeholder answer for live workflow status queries.
type Status struct {
	Status   string `json:"status"`
	Message  string `json:"message"`
	ThreadID string `json:"thread_id,omitempty"`
}

// GetStatus does not track live runs; progress is read from the store.
func (w *Workflow) GetStatus(threadID string) Status {
	return Status{
		Status:   "Workflow status tracking not implemented",
		Message:  "Use run_optimization for complete workflow execution",
		ThreadID: threadID,
	}
}

// GetResult loads a persisted result and stamps it with storage details.
func (w *Workflow) GetResult(ctx context.Context, optimizationID string) (*FinalResult, error) {
	stored, err := w.store.GetResult(ctx, optimizationID)
	if err != nil {
		return nil, err
	}
	var out FinalResult
	if err := json.Unmarshal(stored.Results, &out); err != nil {
		return nil, fmt.Errorf("decode stored result %s: %w", optimizationID, err)
	}
	if out.OptimizationID == "" {
		out.OptimizationID = optimizationID
	}
	info := stored.Info(w.now())
	out.StorageInfo = &info
	out.RequestMetadata = stored.Metadata
	return &out, nil
}

// run holds the stage collaborators bound for one execution.
type run struct {
	w         *Workflow
	in        Input
	collector *profile.Collector
	analyzer  *analysis.Analyzer
	generator *content.Generator
	// bound is the generator rebound to the request key, released after the run.
	bound llm.Generator
}

func (w *Workflow) newRun(in Input) (*run, error) {
	r := &run{w: w, in: in, collector: w.collector, analyzer: w.analyzer, generator: w.generator}
	if strings.TrimSpace(in.APIKey) == "" || w.collector == nil {
		return r, nil
	}
	keyed, ok := w.collector.LLM.(llm.KeyedGenerator)
	if !ok {
		return r, nil
	}
	g, err := keyed.WithAPIKey(in.APIKey)
	if err != nil {
		return nil, err
	}
	r.bound = g
	r.collector = w.collector.WithLLM(g)
	if w.analyzer != nil {
		r.analyzer = w.analyzer.WithLLM(g)
	}
	if w.generator != nil {
		r.generator = w.generator.WithLLM(g)
	}
	return r, nil
}

func (r *run) close() {
	c, ok := r.bound.(io.Closer)
	if !ok {
		return
	}
	if err := c.Close(); err != nil {
		telemetry.Warn("workflow.generator.close_failed", map[string]any{
			"request_id": r.in.RequestID,
			"error":      err,
		})
	}
}

func (w *Workflow) record(ctx context.Context, id, step string, data map[string]any, status string) {
	progress.NewRecorder(w.store).Record(ctx, id, step, data, status)
}

func (w *Workflow) sinceMillis(start time.Time) float64 {
	return float64(w.now().Sub(start).Microseconds()) / 1000
}

func (w *Workflow) sinceSeconds(start time.Time) float64 {
	return w.now().Sub(start).Seconds()
}

// UserMessage maps critical provider failures to fixed user-facing text and
// returns fallback for everything else.
func UserMessage(err error, fallback string) string {
	switch llm.KindOf(err) {
	case llm.KindInvalidAPIKey:
		return "Invalid or missing API key. Please check your API key and try again."
	case llm.KindRateLimited:
		return "AI provider rate limit or quota exceeded. Please check your usage limits or try again later."
	case llm.KindBilling:
		return "AI provider billing issue. Please check your account billing status and payment method."
	case llm.KindPermission:
		return "Authentication or permission error with the AI provider. Please verify your API key has the required permissions."
	}
	return fallback
}

func source(in Input) string {
	switch {
	case len(in.PDFBytes) > 0:
		return "bytes"
	case in.PDFPath != "":
		return "path"
	}
	return "none"
}

func pdfSize(in Input) int64 {
	if len(in.PDFBytes) > 0 {
		return int64(len(in.PDFBytes))
	}
	if in.PDFPath != "" {
		if info, err := os.Stat(in.PDFPath); err == nil {
			return info.Size()
		}
	}
	return 0
}
