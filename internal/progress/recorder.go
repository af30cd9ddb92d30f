package progress

import (
	"context"
	"errors"

	"linkedin-optimizer/internal/shared/telemetry"
)

// Recorder writes step progress on behalf of the pipeline stages.
// Storage failures are logged and never returned.
type Recorder struct {
	Store Store
}

// NewRecorder wraps store. A nil store records nothing.
func NewRecorder(store Store) *Recorder {
	return &Recorder{Store: store}
}

// Record saves a step and reports whether it was persisted.
func (r *Recorder) Record(ctx context.Context, optimizationID, step string, data map[string]any, status string) bool {
	if r == nil || r.Store == nil || !r.Store.Enabled() {
		return false
	}
	if err := r.Store.SaveStepProgress(ctx, optimizationID, step, data, status); err != nil {
		level := telemetry.Warn
		if errors.Is(err, ErrStorageDisabled) {
			level = telemetry.Debug
		}
		level("progress.save_failed", map[string]any{
			"optimization_id": optimizationID,
			"step":            step,
			"status":          status,
			"error":           err,
		})
		return false
	}
	telemetry.Debug("progress.saved", map[string]any{
		"optimization_id": optimizationID,
		"step":            step,
		"status":          status,
	})
	return true
}
