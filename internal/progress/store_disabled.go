package progress

import (
	"context"
	"encoding/json"
)

// DisabledStore is used when no progress backend is configured.
type DisabledStore struct{}

func (DisabledStore) Enabled() bool { return false }

func (DisabledStore) SaveStepProgress(context.Context, string, string, map[string]any, string) error {
	return ErrStorageDisabled
}

func (DisabledStore) GetProgress(context.Context, string) (Progress, error) {
	return Progress{}, ErrStorageDisabled
}

func (DisabledStore) SaveResult(context.Context, string, json.RawMessage, ResultMeta) error {
	return ErrStorageDisabled
}

func (DisabledStore) GetResult(context.Context, string) (StoredResult, error) {
	return StoredResult{}, ErrStorageDisabled
}

func (DisabledStore) ListRecent(context.Context, int) ([]ResultSummary, error) {
	return nil, ErrStorageDisabled
}

func (DisabledStore) Delete(context.Context, string) error {
	return ErrStorageDisabled
}

var _ Store = DisabledStore{}
