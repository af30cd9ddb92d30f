package progress

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

// MemoryStore keeps progress in memory and is safe for concurrent use.
type MemoryStore struct {
	mu    sync.RWMutex
	items map[string]record
	now   func() time.Time
	ttl   time.Duration
}

// NewMemoryStore constructs a MemoryStore. A zero ttl uses DefaultTTL.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryStore{items: map[string]record{}, now: time.Now, ttl: ttl}
}

func (s *MemoryStore) Enabled() bool { return true }

func (s *MemoryStore) SaveStepProgress(ctx context.Context, optimizationID, step string, data map[string]any, status string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := s.live(optimizationID)
	if err := rec.applyStep(optimizationID, step, data, status, s.now(), s.ttl); err != nil {
		return err
	}
	s.items[optimizationID] = rec
	return nil
}

func (s *MemoryStore) GetProgress(ctx context.Context, optimizationID string) (Progress, error) {
	if err := ctx.Err(); err != nil {
		return Progress{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.items[optimizationID]
	if !ok || s.expired(rec) {
		return Progress{}, ErrNotFound
	}
	return rec.progress(), nil
}

func (s *MemoryStore) SaveResult(ctx context.Context, optimizationID string, result json.RawMessage, meta ResultMeta) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := s.live(optimizationID)
	if err := rec.applyResult(optimizationID, result, meta, s.now(), s.ttl); err != nil {
		return err
	}
	s.items[optimizationID] = rec
	return nil
}

func (s *MemoryStore) GetResult(ctx context.Context, optimizationID string) (StoredResult, error) {
	if err := ctx.Err(); err != nil {
		return StoredResult{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.items[optimizationID]
	if !ok || s.expired(rec) {
		return StoredResult{}, ErrNotFound
	}
	return rec.stored()
}

func (s *MemoryStore) ListRecent(ctx context.Context, limit int) ([]ResultSummary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ResultSummary, 0, len(s.items))
	for _, rec := range s.items {
		if s.expired(rec) {
			continue
		}
		out = append(out, rec.summary())
	}
	return newestFirst(out, limit), nil
}

func (s *MemoryStore) Delete(ctx context.Context, optimizationID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, optimizationID)
	return nil
}

// live returns the stored record unless it has expired.
func (s *MemoryStore) live(id string) record {
	rec, ok := s.items[id]
	if !ok || s.expired(rec) {
		return record{}
	}
	return rec
}

func (s *MemoryStore) expired(rec record) bool {
	return rec.expiredAt(s.now())
}

var _ Store = (*MemoryStore)(nil)
