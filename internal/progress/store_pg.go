package progress

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// PGStore implements Store on the optimization_progress table.
type PGStore struct {
	DB  *sql.DB
	TTL time.Duration
	now func() time.Time
}

// NewPGStore constructs a PGStore. A zero ttl uses DefaultTTL.
func NewPGStore(db *sql.DB, ttl time.Duration) *PGStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &PGStore{DB: db, TTL: ttl, now: time.Now}
}

func (s *PGStore) Enabled() bool { return true }

func (s *PGStore) clock() time.Time {
	if s.now == nil {
		return time.Now()
	}
	return s.now()
}

const selectRecord = `
SELECT optimization_id, status, current_step, processing_steps, step_details, results, metadata,
       profile_score, completeness_score, recommendations_count, content_ideas_count,
       created_at, updated_at, expires_at
FROM optimization_progress
WHERE optimization_id = $1`

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func loadRecord(ctx context.Context, q queryRower, query, id string, now time.Time) (record, bool, error) {
	var (
		rec                         record
		steps, details              []byte
		results, metadata           sql.NullString
		score, recs, ideas          sql.NullInt64
		completeness                sql.NullFloat64
		createdAt, updatedAt, expAt time.Time
	)
	err := q.QueryRowContext(ctx, query, id).Scan(
		&rec.OptimizationID,
		&rec.Status,
		&rec.CurrentStep,
		&steps,
		&details,
		&results,
		&metadata,
		&score,
		&completeness,
		&recs,
		&ideas,
		&createdAt,
		&updatedAt,
		&expAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return record{}, false, nil
	}
	if err != nil {
		return record{}, false, err
	}
	if now.After(expAt) {
		return record{}, false, nil
	}
	if len(steps) > 0 {
		if err := json.Unmarshal(steps, &rec.ProcessingSteps); err != nil {
			return record{}, false, fmt.Errorf("decode processing_steps: %w", err)
		}
	}
	if len(details) > 0 {
		if err := json.Unmarshal(details, &rec.StepDetails); err != nil {
			return record{}, false, fmt.Errorf("decode step_details: %w", err)
		}
	}
	rec.Results = results.String
	rec.Metadata = metadata.String
	if score.Valid {
		v := int(score.Int64)
		rec.ProfileScore = &v
	}
	if completeness.Valid {
		v := completeness.Float64
		rec.CompletenessScore = &v
	}
	if recs.Valid {
		v := int(recs.Int64)
		rec.RecommendationsCount = &v
	}
	if ideas.Valid {
		v := int(ideas.Int64)
		rec.ContentIdeasCount = &v
	}
	rec.CreatedAt = formatTime(createdAt)
	rec.UpdatedAt = formatTime(updatedAt)
	rec.TTL = expAt.Unix()
	return rec, true, nil
}

const upsertRecord = `
INSERT INTO optimization_progress (
	optimization_id, status, current_step, processing_steps, step_details, results, metadata,
	profile_score, completeness_score, recommendations_count, content_ideas_count,
	created_at, updated_at, expires_at
)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
ON CONFLICT (optimization_id) DO UPDATE SET
	status = EXCLUDED.status,
	current_step = EXCLUDED.current_step,
	processing_steps = EXCLUDED.processing_steps,
	step_details = EXCLUDED.step_details,
	results = EXCLUDED.results,
	metadata = EXCLUDED.metadata,
	profile_score = EXCLUDED.profile_score,
	completeness_score = EXCLUDED.completeness_score,
	recommendations_count = EXCLUDED.recommendations_count,
	content_ideas_count = EXCLUDED.content_ideas_count,
	created_at = EXCLUDED.created_at,
	updated_at = EXCLUDED.updated_at,
	expires_at = EXCLUDED.expires_at`

func writeRecord(ctx context.Context, tx *sql.Tx, rec record) error {
	steps, err := json.Marshal(nonNilSteps(rec.ProcessingSteps))
	if err != nil {
		return err
	}
	details := rec.StepDetails
	if details == nil {
		details = map[string]stepItem{}
	}
	detailBytes, err := json.Marshal(details)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, upsertRecord,
		rec.OptimizationID,
		rec.Status,
		rec.CurrentStep,
		string(steps),
		string(detailBytes),
		nullString(rec.Results),
		nullString(rec.Metadata),
		nullInt(rec.ProfileScore),
		nullFloat(rec.CompletenessScore),
		nullInt(rec.RecommendationsCount),
		nullInt(rec.ContentIdeasCount),
		parseTime(rec.CreatedAt),
		parseTime(rec.UpdatedAt),
		time.Unix(rec.TTL, 0).UTC(),
	)
	return err
}

// mutate loads the row under a row lock, applies fn and upserts it.
func (s *PGStore) mutate(ctx context.Context, id string, fn func(*record, time.Time) error) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	now := s.clock()
	rec, _, err := loadRecord(ctx, tx, selectRecord+" FOR UPDATE", id, now)
	if err != nil {
		return err
	}
	if err := fn(&rec, now); err != nil {
		return err
	}
	if err := writeRecord(ctx, tx, rec); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *PGStore) SaveStepProgress(ctx context.Context, optimizationID, step string, data map[string]any, status string) error {
	return s.mutate(ctx, optimizationID, func(rec *record, now time.Time) error {
		return rec.applyStep(optimizationID, step, data, status, now, s.TTL)
	})
}

func (s *PGStore) GetProgress(ctx context.Context, optimizationID string) (Progress, error) {
	rec, ok, err := loadRecord(ctx, s.DB, selectRecord, optimizationID, s.clock())
	if err != nil {
		return Progress{}, err
	}
	if !ok {
		return Progress{}, ErrNotFound
	}
	return rec.progress(), nil
}

func (s *PGStore) SaveResult(ctx context.Context, optimizationID string, result json.RawMessage, meta ResultMeta) error {
	return s.mutate(ctx, optimizationID, func(rec *record, now time.Time) error {
		return rec.applyResult(optimizationID, result, meta, now, s.TTL)
	})
}

func (s *PGStore) GetResult(ctx context.Context, optimizationID string) (StoredResult, error) {
	rec, ok, err := loadRecord(ctx, s.DB, selectRecord, optimizationID, s.clock())
	if err != nil {
		return StoredResult{}, err
	}
	if !ok {
		return StoredResult{}, ErrNotFound
	}
	return rec.stored()
}

func (s *PGStore) ListRecent(ctx context.Context, limit int) ([]ResultSummary, error) {
	const query = `
SELECT optimization_id, created_at, status, profile_score, completeness_score
FROM optimization_progress
WHERE expires_at > $1
ORDER BY created_at DESC
LIMIT $2`
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.DB.QueryContext(ctx, query, s.clock(), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []ResultSummary{}
	for rows.Next() {
		var (
			item         ResultSummary
			createdAt    time.Time
			score        sql.NullInt64
			completeness sql.NullFloat64
		)
		if err := rows.Scan(&item.OptimizationID, &createdAt, &item.Status, &score, &completeness); err != nil {
			return nil, err
		}
		item.CreatedAt = formatTime(createdAt)
		if score.Valid {
			v := int(score.Int64)
			item.ProfileScore = &v
		}
		if completeness.Valid {
			v := completeness.Float64
			item.CompletenessScore = &v
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

func (s *PGStore) Delete(ctx context.Context, optimizationID string) error {
	_, err := s.DB.ExecContext(ctx, `DELETE FROM optimization_progress WHERE optimization_id = $1`, optimizationID)
	return err
}

func nonNilSteps(steps []string) []string {
	if steps == nil {
		return []string{}
	}
	return steps
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullInt(v *int) any {
	if v == nil {
		return nil
	}
	return int64(*v)
}

func nullFloat(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}

var _ Store = (*PGStore)(nil)
