package repository

import (
	"context"
	"fmt"
	"time"

	"pickwire/ingestion/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"
)

// PredictionRepository handles prediction database operations
type PredictionRepository struct {
	db *Database
}

// InsertDedup attempts insertion guarded by the dedup-key uniqueness
// constraint. A collision is not an error: it returns (false, nil) meaning
// "already known". The constraint is the sole serialization point, so
// concurrent parse workers need no external locking.
func (r *PredictionRepository) InsertDedup(ctx context.Context, pred *models.Prediction) (bool, error) {
	if pred == nil {
		return false, fmt.Errorf("prediction cannot be nil")
	}
	if pred.DedupKey == "" {
		return false, fmt.Errorf("dedup_key is required")
	}

	query := `
		INSERT INTO predictions (
			source_id, match_id, sport, pick_type, side, value, odds,
			picker, confidence, reasoning, dedup_key, fetched_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (dedup_key) DO NOTHING
		RETURNING id, created_at
	`

	err := r.db.Pool.QueryRow(ctx, query,
		pred.SourceID, pred.MatchID, pred.Sport, pred.PickType, pred.Side,
		pred.Value, pred.Odds, pred.Picker, pred.Confidence, pred.Reasoning,
		pred.DedupKey, pred.FetchedAt,
	).Scan(&pred.ID, &pred.CreatedAt)

	if err == pgx.ErrNoRows {
		// Dedup collision: the identical pick was already observed.
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to insert prediction: %w", err)
	}

	log.Debug().
		Int64("id", pred.ID).
		Int64("match_id", pred.MatchID).
		Str("picker", pred.Picker).
		Msg("Prediction inserted")

	return true, nil
}

// ListUngradedByMatch retrieves predictions for a match that have no grade yet
func (r *PredictionRepository) ListUngradedByMatch(ctx context.Context, matchID int64) ([]*models.Prediction, error) {
	query := `
		SELECT id, source_id, match_id, sport, pick_type, side, value, odds,
		       picker, confidence, reasoning, dedup_key, grade, graded_at,
		       fetched_at, created_at
		FROM predictions
		WHERE match_id = $1 AND grade IS NULL
		ORDER BY id
	`

	return r.list(ctx, query, matchID)
}

// ListByMatch retrieves all predictions for a match
func (r *PredictionRepository) ListByMatch(ctx context.Context, matchID int64) ([]*models.Prediction, error) {
	query := `
		SELECT id, source_id, match_id, sport, pick_type, side, value, odds,
		       picker, confidence, reasoning, dedup_key, grade, graded_at,
		       fetched_at, created_at
		FROM predictions
		WHERE match_id = $1
		ORDER BY id
	`

	return r.list(ctx, query, matchID)
}

// SetGrade grades one prediction. Already-graded rows are left untouched so
// a re-run of the results pipeline is idempotent.
func (r *PredictionRepository) SetGrade(ctx context.Context, id int64, grade models.Grade) error {
	query := `
		UPDATE predictions
		SET grade = $1, graded_at = $2
		WHERE id = $3 AND grade IS NULL
	`

	_, err := r.db.Pool.Exec(ctx, query, grade, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to grade prediction: %w", err)
	}

	return nil
}

// VoidUngradedByMatch grades every ungraded prediction for a match as void.
// Used for postponed and cancelled matches. Returns the number voided.
func (r *PredictionRepository) VoidUngradedByMatch(ctx context.Context, matchID int64) (int64, error) {
	query := `
		UPDATE predictions
		SET grade = $1, graded_at = $2
		WHERE match_id = $3 AND grade IS NULL
	`

	result, err := r.db.Pool.Exec(ctx, query, models.GradeVoid, time.Now(), matchID)
	if err != nil {
		return 0, fmt.Errorf("failed to void predictions: %w", err)
	}

	return result.RowsAffected(), nil
}

// PickerAccuracy returns a picker's historical hit rate over graded picks,
// ignoring pushes and voids. ok is false when the picker has no graded
// history yet.
func (r *PredictionRepository) PickerAccuracy(ctx context.Context, picker string) (accuracy float64, ok bool, err error) {
	query := `
		SELECT
			COUNT(*) FILTER (WHERE grade = 'win') AS wins,
			COUNT(*) FILTER (WHERE grade = 'loss') AS losses
		FROM predictions
		WHERE LOWER(picker) = LOWER($1) AND grade IN ('win', 'loss')
	`

	var wins, losses int
	if err := r.db.Pool.QueryRow(ctx, query, picker).Scan(&wins, &losses); err != nil {
		return 0, false, fmt.Errorf("failed to compute picker accuracy: %w", err)
	}

	total := wins + losses
	if total == 0 {
		return 0, false, nil
	}

	return float64(wins) / float64(total), true, nil
}

func (r *PredictionRepository) list(ctx context.Context, query string, args ...interface{}) ([]*models.Prediction, error) {
	rows, err := r.db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list predictions: %w", err)
	}
	defer rows.Close()

	var preds []*models.Prediction
	for rows.Next() {
		var pred models.Prediction
		err := rows.Scan(
			&pred.ID, &pred.SourceID, &pred.MatchID, &pred.Sport,
			&pred.PickType, &pred.Side, &pred.Value, &pred.Odds,
			&pred.Picker, &pred.Confidence, &pred.Reasoning, &pred.DedupKey,
			&pred.Grade, &pred.GradedAt, &pred.FetchedAt, &pred.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan prediction: %w", err)
		}
		preds = append(preds, &pred)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating predictions: %w", err)
	}

	return preds, nil
}
