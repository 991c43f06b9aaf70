package repository

import (
	"context"
	"fmt"

	"pickwire/ingestion/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"
)

// ResultRepository handles match result database operations
type ResultRepository struct {
	db *Database
}

// Upsert writes the one durable result row for a match. The first grading
// pass may update a provisional row (e.g. a corrected score feed), later
// passes with unchanged data are no-ops at the grading layer.
func (r *ResultRepository) Upsert(ctx context.Context, result *models.MatchResult) error {
	query := `
		INSERT INTO match_results (match_id, home_score, away_score, status, result_source, settled_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (match_id) DO UPDATE SET
			home_score = EXCLUDED.home_score,
			away_score = EXCLUDED.away_score,
			status = EXCLUDED.status,
			result_source = EXCLUDED.result_source,
			settled_at = EXCLUDED.settled_at
		RETURNING id, created_at
	`

	err := r.db.Pool.QueryRow(ctx, query,
		result.MatchID, result.HomeScore, result.AwayScore,
		result.Status, result.ResultSource, result.SettledAt,
	).Scan(&result.ID, &result.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to upsert match result: %w", err)
	}

	log.Debug().
		Int64("match_id", result.MatchID).
		Int("home_score", result.HomeScore).
		Int("away_score", result.AwayScore).
		Str("status", string(result.Status)).
		Msg("Match result saved")

	return nil
}

// GetByMatchID retrieves the result for a match, returning nil when unsettled
func (r *ResultRepository) GetByMatchID(ctx context.Context, matchID int64) (*models.MatchResult, error) {
	query := `
		SELECT id, match_id, home_score, away_score, status, result_source,
		       settled_at, created_at
		FROM match_results
		WHERE match_id = $1
	`

	var result models.MatchResult
	err := r.db.Pool.QueryRow(ctx, query, matchID).Scan(
		&result.ID, &result.MatchID, &result.HomeScore, &result.AwayScore,
		&result.Status, &result.ResultSource, &result.SettledAt, &result.CreatedAt,
	)

	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get match result: %w", err)
	}

	return &result, nil
}
