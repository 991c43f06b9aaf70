package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"pickwire/ingestion/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"
)

// MatchRepository handles match database operations
type MatchRepository struct {
	db *Database
}

// FindOrCreate returns the canonical match row for (sport, home, away, date),
// creating it when absent. The unique constraint on that tuple plus
// insert-then-select makes this race-safe under concurrent parse workers.
func (r *MatchRepository) FindOrCreate(ctx context.Context, sport string, homeTeamID, awayTeamID int64, gameDate time.Time, gameTime string) (*models.Match, error) {
	insert := `
		INSERT INTO matches (sport, home_team_id, away_team_id, game_date, game_time)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (sport, home_team_id, away_team_id, game_date) DO NOTHING
	`

	var gameTimeVal sql.NullString
	if gameTime != "" {
		gameTimeVal = sql.NullString{String: gameTime, Valid: true}
	}

	result, err := r.db.Pool.Exec(ctx, insert, sport, homeTeamID, awayTeamID, gameDate, gameTimeVal)
	if err != nil {
		return nil, fmt.Errorf("failed to insert match: %w", err)
	}

	if result.RowsAffected() > 0 {
		log.Debug().
			Str("sport", sport).
			Int64("home_team_id", homeTeamID).
			Int64("away_team_id", awayTeamID).
			Time("game_date", gameDate).
			Msg("Match created")
	}

	match, err := r.Find(ctx, sport, homeTeamID, awayTeamID, gameDate)
	if err != nil {
		return nil, err
	}
	if match == nil {
		return nil, fmt.Errorf("match missing after insert: sport=%s home=%d away=%d", sport, homeTeamID, awayTeamID)
	}

	return match, nil
}

// Find retrieves a match by its identity tuple, returning nil when absent
func (r *MatchRepository) Find(ctx context.Context, sport string, homeTeamID, awayTeamID int64, gameDate time.Time) (*models.Match, error) {
	query := `
		SELECT id, sport, home_team_id, away_team_id, game_date, game_time,
		       external_id, created_at, updated_at
		FROM matches
		WHERE sport = $1 AND home_team_id = $2 AND away_team_id = $3 AND game_date = $4
	`

	var match models.Match
	err := r.db.Pool.QueryRow(ctx, query, sport, homeTeamID, awayTeamID, gameDate).Scan(
		&match.ID, &match.Sport, &match.HomeTeamID, &match.AwayTeamID,
		&match.GameDate, &match.GameTime, &match.ExternalID,
		&match.CreatedAt, &match.UpdatedAt,
	)

	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find match: %w", err)
	}

	return &match, nil
}

// GetByID retrieves a match by its database ID
func (r *MatchRepository) GetByID(ctx context.Context, id int64) (*models.Match, error) {
	query := `
		SELECT id, sport, home_team_id, away_team_id, game_date, game_time,
		       external_id, created_at, updated_at
		FROM matches
		WHERE id = $1
	`

	var match models.Match
	err := r.db.Pool.QueryRow(ctx, query, id).Scan(
		&match.ID, &match.Sport, &match.HomeTeamID, &match.AwayTeamID,
		&match.GameDate, &match.GameTime, &match.ExternalID,
		&match.CreatedAt, &match.UpdatedAt,
	)

	if err == pgx.ErrNoRows {
		return nil, fmt.Errorf("match not found: id=%d", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get match: %w", err)
	}

	return &match, nil
}

// ListByDate retrieves all matches scheduled on a given date
func (r *MatchRepository) ListByDate(ctx context.Context, gameDate time.Time) ([]*models.Match, error) {
	query := `
		SELECT id, sport, home_team_id, away_team_id, game_date, game_time,
		       external_id, created_at, updated_at
		FROM matches
		WHERE game_date = $1
		ORDER BY sport, id
	`

	rows, err := r.db.Pool.Query(ctx, query, gameDate)
	if err != nil {
		return nil, fmt.Errorf("failed to list matches: %w", err)
	}
	defer rows.Close()

	var matches []*models.Match
	for rows.Next() {
		var match models.Match
		err := rows.Scan(
			&match.ID, &match.Sport, &match.HomeTeamID, &match.AwayTeamID,
			&match.GameDate, &match.GameTime, &match.ExternalID,
			&match.CreatedAt, &match.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan match: %w", err)
		}
		matches = append(matches, &match)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating matches: %w", err)
	}

	return matches, nil
}

// SetExternalID records the results provider's id for a match
func (r *MatchRepository) SetExternalID(ctx context.Context, id int64, externalID string) error {
	query := `UPDATE matches SET external_id = $1, updated_at = NOW() WHERE id = $2`

	_, err := r.db.Pool.Exec(ctx, query, externalID, id)
	if err != nil {
		return fmt.Errorf("failed to set match external id: %w", err)
	}

	return nil
}
