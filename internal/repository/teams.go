package repository

import (
	"context"
	"fmt"

	"pickwire/ingestion/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"
)

// TeamRepository handles team and alias database operations
type TeamRepository struct {
	db *Database
}

// Create inserts a new team. (abbreviation, sport) is unique; a concurrent
// insert of the same team converges on the existing row.
func (r *TeamRepository) Create(ctx context.Context, team *models.Team) error {
	query := `
		INSERT INTO teams (name, abbreviation, sport)
		VALUES ($1, $2, $3)
		ON CONFLICT (abbreviation, sport) DO UPDATE SET
			name = teams.name,
			updated_at = NOW()
		RETURNING id, created_at, updated_at
	`

	err := r.db.Pool.QueryRow(
		ctx, query,
		team.Name, team.Abbreviation, team.Sport,
	).Scan(&team.ID, &team.CreatedAt, &team.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create team: %w", err)
	}

	log.Debug().
		Int64("id", team.ID).
		Str("name", team.Name).
		Str("sport", team.Sport).
		Msg("Team created")

	return nil
}

// GetByID retrieves a team by its database ID
func (r *TeamRepository) GetByID(ctx context.Context, id int64) (*models.Team, error) {
	query := `
		SELECT id, name, abbreviation, sport, created_at, updated_at
		FROM teams
		WHERE id = $1
	`

	var team models.Team
	err := r.db.Pool.QueryRow(ctx, query, id).Scan(
		&team.ID, &team.Name, &team.Abbreviation, &team.Sport,
		&team.CreatedAt, &team.UpdatedAt,
	)

	if err == pgx.ErrNoRows {
		return nil, fmt.Errorf("team not found: id=%d", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get team: %w", err)
	}

	return &team, nil
}

// List retrieves all teams
func (r *TeamRepository) List(ctx context.Context) ([]*models.Team, error) {
	query := `
		SELECT id, name, abbreviation, sport, created_at, updated_at
		FROM teams
		ORDER BY sport, name
	`

	rows, err := r.db.Pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list teams: %w", err)
	}
	defer rows.Close()

	var teams []*models.Team
	for rows.Next() {
		var team models.Team
		err := rows.Scan(
			&team.ID, &team.Name, &team.Abbreviation, &team.Sport,
			&team.CreatedAt, &team.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan team: %w", err)
		}
		teams = append(teams, &team)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating teams: %w", err)
	}

	return teams, nil
}

// CreateAlias inserts an alias for a team. Duplicate aliases are no-ops.
func (r *TeamRepository) CreateAlias(ctx context.Context, alias string, teamID int64) error {
	query := `
		INSERT INTO team_aliases (alias, team_id)
		VALUES ($1, $2)
		ON CONFLICT (alias) DO NOTHING
	`

	_, err := r.db.Pool.Exec(ctx, query, alias, teamID)
	if err != nil {
		return fmt.Errorf("failed to create team alias: %w", err)
	}

	return nil
}

// ListAliases retrieves all alias rows
func (r *TeamRepository) ListAliases(ctx context.Context) ([]*models.TeamAlias, error) {
	query := `
		SELECT id, alias, team_id, created_at
		FROM team_aliases
		ORDER BY alias
	`

	rows, err := r.db.Pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list team aliases: %w", err)
	}
	defer rows.Close()

	var aliases []*models.TeamAlias
	for rows.Next() {
		var alias models.TeamAlias
		if err := rows.Scan(&alias.ID, &alias.Alias, &alias.TeamID, &alias.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan team alias: %w", err)
		}
		aliases = append(aliases, &alias)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating team aliases: %w", err)
	}

	return aliases, nil
}

// Count returns the total number of teams
func (r *TeamRepository) Count(ctx context.Context) (int, error) {
	query := `SELECT COUNT(*) FROM teams`

	var count int
	err := r.db.Pool.QueryRow(ctx, query).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count teams: %w", err)
	}

	return count, nil
}
