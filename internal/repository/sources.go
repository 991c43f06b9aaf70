package repository

import (
	"context"
	"fmt"
	"time"

	"pickwire/ingestion/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"
)

// SourceRepository handles source database operations
type SourceRepository struct {
	db *Database
}

// Upsert inserts or updates a source. Called at startup when seeding sources
// from the adapter registry, keyed by slug.
func (r *SourceRepository) Upsert(ctx context.Context, source *models.Source) error {
	query := `
		INSERT INTO sources (slug, name, base_url, fetch_method, active)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (slug) DO UPDATE SET
			name = EXCLUDED.name,
			base_url = EXCLUDED.base_url,
			fetch_method = EXCLUDED.fetch_method,
			active = EXCLUDED.active,
			updated_at = NOW()
		RETURNING id, created_at, updated_at
	`

	err := r.db.Pool.QueryRow(
		ctx, query,
		source.Slug, source.Name, source.BaseURL, source.FetchMethod, source.Active,
	).Scan(&source.ID, &source.CreatedAt, &source.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to upsert source: %w", err)
	}

	return nil
}

// GetBySlug retrieves a source by its stable slug
func (r *SourceRepository) GetBySlug(ctx context.Context, slug string) (*models.Source, error) {
	query := `
		SELECT id, slug, name, base_url, fetch_method, active, last_fetched_at,
		       created_at, updated_at
		FROM sources
		WHERE slug = $1
	`

	var source models.Source
	err := r.db.Pool.QueryRow(ctx, query, slug).Scan(
		&source.ID, &source.Slug, &source.Name, &source.BaseURL,
		&source.FetchMethod, &source.Active, &source.LastFetchedAt,
		&source.CreatedAt, &source.UpdatedAt,
	)

	if err == pgx.ErrNoRows {
		return nil, fmt.Errorf("source not found: slug=%s", slug)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get source: %w", err)
	}

	return &source, nil
}

// List retrieves all sources
func (r *SourceRepository) List(ctx context.Context) ([]*models.Source, error) {
	query := `
		SELECT id, slug, name, base_url, fetch_method, active, last_fetched_at,
		       created_at, updated_at
		FROM sources
		ORDER BY slug
	`

	rows, err := r.db.Pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list sources: %w", err)
	}
	defer rows.Close()

	var sources []*models.Source
	for rows.Next() {
		var source models.Source
		err := rows.Scan(
			&source.ID, &source.Slug, &source.Name, &source.BaseURL,
			&source.FetchMethod, &source.Active, &source.LastFetchedAt,
			&source.CreatedAt, &source.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan source: %w", err)
		}
		sources = append(sources, &source)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sources: %w", err)
	}

	return sources, nil
}

// TouchFetched records fetch completion time for a source
func (r *SourceRepository) TouchFetched(ctx context.Context, id int64, fetchedAt time.Time) error {
	query := `UPDATE sources SET last_fetched_at = $1, updated_at = NOW() WHERE id = $2`

	result, err := r.db.Pool.Exec(ctx, query, fetchedAt, id)
	if err != nil {
		return fmt.Errorf("failed to touch source: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("source not found: id=%d", id)
	}

	log.Debug().Int64("source_id", id).Time("fetched_at", fetchedAt).Msg("Source fetch time updated")
	return nil
}
