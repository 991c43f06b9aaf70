//go:build integration

package repository

import (
	"testing"
	"time"

	"pickwire/ingestion/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatchRepository_FindOrCreate(t *testing.T) {
	db, ctx := setupTestDB(t)
	defer teardownTestDB(t, db)

	home := &models.Team{Name: "Golden State Warriors", Abbreviation: "GSW", Sport: "nba"}
	away := &models.Team{Name: "Denver Nuggets", Abbreviation: "DEN", Sport: "nba"}
	require.NoError(t, db.Teams.Create(ctx, home), "Should create home team")
	require.NoError(t, db.Teams.Create(ctx, away), "Should create away team")

	gameDate := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	first, err := db.Matches.FindOrCreate(ctx, "nba", home.ID, away.ID, gameDate, "")
	require.NoError(t, err, "First find-or-create should succeed")

	second, err := db.Matches.FindOrCreate(ctx, "nba", home.ID, away.ID, gameDate, "20:00")
	require.NoError(t, err, "Second find-or-create should succeed")

	assert.Equal(t, first.ID, second.ID, "Identical tuple should converge on one match row")
}

func TestMatchRepository_ListByDate(t *testing.T) {
	db, ctx := setupTestDB(t)
	defer teardownTestDB(t, db)

	home := &models.Team{Name: "Miami Heat", Abbreviation: "MIA", Sport: "nba"}
	away := &models.Team{Name: "New York Knicks", Abbreviation: "NYK", Sport: "nba"}
	require.NoError(t, db.Teams.Create(ctx, home), "Should create home team")
	require.NoError(t, db.Teams.Create(ctx, away), "Should create away team")

	gameDate := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	_, err := db.Matches.FindOrCreate(ctx, "nba", home.ID, away.ID, gameDate, "")
	require.NoError(t, err, "Should create match")

	matches, err := db.Matches.ListByDate(ctx, gameDate)
	require.NoError(t, err, "Should list matches for date")
	assert.GreaterOrEqual(t, len(matches), 1, "Should find at least the created match")
}
