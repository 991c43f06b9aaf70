package models

import (
	"database/sql"
	"time"
)

// Match is a canonical game between two registered teams. Matches are
// found-or-created per (sport, home, away, date) and never deleted.
type Match struct {
	ID         int64          `db:"id"`
	Sport      string         `db:"sport"`
	HomeTeamID int64          `db:"home_team_id"`
	AwayTeamID int64          `db:"away_team_id"`
	GameDate   time.Time      `db:"game_date"`
	GameTime   sql.NullString `db:"game_time"`
	ExternalID sql.NullString `db:"external_id"`
	CreatedAt  time.Time      `db:"created_at"`
	UpdatedAt  time.Time      `db:"updated_at"`
}
