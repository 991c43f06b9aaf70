package models

import "time"

// Team is a canonical team in the registry. Identity is (abbreviation, sport);
// free-text names from scraped pages resolve to teams through aliases.
type Team struct {
	ID           int64     `db:"id"`
	Name         string    `db:"name"`
	Abbreviation string    `db:"abbreviation"`
	Sport        string    `db:"sport"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

// TeamAlias maps one free-text spelling to a team. Aliases are resolution
// inputs only, never authoritative identity.
type TeamAlias struct {
	ID        int64     `db:"id"`
	Alias     string    `db:"alias"`
	TeamID    int64     `db:"team_id"`
	CreatedAt time.Time `db:"created_at"`
}
