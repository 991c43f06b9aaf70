package models

import "time"

// ResultStatus is the terminal state of a match.
type ResultStatus string

const (
	ResultFinal     ResultStatus = "final"
	ResultPostponed ResultStatus = "postponed"
	ResultCancelled ResultStatus = "cancelled"
)

// MatchResult is the one durable outcome row per match.
type MatchResult struct {
	ID           int64        `db:"id"`
	MatchID      int64        `db:"match_id"`
	HomeScore    int          `db:"home_score"`
	AwayScore    int          `db:"away_score"`
	Status       ResultStatus `db:"status"`
	ResultSource string       `db:"result_source"`
	SettledAt    time.Time    `db:"settled_at"`
	CreatedAt    time.Time    `db:"created_at"`
}

// RawOutcome is one finalized game as reported by an external results
// provider, before matching against internal match rows.
type RawOutcome struct {
	Sport        string
	HomeTeamName string
	AwayTeamName string
	HomeScore    int
	AwayScore    int
	Status       ResultStatus
	GameDate     string // YYYY-MM-DD
	ExternalID   string
	Provider     string
}
