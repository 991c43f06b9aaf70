package models

import (
	"database/sql"
	"time"
)

// PickType classifies what kind of line a prediction is on.
type PickType string

const (
	PickSpread    PickType = "spread"
	PickMoneyline PickType = "moneyline"
	PickOverUnder PickType = "over_under"
	PickProp      PickType = "prop"
	PickParlay    PickType = "parlay"
)

// Side is the recommended side of a pick.
type Side string

const (
	SideHome  Side = "home"
	SideAway  Side = "away"
	SideOver  Side = "over"
	SideUnder Side = "under"
	SideDraw  Side = "draw"
	SideYes   Side = "yes"
	SideNo    Side = "no"
)

// Confidence is the picker's self-reported conviction.
type Confidence string

const (
	ConfidenceLow     Confidence = "low"
	ConfidenceMedium  Confidence = "medium"
	ConfidenceHigh    Confidence = "high"
	ConfidenceBestBet Confidence = "best_bet"
)

// Grade is the post-outcome classification of a prediction.
type Grade string

const (
	GradeWin  Grade = "win"
	GradeLoss Grade = "loss"
	GradePush Grade = "push"
	GradeVoid Grade = "void"
)

// RawPrediction is adapter output: one observed pick with free-text team
// names, before resolution against the team registry. Ephemeral, never
// persisted as-is.
type RawPrediction struct {
	SourceID     int64
	Sport        string
	HomeTeamName string
	AwayTeamName string
	GameDate     string // YYYY-MM-DD, empty when the page omits it
	GameTime     string // HH:MM, optional
	PickType     PickType
	Side         Side
	Value        *float64
	Picker       string
	Confidence   Confidence // empty when unrated
	Reasoning    string
	Odds         *float64 // decimal odds when the page quotes them
	FetchedAt    time.Time
}

// Prediction is a normalized, persisted pick: team names replaced by
// resolved ids, bound to a match row, keyed by its dedup fingerprint.
// Grading fields start unset and are written once by the results pipeline.
type Prediction struct {
	ID         int64           `db:"id"`
	SourceID   int64           `db:"source_id"`
	MatchID    int64           `db:"match_id"`
	Sport      string          `db:"sport"`
	PickType   PickType        `db:"pick_type"`
	Side       Side            `db:"side"`
	Value      sql.NullFloat64 `db:"value"`
	Odds       sql.NullFloat64 `db:"odds"`
	Picker     string          `db:"picker"`
	Confidence sql.NullString  `db:"confidence"`
	Reasoning  sql.NullString  `db:"reasoning"`
	DedupKey   string          `db:"dedup_key"`
	Grade      sql.NullString  `db:"grade"`
	GradedAt   sql.NullTime    `db:"graded_at"`
	FetchedAt  time.Time       `db:"fetched_at"`
	CreatedAt  time.Time       `db:"created_at"`
}

// ToPrediction binds a raw prediction to its resolved match and dedup key.
func (rp *RawPrediction) ToPrediction(matchID int64, dedupKey string) *Prediction {
	pred := &Prediction{
		SourceID:  rp.SourceID,
		MatchID:   matchID,
		Sport:     rp.Sport,
		PickType:  rp.PickType,
		Side:      rp.Side,
		Picker:    rp.Picker,
		DedupKey:  dedupKey,
		FetchedAt: rp.FetchedAt,
	}

	if rp.Value != nil {
		pred.Value = sql.NullFloat64{Float64: *rp.Value, Valid: true}
	}
	if rp.Odds != nil {
		pred.Odds = sql.NullFloat64{Float64: *rp.Odds, Valid: true}
	}
	if rp.Confidence != "" {
		pred.Confidence = sql.NullString{String: string(rp.Confidence), Valid: true}
	}
	if rp.Reasoning != "" {
		pred.Reasoning = sql.NullString{String: rp.Reasoning, Valid: true}
	}

	return pred
}
