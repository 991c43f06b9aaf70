package models

import "time"

// Job payloads carried by the queue broker. All payloads are JSON so manual
// triggers and scheduled triggers enqueue the same shape.

// FetchJob retrieves one page for one adapter and sport.
type FetchJob struct {
	AdapterID string `json:"adapterId"`
	Sport     string `json:"sport"`
	Path      string `json:"path"`
	URL       string `json:"url"`
	// Discovered marks per-article jobs produced by URL discovery so the
	// fetch worker does not recurse into discovery again.
	Discovered bool `json:"discovered,omitempty"`
}

// ParseJob extracts predictions from a persisted snapshot.
type ParseJob struct {
	AdapterID    string    `json:"adapterId"`
	Sport        string    `json:"sport"`
	SnapshotPath string    `json:"snapshotPath"`
	FetchedAt    time.Time `json:"fetchedAt"`
}

// ResultsJob refreshes outcomes for one sport and relative day.
type ResultsJob struct {
	Sport string `json:"sport"`
	Date  string `json:"date"` // "today" or "yesterday"
}

// AlertJob triggers one scoring/alert pass. It carries no parameters.
type AlertJob struct{}

// Snapshot is the metadata persisted alongside a raw fetch artifact.
type Snapshot struct {
	AdapterID   string      `json:"adapterId"`
	Sport       string      `json:"sport"`
	URL         string      `json:"url"`
	FetchMethod FetchMethod `json:"fetchMethod"`
	HTTPStatus  *int        `json:"httpStatus"` // nil for browser fetches
	DurationMS  int64       `json:"durationMs"`
	SizeBytes   int         `json:"sizeBytes"`
	FetchedAt   time.Time   `json:"fetchedAt"`
}

// ScoredMatch is the alert worker's output for one candidate match.
type ScoredMatch struct {
	MatchID        int64
	Sport          string
	HomeTeam       string
	AwayTeam       string
	Side           Side
	PickType       PickType
	WinProbability float64 // percent, clamped to [15, 92]
	ExpectedValue  *float64
	Score          int
	Backing        int // predictions backing the recommended side
	Total          int // all predictions for the match
}
