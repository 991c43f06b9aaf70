package models

import (
	"database/sql"
	"time"
)

// FetchMethod selects how a source's pages are retrieved.
type FetchMethod string

const (
	FetchHTTP    FetchMethod = "http"
	FetchBrowser FetchMethod = "browser"
)

// Source represents one external prediction site the pipeline scrapes.
// Rows are seeded from the adapter registry at startup; only
// last_fetched_at is mutated afterwards, by fetch completion.
type Source struct {
	ID            int64        `db:"id"`
	Slug          string       `db:"slug"`
	Name          string       `db:"name"`
	BaseURL       string       `db:"base_url"`
	FetchMethod   FetchMethod  `db:"fetch_method"`
	Active        bool         `db:"active"`
	LastFetchedAt sql.NullTime `db:"last_fetched_at"`
	CreatedAt     time.Time    `db:"created_at"`
	UpdatedAt     time.Time    `db:"updated_at"`
}
