// Package parser executes parse jobs: load a persisted snapshot, run the
// owning adapter's extraction, and hand the rows to the normalizer.
package parser

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"pickwire/ingestion/internal/adapters"
	"pickwire/ingestion/internal/cache"
	"pickwire/ingestion/internal/models"
	"pickwire/ingestion/internal/normalize"
	"pickwire/ingestion/internal/queue"

	"github.com/rs/zerolog/log"
)

// batchNormalizer is the slice of the normalizer the parser needs.
type batchNormalizer interface {
	Normalize(ctx context.Context, sport string, raws []models.RawPrediction) (normalize.Result, error)
}

// Parser handles parse-queue jobs.
type Parser struct {
	registry   *adapters.Registry
	normalizer batchNormalizer
	cache      *cache.Cache
}

// New creates a parse worker handler. cache may be nil when Redis is
// unavailable; invalidation and broadcast then degrade to no-ops.
func New(registry *adapters.Registry, normalizer *normalize.Normalizer, c *cache.Cache) *Parser {
	return &Parser{registry: registry, normalizer: normalizer, cache: c}
}

// newWithNormalizer is the test seam.
func newWithNormalizer(registry *adapters.Registry, normalizer batchNormalizer, c *cache.Cache) *Parser {
	return &Parser{registry: registry, normalizer: normalizer, cache: c}
}

// Handle executes one parse job. A snapshot that yields zero predictions is
// a successful no-op with a warning: it is the stale-selector signal, not a
// retryable failure.
func (p *Parser) Handle(ctx context.Context, job *queue.Job) error {
	var payload models.ParseJob
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("invalid parse payload: %w", err)
	}

	adapter, err := p.registry.Get(payload.AdapterID)
	if err != nil {
		return err
	}

	html, err := os.ReadFile(payload.SnapshotPath)
	if err != nil {
		return fmt.Errorf("failed to read snapshot %s: %w", payload.SnapshotPath, err)
	}

	raws, err := adapter.Parse(html, payload.Sport, payload.FetchedAt)
	if err != nil {
		return fmt.Errorf("parse failed for %s: %w", payload.SnapshotPath, err)
	}

	if len(raws) == 0 {
		log.Warn().
			Str("adapter", payload.AdapterID).
			Str("sport", payload.Sport).
			Str("snapshot", payload.SnapshotPath).
			Msg("Snapshot yielded no predictions, extraction rules may be stale")
		return nil
	}

	res, err := p.normalizer.Normalize(ctx, payload.Sport, raws)
	if err != nil {
		return err
	}

	if res.Inserted > 0 {
		for _, date := range gameDates(raws) {
			p.cache.InvalidatePredictions(ctx, payload.Sport, date)
		}
		p.cache.PublishPredictionsUpdated(ctx, payload.Sport, res.Inserted)
	}

	log.Info().
		Str("adapter", payload.AdapterID).
		Str("sport", payload.Sport).
		Int("parsed", len(raws)).
		Int("inserted", res.Inserted).
		Int("duplicates", res.Duplicates).
		Int("skipped", res.Skipped).
		Msg("Parse complete")

	return nil
}

// gameDates returns the distinct game dates in a batch, in first-seen order.
func gameDates(raws []models.RawPrediction) []string {
	seen := make(map[string]bool)
	var out []string
	for i := range raws {
		d := raws[i].GameDate
		if d == "" || seen[d] {
			continue
		}
		seen[d] = true
		out = append(out, d)
	}
	return out
}
