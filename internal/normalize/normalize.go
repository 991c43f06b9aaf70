// Package normalize turns adapter output into persisted prediction rows:
// team resolution, match binding, dedup fingerprinting, guarded insert.
package normalize

import (
	"context"
	"fmt"
	"time"

	"pickwire/ingestion/internal/dedup"
	"pickwire/ingestion/internal/metrics"
	"pickwire/ingestion/internal/models"
	"pickwire/ingestion/internal/repository"
	"pickwire/ingestion/internal/resolver"

	"github.com/rs/zerolog/log"
)

// teamResolver is the slice of the resolver the normalizer needs.
type teamResolver interface {
	ResolveOrCreate(ctx context.Context, rawName, sport string) (int64, bool, error)
}

// matchStore is satisfied by *repository.MatchRepository.
type matchStore interface {
	FindOrCreate(ctx context.Context, sport string, homeTeamID, awayTeamID int64, gameDate time.Time, gameTime string) (*models.Match, error)
}

// predictionStore is satisfied by *repository.PredictionRepository.
type predictionStore interface {
	InsertDedup(ctx context.Context, pred *models.Prediction) (bool, error)
}

// Result summarizes one normalization batch.
type Result struct {
	Inserted   int
	Duplicates int
	Skipped    int
}

// Normalizer persists raw predictions. A malformed or unresolvable row is
// skipped with a warning, never fails the batch; a database error does fail
// it so the queue retries.
type Normalizer struct {
	resolver    teamResolver
	matches     matchStore
	predictions predictionStore
}

// New creates a normalizer over the production collaborators.
func New(res *resolver.Resolver, matches *repository.MatchRepository, predictions *repository.PredictionRepository) *Normalizer {
	return &Normalizer{
		resolver:    res,
		matches:     matches,
		predictions: predictions,
	}
}

// newWithStores is the test seam.
func newWithStores(res teamResolver, matches matchStore, predictions predictionStore) *Normalizer {
	return &Normalizer{
		resolver:    res,
		matches:     matches,
		predictions: predictions,
	}
}

// Normalize processes one batch of raw predictions from a single snapshot.
func (n *Normalizer) Normalize(ctx context.Context, sport string, raws []models.RawPrediction) (Result, error) {
	var res Result

	for i := range raws {
		raw := &raws[i]

		inserted, dup, err := n.normalizeOne(ctx, raw)
		if err != nil {
			return res, err
		}

		switch {
		case inserted:
			res.Inserted++
		case dup:
			res.Duplicates++
		default:
			res.Skipped++
		}
	}

	metrics.RecordNormalization(sport, res.Inserted, res.Duplicates)

	log.Info().
		Str("sport", sport).
		Int("inserted", res.Inserted).
		Int("duplicates", res.Duplicates).
		Int("skipped", res.Skipped).
		Msg("Normalization batch complete")

	return res, nil
}

func (n *Normalizer) normalizeOne(ctx context.Context, raw *models.RawPrediction) (inserted, dup bool, err error) {
	if raw.Picker == "" || raw.PickType == "" || raw.Side == "" {
		n.skip(raw, "incomplete", "Prediction missing picker or pick fields")
		return false, false, nil
	}

	if raw.GameDate == "" {
		n.skip(raw, "missing_date", "Prediction has no game date")
		return false, false, nil
	}

	gameDate, parseErr := time.Parse("2006-01-02", raw.GameDate)
	if parseErr != nil {
		n.skip(raw, "invalid_date", "Prediction has unparseable game date")
		return false, false, nil
	}

	homeID, ok, err := n.resolver.ResolveOrCreate(ctx, raw.HomeTeamName, raw.Sport)
	if err != nil {
		return false, false, fmt.Errorf("failed to resolve home team: %w", err)
	}
	if !ok {
		n.skip(raw, "unresolved_team", "Home team not in registry")
		return false, false, nil
	}

	awayID, ok, err := n.resolver.ResolveOrCreate(ctx, raw.AwayTeamName, raw.Sport)
	if err != nil {
		return false, false, fmt.Errorf("failed to resolve away team: %w", err)
	}
	if !ok {
		n.skip(raw, "unresolved_team", "Away team not in registry")
		return false, false, nil
	}

	match, err := n.matches.FindOrCreate(ctx, raw.Sport, homeID, awayID, gameDate, raw.GameTime)
	if err != nil {
		return false, false, err
	}

	key := dedup.Key(raw.SourceID, match.ID, raw.PickType, raw.Side, raw.Picker)
	pred := raw.ToPrediction(match.ID, key)

	ok, err = n.predictions.InsertDedup(ctx, pred)
	if err != nil {
		return false, false, err
	}
	if !ok {
		log.Debug().
			Int64("match_id", match.ID).
			Str("picker", raw.Picker).
			Str("pick_type", string(raw.PickType)).
			Msg("Duplicate prediction collapsed")
		return false, true, nil
	}

	return true, false, nil
}

func (n *Normalizer) skip(raw *models.RawPrediction, reason, msg string) {
	metrics.PredictionsSkippedTotal.WithLabelValues(reason).Inc()
	log.Warn().
		Str("sport", raw.Sport).
		Str("home", raw.HomeTeamName).
		Str("away", raw.AwayTeamName).
		Str("picker", raw.Picker).
		Str("reason", reason).
		Msg(msg)
}
