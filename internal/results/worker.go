package results

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"pickwire/ingestion/internal/config"
	"pickwire/ingestion/internal/metrics"
	"pickwire/ingestion/internal/models"
	"pickwire/ingestion/internal/queue"
	"pickwire/ingestion/internal/repository"
	"pickwire/ingestion/internal/resolver"

	"github.com/rs/zerolog/log"
)

// Provider reads terminal game outcomes for a sport and date.
type Provider interface {
	Outcomes(ctx context.Context, sport string, date time.Time) ([]models.RawOutcome, error)
}

// nameResolver is the read-only slice of the team resolver the worker needs.
// Outcome matching never auto-creates teams; an outcome for teams we have no
// predictions on is simply not ours to settle.
type nameResolver interface {
	Resolve(rawName string) (int64, bool)
}

// outcomeMatchStore is satisfied by *repository.MatchRepository.
type outcomeMatchStore interface {
	Find(ctx context.Context, sport string, homeTeamID, awayTeamID int64, gameDate time.Time) (*models.Match, error)
	SetExternalID(ctx context.Context, id int64, externalID string) error
}

// resultStore is satisfied by *repository.ResultRepository.
type resultStore interface {
	Upsert(ctx context.Context, result *models.MatchResult) error
}

// Worker handles results-queue jobs: fetch provider outcomes, match them to
// internal rows, persist, grade.
type Worker struct {
	resolver   nameResolver
	matches    outcomeMatchStore
	results    resultStore
	grader     *Grader
	scoreboard Provider
	football   Provider
	now        func() time.Time
}

// NewWorker wires the results pipeline from configuration. The football
// provider stays nil without an API key; soccer refreshes are then skipped.
func NewWorker(cfg *config.Config, db *repository.Database, res *resolver.Resolver) *Worker {
	w := &Worker{
		resolver:   res,
		matches:    db.Matches,
		results:    db.Results,
		grader:     NewGrader(db.Predictions),
		scoreboard: NewScoreboardClient(cfg.ScoreboardBaseURL, cfg.ResultsTimeout),
		now:        time.Now,
	}
	if cfg.FootballAPIKey != "" {
		w.football = NewFootballClient(cfg.FootballBaseURL, cfg.FootballAPIKey, cfg.ResultsTimeout)
	}
	return w
}

// newWorkerWithDeps is the test seam.
func newWorkerWithDeps(res nameResolver, matches outcomeMatchStore, results resultStore, grader *Grader, provider Provider, now func() time.Time) *Worker {
	return &Worker{
		resolver:   res,
		matches:    matches,
		results:    results,
		grader:     grader,
		scoreboard: provider,
		football:   provider,
		now:        now,
	}
}

// Handle executes one results job.
func (w *Worker) Handle(ctx context.Context, job *queue.Job) error {
	var payload models.ResultsJob
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("invalid results payload: %w", err)
	}

	date := w.now()
	if payload.Date == "yesterday" {
		date = date.AddDate(0, 0, -1)
	}
	date = time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)

	provider := w.provider(payload.Sport)
	if provider == nil {
		log.Debug().Str("sport", payload.Sport).Msg("No results provider configured, skipping")
		return nil
	}

	outcomes, err := provider.Outcomes(ctx, payload.Sport, date)
	if err != nil {
		return fmt.Errorf("failed to fetch outcomes for %s: %w", payload.Sport, err)
	}

	settled := 0
	for i := range outcomes {
		ok, err := w.settle(ctx, &outcomes[i], date)
		if err != nil {
			return err
		}
		if ok {
			settled++
		}
	}

	log.Info().
		Str("sport", payload.Sport).
		Str("date", date.Format("2006-01-02")).
		Int("outcomes", len(outcomes)).
		Int("settled", settled).
		Msg("Results pass complete")

	return nil
}

// settle persists one outcome against its internal match and grades it.
// Returns false when the outcome does not map to a tracked match.
func (w *Worker) settle(ctx context.Context, outcome *models.RawOutcome, date time.Time) (bool, error) {
	homeID, ok := w.resolver.Resolve(outcome.HomeTeamName)
	if !ok {
		log.Debug().Str("team", outcome.HomeTeamName).Msg("Outcome home team unknown, skipping")
		return false, nil
	}
	awayID, ok := w.resolver.Resolve(outcome.AwayTeamName)
	if !ok {
		log.Debug().Str("team", outcome.AwayTeamName).Msg("Outcome away team unknown, skipping")
		return false, nil
	}

	match, err := w.matches.Find(ctx, outcome.Sport, homeID, awayID, date)
	if err != nil {
		return false, err
	}
	if match == nil {
		// No predictions were ever recorded for this game.
		return false, nil
	}

	result := &models.MatchResult{
		MatchID:      match.ID,
		HomeScore:    outcome.HomeScore,
		AwayScore:    outcome.AwayScore,
		Status:       outcome.Status,
		ResultSource: outcome.Provider,
		SettledAt:    w.now(),
	}

	if err := w.results.Upsert(ctx, result); err != nil {
		return false, err
	}
	metrics.ResultsUpsertedTotal.WithLabelValues(outcome.Sport, string(outcome.Status)).Inc()

	if outcome.ExternalID != "" && !match.ExternalID.Valid {
		if err := w.matches.SetExternalID(ctx, match.ID, outcome.ExternalID); err != nil {
			log.Warn().Err(err).Int64("match_id", match.ID).Msg("Failed to record external match id")
		}
	}

	if err := w.grader.GradeMatch(ctx, match.ID, result); err != nil {
		return false, err
	}

	return true, nil
}

func (w *Worker) provider(sport string) Provider {
	if sport == "soccer" {
		if w.football == nil {
			return nil
		}
		return w.football
	}
	return w.scoreboard
}
