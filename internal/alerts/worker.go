package alerts

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"pickwire/ingestion/internal/cache"
	"pickwire/ingestion/internal/config"
	"pickwire/ingestion/internal/metrics"
	"pickwire/ingestion/internal/models"
	"pickwire/ingestion/internal/queue"
	"pickwire/ingestion/internal/repository"

	"github.com/rs/zerolog/log"
)

// alertMatchStore is satisfied by *repository.MatchRepository.
type alertMatchStore interface {
	ListByDate(ctx context.Context, gameDate time.Time) ([]*models.Match, error)
}

// alertPredictionStore is satisfied by *repository.PredictionRepository.
type alertPredictionStore interface {
	ListUngradedByMatch(ctx context.Context, matchID int64) ([]*models.Prediction, error)
}

// alertTeamStore is satisfied by *repository.TeamRepository.
type alertTeamStore interface {
	GetByID(ctx context.Context, id int64) (*models.Team, error)
}

// dedupStore is satisfied by *cache.Cache.
type dedupStore interface {
	MarkAlerted(ctx context.Context, matchID int64, side string, ttl time.Duration) (bool, error)
	ClearAlert(ctx context.Context, matchID int64, side string)
}

// Worker handles alert-queue jobs: score today's matches, rank, dispatch the
// top recommendations. Without a configured notifier every pass is a no-op.
type Worker struct {
	matches     alertMatchStore
	predictions alertPredictionStore
	teams       alertTeamStore
	engine      *Engine
	dedup       dedupStore
	notifier    Notifier

	topN     int
	minScore int
	dedupTTL time.Duration
	now      func() time.Time
}

// NewWorker wires the alert pipeline from configuration. notifier is nil
// when no channel is configured.
func NewWorker(cfg *config.Config, db *repository.Database, c *cache.Cache) *Worker {
	var notifier Notifier
	if cfg.AlertsEnabled() {
		notifier = NewTelegramNotifier(cfg.TelegramBotToken, cfg.TelegramChatID)
	}

	return &Worker{
		matches:     db.Matches,
		predictions: db.Predictions,
		teams:       db.Teams,
		engine:      NewEngine(db.Predictions),
		dedup:       c,
		notifier:    notifier,
		topN:        cfg.AlertTopN,
		minScore:    cfg.AlertMinScore,
		dedupTTL:    cfg.AlertDedupTTL,
		now:         time.Now,
	}
}

// Handle executes one alert pass.
func (w *Worker) Handle(ctx context.Context, _ *queue.Job) error {
	if w.notifier == nil {
		log.Debug().Msg("No notification channel configured, skipping alert pass")
		return nil
	}

	now := w.now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	matches, err := w.matches.ListByDate(ctx, today)
	if err != nil {
		return err
	}

	var scored []*models.ScoredMatch
	for _, match := range matches {
		sm, err := w.scoreOne(ctx, match)
		if err != nil {
			return err
		}
		if sm != nil && sm.Score >= w.minScore {
			scored = append(scored, sm)
		}
	}

	sort.Slice(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].WinProbability > scored[j].WinProbability
	})

	if len(scored) > w.topN {
		scored = scored[:w.topN]
	}

	dispatched := 0
	for _, sm := range scored {
		sent, err := w.dispatch(ctx, sm)
		if err != nil {
			log.Warn().Err(err).Int64("match_id", sm.MatchID).Msg("Alert dispatch failed")
			continue
		}
		if sent {
			dispatched++
		}
	}

	log.Info().
		Int("matches", len(matches)).
		Int("candidates", len(scored)).
		Int("dispatched", dispatched).
		Msg("Alert pass complete")

	return nil
}

func (w *Worker) scoreOne(ctx context.Context, match *models.Match) (*models.ScoredMatch, error) {
	preds, err := w.predictions.ListUngradedByMatch(ctx, match.ID)
	if err != nil {
		return nil, err
	}
	if len(preds) == 0 {
		return nil, nil
	}

	home, err := w.teams.GetByID(ctx, match.HomeTeamID)
	if err != nil {
		return nil, err
	}
	away, err := w.teams.GetByID(ctx, match.AwayTeamID)
	if err != nil {
		return nil, err
	}

	return w.engine.ScoreMatch(ctx, match, home.Name, away.Name, preds)
}

// dispatch claims the dedup slot, sends, and releases the slot again when
// sending fails so the next pass retries.
func (w *Worker) dispatch(ctx context.Context, sm *models.ScoredMatch) (bool, error) {
	fresh, err := w.dedup.MarkAlerted(ctx, sm.MatchID, string(sm.Side), w.dedupTTL)
	if err != nil {
		return false, err
	}
	if !fresh {
		metrics.AlertsSuppressedTotal.Inc()
		log.Debug().
			Int64("match_id", sm.MatchID).
			Str("side", string(sm.Side)).
			Msg("Alert already sent within dedup window")
		return false, nil
	}

	if err := w.notifier.Send(ctx, formatAlert(sm)); err != nil {
		w.dedup.ClearAlert(ctx, sm.MatchID, string(sm.Side))
		metrics.RecordError("alerts", "dispatch")
		return false, err
	}

	metrics.AlertsDispatchedTotal.Inc()
	return true, nil
}

// formatAlert renders the single-line alert text.
func formatAlert(sm *models.ScoredMatch) string {
	var b strings.Builder

	fmt.Fprintf(&b, "[%s] %s vs %s: %s %s | %d/%d pickers | win %.0f%%",
		strings.ToUpper(sm.Sport), sm.HomeTeam, sm.AwayTeam,
		string(sm.Side), string(sm.PickType),
		sm.Backing, sm.Total, sm.WinProbability)

	if sm.ExpectedValue != nil {
		fmt.Fprintf(&b, " | EV %+.2f", *sm.ExpectedValue)
	}
	fmt.Fprintf(&b, " | score %d/10", sm.Score)

	return b.String()
}
