package results

import (
	"context"
	"fmt"

	"pickwire/ingestion/internal/metrics"
	"pickwire/ingestion/internal/models"
	"pickwire/ingestion/internal/repository"

	"github.com/rs/zerolog/log"
)

// gradeStore is the slice of the prediction repository grading needs.
type gradeStore interface {
	ListUngradedByMatch(ctx context.Context, matchID int64) ([]*models.Prediction, error)
	SetGrade(ctx context.Context, id int64, grade models.Grade) error
	VoidUngradedByMatch(ctx context.Context, matchID int64) (int64, error)
}

// Grader applies outcome grades to predictions. Only ungraded rows are
// touched, so re-running a results pass changes nothing.
type Grader struct {
	predictions gradeStore
}

// NewGrader creates a grader over the prediction repository.
func NewGrader(predictions *repository.PredictionRepository) *Grader {
	return &Grader{predictions: predictions}
}

func newGraderWithStore(predictions gradeStore) *Grader {
	return &Grader{predictions: predictions}
}

// GradeMatch grades every ungraded prediction on a settled match. Postponed
// and cancelled matches void all ungraded picks.
func (g *Grader) GradeMatch(ctx context.Context, matchID int64, result *models.MatchResult) error {
	if result.Status != models.ResultFinal {
		voided, err := g.predictions.VoidUngradedByMatch(ctx, matchID)
		if err != nil {
			return err
		}
		if voided > 0 {
			metrics.GradesAppliedTotal.WithLabelValues(string(models.GradeVoid)).Add(float64(voided))
			log.Info().
				Int64("match_id", matchID).
				Int64("voided", voided).
				Str("status", string(result.Status)).
				Msg("Predictions voided for unplayed match")
		}
		return nil
	}

	preds, err := g.predictions.ListUngradedByMatch(ctx, matchID)
	if err != nil {
		return err
	}

	for _, pred := range preds {
		grade := gradePick(pred, result)
		if err := g.predictions.SetGrade(ctx, pred.ID, grade); err != nil {
			return fmt.Errorf("failed to grade prediction %d: %w", pred.ID, err)
		}
		metrics.GradesAppliedTotal.WithLabelValues(string(grade)).Inc()
	}

	if len(preds) > 0 {
		log.Info().
			Int64("match_id", matchID).
			Int("graded", len(preds)).
			Int("home_score", result.HomeScore).
			Int("away_score", result.AwayScore).
			Msg("Match graded")
	}

	return nil
}

// gradePick evaluates one prediction against a final score. Picks that
// cannot be evaluated from the score alone (props, parlays, missing lines)
// are voided rather than guessed at.
func gradePick(pred *models.Prediction, result *models.MatchResult) models.Grade {
	margin := result.HomeScore - result.AwayScore

	switch pred.PickType {
	case models.PickSpread:
		if !pred.Value.Valid {
			return models.GradeVoid
		}
		// The line is the margin threshold the picked team must clear.
		line := pred.Value.Float64

		var diff float64
		switch pred.Side {
		case models.SideHome:
			diff = float64(margin) - line
		case models.SideAway:
			diff = float64(-margin) - line
		default:
			return models.GradeVoid
		}

		switch {
		case diff > 0:
			return models.GradeWin
		case diff < 0:
			return models.GradeLoss
		default:
			return models.GradePush
		}

	case models.PickMoneyline:
		switch pred.Side {
		case models.SideHome:
			return winLossPush(margin)
		case models.SideAway:
			return winLossPush(-margin)
		case models.SideDraw:
			if margin == 0 {
				return models.GradeWin
			}
			return models.GradeLoss
		default:
			return models.GradeVoid
		}

	case models.PickOverUnder:
		if !pred.Value.Valid {
			return models.GradeVoid
		}
		total := float64(result.HomeScore + result.AwayScore)
		value := pred.Value.Float64

		var over bool
		switch pred.Side {
		case models.SideOver:
			over = true
		case models.SideUnder:
			over = false
		default:
			return models.GradeVoid
		}

		switch {
		case total == value:
			return models.GradePush
		case (total > value) == over:
			return models.GradeWin
		default:
			return models.GradeLoss
		}

	default:
		// Props and parlays are not gradeable from the final score.
		return models.GradeVoid
	}
}

func winLossPush(margin int) models.Grade {
	switch {
	case margin > 0:
		return models.GradeWin
	case margin < 0:
		return models.GradeLoss
	default:
		return models.GradePush
	}
}
