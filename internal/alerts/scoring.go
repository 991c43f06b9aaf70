// Package alerts ranks today's matches by pick consensus and dispatches the
// strongest recommendations through a notifier.
package alerts

import (
	"context"

	"pickwire/ingestion/internal/models"
)

// Win probability bounds. The model never claims certainty in either
// direction.
const (
	minWinProbability = 15.0
	maxWinProbability = 92.0
)

// neutralScore is assigned when no odds are quoted and EV cannot be computed.
const neutralScore = 5

// accuracyStore is satisfied by *repository.PredictionRepository.
type accuracyStore interface {
	PickerAccuracy(ctx context.Context, picker string) (float64, bool, error)
}

// Engine scores one match's prediction set into a ranked recommendation.
type Engine struct {
	accuracy accuracyStore
}

// NewEngine creates a scoring engine.
func NewEngine(accuracy accuracyStore) *Engine {
	return &Engine{accuracy: accuracy}
}

// ScoreMatch derives the consensus recommendation for a match from its
// ungraded predictions. Returns nil when there is nothing to recommend.
func (e *Engine) ScoreMatch(ctx context.Context, match *models.Match, homeTeam, awayTeam string, preds []*models.Prediction) (*models.ScoredMatch, error) {
	if len(preds) == 0 {
		return nil, nil
	}

	backing := consensus(preds)
	total := len(preds)

	prob := 50.0
	prob += consensusPull(len(backing), total)

	shift, err := e.accuracyShift(ctx, backing)
	if err != nil {
		return nil, err
	}
	prob += shift

	if hasBestBet(backing) {
		prob += 5
	}

	prob = clamp(prob, minWinProbability, maxWinProbability)

	sm := &models.ScoredMatch{
		MatchID:        match.ID,
		Sport:          match.Sport,
		HomeTeam:       homeTeam,
		AwayTeam:       awayTeam,
		Side:           backing[0].Side,
		PickType:       backing[0].PickType,
		WinProbability: prob,
		Backing:        len(backing),
		Total:          total,
	}

	if odds, ok := meanOdds(backing); ok {
		ev := prob/100*odds - 1
		sm.ExpectedValue = &ev
		sm.Score = scoreBand(ev)
	} else {
		sm.Score = neutralScore
	}

	return sm, nil
}

// consensus returns the largest (pick type, side) group, first-seen order
// breaking ties.
func consensus(preds []*models.Prediction) []*models.Prediction {
	type pick struct {
		pickType models.PickType
		side     models.Side
	}

	groups := make(map[pick][]*models.Prediction)
	var order []pick

	for _, p := range preds {
		k := pick{p.PickType, p.Side}
		if _, seen := groups[k]; !seen {
			order = append(order, k)
		}
		groups[k] = append(groups[k], p)
	}

	best := order[0]
	for _, k := range order[1:] {
		if len(groups[k]) > len(groups[best]) {
			best = k
		}
	}

	return groups[best]
}

// consensusPull shifts probability by how one-sided the picks are: unanimous
// backing is worth +20, an even split is worth nothing.
func consensusPull(backing, total int) float64 {
	share := float64(backing) / float64(total)
	return 40 * (share - 0.5)
}

// accuracyShift averages the historical hit rate of the backing pickers and
// shifts probability by up to ±20 around the 50% baseline. Pickers with no
// graded history contribute nothing.
func (e *Engine) accuracyShift(ctx context.Context, backing []*models.Prediction) (float64, error) {
	var sum float64
	var n int

	for _, p := range backing {
		acc, ok, err := e.accuracy.PickerAccuracy(ctx, p.Picker)
		if err != nil {
			return 0, err
		}
		if ok {
			sum += acc
			n++
		}
	}

	if n == 0 {
		return 0, nil
	}
	return 40 * (sum/float64(n) - 0.5), nil
}

func hasBestBet(preds []*models.Prediction) bool {
	for _, p := range preds {
		if p.Confidence.Valid && p.Confidence.String == string(models.ConfidenceBestBet) {
			return true
		}
	}
	return false
}

// meanOdds averages the decimal odds quoted on the backing picks.
func meanOdds(preds []*models.Prediction) (float64, bool) {
	var sum float64
	var n int
	for _, p := range preds {
		if p.Odds.Valid {
			sum += p.Odds.Float64
			n++
		}
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}

// scoreBand maps expected value onto the 1-10 alert score.
func scoreBand(ev float64) int {
	switch {
	case ev >= 0.20:
		return 10
	case ev >= 0.12:
		return 9
	case ev >= 0.08:
		return 8
	case ev >= 0.05:
		return 7
	case ev >= 0.02:
		return 6
	case ev >= 0:
		return 5
	case ev >= -0.05:
		return 4
	case ev >= -0.10:
		return 3
	default:
		return 2
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
