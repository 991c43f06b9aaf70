package results

import (
	"context"
	"database/sql"
	"testing"

	"pickwire/ingestion/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func nullFloat(v float64) sql.NullFloat64 {
	return sql.NullFloat64{Float64: v, Valid: true}
}

func finalResult(home, away int) *models.MatchResult {
	return &models.MatchResult{HomeScore: home, AwayScore: away, Status: models.ResultFinal}
}

func TestGradePick_Spread(t *testing.T) {
	tests := []struct {
		name string
		side models.Side
		line float64
		home int
		away int
		want models.Grade
	}{
		{"home clears a negative line", models.SideHome, -6.5, 101, 99, models.GradeWin},
		{"home beaten past the line", models.SideHome, -6.5, 99, 110, models.GradeLoss},
		{"away clears a negative line", models.SideAway, -3.5, 99, 110, models.GradeWin},
		{"away falls short of a positive line", models.SideAway, 6.5, 110, 99, models.GradeLoss},
		{"margin lands exactly on the line", models.SideHome, 2, 101, 99, models.GradePush},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pred := &models.Prediction{PickType: models.PickSpread, Side: tt.side, Value: nullFloat(tt.line)}
			assert.Equal(t, tt.want, gradePick(pred, finalResult(tt.home, tt.away)))
		})
	}
}

func TestGradePick_SpreadMissingLineVoids(t *testing.T) {
	pred := &models.Prediction{PickType: models.PickSpread, Side: models.SideHome}
	assert.Equal(t, models.GradeVoid, gradePick(pred, finalResult(101, 99)))
}

func TestGradePick_Moneyline(t *testing.T) {
	tests := []struct {
		name string
		side models.Side
		home int
		away int
		want models.Grade
	}{
		{"home wins", models.SideHome, 101, 99, models.GradeWin},
		{"home loses", models.SideHome, 99, 101, models.GradeLoss},
		{"away wins", models.SideAway, 99, 101, models.GradeWin},
		{"tie pushes", models.SideHome, 100, 100, models.GradePush},
		{"draw hit", models.SideDraw, 1, 1, models.GradeWin},
		{"draw missed", models.SideDraw, 2, 1, models.GradeLoss},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pred := &models.Prediction{PickType: models.PickMoneyline, Side: tt.side}
			assert.Equal(t, tt.want, gradePick(pred, finalResult(tt.home, tt.away)))
		})
	}
}

func TestGradePick_OverUnder(t *testing.T) {
	tests := []struct {
		name  string
		side  models.Side
		value float64
		home  int
		away  int
		want  models.Grade
	}{
		{"over hits", models.SideOver, 215.5, 110, 109, models.GradeWin},
		{"over misses", models.SideOver, 225.5, 110, 109, models.GradeLoss},
		{"under hits", models.SideUnder, 225.5, 110, 109, models.GradeWin},
		{"total lands on the number", models.SideOver, 219, 110, 109, models.GradePush},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pred := &models.Prediction{PickType: models.PickOverUnder, Side: tt.side, Value: nullFloat(tt.value)}
			assert.Equal(t, tt.want, gradePick(pred, finalResult(tt.home, tt.away)))
		})
	}
}

func TestGradePick_UngradeableTypesVoid(t *testing.T) {
	result := finalResult(101, 99)

	prop := &models.Prediction{PickType: models.PickProp, Side: models.SideYes}
	assert.Equal(t, models.GradeVoid, gradePick(prop, result))

	parlay := &models.Prediction{PickType: models.PickParlay, Side: models.SideHome}
	assert.Equal(t, models.GradeVoid, gradePick(parlay, result))
}

// fakeGradeStore tracks grades in memory.
type fakeGradeStore struct {
	ungraded map[int64][]*models.Prediction
	grades   map[int64]models.Grade
	voided   int64
}

func newFakeGradeStore() *fakeGradeStore {
	return &fakeGradeStore{
		ungraded: make(map[int64][]*models.Prediction),
		grades:   make(map[int64]models.Grade),
	}
}

func (f *fakeGradeStore) ListUngradedByMatch(_ context.Context, matchID int64) ([]*models.Prediction, error) {
	var out []*models.Prediction
	for _, p := range f.ungraded[matchID] {
		if _, graded := f.grades[p.ID]; !graded {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeGradeStore) SetGrade(_ context.Context, id int64, grade models.Grade) error {
	if _, graded := f.grades[id]; !graded {
		f.grades[id] = grade
	}
	return nil
}

func (f *fakeGradeStore) VoidUngradedByMatch(_ context.Context, matchID int64) (int64, error) {
	var n int64
	for _, p := range f.ungraded[matchID] {
		if _, graded := f.grades[p.ID]; !graded {
			f.grades[p.ID] = models.GradeVoid
			n++
		}
	}
	f.voided += n
	return n, nil
}

func TestGradeMatch_FinalGradesEachSide(t *testing.T) {
	store := newFakeGradeStore()
	store.ungraded[7] = []*models.Prediction{
		{ID: 1, PickType: models.PickSpread, Side: models.SideHome, Value: nullFloat(-6.5)},
		{ID: 2, PickType: models.PickMoneyline, Side: models.SideAway},
	}

	g := newGraderWithStore(store)
	result := finalResult(110, 99)
	result.MatchID = 7

	require.NoError(t, g.GradeMatch(context.Background(), 7, result))
	assert.Equal(t, models.GradeWin, store.grades[1], "Home -6.5 covers a 110-99 final")
	assert.Equal(t, models.GradeLoss, store.grades[2], "Away moneyline loses the same final")
}

func TestGradeMatch_PostponedVoidsUngraded(t *testing.T) {
	store := newFakeGradeStore()
	store.ungraded[7] = []*models.Prediction{
		{ID: 1, PickType: models.PickSpread, Side: models.SideHome, Value: nullFloat(-6.5)},
	}

	g := newGraderWithStore(store)
	require.NoError(t, g.GradeMatch(context.Background(), 7, &models.MatchResult{MatchID: 7, Status: models.ResultPostponed}))

	assert.Equal(t, models.GradeVoid, store.grades[1])
	assert.EqualValues(t, 1, store.voided)
}

func TestGradeMatch_RerunIsIdempotent(t *testing.T) {
	store := newFakeGradeStore()
	store.ungraded[7] = []*models.Prediction{
		{ID: 1, PickType: models.PickMoneyline, Side: models.SideHome},
	}

	g := newGraderWithStore(store)
	result := finalResult(110, 99)
	result.MatchID = 7

	require.NoError(t, g.GradeMatch(context.Background(), 7, result))
	require.NoError(t, g.GradeMatch(context.Background(), 7, result), "Re-running a settled match should be a no-op")

	assert.Equal(t, models.GradeWin, store.grades[1])
	assert.Len(t, store.grades, 1)
}
