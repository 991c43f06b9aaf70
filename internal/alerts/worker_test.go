package alerts

import (
	"context"
	"fmt"
	"testing"
	"time"

	"pickwire/ingestion/internal/models"
	"pickwire/ingestion/internal/queue"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAlertMatches struct {
	matches []*models.Match
}

func (f *fakeAlertMatches) ListByDate(_ context.Context, _ time.Time) ([]*models.Match, error) {
	return f.matches, nil
}

type fakeAlertPredictions map[int64][]*models.Prediction

func (f fakeAlertPredictions) ListUngradedByMatch(_ context.Context, matchID int64) ([]*models.Prediction, error) {
	return f[matchID], nil
}

type fakeAlertTeams map[int64]string

func (f fakeAlertTeams) GetByID(_ context.Context, id int64) (*models.Team, error) {
	name, ok := f[id]
	if !ok {
		return nil, fmt.Errorf("team not found: id=%d", id)
	}
	return &models.Team{ID: id, Name: name}, nil
}

type fakeDedup struct {
	claimed map[string]bool
	cleared []string
}

func newFakeDedup() *fakeDedup {
	return &fakeDedup{claimed: make(map[string]bool)}
}

func (f *fakeDedup) MarkAlerted(_ context.Context, matchID int64, side string, _ time.Duration) (bool, error) {
	key := fmt.Sprintf("%d:%s", matchID, side)
	if f.claimed[key] {
		return false, nil
	}
	f.claimed[key] = true
	return true, nil
}

func (f *fakeDedup) ClearAlert(_ context.Context, matchID int64, side string) {
	key := fmt.Sprintf("%d:%s", matchID, side)
	delete(f.claimed, key)
	f.cleared = append(f.cleared, key)
}

type recordingNotifier struct {
	sent []string
	err  error
}

func (r *recordingNotifier) Send(_ context.Context, text string) error {
	if r.err != nil {
		return r.err
	}
	r.sent = append(r.sent, text)
	return nil
}

func oddsPick(picker string, odds float64) *models.Prediction {
	p := spreadPick(picker)
	p.Odds = nullFloat(odds)
	return p
}

func newTestWorker(notifier Notifier, dedup *fakeDedup) (*Worker, fakeAlertPredictions) {
	preds := fakeAlertPredictions{
		7: {oddsPick("a", 2.0), oddsPick("b", 2.0)},
		8: {oddsPick("c", 1.2)},
	}

	w := &Worker{
		matches: &fakeAlertMatches{matches: []*models.Match{
			{ID: 7, Sport: "nba", HomeTeamID: 1, AwayTeamID: 2},
			{ID: 8, Sport: "nba", HomeTeamID: 3, AwayTeamID: 4},
		}},
		predictions: preds,
		teams:       fakeAlertTeams{1: "Lakers", 2: "Celtics", 3: "Bulls", 4: "Heat"},
		engine:      NewEngine(fakeAccuracy{}),
		dedup:       dedup,
		notifier:    notifier,
		topN:        3,
		minScore:    6,
		dedupTTL:    24 * time.Hour,
		now:         func() time.Time { return time.Date(2026, 2, 16, 12, 0, 0, 0, time.UTC) },
	}
	return w, preds
}

func alertJob() *queue.Job {
	return &queue.Job{Queue: queue.QueueAlert, Payload: []byte("{}")}
}

func TestHandle_NoNotifierIsNoOp(t *testing.T) {
	w, _ := newTestWorker(nil, newFakeDedup())
	require.NoError(t, w.Handle(context.Background(), alertJob()))
}

func TestHandle_DispatchesOnlyAboveThreshold(t *testing.T) {
	notifier := &recordingNotifier{}
	w, _ := newTestWorker(notifier, newFakeDedup())

	require.NoError(t, w.Handle(context.Background(), alertJob()))

	// Match 7: p=0.70 at odds 2.0, EV 0.40, score 10. Match 8: p=0.70 at
	// odds 1.2, EV -0.16, score 2, below the threshold.
	require.Len(t, notifier.sent, 1)
	assert.Contains(t, notifier.sent[0], "Lakers vs Celtics")
	assert.Contains(t, notifier.sent[0], "2/2 pickers")
	assert.Contains(t, notifier.sent[0], "score 10/10")
}

func TestHandle_SecondPassSuppressed(t *testing.T) {
	notifier := &recordingNotifier{}
	dedup := newFakeDedup()
	w, _ := newTestWorker(notifier, dedup)

	require.NoError(t, w.Handle(context.Background(), alertJob()))
	require.NoError(t, w.Handle(context.Background(), alertJob()))

	assert.Len(t, notifier.sent, 1, "The dedup record should suppress the repeat alert")
}

func TestHandle_FailedDispatchReleasesDedupSlot(t *testing.T) {
	notifier := &recordingNotifier{err: fmt.Errorf("telegram unreachable")}
	dedup := newFakeDedup()
	w, _ := newTestWorker(notifier, dedup)

	require.NoError(t, w.Handle(context.Background(), alertJob()), "Dispatch failures must not fail the pass")
	assert.NotEmpty(t, dedup.cleared, "The slot should be released for the next pass")
	assert.Empty(t, dedup.claimed)

	// Next pass with a healthy channel sends it.
	notifier.err = nil
	require.NoError(t, w.Handle(context.Background(), alertJob()))
	assert.Len(t, notifier.sent, 1)
}

func TestFormatAlert_IncludesEVWhenPresent(t *testing.T) {
	ev := 0.12
	sm := &models.ScoredMatch{
		Sport: "nba", HomeTeam: "Lakers", AwayTeam: "Celtics",
		Side: models.SideHome, PickType: models.PickSpread,
		WinProbability: 68, ExpectedValue: &ev, Score: 8, Backing: 3, Total: 4,
	}

	text := formatAlert(sm)
	assert.Equal(t, "[NBA] Lakers vs Celtics: home spread | 3/4 pickers | win 68% | EV +0.12 | score 8/10", text)
}

func TestFormatAlert_OmitsEVWhenAbsent(t *testing.T) {
	sm := &models.ScoredMatch{
		Sport: "nba", HomeTeam: "Lakers", AwayTeam: "Celtics",
		Side: models.SideUnder, PickType: models.PickOverUnder,
		WinProbability: 55, Score: 5, Backing: 1, Total: 1,
	}

	assert.NotContains(t, formatAlert(sm), "EV")
}
