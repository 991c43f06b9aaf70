package results

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"pickwire/ingestion/internal/models"
	"pickwire/ingestion/internal/queue"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const scoreboardFixture = `{
	"events": [
		{
			"id": "401705001",
			"status": {"type": {"name": "STATUS_FINAL", "completed": true}},
			"competitions": [{"competitors": [
				{"homeAway": "home", "score": "110", "team": {"displayName": "Los Angeles Lakers"}},
				{"homeAway": "away", "score": "99", "team": {"displayName": "Boston Celtics"}}
			]}]
		},
		{
			"id": "401705002",
			"status": {"type": {"name": "STATUS_IN_PROGRESS", "completed": false}},
			"competitions": [{"competitors": [
				{"homeAway": "home", "score": "55", "team": {"displayName": "Chicago Bulls"}},
				{"homeAway": "away", "score": "52", "team": {"displayName": "Miami Heat"}}
			]}]
		},
		{
			"id": "401705003",
			"status": {"type": {"name": "STATUS_POSTPONED", "completed": false}},
			"competitions": [{"competitors": [
				{"homeAway": "home", "score": "", "team": {"displayName": "Denver Nuggets"}},
				{"homeAway": "away", "score": "", "team": {"displayName": "Utah Jazz"}}
			]}]
		}
	]
}`

func TestScoreboardClient_Outcomes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "basketball/nba/scoreboard")
		assert.Equal(t, "20260216", r.URL.Query().Get("dates"))
		fmt.Fprint(w, scoreboardFixture)
	}))
	defer srv.Close()

	client := NewScoreboardClient(srv.URL, 5*time.Second)
	date := time.Date(2026, 2, 16, 0, 0, 0, 0, time.UTC)

	outcomes, err := client.Outcomes(context.Background(), "nba", date)
	require.NoError(t, err)
	require.Len(t, outcomes, 2, "Only terminal games should be reported")

	final := outcomes[0]
	assert.Equal(t, models.ResultFinal, final.Status)
	assert.Equal(t, "Los Angeles Lakers", final.HomeTeamName)
	assert.Equal(t, "Boston Celtics", final.AwayTeamName)
	assert.Equal(t, 110, final.HomeScore)
	assert.Equal(t, 99, final.AwayScore)
	assert.Equal(t, "401705001", final.ExternalID)

	assert.Equal(t, models.ResultPostponed, outcomes[1].Status)
}

func TestScoreboardClient_UnknownSport(t *testing.T) {
	client := NewScoreboardClient("http://unused.test", time.Second)
	_, err := client.Outcomes(context.Background(), "cricket", time.Now())
	assert.Error(t, err)
}

func TestFootballClient_Outcomes(t *testing.T) {
	fixture := `{"matches": [
		{"id": 501, "utcDate": "2026-02-16T20:00:00Z", "status": "FINISHED",
		 "homeTeam": {"name": "Arsenal FC"}, "awayTeam": {"name": "Chelsea FC"},
		 "score": {"fullTime": {"home": 2, "away": 1}}},
		{"id": 502, "utcDate": "2026-02-16T20:00:00Z", "status": "TIMED",
		 "homeTeam": {"name": "Liverpool FC"}, "awayTeam": {"name": "Everton FC"},
		 "score": {"fullTime": {"home": null, "away": null}}}
	]}`

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.Header.Get("X-Auth-Token"))
		assert.Equal(t, "2026-02-16", r.URL.Query().Get("dateFrom"))
		fmt.Fprint(w, fixture)
	}))
	defer srv.Close()

	client := NewFootballClient(srv.URL, "test-key", 5*time.Second)
	date := time.Date(2026, 2, 16, 0, 0, 0, 0, time.UTC)

	outcomes, err := client.Outcomes(context.Background(), "soccer", date)
	require.NoError(t, err)
	require.Len(t, outcomes, 1, "Unplayed matches should be excluded")
	assert.Equal(t, "Arsenal FC", outcomes[0].HomeTeamName)
	assert.Equal(t, 2, outcomes[0].HomeScore)
	assert.Equal(t, 1, outcomes[0].AwayScore)
	assert.Equal(t, "501", outcomes[0].ExternalID)
}

// Fakes for the worker end-to-end path.

type staticResolver map[string]int64

func (s staticResolver) Resolve(rawName string) (int64, bool) {
	id, ok := s[strings.ToLower(strings.TrimSpace(rawName))]
	return id, ok
}

type fakeOutcomeMatches struct {
	matches     map[string]*models.Match
	externalIDs map[int64]string
}

func (f *fakeOutcomeMatches) Find(_ context.Context, sport string, homeTeamID, awayTeamID int64, gameDate time.Time) (*models.Match, error) {
	key := fmt.Sprintf("%s|%d|%d|%s", sport, homeTeamID, awayTeamID, gameDate.Format("2006-01-02"))
	return f.matches[key], nil
}

func (f *fakeOutcomeMatches) SetExternalID(_ context.Context, id int64, externalID string) error {
	if f.externalIDs == nil {
		f.externalIDs = make(map[int64]string)
	}
	f.externalIDs[id] = externalID
	return nil
}

type fakeResults struct {
	upserts []*models.MatchResult
}

func (f *fakeResults) Upsert(_ context.Context, result *models.MatchResult) error {
	f.upserts = append(f.upserts, result)
	return nil
}

type staticProvider struct {
	outcomes []models.RawOutcome
}

func (s *staticProvider) Outcomes(_ context.Context, _ string, _ time.Time) ([]models.RawOutcome, error) {
	return s.outcomes, nil
}

func resultsJob(t *testing.T, sport, day string) *queue.Job {
	t.Helper()
	payload, err := json.Marshal(models.ResultsJob{Sport: sport, Date: day})
	require.NoError(t, err)
	return &queue.Job{Queue: queue.QueueResults, Payload: payload}
}

func TestWorker_SettlesAndGradesTrackedMatch(t *testing.T) {
	now := time.Date(2026, 2, 16, 23, 30, 0, 0, time.UTC)

	res := staticResolver{"los angeles lakers": 1, "boston celtics": 2}
	matches := &fakeOutcomeMatches{matches: map[string]*models.Match{
		"nba|1|2|2026-02-16": {ID: 7, Sport: "nba", HomeTeamID: 1, AwayTeamID: 2},
	}}
	resultStore := &fakeResults{}

	gradeStore := newFakeGradeStore()
	gradeStore.ungraded[7] = []*models.Prediction{
		{ID: 1, MatchID: 7, PickType: models.PickSpread, Side: models.SideHome, Value: sql.NullFloat64{Float64: -6.5, Valid: true}},
		{ID: 2, MatchID: 7, PickType: models.PickMoneyline, Side: models.SideAway},
	}

	provider := &staticProvider{outcomes: []models.RawOutcome{
		{Sport: "nba", HomeTeamName: "Los Angeles Lakers", AwayTeamName: "Boston Celtics",
			HomeScore: 110, AwayScore: 99, Status: models.ResultFinal, GameDate: "2026-02-16",
			ExternalID: "401705001", Provider: "scoreboard"},
		{Sport: "nba", HomeTeamName: "Chicago Bulls", AwayTeamName: "Miami Heat",
			HomeScore: 90, AwayScore: 88, Status: models.ResultFinal, GameDate: "2026-02-16",
			Provider: "scoreboard"},
	}}

	w := newWorkerWithDeps(res, matches, resultStore, newGraderWithStore(gradeStore), provider, func() time.Time { return now })

	require.NoError(t, w.Handle(context.Background(), resultsJob(t, "nba", "today")))

	require.Len(t, resultStore.upserts, 1, "Only the tracked match should be settled")
	assert.EqualValues(t, 7, resultStore.upserts[0].MatchID)
	assert.Equal(t, "401705001", matches.externalIDs[7])
	assert.Equal(t, models.GradeWin, gradeStore.grades[1])
	assert.Equal(t, models.GradeLoss, gradeStore.grades[2])
}

func TestWorker_YesterdayShiftsDate(t *testing.T) {
	now := time.Date(2026, 2, 17, 3, 0, 0, 0, time.UTC)

	res := staticResolver{"los angeles lakers": 1, "boston celtics": 2}
	matches := &fakeOutcomeMatches{matches: map[string]*models.Match{
		"nba|1|2|2026-02-16": {ID: 7, Sport: "nba", HomeTeamID: 1, AwayTeamID: 2},
	}}
	resultStore := &fakeResults{}
	provider := &staticProvider{outcomes: []models.RawOutcome{
		{Sport: "nba", HomeTeamName: "Los Angeles Lakers", AwayTeamName: "Boston Celtics",
			HomeScore: 110, AwayScore: 99, Status: models.ResultFinal, GameDate: "2026-02-16",
			Provider: "scoreboard"},
	}}

	w := newWorkerWithDeps(res, matches, resultStore, newGraderWithStore(newFakeGradeStore()), provider, func() time.Time { return now })

	require.NoError(t, w.Handle(context.Background(), resultsJob(t, "nba", "yesterday")))
	assert.Len(t, resultStore.upserts, 1, "The late pass should look up the previous day's matches")
}
