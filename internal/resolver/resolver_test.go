package resolver

import (
	"context"
	"testing"
	"time"

	"pickwire/ingestion/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeTeamStore is an in-memory teamStore for resolver unit tests.
type fakeTeamStore struct {
	teams   []*models.Team
	aliases []*models.TeamAlias
	nextID  int64
}

func (f *fakeTeamStore) List(ctx context.Context) ([]*models.Team, error) {
	return f.teams, nil
}

func (f *fakeTeamStore) ListAliases(ctx context.Context) ([]*models.TeamAlias, error) {
	return f.aliases, nil
}

func (f *fakeTeamStore) Create(ctx context.Context, team *models.Team) error {
	f.nextID++
	team.ID = f.nextID
	team.CreatedAt = time.Now()
	f.teams = append(f.teams, team)
	return nil
}

func (f *fakeTeamStore) CreateAlias(ctx context.Context, alias string, teamID int64) error {
	f.aliases = append(f.aliases, &models.TeamAlias{Alias: alias, TeamID: teamID})
	return nil
}

func newTestResolver(t *testing.T) (*Resolver, *fakeTeamStore) {
	store := &fakeTeamStore{nextID: 100}
	store.teams = []*models.Team{
		{ID: 1, Name: "Los Angeles Lakers", Abbreviation: "LAL", Sport: "nba"},
		{ID: 2, Name: "Boston Celtics", Abbreviation: "BOS", Sport: "nba"},
	}
	store.aliases = []*models.TeamAlias{
		{Alias: "lakers", TeamID: 1},
	}

	r := newWithStore(store, "nba")
	require.NoError(t, r.LoadAliases(context.Background()), "Should load aliases")
	return r, store
}

func TestResolve_CaseAndWhitespaceInsensitive(t *testing.T) {
	r, _ := newTestResolver(t)

	a, ok := r.Resolve("Lakers")
	require.True(t, ok, "Alias should resolve")
	b, ok := r.Resolve("lakers")
	require.True(t, ok, "Lowercase alias should resolve")
	c, ok := r.Resolve(" LAKERS ")
	require.True(t, ok, "Padded uppercase alias should resolve")

	assert.Equal(t, a, b, "Resolution should be case-insensitive")
	assert.Equal(t, a, c, "Resolution should be whitespace-insensitive")
	assert.Equal(t, int64(1), a, "Alias should map to the Lakers team id")
}

func TestResolve_FullNameAndAbbreviation(t *testing.T) {
	r, _ := newTestResolver(t)

	byName, ok := r.Resolve("Boston Celtics")
	require.True(t, ok, "Full name should resolve")
	byAbbr, ok := r.Resolve("bos")
	require.True(t, ok, "Abbreviation should resolve")
	assert.Equal(t, byName, byAbbr, "Name and abbreviation should resolve to the same team")
}

func TestResolve_UnknownName(t *testing.T) {
	r, _ := newTestResolver(t)

	_, ok := r.Resolve("Springfield Isotopes")
	assert.False(t, ok, "Unknown name should not resolve")
}

func TestResolveOrCreate_AutoCreatesForNonCuratedSport(t *testing.T) {
	r, store := newTestResolver(t)
	ctx := context.Background()

	id, ok, err := r.ResolveOrCreate(ctx, "Borussia Dortmund", "soccer")
	require.NoError(t, err, "Auto-create should succeed")
	require.True(t, ok, "Unknown soccer team should be created")
	assert.Positive(t, id, "Created team should have an id")
	assert.Len(t, store.teams, 3, "Exactly one team should be created")

	// Immediately resolvable in the live cache, no reload needed
	again, ok := r.Resolve("Borussia Dortmund")
	require.True(t, ok, "Created team should resolve immediately")
	assert.Equal(t, id, again, "Resolution should return the created id")

	// A second call must not create a second team
	second, ok, err := r.ResolveOrCreate(ctx, "borussia dortmund", "soccer")
	require.NoError(t, err, "Second resolve should succeed")
	require.True(t, ok, "Second resolve should hit the cache")
	assert.Equal(t, id, second, "Second resolve should return the same id")
	assert.Len(t, store.teams, 3, "No additional team should be created")
}

func TestResolveOrCreate_CuratedSportStaysUnresolved(t *testing.T) {
	r, store := newTestResolver(t)

	_, ok, err := r.ResolveOrCreate(context.Background(), "Springfield Isotopes", "nba")
	require.NoError(t, err, "Curated-sport miss should not error")
	assert.False(t, ok, "Unknown name in the curated sport should remain unresolved")
	assert.Len(t, store.teams, 2, "No team should be created for the curated sport")
}

func TestLoadAliases_ReplacesPreviousMapping(t *testing.T) {
	r, store := newTestResolver(t)

	store.teams = []*models.Team{
		{ID: 9, Name: "Chicago Bulls", Abbreviation: "CHI", Sport: "nba"},
	}
	store.aliases = nil
	require.NoError(t, r.LoadAliases(context.Background()), "Reload should succeed")

	_, ok := r.Resolve("Lakers")
	assert.False(t, ok, "Old mapping should be fully replaced")
	_, ok = r.Resolve("Chicago Bulls")
	assert.True(t, ok, "New mapping should be active")
}
