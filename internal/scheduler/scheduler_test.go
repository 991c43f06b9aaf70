package scheduler

import (
	"testing"

	"pickwire/ingestion/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestScheduler() *Scheduler {
	return NewScheduler(&config.Config{}, nil, nil)
}

func TestUpsert_Idempotent(t *testing.T) {
	s := newTestScheduler()

	require.NoError(t, s.Upsert("fetch:testpicks:nba", "*/30 * * * *", func() {}), "First registration should succeed")
	require.NoError(t, s.Upsert("fetch:testpicks:nba", "*/30 * * * *", func() {}), "Re-registration with the same pattern should succeed")

	assert.Equal(t, 1, s.EntryCount(), "Same key and pattern should yield exactly one trigger")
}

func TestUpsert_PatternChangeReplaces(t *testing.T) {
	s := newTestScheduler()

	require.NoError(t, s.Upsert("fetch:testpicks:nba", "*/30 * * * *", func() {}))
	require.NoError(t, s.Upsert("fetch:testpicks:nba", "*/15 * * * *", func() {}), "Changed pattern should replace the trigger")

	assert.Equal(t, 1, s.EntryCount(), "Replacement should not accumulate triggers")
}

func TestUpsert_DistinctKeys(t *testing.T) {
	s := newTestScheduler()

	require.NoError(t, s.Upsert("fetch:testpicks:nba", "*/30 * * * *", func() {}))
	require.NoError(t, s.Upsert("fetch:testpicks:nfl", "*/30 * * * *", func() {}))

	assert.Equal(t, 2, s.EntryCount(), "Distinct keys should register distinct triggers")
}

func TestUpsert_InvalidPattern(t *testing.T) {
	s := newTestScheduler()

	err := s.Upsert("broken", "not a cron pattern", func() {})
	assert.Error(t, err, "Invalid cron pattern should be rejected")
	assert.Equal(t, 0, s.EntryCount(), "Failed registration should not be recorded")
}
