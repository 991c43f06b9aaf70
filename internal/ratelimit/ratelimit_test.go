package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWait_SameSourceSpacing(t *testing.T) {
	l := New()
	ctx := context.Background()
	interval := 50 * time.Millisecond

	start := time.Now()
	require.NoError(t, l.Wait(ctx, 1, interval))
	require.NoError(t, l.Wait(ctx, 1, interval))
	elapsed := time.Since(start)

	assert.GreaterOrEqual(t, elapsed, interval, "Back-to-back acquisitions should be separated by the minimum interval")
}

func TestWait_DifferentSourcesIndependent(t *testing.T) {
	l := New()
	ctx := context.Background()
	interval := 200 * time.Millisecond

	require.NoError(t, l.Wait(ctx, 1, interval))

	start := time.Now()
	require.NoError(t, l.Wait(ctx, 2, interval))
	elapsed := time.Since(start)

	assert.Less(t, elapsed, interval/2, "A different source should not be serialized against source 1")
}

func TestWait_CancelledContext(t *testing.T) {
	l := New()
	ctx, cancel := context.WithCancel(context.Background())

	require.NoError(t, l.Wait(ctx, 1, time.Minute))
	cancel()

	err := l.Wait(ctx, 1, time.Minute)
	assert.ErrorIs(t, err, context.Canceled, "A cancelled wait should return the context error")
}
