// Package ratelimit gates outbound fetches with a per-source minimum
// interval. Each source id has an independent clock; sources never wait on
// each other.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

type sourceClock struct {
	mu   sync.Mutex // serializes acquisition order for one source
	next time.Time
}

// Limiter tracks the earliest permitted request time per source id.
type Limiter struct {
	mu      sync.Mutex
	sources map[int64]*sourceClock
	now     func() time.Time
	sleep   func(ctx context.Context, d time.Duration) error
}

// New creates an empty limiter.
func New() *Limiter {
	return &Limiter{
		sources: make(map[int64]*sourceClock),
		now:     time.Now,
		sleep:   sleepCtx,
	}
}

// Wait blocks until at least minInterval has elapsed since the previous
// acquisition for the same source, then records the new acquisition. The
// registry lock is never held across the wait; only the per-source lock
// serializes acquisition order.
func (l *Limiter) Wait(ctx context.Context, sourceID int64, minInterval time.Duration) error {
	clock := l.clock(sourceID)

	clock.mu.Lock()
	now := l.now()
	wait := clock.next.Sub(now)
	if wait < 0 {
		wait = 0
	}
	// Reserve the slot before sleeping so a concurrent caller for the same
	// source queues behind this acquisition rather than racing it.
	start := now.Add(wait)
	clock.next = start.Add(minInterval)
	clock.mu.Unlock()

	if wait > 0 {
		if err := l.sleep(ctx, wait); err != nil {
			return err
		}
	}
	return nil
}

func (l *Limiter) clock(sourceID int64) *sourceClock {
	l.mu.Lock()
	defer l.mu.Unlock()

	c, ok := l.sources[sourceID]
	if !ok {
		c = &sourceClock{}
		l.sources[sourceID] = c
	}
	return c
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
