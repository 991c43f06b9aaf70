// Package scheduler registers the recurring fetch, results, and alert
// triggers. Registration is a declare-desired-state upsert keyed by a stable
// schedule id, so re-running it after a restart never duplicates triggers.
package scheduler

import (
	"fmt"
	"sync"

	"pickwire/ingestion/internal/adapters"
	"pickwire/ingestion/internal/config"
	"pickwire/ingestion/internal/models"
	"pickwire/ingestion/internal/queue"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

type scheduleEntry struct {
	pattern string
	entryID cron.EntryID
}

// Scheduler manages the recurring job triggers. Schedule callbacks only
// enqueue jobs on the broker; the work itself happens in the worker pools.
type Scheduler struct {
	cfg      *config.Config
	broker   *queue.Broker
	registry *adapters.Registry
	cron     *cron.Cron

	mu      sync.Mutex
	entries map[string]scheduleEntry
}

// NewScheduler creates a new scheduler instance
func NewScheduler(cfg *config.Config, broker *queue.Broker, registry *adapters.Registry) *Scheduler {
	return &Scheduler{
		cfg:      cfg,
		broker:   broker,
		registry: registry,
		cron:     cron.New(),
		entries:  make(map[string]scheduleEntry),
	}
}

// Upsert declares a recurring trigger. The same id with an unchanged pattern
// is a no-op; a changed pattern replaces the old trigger.
func (s *Scheduler) Upsert(id, pattern string, fn func()) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.entries[id]; ok {
		if existing.pattern == pattern {
			log.Debug().Str("schedule", id).Str("pattern", pattern).Msg("Schedule unchanged")
			return nil
		}
		s.cron.Remove(existing.entryID)
	}

	entryID, err := s.cron.AddFunc(pattern, fn)
	if err != nil {
		return fmt.Errorf("failed to register schedule %q: %w", id, err)
	}

	s.entries[id] = scheduleEntry{pattern: pattern, entryID: entryID}
	log.Info().Str("schedule", id).Str("pattern", pattern).Msg("Schedule registered")
	return nil
}

// EntryCount returns the number of active recurring triggers.
func (s *Scheduler) EntryCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Start registers all schedules and starts the cron runner.
func (s *Scheduler) Start() error {
	log.Info().Msg("Scheduler starting...")

	if err := s.registerFetchSchedules(); err != nil {
		return err
	}
	if err := s.registerResultsSchedules(); err != nil {
		return err
	}
	if err := s.registerAlertSchedule(); err != nil {
		return err
	}

	s.cron.Start()
	log.Info().Int("schedules", s.EntryCount()).Msg("Scheduler started")
	return nil
}

// Stop stops the scheduler
func (s *Scheduler) Stop() {
	log.Info().Msg("Stopping scheduler...")
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Info().Msg("Scheduler stopped")
}

// registerFetchSchedules registers one trigger per (adapter, sport) pair.
func (s *Scheduler) registerFetchSchedules() error {
	for _, adapter := range s.registry.List() {
		cfg := adapter.Config()
		for sport, path := range cfg.Paths {
			id := fmt.Sprintf("fetch:%s:%s", cfg.ID, sport)
			job := models.FetchJob{
				AdapterID: cfg.ID,
				Sport:     sport,
				Path:      path,
				URL:       cfg.BaseURL + path,
			}

			if err := s.Upsert(id, cfg.CronPattern, func() {
				if _, err := s.broker.Enqueue(queue.QueueFetch, job); err != nil {
					log.Error().Err(err).Str("schedule", id).Msg("Failed to enqueue fetch job")
				}
			}); err != nil {
				return err
			}
		}
	}
	return nil
}

// registerResultsSchedules registers the per-sport outcome refreshes: a
// frequent pass during active hours for today's games and a slower pass
// catching late settlement of yesterday's.
func (s *Scheduler) registerResultsSchedules() error {
	sports := s.sports()

	for _, sport := range sports {
		for _, spec := range []struct {
			day     string
			pattern string
		}{
			{"today", s.cfg.ResultsCronDay},
			{"yesterday", s.cfg.ResultsCronLate},
		} {
			id := fmt.Sprintf("results:%s:%s", sport, spec.day)
			job := models.ResultsJob{Sport: sport, Date: spec.day}

			if err := s.Upsert(id, spec.pattern, func() {
				if _, err := s.broker.Enqueue(queue.QueueResults, job); err != nil {
					log.Error().Err(err).Str("schedule", id).Msg("Failed to enqueue results job")
				}
			}); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *Scheduler) registerAlertSchedule() error {
	return s.Upsert("alert", s.cfg.AlertCron, func() {
		if _, err := s.broker.Enqueue(queue.QueueAlert, models.AlertJob{}); err != nil {
			log.Error().Err(err).Msg("Failed to enqueue alert job")
		}
	})
}

// sports returns the distinct sports covered by the adapter registry.
func (s *Scheduler) sports() []string {
	seen := make(map[string]bool)
	var out []string
	for _, adapter := range s.registry.List() {
		for sport := range adapter.Config().Paths {
			if !seen[sport] {
				seen[sport] = true
				out = append(out, sport)
			}
		}
	}
	return out
}
