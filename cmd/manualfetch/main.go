// Command manualfetch runs one fetch+parse cycle for a single adapter and
// sport. Used for debugging extraction and backfilling a missed page without
// waiting on the schedule.
package main

import (
	"context"
	"flag"
	"strconv"
	"time"

	"pickwire/ingestion/internal/adapters"
	"pickwire/ingestion/internal/cache"
	"pickwire/ingestion/internal/config"
	"pickwire/ingestion/internal/fetcher"
	"pickwire/ingestion/internal/models"
	"pickwire/ingestion/internal/normalize"
	"pickwire/ingestion/internal/parser"
	"pickwire/ingestion/internal/queue"
	"pickwire/ingestion/internal/ratelimit"
	"pickwire/ingestion/internal/repository"
	"pickwire/ingestion/internal/resolver"
	"pickwire/ingestion/internal/robots"

	"github.com/rs/zerolog/log"
)

func main() {
	adapterID := flag.String("adapter", "", "adapter id to fetch")
	sport := flag.String("sport", "", "sport slug to fetch")
	wait := flag.Duration("wait", 2*time.Minute, "maximum time to wait for the cycle to finish")
	flag.Parse()

	if *adapterID == "" || *sport == "" {
		log.Fatal().Msg("Both -adapter and -sport are required")
	}

	cfg := config.MustLoad()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := repository.NewDatabase(ctx, repository.Config{
		Host:     cfg.DatabaseHost,
		Port:     strconv.Itoa(cfg.DatabasePort),
		User:     cfg.DatabaseUser,
		Password: cfg.DatabasePassword,
		Database: cfg.DatabaseName,
		SSLMode:  cfg.DatabaseSSLMode,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	if err := db.Health(ctx); err != nil {
		log.Fatal().Err(err).Msg("Database health check failed")
	}

	redisCache, err := cache.NewRedisCache(cache.Config{
		Host:     cfg.RedisHost,
		Port:     strconv.Itoa(cfg.RedisPort),
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err != nil {
		log.Warn().Err(err).Msg("Failed to connect to Redis - continuing without cache")
		redisCache = nil
	} else {
		defer redisCache.Close()
	}

	registry, err := adapters.NewRegistry(siteAdapters()...)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to build adapter registry")
	}

	adapter, err := registry.Get(*adapterID)
	if err != nil {
		log.Fatal().Err(err).Msg("Unknown adapter")
	}
	adapterCfg := adapter.Config()

	path, ok := adapterCfg.Paths[*sport]
	if !ok {
		log.Fatal().Str("adapter", *adapterID).Str("sport", *sport).Msg("Adapter does not cover this sport")
	}

	// The fetch worker looks its source row up by slug, so seed it first.
	source := &models.Source{
		Slug:        adapterCfg.ID,
		Name:        adapterCfg.Name,
		BaseURL:     adapterCfg.BaseURL,
		FetchMethod: adapterCfg.FetchMethod,
		Active:      true,
	}
	if err := db.Sources.Upsert(ctx, source); err != nil {
		log.Fatal().Err(err).Msg("Failed to seed source")
	}

	teamResolver := resolver.New(db.Teams, cfg.CuratedSport)
	if err := teamResolver.LoadAliases(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to load team alias cache")
	}

	browser := fetcher.NewBrowser(cfg.ChromeDevtools, cfg.BrowserTimeout)
	defer browser.Close()

	broker := queue.NewBroker()

	fetchHandler := fetcher.New(cfg, db, registry,
		ratelimit.New(),
		robots.NewChecker(cfg.FetchTimeout, cfg.RobotsCacheTTL),
		browser, broker)
	parseHandler := parser.New(registry, normalize.New(teamResolver, db.Matches, db.Predictions), redisCache)

	mustRegister(broker, queue.QueueFetch, queue.Policy{Workers: 1, MaxAttempts: 2, Backoff: queue.BackoffFixed, BackoffBase: 5 * time.Second}, fetchHandler.Handle)
	mustRegister(broker, queue.QueueParse, queue.Policy{Workers: 1, MaxAttempts: 1}, parseHandler.Handle)

	broker.Start(ctx)

	jobID, err := broker.Enqueue(queue.QueueFetch, models.FetchJob{
		AdapterID: adapterCfg.ID,
		Sport:     *sport,
		Path:      path,
		URL:       adapterCfg.BaseURL + path,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to enqueue fetch job")
	}

	log.Info().
		Str("job_id", jobID).
		Str("adapter", adapterCfg.ID).
		Str("sport", *sport).
		Msg("Fetch cycle started")

	waitForQuiescence(broker, *wait)

	cancel()
	broker.Stop()

	fetchOK, fetchFailed := broker.Stats(queue.QueueFetch)
	parseOK, parseFailed := broker.Stats(queue.QueueParse)
	log.Info().
		Int("fetches_completed", len(fetchOK)).
		Int("fetches_failed", len(fetchFailed)).
		Int("parses_completed", len(parseOK)).
		Int("parses_failed", len(parseFailed)).
		Msg("Manual fetch cycle complete")

	if len(fetchFailed)+len(parseFailed) > 0 {
		log.Error().Msg("Cycle finished with failures, see logs above")
	}
}

// waitForQuiescence polls the broker until finished-job counts stop moving.
// Discovery adapters fan one landing fetch out into several article fetches,
// so the cycle is done when activity settles, not after a fixed job count.
func waitForQuiescence(broker *queue.Broker, maxWait time.Duration) {
	deadline := time.Now().Add(maxWait)
	lastTotal := -1
	stable := 0

	for time.Now().Before(deadline) {
		time.Sleep(time.Second)

		fetchOK, fetchFailed := broker.Stats(queue.QueueFetch)
		parseOK, parseFailed := broker.Stats(queue.QueueParse)
		total := len(fetchOK) + len(fetchFailed) + len(parseOK) + len(parseFailed)

		if total == lastTotal && total > 0 {
			stable++
			if stable >= 5 {
				return
			}
		} else {
			stable = 0
		}
		lastTotal = total
	}

	log.Warn().Dur("max_wait", maxWait).Msg("Timed out waiting for the cycle to settle")
}

func mustRegister(broker *queue.Broker, name string, policy queue.Policy, handler queue.Handler) {
	if err := broker.Register(name, policy, handler); err != nil {
		log.Fatal().Err(err).Str("queue", name).Msg("Failed to register queue")
	}
}
