package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"pickwire/ingestion/internal/adapters"
	"pickwire/ingestion/internal/alerts"
	"pickwire/ingestion/internal/cache"
	"pickwire/ingestion/internal/config"
	"pickwire/ingestion/internal/fetcher"
	"pickwire/ingestion/internal/metrics"
	"pickwire/ingestion/internal/models"
	"pickwire/ingestion/internal/normalize"
	"pickwire/ingestion/internal/parser"
	"pickwire/ingestion/internal/queue"
	"pickwire/ingestion/internal/ratelimit"
	"pickwire/ingestion/internal/repository"
	"pickwire/ingestion/internal/resolver"
	"pickwire/ingestion/internal/results"
	"pickwire/ingestion/internal/robots"
	"pickwire/ingestion/internal/scheduler"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	setupLogger()

	log.Info().Msg("Starting Pickwire Ingestion Worker")

	cfg := config.MustLoad()
	log.Info().
		Str("env", cfg.AppEnv).
		Str("log_level", cfg.LogLevel).
		Msg("Configuration loaded")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		log.Info().Msg("Received shutdown signal, gracefully shutting down...")
		cancel()
	}()

	// Database
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
	log.Info().Msg("Database connection established")

	// Redis carries the cross-cutting signals; its absence degrades to
	// warnings, never failures.
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
		log.Info().Msg("Redis cache connected")
	}

	// Adapter registry and source bookkeeping
	registry, err := adapters.NewRegistry(siteAdapters()...)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to build adapter registry")
	}

	if err := seedSources(ctx, db, registry); err != nil {
		log.Fatal().Err(err).Msg("Failed to seed sources from adapter registry")
	}

	// Team resolver. An empty alias index would silently skip every
	// prediction, so a failed load is fatal.
	teamResolver := resolver.New(db.Teams, cfg.CuratedSport)
	if err := teamResolver.LoadAliases(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to load team alias cache")
	}

	// Shared browser handle for browser-method sources
	browser := fetcher.NewBrowser(cfg.ChromeDevtools, cfg.BrowserTimeout)
	defer browser.Close()

	// Queue broker and worker handlers
	broker := queue.NewBroker()

	fetchHandler := fetcher.New(cfg, db, registry,
		ratelimit.New(),
		robots.NewChecker(cfg.FetchTimeout, cfg.RobotsCacheTTL),
		browser, broker)

	normalizer := normalize.New(teamResolver, db.Matches, db.Predictions)
	parseHandler := parser.New(registry, normalizer, redisCache)

	resultsWorker := results.NewWorker(cfg, db, teamResolver)
	alertWorker := alerts.NewWorker(cfg, db, redisCache)

	registerQueues(cfg, broker, fetchHandler, parseHandler, resultsWorker, alertWorker)
	broker.Start(ctx)

	// Metrics HTTP server
	if cfg.EnableMetrics {
		go startMetricsServer(cfg.MetricsPort, db)
	}

	// Update system uptime metric
	startTime := time.Now()
	go func() {
		ticker := time.NewTicker(10 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				metrics.SystemUptime.Set(time.Since(startTime).Seconds())
			case <-ctx.Done():
				return
			}
		}
	}()

	// Recurring schedules
	sched := scheduler.NewScheduler(cfg, broker, registry)
	if cfg.EnableScheduler {
		if err := sched.Start(); err != nil {
			log.Fatal().Err(err).Msg("Failed to start scheduler")
		}
	}

	// Kick off one fetch cycle immediately when requested
	if cfg.InitialFetch {
		log.Info().Msg("Enqueuing initial fetch cycle...")
		enqueueInitialFetches(broker, registry)
	}

	<-ctx.Done()

	log.Info().Msg("Shutting down...")
	if cfg.EnableScheduler {
		sched.Stop()
	}
	broker.Stop()

	log.Info().Msg("Worker shutdown complete")
}

// setupLogger configures the zerolog logger
func setupLogger() {
	// Pretty console logging in development
	if os.Getenv("APP_ENV") == "development" {
		log.Logger = log.Output(zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		})
	}

	level := zerolog.InfoLevel
	if lvl := os.Getenv("LOG_LEVEL"); lvl != "" {
		parsedLevel, err := zerolog.ParseLevel(lvl)
		if err == nil {
			level = parsedLevel
		}
	}
	zerolog.SetGlobalLevel(level)

	log.Info().
		Str("level", level.String()).
		Msg("Logger initialized")
}

// seedSources upserts one source row per registered adapter.
func seedSources(ctx context.Context, db *repository.Database, registry *adapters.Registry) error {
	for _, adapter := range registry.List() {
		cfg := adapter.Config()
		source := &models.Source{
			Slug:        cfg.ID,
			Name:        cfg.Name,
			BaseURL:     cfg.BaseURL,
			FetchMethod: cfg.FetchMethod,
			Active:      true,
		}
		if err := db.Sources.Upsert(ctx, source); err != nil {
			return err
		}
		log.Debug().Str("slug", source.Slug).Int64("id", source.ID).Msg("Source seeded")
	}
	return nil
}

// registerQueues declares the four pipeline queues with their policies.
func registerQueues(cfg *config.Config, broker *queue.Broker, fetch *fetcher.Fetcher, parse *parser.Parser, res *results.Worker, alert *alerts.Worker) {
	mustRegister(broker, queue.QueueFetch, queue.Policy{
		Workers:     cfg.FetchWorkers,
		MaxAttempts: 4,
		Backoff:     queue.BackoffExponential,
		BackoffBase: 15 * time.Second,
	}, fetch.Handle)

	mustRegister(broker, queue.QueueParse, queue.Policy{
		Workers:     cfg.ParseWorkers,
		MaxAttempts: 3,
		Backoff:     queue.BackoffFixed,
		BackoffBase: 5 * time.Second,
	}, parse.Handle)

	mustRegister(broker, queue.QueueResults, queue.Policy{
		Workers:     1,
		MaxAttempts: 3,
		Backoff:     queue.BackoffExponential,
		BackoffBase: 30 * time.Second,
	}, res.Handle)

	mustRegister(broker, queue.QueueAlert, queue.Policy{
		Workers:     1,
		MaxAttempts: 2,
		Backoff:     queue.BackoffFixed,
		BackoffBase: time.Minute,
	}, alert.Handle)
}

func mustRegister(broker *queue.Broker, name string, policy queue.Policy, handler queue.Handler) {
	if err := broker.Register(name, policy, handler); err != nil {
		log.Fatal().Err(err).Str("queue", name).Msg("Failed to register queue")
	}
}

// enqueueInitialFetches submits one fetch job per (adapter, sport) pair.
func enqueueInitialFetches(broker *queue.Broker, registry *adapters.Registry) {
	for _, adapter := range registry.List() {
		cfg := adapter.Config()
		for sport, path := range cfg.Paths {
			_, err := broker.Enqueue(queue.QueueFetch, models.FetchJob{
				AdapterID: cfg.ID,
				Sport:     sport,
				Path:      path,
				URL:       cfg.BaseURL + path,
			})
			if err != nil {
				log.Error().Err(err).Str("adapter", cfg.ID).Str("sport", sport).Msg("Failed to enqueue initial fetch")
			}
		}
	}
}

// startMetricsServer starts the Prometheus metrics and health endpoint
func startMetricsServer(port int, db *repository.Database) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		if err := db.Health(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			fmt.Fprintf(w, "unhealthy: %v", err)
			return
		}
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "ok")
	})

	addr := fmt.Sprintf(":%d", port)
	log.Info().Str("addr", addr).Msg("Starting metrics server")

	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Error().Err(err).Msg("Metrics server failed")
	}
}
