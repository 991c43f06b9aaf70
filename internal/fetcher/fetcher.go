// Package fetcher executes fetch jobs: rate limit, robots policy, retrieval
// by the source's configured method, snapshot persistence, and parse-job
// handoff.
package fetcher

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"pickwire/ingestion/internal/adapters"
	"pickwire/ingestion/internal/config"
	"pickwire/ingestion/internal/metrics"
	"pickwire/ingestion/internal/models"
	"pickwire/ingestion/internal/queue"
	"pickwire/ingestion/internal/ratelimit"
	"pickwire/ingestion/internal/repository"
	"pickwire/ingestion/internal/robots"

	"github.com/chromedp/chromedp"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const maxRedirects = 3

// Fetcher handles fetch-queue jobs.
type Fetcher struct {
	cfg        *config.Config
	db         *repository.Database
	registry   *adapters.Registry
	limiter    *ratelimit.Limiter
	robots     *robots.Checker
	browser    *Browser
	broker     *queue.Broker
	httpClient *http.Client
}

// New creates a fetch worker handler.
func New(cfg *config.Config, db *repository.Database, registry *adapters.Registry, limiter *ratelimit.Limiter, checker *robots.Checker, browser *Browser, broker *queue.Broker) *Fetcher {
	return &Fetcher{
		cfg:      cfg,
		db:       db,
		registry: registry,
		limiter:  limiter,
		robots:   checker,
		browser:  browser,
		broker:   broker,
		httpClient: &http.Client{
			Timeout: cfg.FetchTimeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= maxRedirects {
					return fmt.Errorf("stopped after %d redirects", maxRedirects)
				}
				return nil
			},
		},
	}
}

// Handle executes one fetch job. Retrieval failures are returned so the
// queue's backoff policy retries them; a robots disallow completes the job
// successfully with zero work performed.
func (f *Fetcher) Handle(ctx context.Context, job *queue.Job) error {
	var payload models.FetchJob
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("invalid fetch payload: %w", err)
	}

	adapter, err := f.registry.Get(payload.AdapterID)
	if err != nil {
		return err
	}
	adapterCfg := adapter.Config()

	source, err := f.db.Sources.GetBySlug(ctx, payload.AdapterID)
	if err != nil {
		return err
	}
	if !source.Active {
		log.Debug().Str("adapter", payload.AdapterID).Msg("Source inactive, skipping fetch")
		return nil
	}

	if err := f.limiter.Wait(ctx, source.ID, adapterCfg.RateLimit); err != nil {
		return err
	}

	if !f.robots.Allowed(ctx, adapterCfg.BaseURL, payload.Path) {
		metrics.RobotsBlockedTotal.Inc()
		log.Info().
			Str("adapter", payload.AdapterID).
			Str("path", payload.Path).
			Msg("Fetch blocked by robots policy, skipping")
		return nil
	}

	start := time.Now()
	body, httpStatus, err := f.retrieve(ctx, adapter, payload)
	duration := time.Since(start)

	if err != nil {
		metrics.RecordFetch(payload.AdapterID, string(adapterCfg.FetchMethod), "error", duration.Seconds(), 0)
		return fmt.Errorf("retrieval failed for %s: %w", payload.URL, err)
	}

	metrics.RecordFetch(payload.AdapterID, string(adapterCfg.FetchMethod), "success", duration.Seconds(), len(body))

	fetchedAt := time.Now()
	if err := f.db.Sources.TouchFetched(ctx, source.ID, fetchedAt); err != nil {
		log.Warn().Err(err).Str("adapter", payload.AdapterID).Msg("Failed to update source fetch time")
	}

	// Landing pages of discovery adapters yield per-article fetch jobs
	// instead of a snapshot of their own.
	if discoverer, ok := adapter.(adapters.URLDiscoverer); ok && !payload.Discovered {
		return f.enqueueDiscovered(discoverer, payload, body)
	}

	snapshotPath, err := f.persistSnapshot(payload, adapterCfg, body, httpStatus, duration, fetchedAt)
	if err != nil {
		return err
	}

	_, err = f.broker.Enqueue(queue.QueueParse, models.ParseJob{
		AdapterID:    payload.AdapterID,
		Sport:        payload.Sport,
		SnapshotPath: snapshotPath,
		FetchedAt:    fetchedAt,
	})
	if err != nil {
		return fmt.Errorf("failed to enqueue parse job: %w", err)
	}

	log.Info().
		Str("adapter", payload.AdapterID).
		Str("sport", payload.Sport).
		Str("url", payload.URL).
		Dur("duration", duration).
		Int("size", len(body)).
		Msg("Fetch complete")

	return nil
}

// retrieve fetches by the adapter's configured method. httpStatus is nil for
// browser retrievals.
func (f *Fetcher) retrieve(ctx context.Context, adapter adapters.Adapter, payload models.FetchJob) ([]byte, *int, error) {
	cfg := adapter.Config()

	if cfg.FetchMethod == models.FetchBrowser {
		var actions []chromedp.Action
		if interactor, ok := adapter.(adapters.BrowserInteractor); ok {
			actions = interactor.BrowserActions(payload.Sport)
		}
		body, err := f.browser.Fetch(ctx, payload.URL, actions)
		return body, nil, err
	}

	return f.httpGet(ctx, payload.URL)
}

func (f *Fetcher) httpGet(ctx context.Context, url string) ([]byte, *int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", f.cfg.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	status := resp.StatusCode
	if status >= 500 {
		return nil, &status, fmt.Errorf("server returned status %d", status)
	}
	if status != http.StatusOK {
		return nil, &status, fmt.Errorf("unexpected status %d", status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &status, fmt.Errorf("failed to read response body: %w", err)
	}

	return body, &status, nil
}

// persistSnapshot writes the raw body plus a metadata sidecar and returns the
// body path referenced by the parse job.
func (f *Fetcher) persistSnapshot(payload models.FetchJob, adapterCfg adapters.Config, body []byte, httpStatus *int, duration time.Duration, fetchedAt time.Time) (string, error) {
	dir := filepath.Join(f.cfg.SnapshotDir, payload.AdapterID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create snapshot dir: %w", err)
	}

	name := fmt.Sprintf("%s-%s-%s", payload.Sport, fetchedAt.Format("20060102T150405"), uuid.NewString()[:8])
	bodyPath := filepath.Join(dir, name+".html")
	metaPath := filepath.Join(dir, name+".json")

	if err := os.WriteFile(bodyPath, body, 0o644); err != nil {
		return "", fmt.Errorf("failed to write snapshot: %w", err)
	}

	meta := models.Snapshot{
		AdapterID:   payload.AdapterID,
		Sport:       payload.Sport,
		URL:         payload.URL,
		FetchMethod: adapterCfg.FetchMethod,
		HTTPStatus:  httpStatus,
		DurationMS:  duration.Milliseconds(),
		SizeBytes:   len(body),
		FetchedAt:   fetchedAt,
	}

	metaData, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal snapshot metadata: %w", err)
	}
	if err := os.WriteFile(metaPath, metaData, 0o644); err != nil {
		return "", fmt.Errorf("failed to write snapshot metadata: %w", err)
	}

	return bodyPath, nil
}

// enqueueDiscovered turns a landing page into per-article fetch jobs.
func (f *Fetcher) enqueueDiscovered(discoverer adapters.URLDiscoverer, payload models.FetchJob, body []byte) error {
	urls, err := discoverer.DiscoverURLs(body, payload.Sport)
	if err != nil {
		return fmt.Errorf("url discovery failed: %w", err)
	}

	if len(urls) == 0 {
		log.Warn().
			Str("adapter", payload.AdapterID).
			Str("sport", payload.Sport).
			Msg("Landing page yielded no article URLs, discovery rules may be stale")
		return nil
	}

	for _, u := range urls {
		_, err := f.broker.Enqueue(queue.QueueFetch, models.FetchJob{
			AdapterID:  payload.AdapterID,
			Sport:      payload.Sport,
			Path:       payload.Path,
			URL:        u,
			Discovered: true,
		})
		if err != nil {
			return fmt.Errorf("failed to enqueue discovered fetch: %w", err)
		}
	}

	log.Info().
		Str("adapter", payload.AdapterID).
		Int("urls", len(urls)).
		Msg("Discovered article URLs enqueued")

	return nil
}
