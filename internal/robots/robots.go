// Package robots evaluates robots.txt policy for fetch targets. Policy is
// advisory: a failed fetch or unparseable file fails open so one site outage
// never blocks the pipeline.
package robots

import (
	"context"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/temoto/robotstxt"
)

type cacheEntry struct {
	group     *robotstxt.Group
	fetchedAt time.Time
}

// Checker fetches and caches robots.txt per base URL. Only the wildcard
// user-agent group is consulted.
type Checker struct {
	httpClient *http.Client
	ttl        time.Duration

	mu    sync.Mutex
	cache map[string]*cacheEntry
	now   func() time.Time
}

// NewChecker creates a checker with the given cache TTL.
func NewChecker(timeout, ttl time.Duration) *Checker {
	return &Checker{
		httpClient: &http.Client{Timeout: timeout},
		ttl:        ttl,
		cache:      make(map[string]*cacheEntry),
		now:        time.Now,
	}
}

// Allowed reports whether path may be fetched under baseURL's robots policy.
func (c *Checker) Allowed(ctx context.Context, baseURL, path string) bool {
	group := c.group(ctx, baseURL)
	if group == nil {
		// Fail open: no policy available means permitted.
		return true
	}

	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return group.Test(path)
}

func (c *Checker) group(ctx context.Context, baseURL string) *robotstxt.Group {
	c.mu.Lock()
	entry, ok := c.cache[baseURL]
	if ok && c.now().Sub(entry.fetchedAt) < c.ttl {
		c.mu.Unlock()
		return entry.group
	}
	c.mu.Unlock()

	group := c.fetch(ctx, baseURL)

	c.mu.Lock()
	c.cache[baseURL] = &cacheEntry{group: group, fetchedAt: c.now()}
	c.mu.Unlock()

	return group
}

// fetch retrieves and parses robots.txt. A nil return means "no policy".
func (c *Checker) fetch(ctx context.Context, baseURL string) *robotstxt.Group {
	robotsURL := strings.TrimRight(baseURL, "/") + "/robots.txt"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return nil
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Warn().Err(err).Str("url", robotsURL).Msg("robots.txt fetch failed, failing open")
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Debug().Int("status", resp.StatusCode).Str("url", robotsURL).Msg("No robots.txt policy")
		return nil
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil
	}

	data, err := robotstxt.FromBytes(body)
	if err != nil {
		log.Warn().Err(err).Str("url", robotsURL).Msg("robots.txt parse failed, failing open")
		return nil
	}

	return data.FindGroup("*")
}
