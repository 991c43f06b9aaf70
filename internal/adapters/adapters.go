// Package adapters defines the contract between the pipeline and the
// site-specific scrapers. The pipeline treats every adapter polymorphically:
// outside the registry lookup nothing branches on adapter identity.
package adapters

import (
	"fmt"
	"time"

	"pickwire/ingestion/internal/models"
	"pickwire/ingestion/internal/queue"

	"github.com/chromedp/chromedp"
)

// Config is an adapter's static configuration.
type Config struct {
	// ID is the stable adapter identifier, also the source slug.
	ID      string
	Name    string
	BaseURL string
	// Paths maps sport slug to the path fetched for that sport.
	Paths       map[string]string
	FetchMethod models.FetchMethod
	CronPattern string
	// RateLimit is the minimum interval between requests to this site.
	RateLimit   time.Duration
	MaxRetries  int
	Backoff     queue.BackoffType
	BackoffBase time.Duration
}

// Adapter extracts raw predictions from one site's markup.
type Adapter interface {
	Config() Config
	Parse(html []byte, sport string, fetchedAt time.Time) ([]models.RawPrediction, error)
}

// URLDiscoverer is implemented by adapters whose landing page links to
// per-article sub-pages that carry the actual picks.
type URLDiscoverer interface {
	DiscoverURLs(html []byte, sport string) ([]string, error)
}

// BrowserInteractor is implemented by adapters that need page interaction
// (cookie banners, load-more buttons) before the HTML is captured.
type BrowserInteractor interface {
	BrowserActions(sport string) []chromedp.Action
}

// Registry maps stable adapter ids to adapters, resolved once at startup.
type Registry struct {
	adapters map[string]Adapter
	order    []string
}

// NewRegistry builds a registry from the given adapters.
func NewRegistry(list ...Adapter) (*Registry, error) {
	r := &Registry{adapters: make(map[string]Adapter, len(list))}
	for _, a := range list {
		cfg := a.Config()
		if cfg.ID == "" {
			return nil, fmt.Errorf("adapter with empty id")
		}
		if _, exists := r.adapters[cfg.ID]; exists {
			return nil, fmt.Errorf("duplicate adapter id %q", cfg.ID)
		}
		r.adapters[cfg.ID] = a
		r.order = append(r.order, cfg.ID)
	}
	return r, nil
}

// Get returns the adapter for an id.
func (r *Registry) Get(id string) (Adapter, error) {
	a, ok := r.adapters[id]
	if !ok {
		return nil, fmt.Errorf("unknown adapter %q", id)
	}
	return a, nil
}

// List returns all adapters in registration order.
func (r *Registry) List() []Adapter {
	out := make([]Adapter, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.adapters[id])
	}
	return out
}
