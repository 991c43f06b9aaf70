package fetcher

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/rs/zerolog/log"
)

// Browser is the single shared headless-browser handle. The underlying
// allocator is created lazily on first use; every fetch runs in its own
// browsing context on top of it and tears that context down afterwards.
type Browser struct {
	devtoolsURL string
	timeout     time.Duration

	mu          sync.Mutex
	allocCtx    context.Context
	allocCancel context.CancelFunc
}

// NewBrowser creates the handle without starting a browser. devtoolsURL, when
// set, attaches to an external Chrome (sidecar container); otherwise a local
// headless instance is launched on first use.
func NewBrowser(devtoolsURL string, timeout time.Duration) *Browser {
	return &Browser{
		devtoolsURL: devtoolsURL,
		timeout:     timeout,
	}
}

func (b *Browser) allocator() context.Context {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.allocCtx != nil {
		return b.allocCtx
	}

	if b.devtoolsURL != "" {
		b.allocCtx, b.allocCancel = chromedp.NewRemoteAllocator(context.Background(), b.devtoolsURL)
		log.Info().Str("devtools", b.devtoolsURL).Msg("Attached to remote browser")
	} else {
		opts := append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", true),
			chromedp.Flag("disable-gpu", true),
			chromedp.Flag("no-sandbox", true),
		)
		b.allocCtx, b.allocCancel = chromedp.NewExecAllocator(context.Background(), opts...)
		log.Info().Msg("Local headless browser allocator initialized")
	}

	return b.allocCtx
}

// Fetch navigates to url in a fresh browsing context, runs any adapter
// pre-capture actions, and returns the rendered HTML.
func (b *Browser) Fetch(ctx context.Context, url string, actions []chromedp.Action) ([]byte, error) {
	tabCtx, cancelTab := chromedp.NewContext(b.allocator())
	defer cancelTab()

	tabCtx, cancelTimeout := context.WithTimeout(tabCtx, b.timeout)
	defer cancelTimeout()

	// Honor caller cancellation alongside the fetch timeout.
	go func() {
		select {
		case <-ctx.Done():
			cancelTimeout()
		case <-tabCtx.Done():
		}
	}()

	run := []chromedp.Action{chromedp.Navigate(url)}
	run = append(run, actions...)

	var html string
	run = append(run, chromedp.OuterHTML("html", &html))

	if err := chromedp.Run(tabCtx, run...); err != nil {
		return nil, fmt.Errorf("browser navigation failed: %w", err)
	}

	return []byte(html), nil
}

// Close tears down the shared allocator.
func (b *Browser) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.allocCancel != nil {
		b.allocCancel()
		b.allocCtx = nil
		b.allocCancel = nil
		log.Info().Msg("Browser allocator closed")
	}
}
