package rod

import (
	"context"
	"errors"
	"time"

	"github.com/go-rod/rod/lib/proto"
	"github.com/minute-repeater/restocked"
)

// DefaultFetchTimeout bounds one rendered fetch, including navigation and
// the network-idle wait.
const DefaultFetchTimeout = 10 * time.Second

// requestIdleWindow is how long the network must stay quiet before the
// rendered DOM is considered settled. Storefronts commonly load prices and
// availability via XHR after the load event fires.
const requestIdleWindow = 300 * time.Millisecond

// Ensure Fetcher implements restocked.Fetcher at compile time.
var _ restocked.Fetcher = (*Fetcher)(nil)

// Fetcher retrieves rendered product pages using Chrome browser automation.
// It is the escalation path for sites that block or starve the plain HTTP
// fetcher. Fetcher is safe for concurrent use by multiple goroutines.
type Fetcher struct {
	manager *BrowserManager
	timeout time.Duration
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithTimeout sets the per-fetch timeout.
// Defaults to DefaultFetchTimeout (10s) if not specified.
func WithTimeout(d time.Duration) Option {
	return func(f *Fetcher) {
		f.timeout = d
	}
}

// NewFetcher launches a managed headless browser.
// Close must be called when the Fetcher is no longer needed.
//
// Returns an error if Chrome/Chromium cannot be found or launched.
func NewFetcher(opts ...Option) (*Fetcher, error) {
	f := &Fetcher{timeout: DefaultFetchTimeout}
	for _, opt := range opts {
		opt(f)
	}

	manager, err := NewBrowserManager()
	if err != nil {
		return nil, err
	}
	f.manager = manager

	return f, nil
}

// Fetch navigates to the URL, waits for client-side rendering and network
// idle, and returns the rendered DOM. The page is closed on every exit
// path; a stuck session is cut off by the fetch timeout and its resources
// released with it.
func (f *Fetcher) Fetch(ctx context.Context, url string) (*restocked.FetchResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, restocked.Errorf(restocked.ETIMEOUT, "fetch %s canceled before start", url)
	}

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	page, err := f.manager.Browser().Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, restocked.Errorf(restocked.ETRANSPORT, "open browser page for %s: %v", url, err)
	}
	defer page.Close()

	page = page.Context(ctx)

	if err := page.Navigate(url); err != nil {
		return nil, classify(ctx, url, err)
	}
	if err := page.WaitLoad(); err != nil {
		return nil, classify(ctx, url, err)
	}

	// Let post-load XHRs (prices, availability) settle.
	wait := page.WaitRequestIdle(requestIdleWindow, nil, nil, nil)
	wait()

	html, err := page.HTML()
	if err != nil {
		return nil, classify(ctx, url, err)
	}

	f.manager.PageRendered()

	if restocked.LooksBotChallenge(html) {
		// Even the rendered page is an interstitial; nothing more to try.
		return nil, restocked.Errorf(restocked.EBOTBLOCKED, "page %s served a bot challenge", url)
	}

	finalURL := url
	if info, err := page.Info(); err == nil && info.URL != "" {
		finalURL = info.URL
	}

	return &restocked.FetchResult{
		HTML:     html,
		FinalURL: finalURL,
		Strategy: restocked.FetchBrowser,
	}, nil
}

// Close releases all browser resources.
func (f *Fetcher) Close() error {
	return f.manager.Close()
}

func classify(ctx context.Context, url string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return restocked.Errorf(restocked.ETIMEOUT, "render %s timed out", url)
	}
	return restocked.Errorf(restocked.ETRANSPORT, "render %s: %v", url, err)
}
