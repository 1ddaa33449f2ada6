// Package fetch composes the lightweight HTTP retrieval path with the
// scripted-browser path into one escalating fetcher, and provides bounded
// retry with exponential backoff.
package fetch

import (
	"context"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/minute-repeater/restocked"
)

// Bloom filter sizing for the browser-host memo. A false positive only
// costs one skipped cheap attempt for a host that didn't need it.
const (
	memoExpectedHosts     = 10000
	memoFalsePositiveRate = 0.01
)

// Ensure Fetcher implements restocked.Fetcher at compile time.
var _ restocked.Fetcher = (*Fetcher)(nil)

// Fetcher retrieves product pages by trying the plain HTTP path first and
// escalating to the scripted browser when the response is blocked, too
// small, or missing product markers. Hosts that needed the browser once
// are remembered so later fetches skip the doomed lightweight attempt.
//
// Fetcher is safe for concurrent use.
type Fetcher struct {
	primary restocked.Fetcher
	browser restocked.Fetcher // nil when browser rendering is disabled
	delays  []time.Duration

	mu        sync.Mutex
	needsRend *bloom.BloomFilter
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithRetryDelays overrides the backoff delays between attempts.
// Useful for testing without waiting for real delays.
func WithRetryDelays(delays []time.Duration) Option {
	return func(f *Fetcher) {
		f.delays = delays
	}
}

// NewFetcher composes the primary (HTTP) fetcher with an optional browser
// fetcher. Pass a nil browser to disable escalation; challenge pages then
// surface as EBOTBLOCKED.
func NewFetcher(primary, browser restocked.Fetcher, opts ...Option) *Fetcher {
	f := &Fetcher{
		primary:   primary,
		browser:   browser,
		delays:    DefaultRetryDelays(),
		needsRend: bloom.NewWithEstimates(memoExpectedHosts, memoFalsePositiveRate),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch retrieves the page at rawURL, escalating to the browser when the
// lightweight path is blocked or incomplete.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*restocked.FetchResult, error) {
	host := hostOf(rawURL)

	if f.browser != nil && host != "" && f.hostNeedsBrowser(host) {
		return f.escalate(ctx, rawURL, host)
	}

	result, err := DoWithRetryDelays(ctx, rawURL, f.primary.Fetch, f.delays)
	if err != nil {
		if restocked.ErrorCode(err) == restocked.EBOTBLOCKED && f.browser != nil {
			return f.escalate(ctx, rawURL, host)
		}
		return nil, err
	}

	switch {
	case restocked.LooksBotChallenge(result.HTML):
		if f.browser == nil {
			return nil, restocked.Errorf(restocked.EBOTBLOCKED, "page %s served a bot challenge", rawURL)
		}
		return f.escalate(ctx, rawURL, host)

	case len(result.HTML) < restocked.MinPlausibleHTMLBytes || !restocked.HasProductMarkers(result.HTML):
		// Thin or marker-less pages usually render their product data
		// client side. Without a browser the extractor gets to decide.
		if f.browser == nil {
			return result, nil
		}
		return f.escalate(ctx, rawURL, host)
	}

	return result, nil
}

// escalate fetches via the browser path and memoizes the host on success.
func (f *Fetcher) escalate(ctx context.Context, rawURL, host string) (*restocked.FetchResult, error) {
	result, err := DoWithRetryDelays(ctx, rawURL, f.browser.Fetch, f.delays)
	if err != nil {
		return nil, err
	}
	if host != "" {
		f.markHostNeedsBrowser(host)
	}
	return result, nil
}

// Close releases both underlying fetchers.
func (f *Fetcher) Close() error {
	err := f.primary.Close()
	if f.browser != nil {
		if berr := f.browser.Close(); err == nil {
			err = berr
		}
	}
	return err
}

func (f *Fetcher) hostNeedsBrowser(host string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.needsRend.TestString(host)
}

func (f *Fetcher) markHostNeedsBrowser(host string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.needsRend.AddString(host)
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Host)
}
