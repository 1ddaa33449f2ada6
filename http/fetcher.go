// Package http provides the lightweight HTTP retrieval path for product
// pages and the JSON API consumed by the presentation layer.
package http

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/minute-repeater/restocked"
)

// DefaultFetchTimeout is the default timeout for HTTP requests.
// Kept consistent with rod.DefaultFetchTimeout (10s).
const DefaultFetchTimeout = 10 * time.Second

// maxBodyBytes caps how much of a response body is read. Product pages
// beyond this size are truncated rather than ballooning memory.
const maxBodyBytes = 8 << 20

// userAgent is sent with every request. A bare Go user agent is an instant
// bot-block on most storefronts.
const userAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"

// Ensure Fetcher implements restocked.Fetcher at compile time.
var _ restocked.Fetcher = (*Fetcher)(nil)

// Fetcher retrieves product pages using plain HTTP requests. Unlike
// rod.Fetcher it does not execute JavaScript; it is the fast, low-memory
// path tried first for every page.
type Fetcher struct {
	client  *http.Client
	timeout time.Duration
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithTimeout sets the timeout for HTTP requests.
// Defaults to DefaultFetchTimeout (10s) if not specified.
func WithTimeout(d time.Duration) Option {
	return func(f *Fetcher) {
		f.timeout = d
	}
}

// NewFetcher creates a new HTTP-based Fetcher.
func NewFetcher(opts ...Option) *Fetcher {
	f := &Fetcher{
		timeout: DefaultFetchTimeout,
	}
	for _, opt := range opts {
		opt(f)
	}

	f.client = &http.Client{
		Timeout: f.timeout,
	}

	return f
}

// Fetch retrieves the page at the given URL. Failures are classified into
// the fetch error taxonomy: ENOTFOUND for missing pages, EBOTBLOCKED for
// challenge status codes, ETIMEOUT for deadline expiry and ETRANSPORT for
// everything else.
func (f *Fetcher) Fetch(ctx context.Context, url string) (*restocked.FetchResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, restocked.Errorf(restocked.EINVALID, "invalid URL %q", url)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := f.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, restocked.Errorf(restocked.ETIMEOUT, "fetch %s timed out", url)
		}
		return nil, restocked.Errorf(restocked.ETRANSPORT, "fetch %s: %v", url, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound, http.StatusGone:
		return nil, restocked.Errorf(restocked.ENOTFOUND, "page %s not found", url)
	case http.StatusForbidden, http.StatusTooManyRequests, http.StatusServiceUnavailable:
		return nil, restocked.Errorf(restocked.EBOTBLOCKED, "fetch %s blocked with HTTP %d", url, resp.StatusCode)
	default:
		return nil, restocked.Errorf(restocked.ETRANSPORT, "fetch %s: HTTP %d", url, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, restocked.Errorf(restocked.ETRANSPORT, "read %s: %v", url, err)
	}

	finalURL := url
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}

	return &restocked.FetchResult{
		HTML:     string(body),
		FinalURL: finalURL,
		Strategy: restocked.FetchHTTP,
	}, nil
}

// Close releases resources. For the HTTP fetcher this is a no-op since
// http.Client doesn't require explicit cleanup.
func (f *Fetcher) Close() error {
	return nil
}
