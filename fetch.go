package restocked

import "context"

// FetchStrategy identifies which retrieval path produced a page.
type FetchStrategy string

// FetchStrategy values.
const (
	FetchHTTP    FetchStrategy = "http"
	FetchBrowser FetchStrategy = "browser"
)

// FetchResult holds a retrieved product page.
type FetchResult struct {
	// HTML is the page markup. For the browser strategy this is the
	// rendered DOM after client-side scripts have run.
	HTML string

	// FinalURL is the URL after redirects.
	FinalURL string

	// Strategy records which retrieval path succeeded.
	Strategy FetchStrategy
}

// DomainLimiter provides per-domain rate limiting keyed by the URL's host.
// Checks against different domains proceed concurrently; checks against the
// same domain are paced to stay polite.
type DomainLimiter interface {
	// Wait blocks until the rate limit allows a request to the URL's host.
	Wait(ctx context.Context, url string) error
}

// Fetcher retrieves product pages.
// Implementations may use browser automation to handle JavaScript-rendered
// content or bot challenges. Fetch failures carry one of the EBOTBLOCKED,
// ETIMEOUT, ENOTFOUND or ETRANSPORT error codes.
type Fetcher interface {
	// Fetch retrieves the page at url.
	// The context controls timeout and cancellation.
	Fetch(ctx context.Context, url string) (*FetchResult, error)

	// Close releases fetcher resources (e.g. browser sessions).
	// Must be called when the Fetcher is no longer needed.
	Close() error
}
