package check

import (
	"context"
	"net/url"
	"sync"

	"github.com/minute-repeater/restocked"
	"golang.org/x/time/rate"
)

var _ restocked.DomainLimiter = (*DomainLimiter)(nil)

// DomainLimiter paces fetches per storefront host. Each host gets its own
// token bucket, so checks against different shops proceed concurrently
// while requests to any single shop stay polite.
type DomainLimiter struct {
	mu      sync.Mutex
	buckets map[string]*rate.Limiter
	rps     float64
	burst   int
}

// NewDomainLimiter creates a limiter allowing rps requests per second to
// each host, with bursts of up to burst requests. A burst below 1 is
// raised to 1 so the first request to a host never blocks forever.
func NewDomainLimiter(rps float64, burst int) *DomainLimiter {
	if burst < 1 {
		burst = 1
	}
	return &DomainLimiter{
		buckets: make(map[string]*rate.Limiter),
		rps:     rps,
		burst:   burst,
	}
}

// Wait blocks until the limit for the URL's host allows another request,
// or the context is canceled. URLs without a parseable host pass through
// unthrottled.
func (d *DomainLimiter) Wait(ctx context.Context, pageURL string) error {
	host := hostOf(pageURL)
	if host == "" {
		return nil
	}

	d.mu.Lock()
	bucket, ok := d.buckets[host]
	if !ok {
		bucket = rate.NewLimiter(rate.Limit(d.rps), d.burst)
		d.buckets[host] = bucket
	}
	d.mu.Unlock()

	return bucket.Wait(ctx)
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Hostname()
}
