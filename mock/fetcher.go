package mock

import (
	"context"

	"github.com/minute-repeater/restocked"
)

var _ restocked.Fetcher = (*Fetcher)(nil)

// Fetcher is a mock implementation of restocked.Fetcher.
type Fetcher struct {
	FetchFn func(ctx context.Context, url string) (*restocked.FetchResult, error)
	CloseFn func() error
}

func (f *Fetcher) Fetch(ctx context.Context, url string) (*restocked.FetchResult, error) {
	return f.FetchFn(ctx, url)
}

func (f *Fetcher) Close() error {
	if f.CloseFn == nil {
		return nil
	}
	return f.CloseFn()
}
