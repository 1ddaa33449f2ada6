package mock

import (
	"context"

	"github.com/minute-repeater/restocked"
)

var _ restocked.DomainLimiter = (*DomainLimiter)(nil)

// DomainLimiter is a mock implementation of restocked.DomainLimiter.
type DomainLimiter struct {
	WaitFn func(ctx context.Context, url string) error
}

func (d *DomainLimiter) Wait(ctx context.Context, url string) error {
	if d.WaitFn == nil {
		return nil
	}
	return d.WaitFn(ctx, url)
}
