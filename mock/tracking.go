package mock

import (
	"context"
	"time"

	"github.com/minute-repeater/restocked"
)

var _ restocked.TrackedItemService = (*TrackedItemService)(nil)

// TrackedItemService is a mock implementation of restocked.TrackedItemService.
type TrackedItemService struct {
	CreateTrackedItemFn func(ctx context.Context, item *restocked.TrackedItem) error
	ListDueForCheckFn   func(ctx context.Context, interval time.Duration) ([]*restocked.TrackedItem, error)
	MarkCheckedFn       func(ctx context.Context, id string, at time.Time) error
	DeleteTrackedItemFn func(ctx context.Context, id string) error
}

func (s *TrackedItemService) CreateTrackedItem(ctx context.Context, item *restocked.TrackedItem) error {
	return s.CreateTrackedItemFn(ctx, item)
}

func (s *TrackedItemService) ListDueForCheck(ctx context.Context, interval time.Duration) ([]*restocked.TrackedItem, error) {
	return s.ListDueForCheckFn(ctx, interval)
}

func (s *TrackedItemService) MarkChecked(ctx context.Context, id string, at time.Time) error {
	return s.MarkCheckedFn(ctx, id, at)
}

func (s *TrackedItemService) DeleteTrackedItem(ctx context.Context, id string) error {
	return s.DeleteTrackedItemFn(ctx, id)
}
