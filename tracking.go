package restocked

import (
	"context"
	"time"
)

// TrackedItem is a user's subscription to a product (or a specific
// variant of it). The check worker iterates due items to know what to
// re-extract; N users tracking the same URL trigger one fetch.
type TrackedItem struct {
	ID            string    `json:"id"`
	UserID        string    `json:"userId"`
	ProductID     string    `json:"productId"`
	VariantID     string    `json:"variantId,omitempty"`
	URL           string    `json:"url"`
	CreatedAt     time.Time `json:"createdAt"`
	LastCheckedAt time.Time `json:"lastCheckedAt"`
}

// Validate returns an error if the tracked item contains invalid fields.
func (t *TrackedItem) Validate() error {
	if t.ProductID == "" {
		return Errorf(EINVALID, "tracked item product ID required")
	}
	if t.URL == "" {
		return Errorf(EINVALID, "tracked item URL required")
	}
	return nil
}

// TrackedItemService manages tracking subscriptions.
type TrackedItemService interface {
	// CreateTrackedItem creates a new subscription.
	CreateTrackedItem(ctx context.Context, item *TrackedItem) error

	// ListDueForCheck returns items whose last check is older than the
	// interval, oldest first. Items never checked are always due.
	ListDueForCheck(ctx context.Context, interval time.Duration) ([]*TrackedItem, error)

	// MarkChecked records that an item was processed at the given time.
	MarkChecked(ctx context.Context, id string, at time.Time) error

	// DeleteTrackedItem removes a subscription.
	// Returns ENOTFOUND if the item does not exist.
	DeleteTrackedItem(ctx context.Context, id string) error
}
