package restocked

import (
	"context"
	"time"
)

// NotificationType classifies a detected material change.
type NotificationType string

// NotificationType values.
const (
	NotificationPrice   NotificationType = "PRICE"
	NotificationStock   NotificationType = "STOCK"
	NotificationRestock NotificationType = "RESTOCK"
)

// Notification records one detected material change for a variant.
// It is created exactly once per observed transition; the delivery layer
// owns the read/sent flags afterwards.
type Notification struct {
	ID            string           `json:"id"`
	Type          NotificationType `json:"type"`
	ProductID     string           `json:"productId"`
	VariantID     string           `json:"variantId"`
	OldPriceCents *int64           `json:"oldPriceCents,omitempty"`
	NewPriceCents *int64           `json:"newPriceCents,omitempty"`
	OldStatus     StockStatus      `json:"oldStatus,omitempty"`
	NewStatus     StockStatus      `json:"newStatus,omitempty"`
	CreatedAt     time.Time        `json:"createdAt"`
	Read          bool             `json:"read"`
	Sent          bool             `json:"sent"`
}

// NotificationService manages notification records.
type NotificationService interface {
	// CreateNotification persists a new notification.
	CreateNotification(ctx context.Context, n *Notification) error

	// FindNotifications retrieves notifications matching the filter,
	// newest first.
	FindNotifications(ctx context.Context, filter NotificationFilter) ([]*Notification, error)

	// MarkRead flags a notification as read.
	// Returns ENOTFOUND if the notification does not exist.
	MarkRead(ctx context.Context, id string) error
}

// NotificationFilter represents a filter for FindNotifications.
type NotificationFilter struct {
	ProductID *string `json:"productId"`
	VariantID *string `json:"variantId"`
	Unread    bool    `json:"unread"`

	Offset int `json:"offset"`
	Limit  int `json:"limit"`
}

// DetectChanges compares a variant's last persisted state against its newly
// ingested state and returns the notifications the transition warrants.
//
// The baseline is always the persisted value prior to the current run, so a
// single real-world change is detected exactly once even if the same item
// is re-processed. A nil previous state (first observation) yields nothing.
func DetectChanges(prev, cur *Variant) []*Notification {
	if prev == nil || cur == nil {
		return nil
	}

	var out []*Notification

	if prev.PriceCents != nil && cur.PriceCents != nil && *prev.PriceCents != *cur.PriceCents {
		out = append(out, &Notification{
			Type:          NotificationPrice,
			ProductID:     cur.ProductID,
			VariantID:     cur.ID,
			OldPriceCents: prev.PriceCents,
			NewPriceCents: cur.PriceCents,
		})
	}

	if prev.StockStatus != cur.StockStatus {
		typ := NotificationStock
		if cur.StockStatus == InStock {
			// Coming back from out_of_stock or unknown counts as a restock.
			typ = NotificationRestock
		}
		out = append(out, &Notification{
			Type:      typ,
			ProductID: cur.ProductID,
			VariantID: cur.ID,
			OldStatus: prev.StockStatus,
			NewStatus: cur.StockStatus,
		})
	}

	return out
}
