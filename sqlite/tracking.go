package sqlite

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/minute-repeater/restocked"
)

// Compile-time interface verification.
var _ restocked.TrackedItemService = (*TrackedItemService)(nil)

// TrackedItemService implements restocked.TrackedItemService using SQLite.
type TrackedItemService struct {
	db *DB
}

// NewTrackedItemService creates a new TrackedItemService.
func NewTrackedItemService(db *DB) *TrackedItemService {
	return &TrackedItemService{db: db}
}

// CreateTrackedItem creates a new subscription.
func (s *TrackedItemService) CreateTrackedItem(ctx context.Context, item *restocked.TrackedItem) error {
	if err := item.Validate(); err != nil {
		return err
	}

	if item.ID == "" {
		item.ID = uuid.New().String()
	}
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now().UTC()
	}

	lastChecked := ""
	if !item.LastCheckedAt.IsZero() {
		lastChecked = formatTime(item.LastCheckedAt)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tracked_items (id, user_id, product_id, variant_id, url, created_at, last_checked_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, item.ID, item.UserID, item.ProductID, item.VariantID, item.URL,
		formatTime(item.CreatedAt), lastChecked)
	return storeError(err)
}

// ListDueForCheck returns items whose last check is older than the interval,
// oldest first. Lexicographic comparison on the fixed-width timestamp form
// matches chronological order, and the empty string of a never-checked item
// sorts before every timestamp.
func (s *TrackedItemService) ListDueForCheck(ctx context.Context, interval time.Duration) ([]*restocked.TrackedItem, error) {
	cutoff := formatTime(time.Now().UTC().Add(-interval))

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, product_id, variant_id, url, created_at, last_checked_at
		FROM tracked_items
		WHERE last_checked_at < ?
		ORDER BY last_checked_at, created_at
	`, cutoff)
	if err != nil {
		return nil, storeError(err)
	}
	defer rows.Close()

	var items []*restocked.TrackedItem
	for rows.Next() {
		item, err := scanTrackedItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// MarkChecked records that an item was processed at the given time.
func (s *TrackedItemService) MarkChecked(ctx context.Context, id string, at time.Time) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE tracked_items SET last_checked_at = ? WHERE id = ?
	`, formatTime(at), id)
	if err != nil {
		return storeError(err)
	}
	if n, err := result.RowsAffected(); err != nil {
		return storeError(err)
	} else if n == 0 {
		return restocked.Errorf(restocked.ENOTFOUND, "tracked item not found")
	}
	return nil
}

// DeleteTrackedItem removes a subscription.
func (s *TrackedItemService) DeleteTrackedItem(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM tracked_items WHERE id = ?`, id)
	if err != nil {
		return storeError(err)
	}
	if n, err := result.RowsAffected(); err != nil {
		return storeError(err)
	} else if n == 0 {
		return restocked.Errorf(restocked.ENOTFOUND, "tracked item not found")
	}
	return nil
}

func scanTrackedItem(row scanner) (*restocked.TrackedItem, error) {
	var item restocked.TrackedItem
	var createdAt, lastCheckedAt string

	if err := row.Scan(&item.ID, &item.UserID, &item.ProductID, &item.VariantID,
		&item.URL, &createdAt, &lastCheckedAt); err != nil {
		return nil, storeError(err)
	}

	var err error
	if item.CreatedAt, err = parseTime(createdAt, "created_at"); err != nil {
		return nil, err
	}
	if item.LastCheckedAt, err = parseTime(lastCheckedAt, "last_checked_at"); err != nil {
		return nil, err
	}
	return &item, nil
}
