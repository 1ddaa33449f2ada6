package sqlite

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/minute-repeater/restocked"
)

// Compile-time interface verification.
var _ restocked.NotificationService = (*NotificationService)(nil)

// NotificationService implements restocked.NotificationService using SQLite.
type NotificationService struct {
	db *DB
}

// NewNotificationService creates a new NotificationService.
func NewNotificationService(db *DB) *NotificationService {
	return &NotificationService{db: db}
}

// CreateNotification persists a new notification.
func (s *NotificationService) CreateNotification(ctx context.Context, n *restocked.Notification) error {
	if n.Type == "" {
		return restocked.Errorf(restocked.EINVALID, "notification type required")
	}
	if n.VariantID == "" {
		return restocked.Errorf(restocked.EINVALID, "notification variant ID required")
	}

	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO notifications (id, type, product_id, variant_id,
			old_price_cents, new_price_cents, old_status, new_status,
			created_at, read, sent)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, n.ID, string(n.Type), n.ProductID, n.VariantID,
		nullableCents(n.OldPriceCents), nullableCents(n.NewPriceCents),
		string(n.OldStatus), string(n.NewStatus),
		formatTime(n.CreatedAt), n.Read, n.Sent)
	return storeError(err)
}

// FindNotifications retrieves notifications matching the filter, newest first.
func (s *NotificationService) FindNotifications(ctx context.Context, filter restocked.NotificationFilter) ([]*restocked.Notification, error) {
	var query strings.Builder
	var args []any

	query.WriteString(`
		SELECT id, type, product_id, variant_id,
			old_price_cents, new_price_cents, old_status, new_status,
			created_at, read, sent
		FROM notifications WHERE 1=1`)

	if filter.ProductID != nil {
		query.WriteString(" AND product_id = ?")
		args = append(args, *filter.ProductID)
	}
	if filter.VariantID != nil {
		query.WriteString(" AND variant_id = ?")
		args = append(args, *filter.VariantID)
	}
	if filter.Unread {
		query.WriteString(" AND read = 0")
	}

	query.WriteString(" ORDER BY created_at DESC, id")
	appendPagination(&query, &args, filter.Limit, filter.Offset)

	rows, err := s.db.QueryContext(ctx, query.String(), args...)
	if err != nil {
		return nil, storeError(err)
	}
	defer rows.Close()

	var notifications []*restocked.Notification
	for rows.Next() {
		var n restocked.Notification
		var typ, oldStatus, newStatus, createdAt string
		var oldPrice, newPrice sql.NullInt64

		if err := rows.Scan(&n.ID, &typ, &n.ProductID, &n.VariantID,
			&oldPrice, &newPrice, &oldStatus, &newStatus,
			&createdAt, &n.Read, &n.Sent); err != nil {
			return nil, storeError(err)
		}

		n.Type = restocked.NotificationType(typ)
		if oldPrice.Valid {
			n.OldPriceCents = &oldPrice.Int64
		}
		if newPrice.Valid {
			n.NewPriceCents = &newPrice.Int64
		}
		n.OldStatus = restocked.StockStatus(oldStatus)
		n.NewStatus = restocked.StockStatus(newStatus)
		if n.CreatedAt, err = parseTime(createdAt, "created_at"); err != nil {
			return nil, err
		}
		notifications = append(notifications, &n)
	}
	return notifications, rows.Err()
}

// MarkRead flags a notification as read.
func (s *NotificationService) MarkRead(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE notifications SET read = 1 WHERE id = ?
	`, id)
	if err != nil {
		return storeError(err)
	}
	if n, err := result.RowsAffected(); err != nil {
		return storeError(err)
	} else if n == 0 {
		return restocked.Errorf(restocked.ENOTFOUND, "notification not found")
	}
	return nil
}
