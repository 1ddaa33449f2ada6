package mock

import (
	"context"

	"github.com/minute-repeater/restocked"
)

var _ restocked.NotificationService = (*NotificationService)(nil)

// NotificationService is a mock implementation of restocked.NotificationService.
type NotificationService struct {
	CreateNotificationFn func(ctx context.Context, n *restocked.Notification) error
	FindNotificationsFn  func(ctx context.Context, filter restocked.NotificationFilter) ([]*restocked.Notification, error)
	MarkReadFn           func(ctx context.Context, id string) error
}

func (s *NotificationService) CreateNotification(ctx context.Context, n *restocked.Notification) error {
	return s.CreateNotificationFn(ctx, n)
}

func (s *NotificationService) FindNotifications(ctx context.Context, filter restocked.NotificationFilter) ([]*restocked.Notification, error) {
	return s.FindNotificationsFn(ctx, filter)
}

func (s *NotificationService) MarkRead(ctx context.Context, id string) error {
	return s.MarkReadFn(ctx, id)
}
