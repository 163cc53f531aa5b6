package service

import (
	"context"

	"github.com/lokmen200/soukstyle/pkg/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type NotificationService struct {
	deps Deps
}

func (s *NotificationService) List(ctx context.Context, caller *models.User) ([]*models.Notification, error) {
	list, err := s.deps.Repos.Notifications.ListByUser(ctx, caller.ID)
	if err != nil {
		return nil, Internal("failed to list notifications", err)
	}
	return list, nil
}

func (s *NotificationService) MarkRead(ctx context.Context, caller *models.User, id primitive.ObjectID) error {
	n, err := s.deps.Repos.Notifications.GetByID(ctx, id)
	if err != nil {
		return lookup(err, "notification")
	}
	if n.UserID != caller.ID {
		return Forbidden("not your notification")
	}
	if err := s.deps.Repos.Notifications.MarkRead(ctx, id); err != nil {
		return persist(err, "notification")
	}
	return nil
}

func (s *NotificationService) MarkAllRead(ctx context.Context, caller *models.User) (int64, error) {
	n, err := s.deps.Repos.Notifications.MarkAllRead(ctx, caller.ID)
	if err != nil {
		return 0, Internal("failed to mark notifications read", err)
	}
	return n, nil
}
