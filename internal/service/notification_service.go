package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"nclexkeys/backend/internal/model"
	"nclexkeys/backend/internal/repository"
)

const defaultNotificationLimit = 50

type NotificationService interface {
	Notify(ctx context.Context, userID uuid.UUID, title, body string) (*model.Notification, error)
	List(ctx context.Context, userID uuid.UUID, unreadOnly bool) ([]model.Notification, error)
	UnreadCount(ctx context.Context, userID uuid.UUID) (int64, error)
	MarkRead(ctx context.Context, id, userID uuid.UUID) error
}

type notificationService struct {
	repo repository.NotificationRepository
}

func NewNotificationService(repo repository.NotificationRepository) NotificationService {
	return &notificationService{repo: repo}
}

func (s *notificationService) Notify(ctx context.Context, userID uuid.UUID, title, body string) (*model.Notification, error) {
	n := &model.Notification{UserID: userID, Title: title, Body: body}
	if err := s.repo.Create(ctx, n); err != nil {
		return nil, fmt.Errorf("create notification: %w", err)
	}
	return n, nil
}

func (s *notificationService) List(ctx context.Context, userID uuid.UUID, unreadOnly bool) ([]model.Notification, error) {
	return s.repo.ListByUser(ctx, userID, unreadOnly, defaultNotificationLimit)
}

func (s *notificationService) UnreadCount(ctx context.Context, userID uuid.UUID) (int64, error) {
	return s.repo.CountUnread(ctx, userID)
}

func (s *notificationService) MarkRead(ctx context.Context, id, userID uuid.UUID) error {
	ok, err := s.repo.MarkRead(ctx, id, userID)
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	if !ok {
		return ErrNotificationNotFound
	}
	return nil
}
