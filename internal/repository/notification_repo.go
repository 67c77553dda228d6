package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"nclexkeys/backend/internal/model"
)

type NotificationRepository interface {
	Create(ctx context.Context, n *model.Notification) error
	ListByUser(ctx context.Context, userID uuid.UUID, unreadOnly bool, limit int) ([]model.Notification, error)
	CountUnread(ctx context.Context, userID uuid.UUID) (int64, error)
	MarkRead(ctx context.Context, id, userID uuid.UUID) (bool, error)
}

type pgNotificationRepository struct {
	db *gorm.DB
}

func NewPGNotificationRepository(db *gorm.DB) NotificationRepository {
	return &pgNotificationRepository{db: db}
}

func (r *pgNotificationRepository) Create(ctx context.Context, n *model.Notification) error {
	return conn(ctx, r.db).Create(n).Error
}

func (r *pgNotificationRepository) ListByUser(ctx context.Context, userID uuid.UUID, unreadOnly bool, limit int) ([]model.Notification, error) {
	q := conn(ctx, r.db).Where("user_id = ?", userID)
	if unreadOnly {
		q = q.Where("is_read = ?", false)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	var items []model.Notification
	err := q.Order("created_at DESC").Find(&items).Error
	return items, err
}

func (r *pgNotificationRepository) CountUnread(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	err := conn(ctx, r.db).
		Model(&model.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Count(&count).Error
	return count, err
}

// MarkRead only touches notifications owned by userID.
func (r *pgNotificationRepository) MarkRead(ctx context.Context, id, userID uuid.UUID) (bool, error) {
	res := conn(ctx, r.db).
		Model(&model.Notification{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("is_read", true)
	return res.RowsAffected > 0, res.Error
}
