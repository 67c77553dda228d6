package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"nclexkeys/backend/internal/model"
)

type pgRegistrationCodeRepository struct {
	db *gorm.DB
}

func NewPGRegistrationCodeRepository(db *gorm.DB) RegistrationCodeRepository {
	return &pgRegistrationCodeRepository{db: db}
}

func (r *pgRegistrationCodeRepository) Create(ctx context.Context, code *model.RegistrationCode) error {
	return conn(ctx, r.db).Create(code).Error
}

func (r *pgRegistrationCodeRepository) ExistsByCode(ctx context.Context, code string) (bool, error) {
	var count int64
	err := conn(ctx, r.db).
		Model(&model.RegistrationCode{}).
		Where("code = ?", code).
		Count(&count).Error
	return count > 0, err
}

func (r *pgRegistrationCodeRepository) GetByCode(ctx context.Context, code string) (*model.RegistrationCode, error) {
	var rc model.RegistrationCode
	if err := conn(ctx, r.db).Where("code = ?", code).First(&rc).Error; err != nil {
		return nil, err
	}
	return &rc, nil
}

func (r *pgRegistrationCodeRepository) MarkUsed(ctx context.Context, code string, userID uuid.UUID, now time.Time) (bool, error) {
	res := conn(ctx, r.db).
		Model(&model.RegistrationCode{}).
		Where("code = ? AND is_used = ? AND expires_at >= ?", code, false, now).
		Updates(map[string]interface{}{
			"is_used": true,
			"used_by": userID,
			"used_at": now,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *pgRegistrationCodeRepository) ExpireUnused(ctx context.Context, codes []string, expiresAt time.Time) (int64, error) {
	if len(codes) == 0 {
		return 0, nil
	}
	res := conn(ctx, r.db).
		Model(&model.RegistrationCode{}).
		Where("code IN ? AND is_used = ?", codes, false).
		Update("expires_at", expiresAt)
	return res.RowsAffected, res.Error
}

func (r *pgRegistrationCodeRepository) List(ctx context.Context, filter CodeFilter) ([]model.RegistrationCode, int64, error) {
	q := conn(ctx, r.db).Model(&model.RegistrationCode{})
	if filter.Program != "" {
		q = q.Where("program_type = ?", filter.Program)
	}
	switch filter.Status {
	case model.CodeStatusUsed:
		q = q.Where("is_used = ?", true)
	case model.CodeStatusExpired:
		q = q.Where("is_used = ? AND expires_at < ?", false, filter.Now)
	case model.CodeStatusActive:
		q = q.Where("is_used = ? AND expires_at >= ?", false, filter.Now)
	}

	q = q.Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var codes []model.RegistrationCode
	q = q.Order("created_at DESC").Offset(filter.Offset)
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	if err := q.Find(&codes).Error; err != nil {
		return nil, 0, err
	}
	return codes, total, nil
}
