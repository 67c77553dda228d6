package repository

import (
	"context"
	"errors"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"nclexkeys/backend/internal/model"
)

type pgPaymentRepository struct {
	db *gorm.DB
}

func NewPGPaymentRepository(db *gorm.DB) PaymentRepository {
	return &pgPaymentRepository{db: db}
}

func (r *pgPaymentRepository) Create(ctx context.Context, payment *model.Payment) error {
	return conn(ctx, r.db).Create(payment).Error
}

func (r *pgPaymentRepository) GetByReference(ctx context.Context, reference string) (*model.Payment, error) {
	var payment model.Payment
	if err := conn(ctx, r.db).Where("reference = ?", reference).First(&payment).Error; err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *pgPaymentRepository) Transition(ctx context.Context, reference string, t PaymentTransition) (bool, error) {
	updates := map[string]interface{}{
		"status":           t.Status,
		"webhook_verified": true,
	}
	if t.GatewayReference != "" {
		updates["gateway_reference"] = t.GatewayReference
	}
	if len(t.Metadata) > 0 {
		updates["metadata"] = datatypes.JSON(t.Metadata)
	}
	switch t.Status {
	case model.PaymentStatusCompleted:
		updates["paid_at"] = t.At
	case model.PaymentStatusFailed:
		updates["failed_at"] = t.At
		updates["failure_reason"] = t.FailureReason
	}

	res := conn(ctx, r.db).
		Model(&model.Payment{}).
		Where("reference = ? AND status = ?", reference, model.PaymentStatusPending).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *pgPaymentRepository) ListRecent(ctx context.Context, status model.PaymentStatus, limit int) ([]model.Payment, error) {
	q := conn(ctx, r.db).Order("created_at DESC")
	if status != "" {
		q = q.Where("status = ?", status)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	var payments []model.Payment
	if err := q.Find(&payments).Error; err != nil {
		return nil, err
	}
	return payments, nil
}

func (r *pgPaymentRepository) TotalsByStatus(ctx context.Context) ([]PaymentStatusTotal, error) {
	var totals []PaymentStatusTotal
	err := conn(ctx, r.db).
		Model(&model.Payment{}).
		Select("status, COUNT(*) AS count, COALESCE(SUM(amount), 0) AS amount").
		Group("status").
		Order("status").
		Scan(&totals).Error
	return totals, err
}

type pgPaymentGatewayRepository struct {
	db *gorm.DB
}

func NewPGPaymentGatewayRepository(db *gorm.DB) PaymentGatewayRepository {
	return &pgPaymentGatewayRepository{db: db}
}

func (r *pgPaymentGatewayRepository) GetByName(ctx context.Context, name string) (*model.PaymentGateway, error) {
	var gateway model.PaymentGateway
	if err := conn(ctx, r.db).Where("name = ?", name).First(&gateway).Error; err != nil {
		return nil, err
	}
	return &gateway, nil
}

func (r *pgPaymentGatewayRepository) GetDefault(ctx context.Context) (*model.PaymentGateway, error) {
	var gateway model.PaymentGateway
	err := conn(ctx, r.db).
		Where("is_default = ? AND is_active = ?", true, true).
		First(&gateway).Error
	if err != nil {
		return nil, err
	}
	return &gateway, nil
}

func (r *pgPaymentGatewayRepository) Upsert(ctx context.Context, gateway *model.PaymentGateway) (bool, error) {
	existing, err := r.GetByName(ctx, gateway.Name)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return true, conn(ctx, r.db).Create(gateway).Error
	case err != nil:
		return false, err
	}

	gateway.ID = existing.ID
	gateway.CreatedAt = existing.CreatedAt
	return false, conn(ctx, r.db).Save(gateway).Error
}
