package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"nclexkeys/backend/internal/model"
)

// PaymentTransition carries the fields written when a pending payment reaches a terminal status.
type PaymentTransition struct {
	Status           model.PaymentStatus
	GatewayReference string
	Metadata         []byte
	FailureReason    string
	At               time.Time
}

type PaymentStatusTotal struct {
	Status model.PaymentStatus `json:"status"`
	Count  int64               `json:"count"`
	Amount decimal.Decimal     `json:"amount"`
}

type PaymentRepository interface {
	Create(ctx context.Context, payment *model.Payment) error
	GetByReference(ctx context.Context, reference string) (*model.Payment, error)
	// Transition moves a pending payment to a terminal status. It reports false
	// when the payment was not pending any more.
	Transition(ctx context.Context, reference string, t PaymentTransition) (bool, error)
	ListRecent(ctx context.Context, status model.PaymentStatus, limit int) ([]model.Payment, error)
	TotalsByStatus(ctx context.Context) ([]PaymentStatusTotal, error)
}

type PaymentGatewayRepository interface {
	GetByName(ctx context.Context, name string) (*model.PaymentGateway, error)
	GetDefault(ctx context.Context) (*model.PaymentGateway, error)
	// Upsert creates the gateway or refreshes its settings, keyed by name.
	Upsert(ctx context.Context, gateway *model.PaymentGateway) (created bool, err error)
}
