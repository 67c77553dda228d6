package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"nclexkeys/backend/internal/metrics"
	"nclexkeys/backend/internal/model"
	"nclexkeys/backend/internal/repository"
	"nclexkeys/backend/pkg/clock"
)

const (
	paymentReferencePrefix = "PAY-"
	overviewRecentLimit    = 10
)

type InitializePaymentInput struct {
	Gateway       string
	Amount        decimal.Decimal
	Currency      string
	CustomerEmail string
	CustomerName  string
	CustomerPhone string
	UserID        *uuid.UUID
	Metadata      map[string]any
}

type PaymentOverview struct {
	Totals []repository.PaymentStatusTotal `json:"totals"`
	Recent []model.Payment                 `json:"recent"`
}

type PaymentService interface {
	Initialize(ctx context.Context, in InitializePaymentInput) (*model.Payment, error)
	Get(ctx context.Context, reference string) (*model.Payment, error)
	Overview(ctx context.Context) (*PaymentOverview, error)
}

type paymentService struct {
	payments    repository.PaymentRepository
	gateways    repository.PaymentGatewayRepository
	clock       clock.Clock
	logger      *zap.Logger
	platformFee decimal.Decimal
}

func NewPaymentService(
	payments repository.PaymentRepository,
	gateways repository.PaymentGatewayRepository,
	clk clock.Clock,
	logger *zap.Logger,
	platformFeePercentage decimal.Decimal,
) PaymentService {
	return &paymentService{
		payments:    payments,
		gateways:    gateways,
		clock:       clk,
		logger:      logger,
		platformFee: platformFeePercentage,
	}
}

func (s *paymentService) gateway(ctx context.Context, name string) (*model.PaymentGateway, error) {
	var (
		gw  *model.PaymentGateway
		err error
	)
	if name = strings.ToLower(strings.TrimSpace(name)); name == "" {
		gw, err = s.gateways.GetDefault(ctx)
	} else {
		gw, err = s.gateways.GetByName(ctx, name)
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrGatewayNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get gateway: %w", err)
	}
	if !gw.IsActive {
		return nil, ErrGatewayNotFound
	}
	return gw, nil
}

func (s *paymentService) newReference() string {
	return paymentReferencePrefix + ulid.MustNew(ulid.Timestamp(s.clock.Now()), ulid.DefaultEntropy()).String()
}

func (s *paymentService) Initialize(ctx context.Context, in InitializePaymentInput) (*model.Payment, error) {
	if !in.Amount.IsPositive() {
		return nil, fmt.Errorf("%w: amount must be positive", ErrInvalidInput)
	}
	email, err := normalizeEmail(in.CustomerEmail)
	if err != nil {
		return nil, err
	}
	currency := strings.ToUpper(strings.TrimSpace(in.Currency))
	if currency == "" {
		return nil, fmt.Errorf("%w: currency is required", ErrInvalidInput)
	}

	gw, err := s.gateway(ctx, in.Gateway)
	if err != nil {
		return nil, err
	}
	if !gw.SupportsCurrency(currency) {
		return nil, fmt.Errorf("%w: %s via %s", ErrCurrencyUnsupported, currency, gw.Name)
	}

	gatewayFee := gw.Fee(in.Amount, currency)
	platformFee := in.Amount.Mul(s.platformFee).Round(2)

	var metadata datatypes.JSON
	if len(in.Metadata) > 0 {
		raw, err := json.Marshal(in.Metadata)
		if err != nil {
			return nil, fmt.Errorf("%w: metadata: %v", ErrInvalidInput, err)
		}
		metadata = raw
	}

	now := s.clock.Now()
	payment := &model.Payment{
		Reference:     s.newReference(),
		GatewayID:     gw.ID,
		UserID:        in.UserID,
		Amount:        in.Amount,
		Currency:      currency,
		GatewayFee:    gatewayFee,
		PlatformFee:   platformFee,
		NetAmount:     in.Amount.Sub(gatewayFee).Sub(platformFee),
		Status:        model.PaymentStatusPending,
		CustomerEmail: email,
		CustomerName:  strings.TrimSpace(in.CustomerName),
		CustomerPhone: strings.TrimSpace(in.CustomerPhone),
		Metadata:      metadata,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.payments.Create(ctx, payment); err != nil {
		return nil, fmt.Errorf("create payment: %w", err)
	}
	payment.Gateway = *gw

	metrics.IncPayment("initiated")
	s.logger.Info("payment initialized",
		zap.String("reference", payment.Reference),
		zap.String("gateway", gw.Name),
		zap.String("amount", payment.Amount.String()),
		zap.String("currency", currency),
	)
	return payment, nil
}

func (s *paymentService) Get(ctx context.Context, reference string) (*model.Payment, error) {
	payment, err := s.payments.GetByReference(ctx, strings.TrimSpace(reference))
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrPaymentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get payment: %w", err)
	}
	return payment, nil
}

func (s *paymentService) Overview(ctx context.Context) (*PaymentOverview, error) {
	totals, err := s.payments.TotalsByStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("payment totals: %w", err)
	}
	recent, err := s.payments.ListRecent(ctx, "", overviewRecentLimit)
	if err != nil {
		return nil, fmt.Errorf("recent payments: %w", err)
	}
	return &PaymentOverview{Totals: totals, Recent: recent}, nil
}
