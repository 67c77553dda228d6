package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"nclexkeys/backend/internal/config"
	"nclexkeys/backend/internal/model"
	"nclexkeys/backend/internal/repository"
	"nclexkeys/backend/pkg/crypto"
)

// ProvisionReport lists what a provisioning run created; existing records are left untouched.
type ProvisionReport struct {
	CreatedAccounts []string `json:"created_accounts"`
	SkippedAccounts []string `json:"skipped_accounts"`
	GatewaysCreated []string `json:"gateways_created"`
	GatewaysUpdated []string `json:"gateways_updated"`
}

type ProvisioningService interface {
	Provision(ctx context.Context) (*ProvisionReport, error)
}

type provisioningService struct {
	userRepo        repository.UserRepository
	gateways        repository.PaymentGatewayRepository
	logger          *zap.Logger
	accounts        config.ProvisioningConfig
	payments        config.PaymentsConfig
	defaultGateways map[string]model.PaymentGateway
}

func NewProvisioningService(
	userRepo repository.UserRepository,
	gateways repository.PaymentGatewayRepository,
	logger *zap.Logger,
	accounts config.ProvisioningConfig,
	payments config.PaymentsConfig,
) ProvisioningService {
	return &provisioningService{
		userRepo: userRepo,
		gateways: gateways,
		logger:   logger,
		accounts: accounts,
		payments: payments,
		defaultGateways: map[string]model.PaymentGateway{
			"paystack": {
				Name:                "paystack",
				DisplayName:         "Paystack",
				SupportedCurrencies: datatypes.JSONSlice[string]{"NGN", "USD", "GHS", "ZAR"},
				FeePercentage:       decimal.RequireFromString("0.015"),
				FeeCap:              decimal.NewNullDecimal(decimal.NewFromInt(2000)),
				FeeCapCurrency:      "NGN",
			},
			"flutterwave": {
				Name:                "flutterwave",
				DisplayName:         "Flutterwave",
				SupportedCurrencies: datatypes.JSONSlice[string]{"NGN", "USD", "GBP", "EUR", "KES", "GHS"},
				FeePercentage:       decimal.RequireFromString("0.014"),
			},
		},
	}
}

func (s *provisioningService) Provision(ctx context.Context) (*ProvisionReport, error) {
	report := &ProvisionReport{}

	accounts := []struct {
		cfg  config.AccountConfig
		role model.Role
	}{
		{s.accounts.Admin, model.RoleAdmin},
		{s.accounts.Instructor, model.RoleInstructor},
	}
	for _, acc := range accounts {
		if strings.TrimSpace(acc.cfg.Email) == "" {
			continue
		}
		created, err := s.ensureAccount(ctx, acc.cfg, acc.role)
		if err != nil {
			return nil, err
		}
		if created {
			report.CreatedAccounts = append(report.CreatedAccounts, acc.cfg.Email)
		} else {
			report.SkippedAccounts = append(report.SkippedAccounts, acc.cfg.Email)
		}
	}

	if err := s.ensureGateways(ctx, report); err != nil {
		return nil, err
	}
	return report, nil
}

func (s *provisioningService) ensureAccount(ctx context.Context, acc config.AccountConfig, role model.Role) (bool, error) {
	email, err := normalizeEmail(acc.Email)
	if err != nil {
		return false, err
	}
	_, err = s.userRepo.GetByEmail(ctx, email)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return false, fmt.Errorf("lookup %s: %w", email, err)
	}
	if len(acc.Password) < minimumPasswordLength {
		return false, fmt.Errorf("%w: password for %s is too short", ErrInvalidInput, email)
	}

	hash, err := crypto.HashPassword(acc.Password)
	if err != nil {
		return false, fmt.Errorf("hash password: %w", err)
	}
	user := &model.User{
		Email:           email,
		FullName:        acc.FullName,
		Role:            role,
		PasswordHash:    hash,
		IsEmailVerified: true,
		Status:          model.UserStatusActive,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return false, fmt.Errorf("create %s: %w", email, err)
	}
	s.logger.Info("provisioned account", zap.String("email", email), zap.String("role", string(role)))
	return true, nil
}

// ensureGateways upserts every gateway with a configured secret key, plus the default gateway.
func (s *provisioningService) ensureGateways(ctx context.Context, report *ProvisionReport) error {
	defaultName := strings.ToLower(strings.TrimSpace(s.payments.DefaultGateway))
	names := map[string]bool{}
	if defaultName != "" {
		names[defaultName] = true
	}
	for name, gw := range s.payments.Gateways {
		if strings.TrimSpace(gw.SecretKey) != "" {
			names[strings.ToLower(name)] = true
		}
	}

	for _, name := range []string{"paystack", "flutterwave"} {
		if !names[name] {
			continue
		}
		gw := s.defaultGateways[name]
		gw.IsActive = true
		gw.IsDefault = name == defaultName
		created, err := s.gateways.Upsert(ctx, &gw)
		if err != nil {
			return fmt.Errorf("upsert gateway %s: %w", name, err)
		}
		if created {
			report.GatewaysCreated = append(report.GatewaysCreated, name)
		} else {
			report.GatewaysUpdated = append(report.GatewaysUpdated, name)
		}
	}
	return nil
}
