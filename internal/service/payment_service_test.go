package service

import (
	"context"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"nclexkeys/backend/internal/config"
	"nclexkeys/backend/internal/model"
	"nclexkeys/backend/internal/repository"
	"nclexkeys/backend/pkg/clock"
)

func newPaymentService(t *testing.T, platformFee string) PaymentService {
	t.Helper()
	db := setupTestDB(t)
	gateways := repository.NewPGPaymentGatewayRepository(db)
	_, err := NewProvisioningService(
		repository.NewPGUserRepository(db), gateways, zap.NewNop(),
		config.ProvisioningConfig{},
		config.PaymentsConfig{
			DefaultGateway: "paystack",
			Gateways:       map[string]config.GatewayConfig{"flutterwave": {SecretKey: "k"}},
		},
	).Provision(context.Background())
	require.NoError(t, err)
	return NewPaymentService(
		repository.NewPGPaymentRepository(db), gateways,
		clock.NewFakeClock(testEpoch), zap.NewNop(), decimal.RequireFromString(platformFee),
	)
}

func TestInitializeComputesFees(t *testing.T) {
	svc := newPaymentService(t, "0.02")
	ctx := context.Background()

	tests := []struct {
		name        string
		amount      string
		currency    string
		gatewayFee  string
		platformFee string
		net         string
	}{
		{"below cap", "30000", "ngn", "450", "600", "28950"},
		{"capped", "200000", "ngn", "2000", "4000", "194000"},
		{"naira cap ignored for dollars", "200000", "usd", "3000", "4000", "193000"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := svc.Initialize(ctx, InitializePaymentInput{
				Amount:        decimal.RequireFromString(tt.amount),
				Currency:      tt.currency,
				CustomerEmail: "Buyer@Example.com",
			})
			require.NoError(t, err)
			assert.True(t, strings.HasPrefix(p.Reference, "PAY-"))
			assert.Len(t, p.Reference, len("PAY-")+26)
			assert.Equal(t, model.PaymentStatusPending, p.Status)
			assert.Equal(t, strings.ToUpper(tt.currency), p.Currency)
			assert.Equal(t, "buyer@example.com", p.CustomerEmail)
			assert.Equal(t, "paystack", p.Gateway.Name)
			assert.True(t, decimal.RequireFromString(tt.gatewayFee).Equal(p.GatewayFee), p.GatewayFee.String())
			assert.True(t, decimal.RequireFromString(tt.platformFee).Equal(p.PlatformFee), p.PlatformFee.String())
			assert.True(t, decimal.RequireFromString(tt.net).Equal(p.NetAmount), p.NetAmount.String())

			got, err := svc.Get(ctx, p.Reference)
			require.NoError(t, err)
			assert.Equal(t, p.ID, got.ID)
		})
	}
}

func TestInitializeValidation(t *testing.T) {
	svc := newPaymentService(t, "0")
	ctx := context.Background()

	_, err := svc.Initialize(ctx, InitializePaymentInput{Amount: decimal.Zero, Currency: "NGN", CustomerEmail: "a@b.co"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.Initialize(ctx, InitializePaymentInput{Amount: decimal.NewFromInt(5), Currency: "JPY", CustomerEmail: "a@b.co"})
	assert.ErrorIs(t, err, ErrCurrencyUnsupported)

	_, err = svc.Initialize(ctx, InitializePaymentInput{Gateway: "stripe", Amount: decimal.NewFromInt(5), Currency: "NGN", CustomerEmail: "a@b.co"})
	assert.ErrorIs(t, err, ErrGatewayNotFound)

	p, err := svc.Initialize(ctx, InitializePaymentInput{Gateway: "Flutterwave", Amount: decimal.NewFromInt(35), Currency: "GBP", CustomerEmail: "a@b.co"})
	require.NoError(t, err)
	assert.Equal(t, "flutterwave", p.Gateway.Name)

	_, err = svc.Get(ctx, "PAY-NOPE")
	assert.ErrorIs(t, err, ErrPaymentNotFound)
}

func TestOverview(t *testing.T) {
	svc := newPaymentService(t, "0")
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, err := svc.Initialize(ctx, InitializePaymentInput{Amount: decimal.NewFromInt(100), Currency: "NGN", CustomerEmail: "a@b.co"})
		require.NoError(t, err)
	}

	overview, err := svc.Overview(ctx)
	require.NoError(t, err)
	require.Len(t, overview.Totals, 1)
	assert.Equal(t, model.PaymentStatusPending, overview.Totals[0].Status)
	assert.Equal(t, int64(3), overview.Totals[0].Count)
	assert.True(t, decimal.NewFromInt(300).Equal(overview.Totals[0].Amount))
	assert.Len(t, overview.Recent, 3)
}
