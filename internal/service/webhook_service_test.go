package service

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"nclexkeys/backend/internal/config"
	"nclexkeys/backend/internal/gateway"
	"nclexkeys/backend/internal/model"
	"nclexkeys/backend/internal/repository"
	"nclexkeys/backend/pkg/clock"
)

const paystackSecret = "sk_test_paystack"

type webhookFixture struct {
	payments      repository.PaymentRepository
	notifications NotificationService
	state         repository.StateStore
	mailer        *recordingMailer
	clock         *clock.FakeClock
	paymentSvc    PaymentService
	svc           WebhookService
}

func newWebhookFixture(t *testing.T) *webhookFixture {
	t.Helper()
	db := setupTestDB(t)
	gateways := repository.NewPGPaymentGatewayRepository(db)
	_, err := NewProvisioningService(
		repository.NewPGUserRepository(db), gateways, zap.NewNop(),
		config.ProvisioningConfig{},
		config.PaymentsConfig{DefaultGateway: "paystack"},
	).Provision(context.Background())
	require.NoError(t, err)

	paystack, err := gateway.NewPaystack(paystackSecret)
	require.NoError(t, err)

	f := &webhookFixture{
		payments:      repository.NewPGPaymentRepository(db),
		notifications: NewNotificationService(repository.NewPGNotificationRepository(db)),
		state:         repository.NewMemoryStateStore(),
		mailer:        &recordingMailer{},
		clock:         clock.NewFakeClock(testEpoch),
	}
	f.paymentSvc = NewPaymentService(f.payments, gateways, f.clock, zap.NewNop(), decimal.Zero)
	f.svc = NewWebhookService(
		gateway.NewRegistry(paystack), f.payments, f.notifications,
		repository.NewTransactor(db), f.state, f.mailer, f.clock, zap.NewNop(), 0,
	)
	return f
}

func (f *webhookFixture) pendingPayment(t *testing.T, userID *uuid.UUID) *model.Payment {
	t.Helper()
	p, err := f.paymentSvc.Initialize(context.Background(), InitializePaymentInput{
		Amount:        decimal.NewFromInt(30000),
		Currency:      "NGN",
		CustomerEmail: "buyer@example.com",
		UserID:        userID,
	})
	require.NoError(t, err)
	return p
}

func paystackBody(t *testing.T, event, reference string) []byte {
	t.Helper()
	body, err := json.Marshal(map[string]any{
		"event": event,
		"data": map[string]any{
			"id":               1234,
			"reference":        reference,
			"gateway_response": "Declined by bank",
		},
	})
	require.NoError(t, err)
	return body
}

func signed(body []byte, secret string) http.Header {
	h := http.Header{}
	h.Set("X-Paystack-Signature", gateway.Sign(body, secret))
	return h
}

func TestWebhookChargeSuccess(t *testing.T) {
	f := newWebhookFixture(t)
	ctx := context.Background()
	user := uuid.New()
	p := f.pendingPayment(t, &user)
	body := paystackBody(t, "charge.success", p.Reference)

	status, err := f.svc.Receive(ctx, "paystack", body, signed(body, paystackSecret))
	require.NoError(t, err)
	assert.Equal(t, WebhookSuccess, status)

	stored, err := f.payments.GetByReference(ctx, p.Reference)
	require.NoError(t, err)
	assert.Equal(t, model.PaymentStatusCompleted, stored.Status)
	assert.True(t, stored.WebhookVerified)
	assert.Equal(t, "1234", stored.GatewayReference)
	require.NotNil(t, stored.PaidAt)
	assert.True(t, stored.PaidAt.Equal(testEpoch))
	assert.JSONEq(t, `{"id":1234,"reference":"`+p.Reference+`","gateway_response":"Declined by bank"}`, string(stored.Metadata))

	notes, err := f.notifications.List(ctx, user, true)
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, "Payment received", notes[0].Title)

	sent := f.mailer.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "buyer@example.com", sent[0].To)
}

func TestWebhookChargeFailed(t *testing.T) {
	f := newWebhookFixture(t)
	ctx := context.Background()
	p := f.pendingPayment(t, nil)
	body := paystackBody(t, "charge.failed", p.Reference)

	status, err := f.svc.Receive(ctx, "paystack", body, signed(body, paystackSecret))
	require.NoError(t, err)
	assert.Equal(t, WebhookSuccess, status)

	stored, err := f.payments.GetByReference(ctx, p.Reference)
	require.NoError(t, err)
	assert.Equal(t, model.PaymentStatusFailed, stored.Status)
	assert.Equal(t, "Declined by bank", stored.FailureReason)
	require.NotNil(t, stored.FailedAt)
	assert.Nil(t, stored.PaidAt)
}

func TestWebhookRejectsBadSignatures(t *testing.T) {
	f := newWebhookFixture(t)
	ctx := context.Background()
	p := f.pendingPayment(t, nil)
	body := paystackBody(t, "charge.success", p.Reference)

	tests := []struct {
		name    string
		body    []byte
		headers http.Header
	}{
		{"missing header", body, http.Header{}},
		{"wrong secret", body, signed(body, "sk_other")},
		{"tampered body", paystackBody(t, "charge.success", p.Reference+"X"), signed(body, paystackSecret)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Receive(ctx, "paystack", tt.body, tt.headers)
			assert.ErrorIs(t, err, ErrInvalidSignature)
		})
	}

	stored, err := f.payments.GetByReference(ctx, p.Reference)
	require.NoError(t, err)
	assert.Equal(t, model.PaymentStatusPending, stored.Status)
	assert.False(t, stored.WebhookVerified)
}

func TestWebhookMalformedAndIgnored(t *testing.T) {
	f := newWebhookFixture(t)
	ctx := context.Background()

	malformed := []byte(`{"event":`)
	_, err := f.svc.Receive(ctx, "paystack", malformed, signed(malformed, paystackSecret))
	assert.ErrorIs(t, err, ErrInvalidPayload)

	other := paystackBody(t, "subscription.create", "PAY-X")
	status, err := f.svc.Receive(ctx, "paystack", other, signed(other, paystackSecret))
	require.NoError(t, err)
	assert.Equal(t, WebhookIgnored, status)

	_, err = f.svc.Receive(ctx, "stripe", other, signed(other, paystackSecret))
	assert.ErrorIs(t, err, ErrGatewayNotFound)
}

func TestWebhookUnknownReference(t *testing.T) {
	f := newWebhookFixture(t)
	ctx := context.Background()
	p := f.pendingPayment(t, nil)
	body := paystackBody(t, "charge.success", "PAY-DOES-NOT-EXIST")

	_, err := f.svc.Receive(ctx, "paystack", body, signed(body, paystackSecret))
	assert.ErrorIs(t, err, ErrPaymentNotFound)

	stored, err := f.payments.GetByReference(ctx, p.Reference)
	require.NoError(t, err)
	assert.Equal(t, model.PaymentStatusPending, stored.Status)

	// The delivery marker is released so a retry is evaluated again.
	_, err = f.svc.Receive(ctx, "paystack", body, signed(body, paystackSecret))
	assert.ErrorIs(t, err, ErrPaymentNotFound)
}

func TestWebhookTerminalStateIsFinal(t *testing.T) {
	f := newWebhookFixture(t)
	ctx := context.Background()
	p := f.pendingPayment(t, nil)

	success := paystackBody(t, "charge.success", p.Reference)
	status, err := f.svc.Receive(ctx, "paystack", success, signed(success, paystackSecret))
	require.NoError(t, err)
	require.Equal(t, WebhookSuccess, status)

	status, err = f.svc.Receive(ctx, "paystack", success, signed(success, paystackSecret))
	require.NoError(t, err)
	assert.Equal(t, WebhookAlreadyProcessed, status)

	failed := paystackBody(t, "charge.failed", p.Reference)
	status, err = f.svc.Receive(ctx, "paystack", failed, signed(failed, paystackSecret))
	require.NoError(t, err)
	assert.Equal(t, WebhookAlreadyProcessed, status)

	stored, err := f.payments.GetByReference(ctx, p.Reference)
	require.NoError(t, err)
	assert.Equal(t, model.PaymentStatusCompleted, stored.Status)
	assert.Empty(t, stored.FailureReason)
	assert.Nil(t, stored.FailedAt)
	assert.Len(t, f.mailer.Sent(), 1)
}

func TestTransitionIsConditionalOnPending(t *testing.T) {
	f := newWebhookFixture(t)
	ctx := context.Background()
	p := f.pendingPayment(t, nil)

	moved, err := f.payments.Transition(ctx, p.Reference, repository.PaymentTransition{
		Status: model.PaymentStatusFailed, FailureReason: "x", At: testEpoch,
	})
	require.NoError(t, err)
	assert.True(t, moved)

	moved, err = f.payments.Transition(ctx, p.Reference, repository.PaymentTransition{
		Status: model.PaymentStatusCompleted, At: testEpoch,
	})
	require.NoError(t, err)
	assert.False(t, moved)
}
