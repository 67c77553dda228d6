package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"nclexkeys/backend/internal/gateway"
	"nclexkeys/backend/internal/metrics"
	"nclexkeys/backend/internal/model"
	"nclexkeys/backend/internal/repository"
	"nclexkeys/backend/pkg/clock"
)

const (
	webhookKeyPrefix  = "webhook:"
	defaultWebhookTTL = 72 * time.Hour
)

type WebhookStatus string

const (
	WebhookSuccess          WebhookStatus = "success"
	WebhookIgnored          WebhookStatus = "ignored"
	WebhookAlreadyProcessed WebhookStatus = "already_processed"
)

type WebhookService interface {
	// Receive verifies, decodes and applies one webhook delivery. Signature
	// failures return ErrInvalidSignature, undecodable bodies ErrInvalidPayload
	// and unknown references ErrPaymentNotFound without touching any payment.
	Receive(ctx context.Context, gatewayName string, body []byte, headers http.Header) (WebhookStatus, error)
}

type webhookService struct {
	registry      *gateway.Registry
	payments      repository.PaymentRepository
	notifications NotificationService
	tx            repository.Transactor
	stateStore    repository.StateStore
	mailer        MailSender
	clock         clock.Clock
	logger        *zap.Logger
	dedupTTL      time.Duration
}

func NewWebhookService(
	registry *gateway.Registry,
	payments repository.PaymentRepository,
	notifications NotificationService,
	tx repository.Transactor,
	stateStore repository.StateStore,
	mailer MailSender,
	clk clock.Clock,
	logger *zap.Logger,
	dedupTTL time.Duration,
) WebhookService {
	if dedupTTL <= 0 {
		dedupTTL = defaultWebhookTTL
	}
	return &webhookService{
		registry:      registry,
		payments:      payments,
		notifications: notifications,
		tx:            tx,
		stateStore:    stateStore,
		mailer:        mailer,
		clock:         clk,
		logger:        logger.Named("webhook"),
		dedupTTL:      dedupTTL,
	}
}

func (s *webhookService) Receive(ctx context.Context, gatewayName string, body []byte, headers http.Header) (status WebhookStatus, err error) {
	outcome := "error"
	defer func() {
		if err == nil {
			outcome = string(status)
		}
		metrics.IncWebhook(gatewayName, outcome)
	}()

	adapter, err := s.registry.Get(gatewayName)
	if err != nil {
		outcome = "unknown_gateway"
		return "", ErrGatewayNotFound
	}
	if err := adapter.Verify(body, headers); err != nil {
		outcome = "bad_signature"
		s.logger.Warn("webhook signature rejected", zap.String("gateway", adapter.Name()))
		return "", ErrInvalidSignature
	}

	event, err := adapter.Parse(body)
	switch {
	case errors.Is(err, gateway.ErrEventIgnored):
		var rawType string
		if event != nil {
			rawType = event.RawType
		}
		s.logger.Info("webhook event ignored", zap.String("gateway", adapter.Name()), zap.String("event", rawType))
		return WebhookIgnored, nil
	case err != nil:
		outcome = "bad_payload"
		return "", ErrInvalidPayload
	}

	sum := sha256.Sum256(body)
	dedupKey := webhookKeyPrefix + adapter.Name() + ":" + hex.EncodeToString(sum[:])
	fresh, err := s.stateStore.SetNX(ctx, dedupKey, []byte(event.Reference), s.dedupTTL)
	if err != nil {
		return "", fmt.Errorf("record webhook delivery: %w", err)
	}
	if !fresh {
		s.logger.Info("duplicate webhook delivery", zap.String("reference", event.Reference))
		return WebhookAlreadyProcessed, nil
	}

	status, err = s.apply(ctx, adapter.Name(), event)
	if err != nil {
		// Let the provider's retry be processed.
		if delErr := s.stateStore.Delete(ctx, dedupKey); delErr != nil {
			s.logger.Warn("release webhook marker failed", zap.Error(delErr))
		}
		if errors.Is(err, ErrPaymentNotFound) {
			outcome = "not_found"
		}
		return "", err
	}
	return status, nil
}

func (s *webhookService) apply(ctx context.Context, gatewayName string, event *gateway.Event) (WebhookStatus, error) {
	payment, err := s.payments.GetByReference(ctx, event.Reference)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		s.logger.Warn("webhook for unknown payment", zap.String("gateway", gatewayName), zap.String("reference", event.Reference))
		return "", ErrPaymentNotFound
	}
	if err != nil {
		return "", fmt.Errorf("get payment: %w", err)
	}
	if payment.Status.IsTerminal() {
		return WebhookAlreadyProcessed, nil
	}

	transition := repository.PaymentTransition{
		GatewayReference: event.GatewayReference,
		Metadata:         event.Data,
		At:               s.clock.Now(),
	}
	switch event.Type {
	case gateway.EventPaymentSucceeded:
		transition.Status = model.PaymentStatusCompleted
	case gateway.EventPaymentFailed:
		transition.Status = model.PaymentStatusFailed
		transition.FailureReason = event.FailureReason
	default:
		return WebhookIgnored, nil
	}

	var moved bool
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		moved, err = s.payments.Transition(ctx, payment.Reference, transition)
		if err != nil || !moved {
			return err
		}
		if payment.UserID == nil {
			return nil
		}
		title, body := paymentNotice(payment, transition.Status)
		_, err = s.notifications.Notify(ctx, *payment.UserID, title, body)
		return err
	})
	if err != nil {
		return "", fmt.Errorf("apply payment transition: %w", err)
	}
	if !moved {
		return WebhookAlreadyProcessed, nil
	}

	metrics.IncPayment(string(transition.Status))
	s.logger.Info("payment updated from webhook",
		zap.String("gateway", gatewayName),
		zap.String("reference", payment.Reference),
		zap.String("status", string(transition.Status)),
	)
	s.sendReceipt(ctx, payment, transition.Status)
	return WebhookSuccess, nil
}

func paymentNotice(p *model.Payment, status model.PaymentStatus) (string, string) {
	if status == model.PaymentStatusCompleted {
		return "Payment received",
			fmt.Sprintf("Your payment of %s %s (ref %s) was successful.", p.Currency, p.Amount.StringFixed(2), p.Reference)
	}
	return "Payment failed",
		fmt.Sprintf("Your payment of %s %s (ref %s) could not be completed.", p.Currency, p.Amount.StringFixed(2), p.Reference)
}

// sendReceipt mails the customer. Failures are logged; the webhook is already applied.
func (s *webhookService) sendReceipt(ctx context.Context, p *model.Payment, status model.PaymentStatus) {
	subject, body := paymentNotice(p, status)
	if err := s.mailer.Send(ctx, p.CustomerEmail, subject, body+"\n"); err != nil {
		s.logger.Warn("payment receipt not sent", zap.String("reference", p.Reference), zap.Error(err))
	}
}
