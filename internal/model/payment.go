package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusFailed    PaymentStatus = "failed"
)

func (s PaymentStatus) IsTerminal() bool {
	return s == PaymentStatusCompleted || s == PaymentStatusFailed
}

type PaymentGateway struct {
	ID                  uuid.UUID                   `gorm:"type:uuid;primaryKey" json:"id"`
	Name                string                      `gorm:"type:varchar(50);uniqueIndex;not null" json:"name"`
	DisplayName         string                      `gorm:"type:varchar(100);not null" json:"display_name"`
	IsActive            bool                        `gorm:"not null;default:true" json:"is_active"`
	IsDefault           bool                        `gorm:"not null;default:false" json:"is_default"`
	SupportedCurrencies datatypes.JSONSlice[string] `gorm:"type:jsonb" json:"supported_currencies"`
	FeePercentage       decimal.Decimal             `gorm:"type:numeric(5,4);not null" json:"fee_percentage"`
	FeeCap              decimal.NullDecimal         `gorm:"type:numeric(10,2)" json:"fee_cap"`
	FeeCapCurrency      string                      `gorm:"type:varchar(3);not null;default:''" json:"fee_cap_currency,omitempty"`
	CreatedAt           time.Time                   `json:"created_at"`
	UpdatedAt           time.Time                   `json:"updated_at"`
}

func (PaymentGateway) TableName() string { return "payment_gateways" }

func (g *PaymentGateway) BeforeCreate(*gorm.DB) error {
	if g.ID == uuid.Nil {
		g.ID = uuid.New()
	}
	return nil
}

// Fee is amount × FeePercentage. FeeCap is denominated in FeeCapCurrency and
// only bounds fees charged in that currency; an empty FeeCapCurrency caps every currency.
func (g *PaymentGateway) Fee(amount decimal.Decimal, currency string) decimal.Decimal {
	fee := amount.Mul(g.FeePercentage).Round(2)
	capApplies := g.FeeCapCurrency == "" || strings.EqualFold(g.FeeCapCurrency, currency)
	if g.FeeCap.Valid && capApplies && fee.GreaterThan(g.FeeCap.Decimal) {
		return g.FeeCap.Decimal
	}
	return fee
}

func (g *PaymentGateway) SupportsCurrency(currency string) bool {
	if len(g.SupportedCurrencies) == 0 {
		return true
	}
	for _, c := range g.SupportedCurrencies {
		if c == currency {
			return true
		}
	}
	return false
}

type Payment struct {
	ID               uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	Reference        string          `gorm:"type:varchar(100);uniqueIndex;not null" json:"reference"`
	GatewayID        uuid.UUID       `gorm:"type:uuid;not null" json:"gateway_id"`
	GatewayReference string          `gorm:"type:varchar(255);index" json:"gateway_reference,omitempty"`
	UserID           *uuid.UUID      `gorm:"type:uuid;index" json:"user_id,omitempty"`
	Amount           decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"amount"`
	Currency         string          `gorm:"type:varchar(3);not null" json:"currency"`
	GatewayFee       decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"gateway_fee"`
	PlatformFee      decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"platform_fee"`
	NetAmount        decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"net_amount"`
	Status           PaymentStatus   `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	CustomerEmail    string          `gorm:"type:varchar(255);not null" json:"customer_email"`
	CustomerName     string          `gorm:"type:varchar(255)" json:"customer_name,omitempty"`
	CustomerPhone    string          `gorm:"type:varchar(20)" json:"customer_phone,omitempty"`
	Metadata         datatypes.JSON  `gorm:"type:jsonb" json:"metadata,omitempty"`
	WebhookVerified  bool            `gorm:"not null;default:false" json:"webhook_verified"`
	FailureReason    string          `gorm:"type:text" json:"failure_reason,omitempty"`
	PaidAt           *time.Time      `json:"paid_at,omitempty"`
	FailedAt         *time.Time      `json:"failed_at,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`

	Gateway PaymentGateway `gorm:"foreignKey:GatewayID" json:"-"`
}

func (Payment) TableName() string { return "payments" }

func (p *Payment) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
