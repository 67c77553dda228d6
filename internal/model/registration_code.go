package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type RegistrationCode struct {
	ID        uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	Code      string          `gorm:"type:varchar(50);uniqueIndex;not null" json:"code"`
	Program   Program         `gorm:"column:program_type;type:varchar(50);not null;index" json:"program_type"`
	Amount    decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"amount"`
	Currency  string          `gorm:"type:varchar(3);not null" json:"currency"`
	IsUsed    bool            `gorm:"not null;default:false;index" json:"is_used"`
	UsedBy    *uuid.UUID      `gorm:"type:uuid" json:"used_by,omitempty"`
	UsedAt    *time.Time      `json:"used_at,omitempty"`
	ExpiresAt time.Time       `gorm:"not null;index" json:"expires_at"`
	CreatedBy *uuid.UUID      `gorm:"type:uuid" json:"created_by,omitempty"`
	Notes     string          `gorm:"type:text;not null;default:''" json:"notes,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

func (RegistrationCode) TableName() string { return "registration_codes" }

func (c *RegistrationCode) BeforeCreate(*gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

func (c *RegistrationCode) IsExpired(now time.Time) bool {
	return now.After(c.ExpiresAt)
}

func (c *RegistrationCode) IsValid(now time.Time) bool {
	return !c.IsUsed && !c.IsExpired(now)
}

// CodeStatus is the derived lifecycle state shown in listings.
type CodeStatus string

const (
	CodeStatusActive  CodeStatus = "active"
	CodeStatusUsed    CodeStatus = "used"
	CodeStatusExpired CodeStatus = "expired"
)

func (c *RegistrationCode) Status(now time.Time) CodeStatus {
	switch {
	case c.IsUsed:
		return CodeStatusUsed
	case c.IsExpired(now):
		return CodeStatusExpired
	default:
		return CodeStatusActive
	}
}
