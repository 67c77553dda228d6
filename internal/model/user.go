package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type UserStatus int

const (
	UserStatusActive   UserStatus = 1
	UserStatusDisabled UserStatus = 2
	UserStatusBanned   UserStatus = 3
)

type Role string

const (
	RoleStudent    Role = "student"
	RoleInstructor Role = "instructor"
	RoleAdmin      Role = "admin"
)

type User struct {
	ID              uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Email           string         `gorm:"type:varchar(255);not null" json:"email"`
	FullName        string         `gorm:"type:varchar(255);not null;default:''" json:"full_name"`
	Role            Role           `gorm:"type:varchar(32);not null;default:'student'" json:"role"`
	Program         Program        `gorm:"type:varchar(50);not null;default:''" json:"program,omitempty"`
	PasswordHash    string         `gorm:"type:varchar(255);not null" json:"-"`
	IsEmailVerified bool           `gorm:"not null;default:false" json:"is_email_verified"`
	Status          UserStatus     `gorm:"type:smallint;not null;default:1" json:"status"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (User) TableName() string { return "users" }

func (u *User) BeforeCreate(*gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

// IsStaff reports whether the user may use the administrative endpoints.
func (u *User) IsStaff() bool {
	return u.Role == RoleAdmin || u.Role == RoleInstructor
}
