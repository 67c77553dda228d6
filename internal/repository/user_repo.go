package repository

import (
	"context"

	"github.com/google/uuid"

	"nclexkeys/backend/internal/model"
)

type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	Update(ctx context.Context, user *model.User) error
	MarkEmailVerified(ctx context.Context, id uuid.UUID) error
}
