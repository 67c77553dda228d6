package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"nclexkeys/backend/internal/model"
)

// CodeFilter narrows a registration code listing. Zero values mean "any".
type CodeFilter struct {
	Program model.Program
	Status  model.CodeStatus
	Now     time.Time
	Offset  int
	Limit   int
}

type RegistrationCodeRepository interface {
	Create(ctx context.Context, code *model.RegistrationCode) error
	ExistsByCode(ctx context.Context, code string) (bool, error)
	GetByCode(ctx context.Context, code string) (*model.RegistrationCode, error)
	// MarkUsed flips an unused, unexpired code to used in a single conditional
	// update. It reports false when no row matched.
	MarkUsed(ctx context.Context, code string, userID uuid.UUID, now time.Time) (bool, error)
	// ExpireUnused back-dates expires_at for the given codes that are still unused.
	ExpireUnused(ctx context.Context, codes []string, expiresAt time.Time) (int64, error)
	List(ctx context.Context, filter CodeFilter) ([]model.RegistrationCode, int64, error)
}
