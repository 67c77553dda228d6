package repository

import (
	"context"
	"time"
)

// StateStore abstracts ephemeral key-value state: refresh-token JTIs, email
// verification tokens and webhook delivery markers.
// Implementations: Redis (production) or in-memory (local dev / single instance).
type StateStore interface {
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// SetNX stores value only when key is absent and reports whether it did.
	SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error)
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
	// Take deletes key and reports whether it was present. Of several concurrent
	// callers for one key, only one sees true.
	Take(ctx context.Context, key string) (bool, error)
}
