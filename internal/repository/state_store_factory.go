package repository

import (
	"fmt"

	"github.com/redis/go-redis/v9"
)

const stateKeyPrefix = "nclexkeys:"

// NewStateStore selects the backend named by backend ("redis" or "memory").
// redisClient is required for "redis".
func NewStateStore(backend string, redisClient *redis.Client) (StateStore, error) {
	switch backend {
	case "redis":
		if redisClient == nil {
			return nil, fmt.Errorf("redis state backend requires a redis client")
		}
		return NewRedisStateStore(redisClient, stateKeyPrefix), nil
	case "memory", "":
		return NewMemoryStateStore(), nil
	default:
		return nil, fmt.Errorf("unknown state backend %q", backend)
	}
}
