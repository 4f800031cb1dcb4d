package guard

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// releaseScript deletes the key only if this holder still owns it.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// RedisGuard shares single-flight keys between service instances.
type RedisGuard struct {
	client redis.UniversalClient
	ttl    time.Duration
	prefix string
	logger *zap.Logger
}

// NewRedisGuard builds a guard whose locks expire after ttl if never released.
func NewRedisGuard(client redis.UniversalClient, ttl time.Duration, logger *zap.Logger) *RedisGuard {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisGuard{client: client, ttl: ttl, prefix: "semillero:inflight:", logger: logger}
}

// Acquire sets the key with NX and a random owner token.
func (g *RedisGuard) Acquire(ctx context.Context, key string) (func(), error) {
	fullKey := g.prefix + key
	token := uuid.NewString()

	ok, err := g.client.SetNX(ctx, fullKey, token, g.ttl).Result()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrInFlight
	}

	return func() {
		releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := releaseScript.Run(releaseCtx, g.client, []string{fullKey}, token).Err(); err != nil {
			g.logger.Warn("release in-flight key", zap.String("key", fullKey), zap.Error(err))
		}
	}, nil
}
