package lock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const defaultKeyPrefix = "leadloop:lock:"

var releaseScript = redis.NewScript(`
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("del", KEYS[1])
	else
		return 0
	end
`)

// RedisLocker shares locks between instances through Redis SET NX
type RedisLocker struct {
	rdb       redis.UniversalClient
	keyPrefix string
	log       *zap.Logger
}

func NewRedisLocker(rdb redis.UniversalClient, log *zap.Logger) *RedisLocker {
	return &RedisLocker{
		rdb:       rdb,
		keyPrefix: defaultKeyPrefix,
		log:       log,
	}
}

// NewRedisClient parses a redis:// URL and checks the server is reachable
func NewRedisClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse REDIS_URL: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return rdb, nil
}

func (l *RedisLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	lockKey := l.keyPrefix + key
	token := uuid.NewString()

	ok, err := l.rdb.SetNX(ctx, lockKey, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire lock %s: %w", key, err)
	}
	if !ok {
		return nil, ErrNotAcquired
	}

	l.log.Debug("Acquired lock", zap.String("key", key))

	var once sync.Once
	return func() {
		once.Do(func() {
			// release must run even when the caller's context is already cancelled
			releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			n, err := releaseScript.Run(releaseCtx, l.rdb, []string{lockKey}, token).Int64()
			if err != nil {
				l.log.Warn("Failed to release lock", zap.String("key", key), zap.Error(err))
				return
			}
			if n == 0 {
				l.log.Warn("Lock expired before release", zap.String("key", key))
			}
		})
	}, nil
}
