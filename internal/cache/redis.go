package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisLocker implements Locker with SET NX so the lock is shared across instances.
type RedisLocker struct {
	client *redis.Client
	prefix string
	log    *zap.Logger
}

// NewRedisLockerConfig contains options for creating a new RedisLocker.
type NewRedisLockerConfig struct {
	Address  string
	Password string
	DB       int
	Prefix   string
}

// NewRedisLocker connects to Redis and verifies the connection with PING.
func NewRedisLocker(ctx context.Context, cfg NewRedisLockerConfig, log *zap.Logger) (*RedisLocker, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", cfg.Address, err)
	}
	log.Info("connected to Redis", zap.String("addr", cfg.Address))
	return NewRedisLockerFromClient(rdb, cfg.Prefix, log), nil
}

// NewRedisLockerFromClient wraps an existing client.
func NewRedisLockerFromClient(client *redis.Client, prefix string, log *zap.Logger) *RedisLocker {
	if log == nil {
		log = zap.NewNop()
	}
	return &RedisLocker{client: client, prefix: prefix, log: log}
}

// releaseScript deletes the key only when it still holds the caller's token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

func (r *RedisLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
	token := uuid.NewString()
	ok, err := r.client.SetNX(ctx, r.prefix+key, token, ttl).Result()
	if err != nil {
		r.log.Error("redis lock acquire failed", zap.String("key", key), zap.Error(err))
		return "", false, err
	}
	if !ok {
		return "", false, nil
	}
	return token, true, nil
}

func (r *RedisLocker) Release(ctx context.Context, key, token string) error {
	n, err := releaseScript.Run(ctx, r.client, []string{r.prefix + key}, token).Int()
	if err != nil {
		r.log.Error("redis lock release failed", zap.String("key", key), zap.Error(err))
		return err
	}
	if n == 0 {
		r.log.Warn("redis lock expired before release", zap.String("key", key))
	}
	return nil
}

// Close closes the underlying client.
func (r *RedisLocker) Close() error {
	return r.client.Close()
}
