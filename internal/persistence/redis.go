package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-warehouse/internal/config"
	apperrors "github.com/spec-kit/ticket-warehouse/pkg/util"
)

// ErrLockNotHeld is returned when releasing a lock whose token no longer matches,
// typically because it expired and another process took it.
var ErrLockNotHeld = errors.New("lock not held")

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Redis wraps the go-redis client.
type Redis struct {
	Client redis.UniversalClient
	logger *zap.Logger
}

// NewRedis connects to Redis. It returns nil when no address is configured.
func NewRedis(ctx context.Context, cfg config.RedisConfig, logger *zap.Logger) (*Redis, error) {
	if cfg.Addr == "" {
		return nil, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, apperrors.NewConnectivityError("redis", err)
	}

	logger.Debug("connected to redis", zap.String("addr", cfg.Addr))
	return &Redis{Client: client, logger: logger}, nil
}

// NewRedisWithClient wraps an existing client.
func NewRedisWithClient(client redis.UniversalClient, logger *zap.Logger) *Redis {
	return &Redis{Client: client, logger: logger}
}

// Close closes the client.
func (r *Redis) Close() {
	if r != nil && r.Client != nil {
		_ = r.Client.Close()
	}
}

// Ping verifies Redis connectivity.
func (r *Redis) Ping(ctx context.Context) error {
	if r == nil || r.Client == nil {
		return errors.New("redis client not configured")
	}
	return r.Client.Ping(ctx).Err()
}

// Acquire blocks until it owns key, polling every retry. The lock expires after
// ttl even if the returned release func is never called.
func (r *Redis) Acquire(ctx context.Context, key string, ttl, retry time.Duration) (func(context.Context) error, error) {
	token := uuid.NewString()

	for {
		ok, err := r.Client.SetNX(ctx, key, token, ttl).Result()
		if err != nil {
			return nil, apperrors.NewConnectivityError("redis", err)
		}
		if ok {
			break
		}

		r.logger.Info("waiting for lock", zap.String("key", key))
		timer := time.NewTimer(retry)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	r.logger.Debug("lock acquired", zap.String("key", key))

	release := func(ctx context.Context) error {
		n, err := releaseScript.Run(ctx, r.Client, []string{key}, token).Int()
		if err != nil {
			return apperrors.NewConnectivityError("redis", err)
		}
		if n == 0 {
			return ErrLockNotHeld
		}
		r.logger.Debug("lock released", zap.String("key", key))
		return nil
	}
	return release, nil
}
