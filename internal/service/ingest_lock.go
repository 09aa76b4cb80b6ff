package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const lockRetryInterval = 50 * time.Millisecond

var releaseLockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// KeyedLocker serialises work on the same key across service instances.
type KeyedLocker interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}

type redisLocker struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	wait   time.Duration
	logger zerolog.Logger
}

// NewRedisLocker returns a SET NX based locker, or a no-op locker when Redis is not configured.
func NewRedisLocker(client *redis.Client, prefix string, ttl, wait time.Duration, logger zerolog.Logger) KeyedLocker {
	if client == nil {
		return noopLocker{}
	}
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	if wait < 0 {
		wait = 0
	}
	return &redisLocker{
		client: client,
		prefix: prefix,
		ttl:    ttl,
		wait:   wait,
		logger: logger.With().Str("component", "ingest_lock").Logger(),
	}
}

func (l *redisLocker) Acquire(ctx context.Context, key string) (func(), error) {
	lockKey := l.prefix + key
	token := uuid.NewString()
	deadline := time.Now().Add(l.wait)

	for {
		acquired, err := l.client.SetNX(ctx, lockKey, token, l.ttl).Result()
		if err != nil {
			return nil, storeError("acquire ingest lock", err)
		}
		if acquired {
			return func() { l.release(lockKey, token) }, nil
		}
		if !time.Now().Before(deadline) {
			return nil, fmt.Errorf("%w: ingest lock %s is held by another request", ErrStoreUnavailable, key)
		}

		select {
		case <-ctx.Done():
			return nil, storeError("acquire ingest lock", ctx.Err())
		case <-time.After(lockRetryInterval):
		}
	}
}

func (l *redisLocker) release(lockKey, token string) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := releaseLockScript.Run(ctx, l.client, []string{lockKey}, token).Err(); err != nil && err != redis.Nil {
		l.logger.Warn().Err(err).Str("lock", lockKey).Msg("failed to release ingest lock")
	}
}

type noopLocker struct{}

func (noopLocker) Acquire(context.Context, string) (func(), error) {
	return func() {}, nil
}
