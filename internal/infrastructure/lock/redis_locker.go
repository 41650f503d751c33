package lock

import (
	"context"
	"time"

	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// RedisLocker serializes work per key across processes with a redsync mutex.
type RedisLocker struct {
	rs     *redsync.Redsync
	prefix string
	expiry time.Duration
	log    zerolog.Logger
}

// NewRedisLocker creates a locker whose locks expire after expiry if the holder dies.
func NewRedisLocker(client redis.UniversalClient, prefix string, expiry time.Duration, log zerolog.Logger) *RedisLocker {
	if expiry <= 0 {
		expiry = time.Minute
	}
	return &RedisLocker{
		rs:     redsync.New(goredis.NewPool(client)),
		prefix: prefix,
		expiry: expiry,
		log:    log.With().Str("component", "redis-locker").Logger(),
	}
}

// Lock acquires the distributed lock for key, retrying until ctx is done.
func (l *RedisLocker) Lock(ctx context.Context, key string) (func(), error) {
	mutex := l.rs.NewMutex(l.prefix+key,
		redsync.WithExpiry(l.expiry),
		redsync.WithTries(64),
		redsync.WithRetryDelay(50*time.Millisecond),
	)
	if err := mutex.LockContext(ctx); err != nil {
		return nil, err
	}

	return func() {
		// unlock must not be bound to the caller's context, which may already be cancelled
		unlockCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if _, err := mutex.UnlockContext(unlockCtx); err != nil {
			l.log.Error().Err(err).Str("key", key).Msg("failed to unlock mutex")
		}
	}, nil
}
