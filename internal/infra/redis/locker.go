package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"live-quiz-service/internal/app"
	"live-quiz-service/internal/domain"
)

var _ app.Locker = (*Locker)(nil)

const (
	// DefaultLockLease bounds how long a crashed holder can keep a session locked.
	// The lease is never renewed, so holders must finish (see app.WithMutateBudget) well inside it.
	DefaultLockLease = 15 * time.Second
	lockRetry        = 25 * time.Millisecond
)

// releaseScript deletes the lock only if the caller still owns it.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Locker is a lease-based lock shared by every instance using the same Redis.
type Locker struct {
	client *redis.Client
	lease  time.Duration
}

func NewLocker(client *redis.Client, lease time.Duration) *Locker {
	if lease <= 0 {
		lease = DefaultLockLease
	}
	return &Locker{client: client, lease: lease}
}

func (l *Locker) Lock(ctx context.Context, key string, timeout time.Duration) (func(), error) {
	lockKey := "quiz:lock:" + key
	token := uuid.NewString()
	deadline := time.Now().Add(timeout)

	for {
		ok, err := l.client.SetNX(ctx, lockKey, token, l.lease).Result()
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, fmt.Errorf("redis lock %s: %w", key, err)
		}
		if ok {
			return func() { l.release(lockKey, token) }, nil
		}

		wait := time.Until(deadline)
		if wait <= 0 {
			return nil, domain.ErrLockTimeout
		}
		wait = min(wait, lockRetry)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(wait):
		}
	}
}

func (l *Locker) release(lockKey, token string) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	// On failure the lease expires on its own.
	_ = releaseScript.Run(ctx, l.client, []string{lockKey}, token).Err()
}
