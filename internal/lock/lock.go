// Package lock serializes work on a key across processes. Redis is used when
// configured, otherwise locks are held in process.
package lock

import (
	"context"
	"errors"
	"time"
)

var (
	ErrLockNotAcquired = errors.New("lock_not_acquired")
	ErrInvalidLockKey  = errors.New("invalid_lock_key")
)

// Locker acquires short-lived exclusive locks.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (token string, ok bool, err error)
	Release(ctx context.Context, key, token string) error
}

// WithLock runs fn while holding key, polling until the lock is acquired or ctx ends.
func WithLock(ctx context.Context, l Locker, key string, ttl time.Duration, fn func(ctx context.Context) error) error {
	if key == "" {
		return ErrInvalidLockKey
	}

	backoff := 10 * time.Millisecond
	for {
		token, ok, err := l.TryLock(ctx, key, ttl)
		if err != nil {
			return err
		}
		if ok {
			defer func() {
				// Release with a fresh context so a cancelled request still frees the key.
				_ = l.Release(context.WithoutCancel(ctx), key, token)
			}()
			return fn(ctx)
		}

		select {
		case <-ctx.Done():
			return errors.Join(ErrLockNotAcquired, ctx.Err())
		case <-time.After(backoff):
		}
		if backoff < 200*time.Millisecond {
			backoff *= 2
		}
	}
}
