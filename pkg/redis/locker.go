package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"

	pkgerrors "github.com/angelmondragon/gatic-backend/pkg/errors"
)

// Unlock releases a lock obtained from Locker.
type Unlock func(context.Context) error

// LockOptions tunes how long a lock is held and how hard Obtain retries.
type LockOptions struct {
	TTL     time.Duration
	Retries int
	Backoff time.Duration
}

// Locker hands out short-lived distributed locks backed by redislock.
type Locker struct {
	client *redislock.Client
	opts   LockOptions
}

// NewLocker builds a Locker on top of c's connection.
func NewLocker(c *Client, opts LockOptions) (*Locker, error) {
	if c == nil || c.raw == nil {
		return nil, errors.New("redis client required for locker")
	}
	return newLocker(redislock.New(c.raw), opts), nil
}

func newLocker(client *redislock.Client, opts LockOptions) *Locker {
	if opts.TTL <= 0 {
		opts.TTL = 15 * time.Second
	}
	if opts.Backoff <= 0 {
		opts.Backoff = 100 * time.Millisecond
	}
	if opts.Retries < 0 {
		opts.Retries = 0
	}
	return &Locker{client: client, opts: opts}
}

// Lock obtains key, retrying with linear backoff. A lock still held by someone
// else after the retries are spent surfaces as CodeLocked.
func (l *Locker) Lock(ctx context.Context, key string) (Unlock, error) {
	if key == "" {
		return nil, errors.New("lock key is required")
	}
	lock, err := l.client.Obtain(ctx, key, l.opts.TTL, &redislock.Options{
		RetryStrategy: redislock.LimitRetry(redislock.LinearBackoff(l.opts.Backoff), l.opts.Retries),
	})
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, pkgerrors.Newf(pkgerrors.CodeLocked, "lock %s is held", key)
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, fmt.Sprintf("obtain lock %s", key))
	}
	return func(ctx context.Context) error {
		if err := lock.Release(ctx); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
			return err
		}
		return nil
	}, nil
}

// TryLock makes a single attempt at key and reports whether it was obtained.
// Cron jobs use it so only one replica runs a job per tick.
func (l *Locker) TryLock(ctx context.Context, key string, ttl time.Duration) (Unlock, bool, error) {
	if ttl <= 0 {
		ttl = l.opts.TTL
	}
	lock, err := l.client.Obtain(ctx, key, ttl, nil)
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("obtain lock %s: %w", key, err)
	}
	return func(ctx context.Context) error {
		if err := lock.Release(ctx); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
			return err
		}
		return nil
	}, true, nil
}
