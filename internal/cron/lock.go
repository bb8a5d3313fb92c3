package cron

import (
	"context"
	"time"

	pkgredis "github.com/angelmondragon/gatic-backend/pkg/redis"
)

const defaultLockTTL = 10 * time.Minute

// JobLocker grants one replica the right to run a job. *pkgredis.Locker
// satisfies it with a single redislock attempt.
type JobLocker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (pkgredis.Unlock, bool, error)
}

// localLocker runs every job unconditionally. Only single replica setups and
// tests should use it.
type localLocker struct{}

func (localLocker) TryLock(context.Context, string, time.Duration) (pkgredis.Unlock, bool, error) {
	return func(context.Context) error { return nil }, true, nil
}

// LocalLocker returns a JobLocker that never contends.
func LocalLocker() JobLocker {
	return localLocker{}
}
