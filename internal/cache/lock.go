package cache

import (
	"context"
	"errors"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
)

const defaultLockKey = "cycle:lock"

// CycleLock is a redis lock that keeps replicas from running overlapping
// replenishment cycles.
type CycleLock struct {
	locker *redislock.Client
	key    string
}

func NewCycleLock(client redis.UniversalClient, key string) *CycleLock {
	if key == "" {
		key = defaultLockKey
	}
	return &CycleLock{locker: redislock.New(client), key: key}
}

// TryLock obtains the lock without waiting. ok is false when another holder
// has it.
func (l *CycleLock) TryLock(ctx context.Context, ttl time.Duration) (func(context.Context) error, bool, error) {
	lock, err := l.locker.Obtain(ctx, l.key, ttl, nil)
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	release := func(ctx context.Context) error {
		err := lock.Release(ctx)
		if errors.Is(err, redislock.ErrLockNotHeld) {
			// expired before release, nothing to do
			return nil
		}
		return err
	}
	return release, true, nil
}

// Key returns the redis key guarded by the lock.
func (l *CycleLock) Key() string {
	return l.key
}
