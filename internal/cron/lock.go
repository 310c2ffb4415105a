package cron

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

const defaultLockTTL = 30 * time.Minute

// Lock guards one job at a time across cron-worker replicas.
type Lock interface {
	Acquire(ctx context.Context, job string) (bool, error)
	Release(ctx context.Context, job string) error
}

type redisStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	ReleaseOwned(ctx context.Context, key, owner string) (bool, error)
	CronLockKey(job string) string
}

// RedisLock keys a SETNX lease per job name.
type RedisLock struct {
	client redisStore
	ttl    time.Duration

	mu     sync.Mutex
	owners map[string]string
}

// NewRedisLock constructs a Redis-backed job lock.
func NewRedisLock(client redisStore, ttl time.Duration) (*RedisLock, error) {
	if client == nil {
		return nil, errors.New("redis client required for lock")
	}
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	return &RedisLock{client: client, ttl: ttl, owners: map[string]string{}}, nil
}

func (l *RedisLock) Acquire(ctx context.Context, job string) (bool, error) {
	if job == "" {
		return false, errors.New("job name is required")
	}
	owner := uuid.NewString()
	ok, err := l.client.SetNX(ctx, l.client.CronLockKey(job), owner, l.ttl)
	if err != nil {
		return false, fmt.Errorf("setnx %s: %w", job, err)
	}
	if ok {
		l.mu.Lock()
		l.owners[job] = owner
		l.mu.Unlock()
	}
	return ok, nil
}

// Release deletes the lease only while this instance still owns it.
func (l *RedisLock) Release(ctx context.Context, job string) error {
	l.mu.Lock()
	owner := l.owners[job]
	delete(l.owners, job)
	l.mu.Unlock()
	if owner == "" {
		return nil
	}

	if _, err := l.client.ReleaseOwned(ctx, l.client.CronLockKey(job), owner); err != nil {
		return fmt.Errorf("release lock %s: %w", job, err)
	}
	return nil
}
