package journeys

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	pkgerrors "github.com/angelmondragon/fleetops-backend/pkg/errors"
	"github.com/angelmondragon/fleetops-backend/pkg/metrics"
)

const (
	defaultTruckLockTTL  = 30 * time.Second
	defaultTruckLockWait = 5 * time.Second
	truckLockRetry       = 50 * time.Millisecond
)

type lockStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	ReleaseOwned(ctx context.Context, key, owner string) (bool, error)
	TruckLockKey(truckNo string) string
}

// TruckLock serializes journey mutations per truck across API instances.
type TruckLock struct {
	store   lockStore
	ttl     time.Duration
	wait    time.Duration
	metrics *metrics.JourneyMetrics
}

// NewTruckLock constructs a Redis-backed truck lock.
func NewTruckLock(store lockStore, ttl, wait time.Duration, m *metrics.JourneyMetrics) (*TruckLock, error) {
	if store == nil {
		return nil, errors.New("redis client required for truck lock")
	}
	if ttl <= 0 {
		ttl = defaultTruckLockTTL
	}
	if wait <= 0 {
		wait = defaultTruckLockWait
	}
	return &TruckLock{store: store, ttl: ttl, wait: wait, metrics: m}, nil
}

type heldKey struct {
	key   string
	owner string
}

// Release frees the keys acquired by a single Acquire call.
type Release func(ctx context.Context)

// Acquire locks every distinct truck in sorted order. A truck held by another
// owner past the wait budget yields a retryable conflict.
func (l *TruckLock) Acquire(ctx context.Context, trucks ...string) (Release, error) {
	keys := l.keysFor(trucks)
	start := time.Now()
	held := make([]heldKey, 0, len(keys))
	release := func(ctx context.Context) {
		for i := len(held) - 1; i >= 0; i-- {
			l.releaseKey(ctx, held[i])
		}
	}

	for _, key := range keys {
		owner := uuid.NewString()
		if err := l.acquireKey(ctx, key, owner, start); err != nil {
			release(context.WithoutCancel(ctx))
			return nil, err
		}
		held = append(held, heldKey{key: key, owner: owner})
	}
	l.metrics.ObserveTruckLockWait(time.Since(start))
	return release, nil
}

// WithTrucks runs fn while holding the locks for the given trucks.
func (l *TruckLock) WithTrucks(ctx context.Context, trucks []string, fn func(ctx context.Context) error) error {
	release, err := l.Acquire(ctx, trucks...)
	if err != nil {
		return err
	}
	defer release(context.WithoutCancel(ctx))
	return fn(ctx)
}

func (l *TruckLock) keysFor(trucks []string) []string {
	seen := make(map[string]struct{}, len(trucks))
	keys := make([]string, 0, len(trucks))
	for _, truck := range trucks {
		truck = strings.TrimSpace(truck)
		if truck == "" {
			continue
		}
		key := l.store.TruckLockKey(truck)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func (l *TruckLock) acquireKey(ctx context.Context, key, owner string, start time.Time) error {
	for {
		ok, err := l.store.SetNX(ctx, key, owner, l.ttl)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "acquire truck lock")
		}
		if ok {
			return nil
		}
		if time.Since(start) >= l.wait {
			return pkgerrors.New(pkgerrors.CodeConflict, fmt.Sprintf("truck is busy: %s", key))
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(truckLockRetry):
		}
	}
}

func (l *TruckLock) releaseKey(ctx context.Context, h heldKey) {
	// Unreleased keys expire with the TTL.
	_, _ = l.store.ReleaseOwned(ctx, h.key, h.owner)
}
