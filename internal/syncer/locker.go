package syncer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/semaphore"
)

const defaultLockTTL = 15 * time.Minute

var ErrSyncInProgress = errors.New("a sync is already running")

// Locker admits one sync at a time. TryLock never waits: it either returns a
// release func or ErrSyncInProgress.
type Locker interface {
	TryLock(ctx context.Context) (release func(), err error)
}

// LocalLocker serializes syncs within one process.
type LocalLocker struct {
	sem *semaphore.Weighted
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{sem: semaphore.NewWeighted(1)}
}

func (l *LocalLocker) TryLock(ctx context.Context) (func(), error) {
	if !l.sem.TryAcquire(1) {
		return nil, ErrSyncInProgress
	}
	return func() { l.sem.Release(1) }, nil
}

// RedisLocker serializes syncs across every API and worker instance sharing a Redis.
// The holder refreshes the lock every ttl/3, so it only expires when the holder dies.
type RedisLocker struct {
	locker *redislock.Client
	key    string
	ttl    time.Duration
}

func NewRedisLocker(client redis.UniversalClient, key string, ttl time.Duration) *RedisLocker {
	if ttl < time.Second {
		ttl = defaultLockTTL
	}
	return &RedisLocker{locker: redislock.New(client), key: key, ttl: ttl}
}

func (l *RedisLocker) TryLock(ctx context.Context) (func(), error) {
	lock, err := l.locker.Obtain(ctx, l.key, l.ttl, nil)
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, ErrSyncInProgress
	}
	if err != nil {
		return nil, fmt.Errorf("obtain sync lock: %w", err)
	}
	stop := keepAlive(l.ttl/3, func(ctx context.Context) error {
		return lock.Refresh(ctx, l.ttl, nil)
	})
	return func() {
		stop()
		// the run's context may be cancelled by now
		_ = lock.Release(context.Background())
	}, nil
}

// keepAlive calls refresh every interval until stop is called or a refresh
// fails. stop waits for the loop to exit.
func keepAlive(every time.Duration, refresh func(ctx context.Context) error) (stop func()) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		ticker := time.NewTicker(every)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := refresh(ctx); err != nil {
					return
				}
			}
		}
	}()
	return func() {
		cancel()
		<-done
	}
}
