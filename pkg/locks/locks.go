// Package locks serialises work that must not run concurrently for the same
// key, either inside one process or across every replica through Redis.
package locks

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"

	pkgerrors "github.com/hrthis/hrthis-backend/pkg/errors"
	"github.com/hrthis/hrthis-backend/pkg/redis"
)

const defaultLockTTL = 30 * time.Second

// ErrLockBusy reports that another holder owns the key.
var ErrLockBusy = errors.New("lock held by another owner")

// ReleaseFunc gives the lock back. It is safe to call more than once.
type ReleaseFunc func(ctx context.Context) error

// Locker hands out exclusive leases per key. Acquire fails with a
// CONCURRENCY_CONFLICT error once its bounded wait is exhausted.
type Locker interface {
	Acquire(ctx context.Context, key string) (ReleaseFunc, error)
}

// RedisLocker implements Locker with SET NX PX and an owner token.
type RedisLocker struct {
	store   redis.LockStore
	scope   string
	ttl     time.Duration
	retries uint64
	delay   time.Duration
}

// RedisOptions tune lease lifetime and acquisition retries.
type RedisOptions struct {
	Scope      string
	TTL        time.Duration
	Retries    uint64
	RetryDelay time.Duration
}

// NewRedisLocker constructs a Redis-backed locker.
func NewRedisLocker(store redis.LockStore, opts RedisOptions) (*RedisLocker, error) {
	if store == nil {
		return nil, errors.New("redis store required for locker")
	}
	if opts.Scope == "" {
		return nil, errors.New("lock scope is required")
	}
	if opts.TTL <= 0 {
		opts.TTL = defaultLockTTL
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = 25 * time.Millisecond
	}
	return &RedisLocker{
		store:   store,
		scope:   opts.Scope,
		ttl:     opts.TTL,
		retries: opts.Retries,
		delay:   opts.RetryDelay,
	}, nil
}

// Acquire tries to own key, retrying a bounded number of times.
func (l *RedisLocker) Acquire(ctx context.Context, key string) (ReleaseFunc, error) {
	if key == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "lock key is required")
	}
	owner := uuid.NewString()
	lockKey := l.store.LockKey(l.scope, key)

	backoff := retry.WithMaxRetries(l.retries, retry.NewConstant(l.delay))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		ok, err := l.store.SetNX(ctx, lockKey, owner, l.ttl)
		if err != nil {
			return fmt.Errorf("setnx: %w", err)
		}
		if !ok {
			return retry.RetryableError(ErrLockBusy)
		}
		return nil
	})
	if err != nil {
		return nil, acquireError(err)
	}

	var once sync.Once
	return func(ctx context.Context) error {
		var relErr error
		once.Do(func() {
			if _, err := l.store.CompareAndDelete(ctx, lockKey, owner); err != nil {
				relErr = fmt.Errorf("release lock %s: %w", lockKey, err)
			}
		})
		return relErr
	}, nil
}

// LocalLocker implements Locker with one buffered channel per key. It only
// serialises callers inside the current process.
type LocalLocker struct {
	mu      sync.Mutex
	slots   map[string]*slot
	maxWait time.Duration
}

type slot struct {
	ch   chan struct{}
	refs int
}

// NewLocalLocker builds an in-process locker that waits at most maxWait.
func NewLocalLocker(maxWait time.Duration) *LocalLocker {
	if maxWait <= 0 {
		maxWait = time.Second
	}
	return &LocalLocker{slots: make(map[string]*slot), maxWait: maxWait}
}

// Acquire blocks until key is free, maxWait elapses or ctx ends.
func (l *LocalLocker) Acquire(ctx context.Context, key string) (ReleaseFunc, error) {
	if key == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "lock key is required")
	}
	s := l.ref(key)

	timer := time.NewTimer(l.maxWait)
	defer timer.Stop()

	select {
	case s.ch <- struct{}{}:
		var once sync.Once
		return func(context.Context) error {
			once.Do(func() {
				<-s.ch
				l.unref(key, s)
			})
			return nil
		}, nil
	case <-ctx.Done():
		l.unref(key, s)
		return nil, acquireError(ctx.Err())
	case <-timer.C:
		l.unref(key, s)
		return nil, acquireError(ErrLockBusy)
	}
}

func (l *LocalLocker) ref(key string) *slot {
	l.mu.Lock()
	defer l.mu.Unlock()
	s, ok := l.slots[key]
	if !ok {
		s = &slot{ch: make(chan struct{}, 1)}
		l.slots[key] = s
	}
	s.refs++
	return s
}

func (l *LocalLocker) unref(key string, s *slot) {
	l.mu.Lock()
	defer l.mu.Unlock()
	s.refs--
	if s.refs == 0 {
		delete(l.slots, key)
	}
}

func acquireError(err error) error {
	switch {
	case errors.Is(err, ErrLockBusy):
		return pkgerrors.Wrap(pkgerrors.CodeConcurrencyConflict, err, "resource is locked by a concurrent request")
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock acquisition interrupted")
	default:
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock backend unavailable")
	}
}
