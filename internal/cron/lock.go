package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const defaultLockTTL = 4 * time.Minute

// Lock keeps concurrent cron workers from running the same cycle.
type Lock interface {
	Acquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}

type lockStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	DeleteIfEquals(ctx context.Context, key, value string) (bool, error)
}

// RedisLock holds a key whose value is "<holder>:<token>". A fresh token is
// minted per acquisition so a late release never frees a successor's lock.
type RedisLock struct {
	store  lockStore
	key    string
	holder string
	ttl    time.Duration
	token  string
}

func NewRedisLock(store lockStore, key, holder string, ttl time.Duration) (*RedisLock, error) {
	switch {
	case store == nil:
		return nil, errors.New("redis client required for lock")
	case key == "":
		return nil, errors.New("lock key is required")
	}
	lock := &RedisLock{store: store, key: key, holder: holder, ttl: ttl}
	if lock.holder == "" {
		lock.holder = "cron"
	}
	if lock.ttl <= 0 {
		lock.ttl = defaultLockTTL
	}
	return lock, nil
}

// Acquire reports false without error when another holder has the key.
func (l *RedisLock) Acquire(ctx context.Context) (bool, error) {
	token := fmt.Sprintf("%s:%s", l.holder, uuid.NewString())
	won, err := l.store.SetNX(ctx, l.key, token, l.ttl)
	if err != nil {
		return false, fmt.Errorf("acquire %s: %w", l.key, err)
	}
	if won {
		l.token = token
	}
	return won, nil
}

// Release is a no-op unless this lock still owns the key.
func (l *RedisLock) Release(ctx context.Context) error {
	if l.token == "" {
		return nil
	}
	token := l.token
	l.token = ""
	if _, err := l.store.DeleteIfEquals(ctx, l.key, token); err != nil {
		return fmt.Errorf("release %s: %w", l.key, err)
	}
	return nil
}
