package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/redis/go-redis/v9"
)

type memoryStore struct {
	values map[string]string
	evals  int
}

func newMemoryStore() *memoryStore {
	return &memoryStore{values: map[string]string{}}
}

func (m *memoryStore) Ping(context.Context) *redis.StatusCmd {
	return redis.NewStatusResult("PONG", nil)
}

func (m *memoryStore) Set(_ context.Context, key string, value any, _ time.Duration) *redis.StatusCmd {
	m.values[key] = value.(string)
	return redis.NewStatusResult("OK", nil)
}

func (m *memoryStore) Get(_ context.Context, key string) *redis.StringCmd {
	v, ok := m.values[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (m *memoryStore) SetNX(_ context.Context, key string, value any, _ time.Duration) *redis.BoolCmd {
	if _, ok := m.values[key]; ok {
		return redis.NewBoolResult(false, nil)
	}
	m.values[key] = value.(string)
	return redis.NewBoolResult(true, nil)
}

func (m *memoryStore) Del(_ context.Context, keys ...string) *redis.IntCmd {
	var n int64
	for _, k := range keys {
		if _, ok := m.values[k]; ok {
			delete(m.values, k)
			n++
		}
	}
	return redis.NewIntResult(n, nil)
}

// Eval only understands the compare-and-delete script.
func (m *memoryStore) Eval(_ context.Context, _ string, keys []string, args ...any) *redis.Cmd {
	m.evals++
	if v, ok := m.values[keys[0]]; ok && v == args[0].(string) {
		delete(m.values, keys[0])
		return redis.NewCmdResult(int64(1), nil)
	}
	return redis.NewCmdResult(int64(0), nil)
}

func TestSetNXAndDel(t *testing.T) {
	ctx := context.Background()
	c := &Client{store: newMemoryStore()}

	ok, err := c.SetNX(ctx, "k", "v", time.Minute)
	if err != nil || !ok {
		t.Fatalf("first SetNX should win, got %v %v", ok, err)
	}
	ok, _ = c.SetNX(ctx, "k", "v2", time.Minute)
	if ok {
		t.Fatalf("second SetNX should lose")
	}
	if err := c.Del(ctx, "k"); err != nil {
		t.Fatalf("Del: %v", err)
	}
	if _, err := c.Get(ctx, "k"); !errors.Is(err, redis.Nil) {
		t.Fatalf("expected redis.Nil after delete, got %v", err)
	}
}

func TestDeleteIfEqualsKeepsForeignValue(t *testing.T) {
	ctx := context.Background()
	store := newMemoryStore()
	c := &Client{store: store}
	store.values["lock"] = "owner-b"

	removed, err := c.DeleteIfEquals(ctx, "lock", "owner-a")
	if err != nil || removed {
		t.Fatalf("expected foreign value kept, got %v %v", removed, err)
	}
	removed, err = c.DeleteIfEquals(ctx, "lock", "owner-b")
	if err != nil || !removed {
		t.Fatalf("expected owner delete, got %v %v", removed, err)
	}
	if _, ok := store.values["lock"]; ok {
		t.Fatalf("lock key still present")
	}
	if store.evals != 2 {
		t.Fatalf("expected script evaluated twice, got %d", store.evals)
	}
}

func TestKeyBuilders(t *testing.T) {
	c := &Client{}
	if got := c.IdempotencyKey("stripe", "evt_1"); got != "sf:idempotency:stripe:evt_1" {
		t.Fatalf("unexpected key %q", got)
	}
	if got := c.LockKey("session-expiry", ""); got != "sf:lock:session-expiry" {
		t.Fatalf("unexpected key %q", got)
	}
	if got := c.LockKey(" cron-worker ", "prod"); got != "sf:lock:cron-worker:prod" {
		t.Fatalf("unexpected key %q", got)
	}
}

func TestUninitializedClient(t *testing.T) {
	c := &Client{}
	if err := c.Ping(context.Background()); !errors.Is(err, errNotInitialized) {
		t.Fatalf("expected not initialized error, got %v", err)
	}
	var nilClient *Client
	if _, err := nilClient.DeleteIfEquals(context.Background(), "k", "v"); !errors.Is(err, errNotInitialized) {
		t.Fatalf("expected not initialized error from nil client, got %v", err)
	}
	if err := nilClient.Close(); err != nil {
		t.Fatalf("close on nil client: %v", err)
	}
}

func TestOptionsFromConfig(t *testing.T) {
	if _, err := optionsFromConfig(config.RedisConfig{}); err == nil {
		t.Fatalf("expected error without url or address")
	}
	opts, err := optionsFromConfig(config.RedisConfig{URL: "redis://localhost:6379/2", PoolSize: 7})
	if err != nil {
		t.Fatalf("optionsFromConfig: %v", err)
	}
	if opts.DB != 2 || opts.PoolSize != 7 {
		t.Fatalf("unexpected options %+v", opts)
	}
}
