package stripewebhook

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"
)

type memoryStore struct {
	mu   sync.Mutex
	data map[string]string
	ttls map[string]time.Duration
}

func newMemoryStore() *memoryStore {
	return &memoryStore{data: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (s *memoryStore) Get(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data[key], nil
}

func (s *memoryStore) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = fmt.Sprint(value)
	s.ttls[key] = ttl
	return nil
}

func (s *memoryStore) SetNX(_ context.Context, key string, value any, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data[key]; ok {
		return false, nil
	}
	s.data[key] = fmt.Sprint(value)
	s.ttls[key] = ttl
	return true, nil
}

func (s *memoryStore) IdempotencyKey(scope, id string) string {
	return "sf:idempotency:" + scope + ":" + id
}

func (s *memoryStore) Del(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, key := range keys {
		delete(s.data, key)
		delete(s.ttls, key)
	}
	return nil
}

func TestIdempotencyGuardLifecycle(t *testing.T) {
	ctx := context.Background()
	store := newMemoryStore()
	guard, err := NewIdempotencyGuard(store, 72*time.Hour, "stripe-webhook")
	if err != nil {
		t.Fatalf("guard: %v", err)
	}
	key := store.IdempotencyKey("stripe-webhook", "evt_1")

	claimed, err := guard.Claim(ctx, "evt_1")
	if err != nil || !claimed {
		t.Fatalf("expected first claim to succeed, got %v %v", claimed, err)
	}
	if store.ttls[key] != defaultClaimTTL {
		t.Fatalf("expected claim ttl %s, got %s", defaultClaimTTL, store.ttls[key])
	}
	if claimed, _ := guard.Claim(ctx, "evt_1"); claimed {
		t.Fatalf("expected second claim to be rejected")
	}
	if processed, _ := guard.Processed(ctx, "evt_1"); processed {
		t.Fatalf("claimed event should not report processed")
	}

	if err := guard.Complete(ctx, "evt_1"); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if store.ttls[key] != 72*time.Hour {
		t.Fatalf("expected completed ttl 72h, got %s", store.ttls[key])
	}
	if processed, _ := guard.Processed(ctx, "evt_1"); !processed {
		t.Fatalf("expected completed event to report processed")
	}
}

func TestIdempotencyGuardReleaseAllowsRetry(t *testing.T) {
	ctx := context.Background()
	guard, err := NewIdempotencyGuard(newMemoryStore(), time.Hour, "stripe-webhook")
	if err != nil {
		t.Fatalf("guard: %v", err)
	}
	if claimed, _ := guard.Claim(ctx, "evt_2"); !claimed {
		t.Fatalf("expected claim")
	}
	if err := guard.Release(ctx, "evt_2"); err != nil {
		t.Fatalf("release: %v", err)
	}
	if claimed, _ := guard.Claim(ctx, "evt_2"); !claimed {
		t.Fatalf("expected claim after release")
	}
}

func TestIdempotencyGuardValidation(t *testing.T) {
	if _, err := NewIdempotencyGuard(nil, time.Hour, "scope"); err == nil {
		t.Fatalf("expected nil store to fail")
	}
	if _, err := NewIdempotencyGuard(newMemoryStore(), time.Hour, ""); err == nil {
		t.Fatalf("expected empty scope to fail")
	}
	guard, err := NewIdempotencyGuard(newMemoryStore(), time.Minute, "scope")
	if err != nil {
		t.Fatalf("guard: %v", err)
	}
	if guard.claimTTL != time.Minute {
		t.Fatalf("claim ttl should not exceed retention, got %s", guard.claimTTL)
	}
	if _, err := guard.Claim(context.Background(), ""); err == nil {
		t.Fatalf("expected empty event id to fail")
	}
}
