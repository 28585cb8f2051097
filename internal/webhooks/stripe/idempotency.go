package stripewebhook

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/angelmondragon/storefront-backend/pkg/redis"
)

const (
	claimValue     = "processing"
	processedValue = "processed"

	defaultClaimTTL = 5 * time.Minute
)

// IdempotencyGuard tracks Stripe event ids through claim, complete and release.
// A claim left behind by a crashed handler lapses after the claim TTL so the
// provider's next retry is processed; completed ids are remembered for ttl.
type IdempotencyGuard struct {
	store    redis.IdempotencyStore
	ttl      time.Duration
	claimTTL time.Duration
	scope    string
}

func NewIdempotencyGuard(store redis.IdempotencyStore, ttl time.Duration, scope string) (*IdempotencyGuard, error) {
	if store == nil {
		return nil, errors.New("idempotency store is required")
	}
	if ttl < 0 {
		return nil, errors.New("ttl must be non-negative")
	}
	if scope == "" {
		return nil, errors.New("scope is required")
	}
	claimTTL := defaultClaimTTL
	if ttl > 0 && ttl < claimTTL {
		claimTTL = ttl
	}
	return &IdempotencyGuard{
		store:    store,
		ttl:      ttl,
		claimTTL: claimTTL,
		scope:    scope,
	}, nil
}

// Claim reserves eventID for this delivery. It returns false when another
// delivery holds the claim or already completed the event.
func (g *IdempotencyGuard) Claim(ctx context.Context, eventID string) (bool, error) {
	key, err := g.key(eventID)
	if err != nil {
		return false, err
	}
	claimed, err := g.store.SetNX(ctx, key, claimValue, g.claimTTL)
	if err != nil {
		return false, fmt.Errorf("claim stripe event: %w", err)
	}
	return claimed, nil
}

// Complete marks eventID processed for the full retention window.
func (g *IdempotencyGuard) Complete(ctx context.Context, eventID string) error {
	key, err := g.key(eventID)
	if err != nil {
		return err
	}
	if err := g.store.Set(ctx, key, processedValue, g.ttl); err != nil {
		return fmt.Errorf("complete stripe event: %w", err)
	}
	return nil
}

// Release drops the claim so the provider's retry is processed.
func (g *IdempotencyGuard) Release(ctx context.Context, eventID string) error {
	key, err := g.key(eventID)
	if err != nil {
		return err
	}
	return g.store.Del(ctx, key)
}

// Processed reports whether eventID has been completed.
func (g *IdempotencyGuard) Processed(ctx context.Context, eventID string) (bool, error) {
	key, err := g.key(eventID)
	if err != nil {
		return false, err
	}
	value, err := g.store.Get(ctx, key)
	if errors.Is(err, goredis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read stripe event state: %w", err)
	}
	return value == processedValue, nil
}

func (g *IdempotencyGuard) key(eventID string) (string, error) {
	if eventID == "" {
		return "", errors.New("event id is required")
	}
	return g.store.IdempotencyKey(g.scope, eventID), nil
}
