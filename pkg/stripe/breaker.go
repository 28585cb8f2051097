package stripe

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
	"github.com/stripe/stripe-go/v84"

	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

const (
	defaultFailureThreshold = 5
	defaultOpenTimeout      = 30 * time.Second
)

// ErrUnavailable is returned while the breaker is open.
var ErrUnavailable = errors.New("stripe temporarily unavailable")

// Breaker guards outbound Stripe calls. Client-side errors (card declines,
// invalid requests) do not count toward tripping it.
type Breaker struct {
	cb *gobreaker.CircuitBreaker[any]
}

// NewBreaker builds a breaker that opens after threshold consecutive server-side failures.
func NewBreaker(name string, threshold uint32, openTimeout time.Duration, logg *logger.Logger) *Breaker {
	if threshold == 0 {
		threshold = defaultFailureThreshold
	}
	if openTimeout <= 0 {
		openTimeout = defaultOpenTimeout
	}
	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     openTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		IsSuccessful: func(err error) bool {
			return err == nil || isClientError(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			if logg == nil {
				return
			}
			ctx := logg.WithFields(context.Background(), map[string]any{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			})
			logg.Warn(ctx, "stripe.breaker.state_change")
		},
	}
	return &Breaker{cb: gobreaker.NewCircuitBreaker[any](settings)}
}

// State reports the breaker state for health endpoints.
func (b *Breaker) State() string {
	if b == nil {
		return gobreaker.StateClosed.String()
	}
	return b.cb.State().String()
}

// Call runs fn through the breaker and restores the concrete result type.
func Call[T any](b *Breaker, op string, fn func() (T, error)) (T, error) {
	var zero T
	if b == nil {
		return fn()
	}
	out, err := b.cb.Execute(func() (any, error) {
		return fn()
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return zero, fmt.Errorf("%s: %w", op, ErrUnavailable)
		}
		return zero, err
	}
	typed, ok := out.(T)
	if !ok {
		return zero, nil
	}
	return typed, nil
}

func isClientError(err error) bool {
	var stripeErr *stripe.Error
	if !errors.As(err, &stripeErr) {
		return false
	}
	return stripeErr.HTTPStatusCode >= http.StatusBadRequest && stripeErr.HTTPStatusCode < http.StatusInternalServerError
}
