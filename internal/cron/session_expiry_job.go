package cron

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	stripego "github.com/stripe/stripe-go/v84"
	"go.uber.org/multierr"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
)

const (
	sessionExpiryJobID       = "checkout-session-expiry"
	defaultExpiryBatchSize   = 100
	defaultExpiryGracePeriod = 2 * time.Minute
)

type settleOutcome int

const (
	settleNone settleOutcome = iota
	settleExpired
	settleFulfilled
)

type staleOrderReader interface {
	ListStaleOpen(ctx context.Context, cutoff time.Time, limit int) ([]models.Order, error)
}

type sessionRecorder interface {
	Fulfill(ctx context.Context, sessionID, source string) (*models.Order, bool, error)
	Expire(ctx context.Context, sessionID, source string) (bool, error)
}

type sessionProvider interface {
	GetCheckoutSession(ctx context.Context, sessionID string) (*stripego.CheckoutSession, error)
	ExpireCheckoutSession(ctx context.Context, sessionID string) (*stripego.CheckoutSession, error)
}

// SessionExpiryJobParams configure the abandoned-session sweeper.
type SessionExpiryJobParams struct {
	Logger      *logger.Logger
	Orders      staleOrderReader
	Checkout    sessionRecorder
	Stripe      sessionProvider
	BatchSize   int
	GracePeriod time.Duration
}

// NewSessionExpiryJob builds the job that settles open orders whose provider
// session has passed its expiry. A session that was paid while the webhook was
// missed is fulfilled instead of expired.
func NewSessionExpiryJob(params SessionExpiryJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders reader required")
	}
	if params.Checkout == nil {
		return nil, fmt.Errorf("checkout service required")
	}
	if params.Stripe == nil {
		return nil, fmt.Errorf("stripe client required")
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = defaultExpiryBatchSize
	}
	grace := params.GracePeriod
	if grace <= 0 {
		grace = defaultExpiryGracePeriod
	}
	return &sessionExpiryJob{
		logg:     params.Logger,
		orders:   params.Orders,
		checkout: params.Checkout,
		stripe:   params.Stripe,
		batch:    batch,
		grace:    grace,
		now:      time.Now,
	}, nil
}

type sessionExpiryJob struct {
	logg     *logger.Logger
	orders   staleOrderReader
	checkout sessionRecorder
	stripe   sessionProvider
	batch    int
	grace    time.Duration
	now      func() time.Time
}

func (j *sessionExpiryJob) Name() string { return sessionExpiryJobID }

func (j *sessionExpiryJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.grace)
	stale, err := j.orders.ListStaleOpen(ctx, cutoff, j.batch)
	if err != nil {
		return fmt.Errorf("list stale sessions: %w", err)
	}

	var (
		errs      error
		expired   int
		fulfilled int
	)
	for _, order := range stale {
		outcome, err := j.settle(ctx, order.SessionID)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("session %s: %w", order.SessionID, err))
			continue
		}
		switch outcome {
		case settleExpired:
			expired++
		case settleFulfilled:
			fulfilled++
		}
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":    cutoff,
		"scanned":   len(stale),
		"expired":   expired,
		"fulfilled": fulfilled,
		"failed":    len(multierr.Errors(errs)),
	})
	j.logg.Info(logCtx, "cron.session_expiry.complete")
	return errs
}

func (j *sessionExpiryJob) settle(ctx context.Context, sessionID string) (settleOutcome, error) {
	sess, err := j.stripe.GetCheckoutSession(ctx, sessionID)
	if err != nil {
		if !isMissingSession(err) {
			return settleNone, err
		}
		sess = nil
	}

	if sess != nil && sess.Status == stripego.CheckoutSessionStatusComplete &&
		(sess.PaymentStatus == stripego.CheckoutSessionPaymentStatusPaid ||
			sess.PaymentStatus == stripego.CheckoutSessionPaymentStatusNoPaymentRequired) {
		_, changed, err := j.checkout.Fulfill(ctx, sessionID, metrics.SourceSweeper)
		if err != nil || !changed {
			return settleNone, err
		}
		return settleFulfilled, nil
	}
	if sess != nil && sess.Status == stripego.CheckoutSessionStatusComplete {
		// Async payment still settling; the webhook decides the outcome.
		return settleNone, nil
	}

	if sess != nil && sess.Status == stripego.CheckoutSessionStatusOpen {
		if _, err := j.stripe.ExpireCheckoutSession(ctx, sessionID); err != nil && !isMissingSession(err) {
			return settleNone, err
		}
	}
	changed, err := j.checkout.Expire(ctx, sessionID, metrics.SourceSweeper)
	if err != nil || !changed {
		return settleNone, err
	}
	return settleExpired, nil
}

func isMissingSession(err error) bool {
	var stripeErr *stripego.Error
	return errors.As(err, &stripeErr) && stripeErr.HTTPStatusCode == http.StatusNotFound
}
