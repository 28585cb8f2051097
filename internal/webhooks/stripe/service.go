package stripewebhook

import (
	"context"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/stripe/stripe-go/v84"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	pkgstripe "github.com/angelmondragon/storefront-backend/pkg/stripe"
)

const (
	outcomeProcessed = "processed"
	outcomeIgnored   = "ignored"
	outcomeFailed    = "failed"
)

type sessionRecorder interface {
	Fulfill(ctx context.Context, sessionID, source string) (*models.Order, bool, error)
	Expire(ctx context.Context, sessionID, source string) (bool, error)
}

type customerFinder interface {
	FindByStripeCustomerID(ctx context.Context, stripeCustomerID string) (*models.Customer, error)
}

type defaultSetter interface {
	SetDefaultPaymentMethod(ctx context.Context, stripeCustomerID, paymentMethodID string) error
}

// ServiceParams groups dependencies for the webhook service.
type ServiceParams struct {
	Checkout  sessionRecorder
	Customers customerFinder
	Stripe    defaultSetter
	Metrics   *metrics.CheckoutMetrics
	Logger    *logger.Logger
}

// Service applies verified Stripe events to orders and saved cards.
type Service struct {
	checkout  sessionRecorder
	customers customerFinder
	stripe    defaultSetter
	metrics   *metrics.CheckoutMetrics
	logg      *logger.Logger
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Checkout == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "checkout service required")
	}
	if params.Customers == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "customer service required")
	}
	if params.Stripe == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "stripe client required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	return &Service{
		checkout:  params.Checkout,
		customers: params.Customers,
		stripe:    params.Stripe,
		metrics:   params.Metrics,
		logg:      params.Logger,
	}, nil
}

// HandleEvent dispatches on the event type. Unhandled types are acknowledged.
func (s *Service) HandleEvent(ctx context.Context, event *stripe.Event) error {
	if event == nil || event.Data == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "stripe event data required")
	}
	ctx = s.logg.WithFields(ctx, map[string]any{
		"stripe_event_id":   event.ID,
		"stripe_event_type": string(event.Type),
	})

	var err error
	outcome := outcomeProcessed
	switch event.Type {
	case stripe.EventTypeCheckoutSessionCompleted, stripe.EventTypeCheckoutSessionAsyncPaymentSucceeded:
		err = s.handlePaid(ctx, event)
	case stripe.EventTypeCheckoutSessionExpired:
		err = s.handleExpired(ctx, event)
	case stripe.EventTypeSetupIntentSucceeded:
		err = s.handleSetupIntent(ctx, event)
	default:
		outcome = outcomeIgnored
	}
	if err != nil {
		outcome = outcomeFailed
	}
	s.metrics.IncWebhookEvent(string(event.Type), outcome)
	return err
}

func (s *Service) handlePaid(ctx context.Context, event *stripe.Event) error {
	sess, err := decodeSession(event)
	if err != nil {
		return err
	}
	if sess.Mode != stripe.CheckoutSessionModePayment {
		return nil
	}
	if sess.PaymentStatus != stripe.CheckoutSessionPaymentStatusPaid &&
		sess.PaymentStatus != stripe.CheckoutSessionPaymentStatusNoPaymentRequired {
		s.logg.Info(ctx, "stripe.webhook.payment_pending")
		return nil
	}
	_, changed, err := s.checkout.Fulfill(ctx, sess.ID, metrics.SourceWebhook)
	if err != nil {
		return err
	}
	if !changed {
		s.logg.Debug(s.logg.WithField(ctx, "session_id", sess.ID), "stripe.webhook.already_fulfilled")
	}
	return nil
}

func (s *Service) handleExpired(ctx context.Context, event *stripe.Event) error {
	sess, err := decodeSession(event)
	if err != nil {
		return err
	}
	if sess.Mode != stripe.CheckoutSessionModePayment {
		return nil
	}
	_, err = s.checkout.Expire(ctx, sess.ID, metrics.SourceWebhook)
	return err
}

func (s *Service) handleSetupIntent(ctx context.Context, event *stripe.Event) error {
	var intent stripe.SetupIntent
	if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode setup intent event")
	}
	if intent.Customer == nil || intent.Customer.ID == "" || intent.PaymentMethod == nil || intent.PaymentMethod.ID == "" {
		s.logg.Warn(ctx, "stripe.webhook.setup_intent_incomplete")
		return nil
	}
	if _, err := s.customers.FindByStripeCustomerID(ctx, intent.Customer.ID); err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
			s.logg.Warn(s.logg.WithField(ctx, "stripe_customer_id", intent.Customer.ID), "stripe.webhook.unknown_customer")
			return nil
		}
		return err
	}
	if err := s.stripe.SetDefaultPaymentMethod(ctx, intent.Customer.ID, intent.PaymentMethod.ID); err != nil {
		return pkgstripe.WrapError(err, "set default payment method")
	}
	return nil
}

func decodeSession(event *stripe.Event) (*stripe.CheckoutSession, error) {
	var sess stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode checkout session event")
	}
	if sess.ID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("%s event missing session id", event.Type))
	}
	return &sess, nil
}
