package stripe

import (
	"context"
	"strings"

	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/checkout/session"
	"github.com/stripe/stripe-go/v84/customer"
	"github.com/stripe/stripe-go/v84/paymentmethod"
	"github.com/stripe/stripe-go/v84/webhook"
)

// CreateCustomer registers a Stripe customer for the given storefront account.
func (c *Client) CreateCustomer(ctx context.Context, email, name, customerID string) (*stripe.Customer, error) {
	params := &stripe.CustomerParams{}
	params.Context = ctx
	if email = strings.TrimSpace(email); email != "" {
		params.Email = stripe.String(email)
	}
	if name = strings.TrimSpace(name); name != "" {
		params.Name = stripe.String(name)
	}
	params.AddMetadata("storefront_customer_id", customerID)
	return Call(c.breakerOrNil(), "stripe.customer.create", func() (*stripe.Customer, error) {
		return customer.New(params)
	})
}

// GetCustomer loads a Stripe customer including invoice settings.
func (c *Client) GetCustomer(ctx context.Context, stripeCustomerID string) (*stripe.Customer, error) {
	params := &stripe.CustomerParams{}
	params.Context = ctx
	params.AddExpand("invoice_settings.default_payment_method")
	return Call(c.breakerOrNil(), "stripe.customer.get", func() (*stripe.Customer, error) {
		return customer.Get(stripeCustomerID, params)
	})
}

// SetDefaultPaymentMethod marks paymentMethodID as the customer's invoice default.
func (c *Client) SetDefaultPaymentMethod(ctx context.Context, stripeCustomerID, paymentMethodID string) error {
	params := &stripe.CustomerParams{
		InvoiceSettings: &stripe.CustomerInvoiceSettingsParams{
			DefaultPaymentMethod: stripe.String(paymentMethodID),
		},
	}
	params.Context = ctx
	_, err := Call(c.breakerOrNil(), "stripe.customer.update", func() (*stripe.Customer, error) {
		return customer.Update(stripeCustomerID, params)
	})
	return err
}

// CreateCheckoutSession opens a hosted checkout session.
func (c *Client) CreateCheckoutSession(ctx context.Context, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	params.Context = ctx
	return Call(c.breakerOrNil(), "stripe.checkout_session.create", func() (*stripe.CheckoutSession, error) {
		return session.New(params)
	})
}

// GetCheckoutSession retrieves the current state of a checkout session.
func (c *Client) GetCheckoutSession(ctx context.Context, sessionID string) (*stripe.CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx
	return Call(c.breakerOrNil(), "stripe.checkout_session.get", func() (*stripe.CheckoutSession, error) {
		return session.Get(sessionID, params)
	})
}

// ExpireCheckoutSession closes an open session so it can no longer be paid.
func (c *Client) ExpireCheckoutSession(ctx context.Context, sessionID string) (*stripe.CheckoutSession, error) {
	params := &stripe.CheckoutSessionExpireParams{}
	params.Context = ctx
	return Call(c.breakerOrNil(), "stripe.checkout_session.expire", func() (*stripe.CheckoutSession, error) {
		return session.Expire(sessionID, params)
	})
}

// ListCardPaymentMethods returns every card attached to the customer.
func (c *Client) ListCardPaymentMethods(ctx context.Context, stripeCustomerID string) ([]*stripe.PaymentMethod, error) {
	return Call(c.breakerOrNil(), "stripe.payment_method.list", func() ([]*stripe.PaymentMethod, error) {
		params := &stripe.PaymentMethodListParams{
			Customer: stripe.String(stripeCustomerID),
			Type:     stripe.String(string(stripe.PaymentMethodTypeCard)),
		}
		params.Context = ctx
		iter := paymentmethod.List(params)
		methods := []*stripe.PaymentMethod{}
		for iter.Next() {
			methods = append(methods, iter.PaymentMethod())
		}
		if err := iter.Err(); err != nil {
			return nil, err
		}
		return methods, nil
	})
}

// ConstructEvent verifies the Stripe-Signature header and decodes the event.
func (c *Client) ConstructEvent(payload []byte, signature string) (stripe.Event, error) {
	return webhook.ConstructEventWithOptions(payload, signature, c.SigningSecret(), webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
}

// BreakerState exposes the breaker state for readiness reporting.
func (c *Client) BreakerState() string {
	return c.breakerOrNil().State()
}

func (c *Client) breakerOrNil() *Breaker {
	if c == nil {
		return nil
	}
	return c.breaker
}
