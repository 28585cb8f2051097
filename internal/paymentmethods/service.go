package paymentmethods

import (
	"context"
	"errors"

	"github.com/google/uuid"
	stripego "github.com/stripe/stripe-go/v84"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/stripe"
)

// PaymentMethodDTO is a saved card as shown in account settings.
type PaymentMethodDTO struct {
	ID        string `json:"id"`
	Brand     string `json:"brand"`
	Last4     string `json:"last4"`
	ExpMonth  int64  `json:"exp_month"`
	ExpYear   int64  `json:"exp_year"`
	IsDefault bool   `json:"is_default"`
}

// Service lists the cards a customer has saved with Stripe.
type Service interface {
	List(ctx context.Context, customerID uuid.UUID) ([]PaymentMethodDTO, error)
}

type customerLoader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Customer, error)
}

// StripeCards is the slice of the Stripe client needed to read saved cards.
type StripeCards interface {
	GetCustomer(ctx context.Context, stripeCustomerID string) (*stripego.Customer, error)
	ListCardPaymentMethods(ctx context.Context, stripeCustomerID string) ([]*stripego.PaymentMethod, error)
}

// ServiceParams groups dependencies for the payment method service.
type ServiceParams struct {
	Customers customerLoader
	Stripe    StripeCards
}

type service struct {
	customers customerLoader
	stripe    StripeCards
}

// NewService constructs a payment method service.
func NewService(params ServiceParams) (Service, error) {
	if params.Customers == nil {
		return nil, errors.New("customer loader required")
	}
	if params.Stripe == nil {
		return nil, errors.New("stripe client required")
	}
	return &service{customers: params.Customers, stripe: params.Stripe}, nil
}

// List returns the customer's cards, flagging the invoice default.
func (s *service) List(ctx context.Context, customerID uuid.UUID) ([]PaymentMethodDTO, error) {
	customer, err := s.customers.GetByID(ctx, customerID)
	if err != nil {
		return nil, err
	}
	if customer.StripeCustomerID == nil || *customer.StripeCustomerID == "" {
		return []PaymentMethodDTO{}, nil
	}
	stripeCustomerID := *customer.StripeCustomerID

	stripeCustomer, err := s.stripe.GetCustomer(ctx, stripeCustomerID)
	if err != nil {
		return nil, stripe.WrapError(err, "load stripe customer")
	}
	defaultID := ""
	if settings := stripeCustomer.InvoiceSettings; settings != nil && settings.DefaultPaymentMethod != nil {
		defaultID = settings.DefaultPaymentMethod.ID
	}

	methods, err := s.stripe.ListCardPaymentMethods(ctx, stripeCustomerID)
	if err != nil {
		return nil, stripe.WrapError(err, "list payment methods")
	}
	result := make([]PaymentMethodDTO, 0, len(methods))
	for _, pm := range methods {
		if pm == nil || pm.Card == nil {
			continue
		}
		result = append(result, PaymentMethodDTO{
			ID:        pm.ID,
			Brand:     string(pm.Card.Brand),
			Last4:     pm.Card.Last4,
			ExpMonth:  pm.Card.ExpMonth,
			ExpYear:   pm.Card.ExpYear,
			IsDefault: pm.ID == defaultID,
		})
	}
	return result, nil
}
