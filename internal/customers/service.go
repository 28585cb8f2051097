package customers

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	stripego "github.com/stripe/stripe-go/v84"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
	"github.com/angelmondragon/storefront-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/storefront-backend/pkg/stripe"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// StripeCustomers is the slice of the Stripe client needed to register customers.
type StripeCustomers interface {
	CreateCustomer(ctx context.Context, email, name, customerID string) (*stripego.Customer, error)
}

// Service manages storefront customer profiles.
type Service interface {
	EnsureCustomer(ctx context.Context, input EnsureCustomerInput) (CustomerDTO, bool, error)
	GetBySubject(ctx context.Context, subject string) (CustomerDTO, error)
	ResolveCustomerID(ctx context.Context, subject string) (uuid.UUID, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Customer, error)
	FindByStripeCustomerID(ctx context.Context, stripeCustomerID string) (*models.Customer, error)
}

// ServiceParams groups dependencies for the customers service.
type ServiceParams struct {
	Repo   *Repository
	Tx     txRunner
	Stripe StripeCustomers
	Outbox outbox.Emitter
	Logger *logger.Logger
}

type service struct {
	repo   *Repository
	tx     txRunner
	stripe StripeCustomers
	outbox outbox.Emitter
	logg   *logger.Logger
}

// NewService builds the customers service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, errors.New("customer repository required")
	}
	if params.Tx == nil {
		return nil, errors.New("transaction runner required")
	}
	if params.Stripe == nil {
		return nil, errors.New("stripe client required")
	}
	if params.Outbox == nil {
		return nil, errors.New("outbox emitter required")
	}
	return &service{
		repo:   params.Repo,
		tx:     params.Tx,
		stripe: params.Stripe,
		outbox: params.Outbox,
		logg:   params.Logger,
	}, nil
}

// EnsureCustomer returns the existing profile for the subject or creates one.
// The boolean reports whether a new customer was created.
func (s *service) EnsureCustomer(ctx context.Context, input EnsureCustomerInput) (CustomerDTO, bool, error) {
	subject := strings.TrimSpace(input.Subject)
	if subject == "" {
		return CustomerDTO{}, false, pkgerrors.New(pkgerrors.CodeValidation, "subject is required")
	}

	existing, err := s.repo.FindBySubject(ctx, subject)
	if err == nil {
		return FromModel(existing), false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return CustomerDTO{}, false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load customer")
	}

	email := strings.TrimSpace(input.Email)
	name := strings.TrimSpace(input.Name)
	customer := &models.Customer{
		ID:          uuid.New(),
		AuthSubject: subject,
		Email:       optionalString(email),
		DisplayName: optionalString(name),
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		stripeCustomer, err := s.stripe.CreateCustomer(ctx, email, name, customer.ID.String())
		if err != nil {
			return stripe.WrapError(err, "create stripe customer")
		}
		customer.StripeCustomerID = &stripeCustomer.ID

		if err := s.repo.WithTx(tx).Create(ctx, customer); err != nil {
			return err
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventCustomerCreated,
			AggregateType: enums.AggregateCustomer,
			AggregateID:   customer.ID,
			CustomerID:    &customer.ID,
			Data: payloads.CustomerCreatedEvent{
				CustomerID:       customer.ID,
				Email:            email,
				StripeCustomerID: stripeCustomer.ID,
			},
		})
	})
	if err != nil {
		if db.IsUniqueViolation(err, subjectConstraint) {
			// A concurrent request registered the same subject first.
			winner, findErr := s.repo.FindBySubject(ctx, subject)
			if findErr != nil {
				return CustomerDTO{}, false, pkgerrors.Wrap(pkgerrors.CodeDependency, findErr, "load customer")
			}
			return FromModel(winner), false, nil
		}
		if typed := pkgerrors.As(err); typed != nil {
			return CustomerDTO{}, false, typed
		}
		return CustomerDTO{}, false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create customer")
	}

	if s.logg != nil {
		s.logg.Info(s.logg.WithCustomerID(ctx, customer.ID.String()), "customer.created")
	}
	return FromModel(customer), true, nil
}

func (s *service) GetBySubject(ctx context.Context, subject string) (CustomerDTO, error) {
	customer, err := s.findBySubject(ctx, subject)
	if err != nil {
		return CustomerDTO{}, err
	}
	return FromModel(customer), nil
}

// ResolveCustomerID maps an auth subject to the customer id used by the rest of the API.
func (s *service) ResolveCustomerID(ctx context.Context, subject string) (uuid.UUID, error) {
	customer, err := s.findBySubject(ctx, subject)
	if err != nil {
		return uuid.Nil, err
	}
	return customer.ID, nil
}

func (s *service) GetByID(ctx context.Context, id uuid.UUID) (*models.Customer, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer id is required")
	}
	customer, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "customer not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load customer")
	}
	return customer, nil
}

func (s *service) FindByStripeCustomerID(ctx context.Context, stripeCustomerID string) (*models.Customer, error) {
	if strings.TrimSpace(stripeCustomerID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "stripe customer id is required")
	}
	customer, err := s.repo.FindByStripeCustomerID(ctx, stripeCustomerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "customer not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load customer")
	}
	return customer, nil
}

func (s *service) findBySubject(ctx context.Context, subject string) (*models.Customer, error) {
	subject = strings.TrimSpace(subject)
	if subject == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "subject is required")
	}
	customer, err := s.repo.FindBySubject(ctx, subject)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "customer not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load customer")
	}
	return customer, nil
}
