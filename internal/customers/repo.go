package customers

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

const subjectConstraint = "customers_auth_subject_key"

// Repository exposes customer persistence operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a customers repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx binds the repository to a transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// FindBySubject retrieves the customer linked to an identity provider subject.
func (r *Repository) FindBySubject(ctx context.Context, subject string) (*models.Customer, error) {
	var customer models.Customer
	if err := r.db.WithContext(ctx).Where("auth_subject = ?", subject).First(&customer).Error; err != nil {
		return nil, err
	}
	return &customer, nil
}

// FindByID loads a customer by id.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Customer, error) {
	var customer models.Customer
	if err := r.db.WithContext(ctx).First(&customer, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &customer, nil
}

// FindByStripeCustomerID resolves the storefront customer for a Stripe customer.
func (r *Repository) FindByStripeCustomerID(ctx context.Context, stripeCustomerID string) (*models.Customer, error) {
	var customer models.Customer
	if err := r.db.WithContext(ctx).Where("stripe_customer_id = ?", stripeCustomerID).First(&customer).Error; err != nil {
		return nil, err
	}
	return &customer, nil
}

// Create inserts the customer together with its empty active cart and favorites list.
func (r *Repository) Create(ctx context.Context, customer *models.Customer) error {
	db := r.db.WithContext(ctx)
	if err := db.Create(customer).Error; err != nil {
		return err
	}
	if err := db.Create(&models.Cart{CustomerID: customer.ID, Status: enums.CartStatusActive}).Error; err != nil {
		return err
	}
	return db.Create(&models.Favorite{CustomerID: customer.ID}).Error
}
