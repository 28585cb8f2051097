package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Customer links an identity provider subject to a Stripe customer.
type Customer struct {
	ID               uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	AuthSubject      string    `gorm:"column:auth_subject;not null;uniqueIndex:customers_auth_subject_key"`
	StripeCustomerID *string   `gorm:"column:stripe_customer_id;uniqueIndex:customers_stripe_customer_id_key"`
	Email            *string   `gorm:"column:email"`
	DisplayName      *string   `gorm:"column:display_name"`
	CreatedAt        time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (c *Customer) BeforeCreate(*gorm.DB) error {
	assignID(&c.ID)
	return nil
}
