package customers

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
)

// CustomerDTO is the account view returned to the customer.
type CustomerDTO struct {
	ID          uuid.UUID `json:"id"`
	Email       *string   `json:"email,omitempty"`
	DisplayName *string   `json:"display_name,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// EnsureCustomerInput carries the verified identity claims used to bootstrap a profile.
type EnsureCustomerInput struct {
	Subject string
	Email   string
	Name    string
}

// FromModel maps a customer row to its DTO.
func FromModel(m *models.Customer) CustomerDTO {
	return CustomerDTO{
		ID:          m.ID,
		Email:       m.Email,
		DisplayName: m.DisplayName,
		CreatedAt:   m.CreatedAt,
	}
}

func optionalString(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}
