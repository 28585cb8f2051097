package checkout

import (
	"time"

	"github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// SessionInput carries the redirect targets for a hosted session. Empty
// values fall back to the configured defaults.
type SessionInput struct {
	SuccessURL string
	CancelURL  string
}

// SessionDTO is returned when a payment session opens.
type SessionDTO struct {
	SessionID string     `json:"session_id"`
	URL       string     `json:"url"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// SetupSessionDTO is returned when a card-save session opens.
type SetupSessionDTO struct {
	SessionID string `json:"session_id"`
	URL       string `json:"url"`
}

// SessionStatusDTO is the poll response after the shopper is redirected back.
type SessionStatusDTO struct {
	SessionID     string                      `json:"session_id"`
	Status        enums.CheckoutSessionStatus `json:"status"`
	PaymentStatus string                      `json:"payment_status"`
	Order         *orders.OrderDTO            `json:"order,omitempty"`
}

// SetupSessionStatusDTO reports the provider state of a card-save session.
type SetupSessionStatusDTO struct {
	SessionID string `json:"session_id"`
	Status    string `json:"status"`
}
