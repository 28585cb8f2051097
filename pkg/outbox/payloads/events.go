package payloads

import (
	"time"

	"github.com/google/uuid"
)

// OrderLine is the per-variant snapshot carried on order events.
type OrderLine struct {
	VariantID      uuid.UUID `json:"variant_id"`
	SKU            string    `json:"sku"`
	Quantity       int       `json:"quantity"`
	UnitPriceCents int64     `json:"unit_price_cents"`
}

// OrderFulfilledEvent is emitted once per order when payment is confirmed.
type OrderFulfilledEvent struct {
	OrderID    uuid.UUID   `json:"order_id"`
	CustomerID uuid.UUID   `json:"customer_id"`
	SessionID  string      `json:"session_id"`
	Currency   string      `json:"currency"`
	TotalCents int64       `json:"total_cents"`
	Lines      []OrderLine `json:"lines"`
	PaidAt     time.Time   `json:"paid_at"`
}

// OrderExpiredEvent reports a checkout session that lapsed without payment.
type OrderExpiredEvent struct {
	OrderID    uuid.UUID `json:"order_id"`
	CustomerID uuid.UUID `json:"customer_id"`
	SessionID  string    `json:"session_id"`
	ExpiredAt  time.Time `json:"expired_at"`
}

// CustomerCreatedEvent announces a newly registered storefront customer.
type CustomerCreatedEvent struct {
	CustomerID       uuid.UUID `json:"customer_id"`
	Email            string    `json:"email,omitempty"`
	StripeCustomerID string    `json:"stripe_customer_id"`
}
