package orders

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// OrderLineItemDTO is the purchased snapshot of one cart line.
type OrderLineItemDTO struct {
	VariantID      uuid.UUID `json:"variant_id"`
	ProductTitle   string    `json:"product_title"`
	VariantTitle   string    `json:"variant_title"`
	SKU            string    `json:"sku"`
	UnitPriceCents int64     `json:"unit_price_cents"`
	Quantity       int       `json:"quantity"`
	LineTotalCents int64     `json:"line_total_cents"`
}

// OrderDTO is the customer-facing view of an order.
type OrderDTO struct {
	ID            uuid.UUID                   `json:"id"`
	SessionID     string                      `json:"session_id"`
	Status        enums.CheckoutSessionStatus `json:"status"`
	Currency      string                      `json:"currency"`
	SubtotalCents int64                       `json:"subtotal_cents"`
	TaxCents      int64                       `json:"tax_cents"`
	TotalCents    int64                       `json:"total_cents"`
	LineItems     []OrderLineItemDTO          `json:"line_items"`
	FulfilledAt   *time.Time                  `json:"fulfilled_at,omitempty"`
	CreatedAt     time.Time                   `json:"created_at"`
}

// OrdersPageDTO is one page of order history.
type OrdersPageDTO struct {
	Items      []OrderDTO `json:"items"`
	NextCursor string     `json:"next_cursor,omitempty"`
}

// FromModel maps an order row and its preloaded line items to the DTO.
func FromModel(order *models.Order) OrderDTO {
	dto := OrderDTO{
		ID:            order.ID,
		SessionID:     order.SessionID,
		Status:        order.Status,
		Currency:      order.Currency,
		SubtotalCents: int64(order.SubtotalCents),
		TaxCents:      int64(order.TaxCents),
		TotalCents:    int64(order.TotalCents),
		LineItems:     make([]OrderLineItemDTO, 0, len(order.LineItems)),
		FulfilledAt:   order.FulfilledAt,
		CreatedAt:     order.CreatedAt,
	}
	for _, item := range order.LineItems {
		dto.LineItems = append(dto.LineItems, OrderLineItemDTO{
			VariantID:      item.VariantID,
			ProductTitle:   item.ProductTitle,
			VariantTitle:   item.VariantTitle,
			SKU:            item.SKU,
			UnitPriceCents: int64(item.UnitPriceCents),
			Quantity:       item.Quantity,
			LineTotalCents: int64(item.LineTotalCents),
		})
	}
	return dto
}
