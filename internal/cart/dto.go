package cart

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/pricing"
)

// CartItemDTO is one priced line in the cart view.
type CartItemDTO struct {
	VariantID      uuid.UUID `json:"variant_id"`
	ProductID      uuid.UUID `json:"product_id"`
	ProductTitle   string    `json:"product_title"`
	VariantTitle   string    `json:"variant_title"`
	SKU            string    `json:"sku"`
	UnitPriceCents int64     `json:"unit_price_cents"`
	Quantity       int       `json:"quantity"`
	LineTotalCents int64     `json:"line_total_cents"`
	Available      int       `json:"available"`
}

// CartDTO is the cart with computed totals.
type CartDTO struct {
	ID       uuid.UUID      `json:"id"`
	Items    []CartItemDTO  `json:"items"`
	Currency string         `json:"currency"`
	Totals   pricing.Totals `json:"totals"`
}

// MergeItemInput is one line of a guest cart kept on the client.
type MergeItemInput struct {
	VariantID uuid.UUID
	Quantity  int
}

// ClampedItemDTO reports a merged line whose quantity hit the per-item cap.
type ClampedItemDTO struct {
	VariantID uuid.UUID `json:"variant_id"`
	Requested int       `json:"requested"`
	Quantity  int       `json:"quantity"`
}

// MergeResultDTO is the reconciled cart plus the lines that were clamped.
type MergeResultDTO struct {
	Cart    CartDTO          `json:"cart"`
	Clamped []ClampedItemDTO `json:"clamped"`
}

func buildCartDTO(cart *models.Cart, items []models.CartItem, taxRate decimal.Decimal, defaultCurrency string) CartDTO {
	dto := CartDTO{
		ID:       cart.ID,
		Items:    make([]CartItemDTO, 0, len(items)),
		Currency: defaultCurrency,
	}
	lines := make([]pricing.Line, 0, len(items))
	for _, item := range items {
		line := CartItemDTO{VariantID: item.VariantID, Quantity: item.Quantity}
		if v := item.Variant; v != nil {
			line.ProductID = v.ProductID
			line.VariantTitle = v.Title
			line.SKU = v.SKU
			line.UnitPriceCents = int64(v.PriceCents)
			line.Available = v.InventoryQuantity
			if v.Currency != "" {
				dto.Currency = v.Currency
			}
			if v.Product != nil {
				line.ProductTitle = v.Product.Title
			}
		}
		line.LineTotalCents = pricing.LineTotal(line.UnitPriceCents, line.Quantity)
		dto.Items = append(dto.Items, line)
		lines = append(lines, pricing.Line{UnitPriceCents: line.UnitPriceCents, Quantity: line.Quantity})
	}
	dto.Totals = pricing.Compute(lines, taxRate)
	return dto
}
