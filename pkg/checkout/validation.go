package checkout

import (
	"fmt"

	"github.com/google/uuid"

	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

// StockValidationInput describes the data required to verify a line item against inventory.
type StockValidationInput struct {
	VariantID    uuid.UUID
	ProductTitle string
	Available    int
	Quantity     int
}

// StockViolationDetail exposes the data returned to callers when a validation fails.
type StockViolationDetail struct {
	VariantID    uuid.UUID `json:"variant_id"`
	ProductTitle string    `json:"product_title,omitempty"`
	AvailableQty int       `json:"available_qty"`
	RequestedQty int       `json:"requested_qty"`
}

// ValidateStock ensures no line item asks for more units than the variant has on hand.
func ValidateStock(items []StockValidationInput) error {
	var violations []StockViolationDetail
	for _, item := range items {
		available := item.Available
		if available < 0 {
			available = 0
		}
		if item.Quantity > available {
			violations = append(violations, StockViolationDetail{
				VariantID:    item.VariantID,
				ProductTitle: item.ProductTitle,
				AvailableQty: available,
				RequestedQty: item.Quantity,
			})
		}
	}
	if len(violations) == 0 {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("insufficient stock for %d item(s)", len(violations))).WithDetails(map[string]any{
		"violations": violations,
	})
}
