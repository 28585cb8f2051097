package cart

import (
	"github.com/google/uuid"

	cartsvc "github.com/angelmondragon/storefront-backend/internal/cart"
)

type addItemRequest struct {
	VariantID uuid.UUID `json:"variant_id" validate:"required"`
	Quantity  int       `json:"quantity" validate:"required,min=1,max=10"`
}

type updateItemRequest struct {
	Quantity int `json:"quantity" validate:"required"`
}

type mergeItemPayload struct {
	VariantID uuid.UUID `json:"variant_id" validate:"required"`
	Quantity  int       `json:"quantity" validate:"required,min=1"`
}

// mergeCartRequest is the guest cart kept by the client before sign-in.
type mergeCartRequest struct {
	Items []mergeItemPayload `json:"items" validate:"required,max=100,dive"`
}

func (m mergeCartRequest) toInput() []cartsvc.MergeItemInput {
	items := make([]cartsvc.MergeItemInput, 0, len(m.Items))
	for _, item := range m.Items {
		items = append(items, cartsvc.MergeItemInput{VariantID: item.VariantID, Quantity: item.Quantity})
	}
	return items
}
