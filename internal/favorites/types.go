package favorites

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
)

// FavoriteItemDTO is a saved variant with the product data needed to render it.
type FavoriteItemDTO struct {
	VariantID    uuid.UUID `json:"variant_id"`
	ProductID    uuid.UUID `json:"product_id"`
	ProductTitle string    `json:"product_title"`
	VariantTitle string    `json:"variant_title"`
	PriceCents   int64     `json:"price_cents"`
	InStock      bool      `json:"in_stock"`
	Quantity     int       `json:"quantity"`
	CreatedAt    time.Time `json:"created_at"`
}

// FavoritesPageDTO returns a cursor-paginated favorites view.
type FavoritesPageDTO struct {
	Items      []FavoriteItemDTO `json:"items"`
	NextCursor string            `json:"next_cursor,omitempty"`
}

func itemToDTO(item models.FavoriteItem) FavoriteItemDTO {
	dto := FavoriteItemDTO{
		VariantID: item.VariantID,
		Quantity:  item.Quantity,
		CreatedAt: item.CreatedAt,
	}
	if v := item.Variant; v != nil {
		dto.ProductID = v.ProductID
		dto.VariantTitle = v.Title
		dto.PriceCents = int64(v.PriceCents)
		dto.InStock = v.IsActive && v.InventoryQuantity > 0
		if v.Product != nil {
			dto.ProductTitle = v.Product.Title
		}
	}
	return dto
}
