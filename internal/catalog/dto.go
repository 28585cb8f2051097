package catalog

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// CategoryDTO is one catalog category with the number of active products in it.
type CategoryDTO struct {
	Name         string `json:"name"`
	ProductCount int64  `json:"product_count"`
}

// ProductFilters captures the listing query parameters.
type ProductFilters struct {
	Category      string
	Query         string
	MinPriceCents *int64
	MaxPriceCents *int64
	InStock       bool
	Sort          enums.ProductSort
}

// PageParams selects either keyset (newest) or numbered paging.
type PageParams struct {
	Limit  int
	Cursor string
	Page   int
}

// ProductSummary is the listing card for a product.
type ProductSummary struct {
	ID            uuid.UUID `json:"id"`
	Handle        string    `json:"handle"`
	Title         string    `json:"title"`
	Category      string    `json:"category"`
	Vendor        *string   `json:"vendor,omitempty"`
	MinPriceCents int64     `json:"min_price_cents"`
	MaxPriceCents int64     `json:"max_price_cents"`
	InStock       bool      `json:"in_stock"`
	ThumbnailURL  *string   `json:"thumbnail_url,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// ProductListDTO is the listing response. NextCursor is set for newest-first
// listings, NextPage for the other sorts.
type ProductListDTO struct {
	Items      []ProductSummary `json:"items"`
	NextCursor string           `json:"next_cursor,omitempty"`
	NextPage   int              `json:"next_page,omitempty"`
}

type VariantDTO struct {
	ID                uuid.UUID `json:"id"`
	SKU               string    `json:"sku"`
	Title             string    `json:"title"`
	PriceCents        int64     `json:"price_cents"`
	Currency          string    `json:"currency"`
	InventoryQuantity int       `json:"inventory_quantity"`
	InStock           bool      `json:"in_stock"`
}

type ImageDTO struct {
	URL      string `json:"url"`
	AltText  string `json:"alt_text"`
	Position int    `json:"position"`
}

// RatingSummary aggregates review ratings for a product.
type RatingSummary struct {
	AverageRating decimal.Decimal `json:"average_rating"`
	ReviewCount   int64           `json:"review_count"`
}

// ProductDetailDTO is the product page payload.
type ProductDetailDTO struct {
	ID          uuid.UUID     `json:"id"`
	Handle      string        `json:"handle"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Category    string        `json:"category"`
	Vendor      *string       `json:"vendor,omitempty"`
	Variants    []VariantDTO  `json:"variants"`
	Images      []ImageDTO    `json:"images"`
	Rating      RatingSummary `json:"rating"`
	CreatedAt   time.Time     `json:"created_at"`
}

type productSummaryRecord struct {
	ID            uuid.UUID
	Handle        string
	Title         string
	Category      string
	Vendor        *string
	MinPriceCents *int64
	MaxPriceCents *int64
	TotalStock    int64
	ThumbnailURL  *string
	CreatedAt     time.Time
}

func (r productSummaryRecord) toDTO() ProductSummary {
	summary := ProductSummary{
		ID:           r.ID,
		Handle:       r.Handle,
		Title:        r.Title,
		Category:     r.Category,
		Vendor:       r.Vendor,
		InStock:      r.TotalStock > 0,
		ThumbnailURL: r.ThumbnailURL,
		CreatedAt:    r.CreatedAt,
	}
	if r.MinPriceCents != nil {
		summary.MinPriceCents = *r.MinPriceCents
	}
	if r.MaxPriceCents != nil {
		summary.MaxPriceCents = *r.MaxPriceCents
	}
	return summary
}

func detailFromModel(p *models.Product, rating RatingSummary) ProductDetailDTO {
	detail := ProductDetailDTO{
		ID:          p.ID,
		Handle:      p.Handle,
		Title:       p.Title,
		Description: p.Description,
		Category:    p.Category,
		Vendor:      p.Vendor,
		Variants:    make([]VariantDTO, 0, len(p.Variants)),
		Images:      make([]ImageDTO, 0, len(p.Images)),
		Rating:      rating,
		CreatedAt:   p.CreatedAt,
	}
	for _, v := range p.Variants {
		detail.Variants = append(detail.Variants, VariantDTO{
			ID:                v.ID,
			SKU:               v.SKU,
			Title:             v.Title,
			PriceCents:        int64(v.PriceCents),
			Currency:          v.Currency,
			InventoryQuantity: v.InventoryQuantity,
			InStock:           v.InventoryQuantity > 0,
		})
	}
	for _, img := range p.Images {
		detail.Images = append(detail.Images, ImageDTO{URL: img.URL, AltText: img.AltText, Position: img.Position})
	}
	return detail
}
