package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Product is the catalog entry browsed by shoppers.
type Product struct {
	ID          uuid.UUID        `gorm:"column:id;type:uuid;primaryKey"`
	Handle      string           `gorm:"column:handle;not null;uniqueIndex:products_handle_key"`
	Title       string           `gorm:"column:title;not null"`
	Description string           `gorm:"column:description;not null;default:''"`
	Category    string           `gorm:"column:category;not null;index:products_category_idx"`
	Vendor      *string          `gorm:"column:vendor"`
	IsActive    bool             `gorm:"column:is_active;not null"`
	Variants    []ProductVariant `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	Images      []ProductImage   `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	CreatedAt   time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *Product) BeforeCreate(*gorm.DB) error {
	assignID(&p.ID)
	return nil
}

// ProductVariant is the purchasable unit: price and stock live here.
type ProductVariant struct {
	ID                uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	ProductID         uuid.UUID `gorm:"column:product_id;type:uuid;not null;index:product_variants_product_id_idx"`
	SKU               string    `gorm:"column:sku;not null;uniqueIndex:product_variants_sku_key"`
	Title             string    `gorm:"column:title;not null"`
	PriceCents        int       `gorm:"column:price_cents;not null"`
	Currency          string    `gorm:"column:currency;not null;default:'usd'"`
	InventoryQuantity int       `gorm:"column:inventory_quantity;not null;default:0"`
	IsActive          bool      `gorm:"column:is_active;not null"`
	Product           *Product  `gorm:"foreignKey:ProductID"`
	CreatedAt         time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (v *ProductVariant) BeforeCreate(*gorm.DB) error {
	assignID(&v.ID)
	return nil
}

type ProductImage struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	ProductID uuid.UUID `gorm:"column:product_id;type:uuid;not null;index:product_images_product_id_idx"`
	URL       string    `gorm:"column:url;not null"`
	AltText   string    `gorm:"column:alt_text;not null;default:''"`
	Position  int       `gorm:"column:position;not null;default:0"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (i *ProductImage) BeforeCreate(*gorm.DB) error {
	assignID(&i.ID)
	return nil
}
