package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Favorite is the single saved-for-later list owned by a customer.
type Favorite struct {
	ID         uuid.UUID      `gorm:"column:id;type:uuid;primaryKey"`
	CustomerID uuid.UUID      `gorm:"column:customer_id;type:uuid;not null;uniqueIndex:favorites_customer_id_key"`
	Items      []FavoriteItem `gorm:"foreignKey:FavoriteID;constraint:OnDelete:CASCADE"`
	CreatedAt  time.Time      `gorm:"column:created_at;autoCreateTime"`
}

func (f *Favorite) BeforeCreate(*gorm.DB) error {
	assignID(&f.ID)
	return nil
}

// FavoriteItem links a favorites list to a variant with a desired quantity.
type FavoriteItem struct {
	ID         uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	FavoriteID uuid.UUID       `gorm:"column:favorite_id;type:uuid;not null;uniqueIndex:favorite_items_favorite_variant_key"`
	VariantID  uuid.UUID       `gorm:"column:variant_id;type:uuid;not null;uniqueIndex:favorite_items_favorite_variant_key"`
	Quantity   int             `gorm:"column:quantity;not null;default:1"`
	Variant    *ProductVariant `gorm:"foreignKey:VariantID"`
	CreatedAt  time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (i *FavoriteItem) BeforeCreate(*gorm.DB) error {
	assignID(&i.ID)
	return nil
}
