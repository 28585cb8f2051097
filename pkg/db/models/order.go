package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// Order is written when a checkout session opens and becomes immutable once fulfilled.
type Order struct {
	ID               uuid.UUID                   `gorm:"column:id;type:uuid;primaryKey"`
	CustomerID       uuid.UUID                   `gorm:"column:customer_id;type:uuid;not null;index:orders_customer_id_idx"`
	CartID           uuid.UUID                   `gorm:"column:cart_id;type:uuid;not null"`
	SessionID        string                      `gorm:"column:session_id;not null;uniqueIndex:orders_session_id_key"`
	Status           enums.CheckoutSessionStatus `gorm:"column:status;type:checkout_session_status;not null;default:'created'"`
	Fulfilled        bool                        `gorm:"column:fulfilled;not null;default:false"`
	Currency         string                      `gorm:"column:currency;not null;default:'usd'"`
	SubtotalCents    int                         `gorm:"column:subtotal_cents;not null;default:0"`
	TaxCents         int                         `gorm:"column:tax_cents;not null;default:0"`
	TotalCents       int                         `gorm:"column:total_cents;not null;default:0"`
	SessionExpiresAt *time.Time                  `gorm:"column:session_expires_at"`
	FulfilledAt      *time.Time                  `gorm:"column:fulfilled_at"`
	ExpiredAt        *time.Time                  `gorm:"column:expired_at"`
	LineItems        []OrderLineItem             `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt        time.Time                   `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time                   `gorm:"column:updated_at;autoUpdateTime"`
}

func (o *Order) BeforeCreate(*gorm.DB) error {
	assignID(&o.ID)
	return nil
}

// OrderLineItem snapshots a cart line at checkout time.
type OrderLineItem struct {
	ID             uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	OrderID        uuid.UUID `gorm:"column:order_id;type:uuid;not null;index:order_line_items_order_id_idx"`
	VariantID      uuid.UUID `gorm:"column:variant_id;type:uuid;not null"`
	ProductTitle   string    `gorm:"column:product_title;not null"`
	VariantTitle   string    `gorm:"column:variant_title;not null"`
	SKU            string    `gorm:"column:sku;not null"`
	UnitPriceCents int       `gorm:"column:unit_price_cents;not null"`
	Quantity       int       `gorm:"column:quantity;not null"`
	LineTotalCents int       `gorm:"column:line_total_cents;not null"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (i *OrderLineItem) BeforeCreate(*gorm.DB) error {
	assignID(&i.ID)
	return nil
}
