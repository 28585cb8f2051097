package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Review is a customer's rating of a product. One per customer and product.
type Review struct {
	ID         uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	ProductID  uuid.UUID `gorm:"column:product_id;type:uuid;not null;uniqueIndex:reviews_product_customer_key"`
	CustomerID uuid.UUID `gorm:"column:customer_id;type:uuid;not null;uniqueIndex:reviews_product_customer_key"`
	Rating     int       `gorm:"column:rating;not null"`
	Title      string    `gorm:"column:title;not null;default:''"`
	Body       string    `gorm:"column:body;not null;default:''"`
	VoteCount  int       `gorm:"column:vote_count;not null;default:0"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (r *Review) BeforeCreate(*gorm.DB) error {
	assignID(&r.ID)
	return nil
}

// ReviewVote records that a customer found a review helpful.
type ReviewVote struct {
	ReviewID   uuid.UUID `gorm:"column:review_id;type:uuid;primaryKey"`
	CustomerID uuid.UUID `gorm:"column:customer_id;type:uuid;primaryKey"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
}
