package reviews

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
)

// Repository persists reviews and helpful votes.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a reviews repository bound to db.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx binds the repository to a transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

func (r *Repository) Create(ctx context.Context, review *models.Review) error {
	return r.db.WithContext(ctx).Create(review).Error
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Review, error) {
	var review models.Review
	if err := r.db.WithContext(ctx).First(&review, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &review, nil
}

// ListForProduct orders by helpful votes, then newest.
func (r *Repository) ListForProduct(ctx context.Context, productID uuid.UUID, offset, limit int) ([]models.Review, error) {
	var rows []models.Review
	err := r.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Order("vote_count DESC").
		Order("created_at DESC").
		Order("id DESC").
		Offset(offset).
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// Totals returns the review count and rating sum for a product.
func (r *Repository) Totals(ctx context.Context, productID uuid.UUID) (count, sum int64, err error) {
	var row struct {
		ReviewCount int64
		RatingSum   int64
	}
	err = r.db.WithContext(ctx).
		Model(&models.Review{}).
		Select("COUNT(*) AS review_count, COALESCE(SUM(rating), 0) AS rating_sum").
		Where("product_id = ?", productID).
		Scan(&row).Error
	return row.ReviewCount, row.RatingSum, err
}

// CreateVote records a vote. The composite primary key rejects a second vote.
func (r *Repository) CreateVote(ctx context.Context, reviewID, customerID uuid.UUID) error {
	return r.db.WithContext(ctx).Create(&models.ReviewVote{ReviewID: reviewID, CustomerID: customerID}).Error
}

// DeleteVote removes a vote and reports how many rows were deleted.
func (r *Repository) DeleteVote(ctx context.Context, reviewID, customerID uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("review_id = ? AND customer_id = ?", reviewID, customerID).
		Delete(&models.ReviewVote{})
	return res.RowsAffected, res.Error
}

// AdjustVoteCount adds delta to the denormalized counter, never dropping below zero.
func (r *Repository) AdjustVoteCount(ctx context.Context, reviewID uuid.UUID, delta int) error {
	return r.db.WithContext(ctx).
		Model(&models.Review{}).
		Where("id = ?", reviewID).
		UpdateColumn("vote_count", gorm.Expr("CASE WHEN vote_count + ? < 0 THEN 0 ELSE vote_count + ? END", delta, delta)).
		Error
}
