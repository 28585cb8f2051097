package favorites

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
)

// Repository encapsulates favorites persistence.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a favorites repository bound to the provided gorm DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// EnsureList returns the customer's favorites list, creating it on first use.
func (r *Repository) EnsureList(ctx context.Context, customerID uuid.UUID) (*models.Favorite, error) {
	var list models.Favorite
	err := r.db.WithContext(ctx).Where("customer_id = ?", customerID).First(&list).Error
	if err == nil {
		return &list, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	list = models.Favorite{CustomerID: customerID}
	err = r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "customer_id"}}, DoNothing: true}).
		Create(&list).Error
	if err != nil {
		return nil, err
	}
	// Reload so a concurrent insert that won the conflict is returned.
	if err := r.db.WithContext(ctx).Where("customer_id = ?", customerID).First(&list).Error; err != nil {
		return nil, err
	}
	return &list, nil
}

// ListItems returns favorites newest first, fetching one extra row to detect the next page.
func (r *Repository) ListItems(ctx context.Context, favoriteID uuid.UUID, cursor *pagination.Cursor, limit int) ([]models.FavoriteItem, error) {
	var items []models.FavoriteItem
	err := r.db.WithContext(ctx).
		Preload("Variant.Product").
		Where("favorite_id = ?", favoriteID).
		Scopes(pagination.Before(cursor, "")).
		Limit(pagination.LimitWithBuffer(limit)).
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

// Upsert inserts the item or overwrites its quantity when it already exists.
func (r *Repository) Upsert(ctx context.Context, favoriteID, variantID uuid.UUID, quantity int) (*models.FavoriteItem, error) {
	item := &models.FavoriteItem{FavoriteID: favoriteID, VariantID: variantID, Quantity: quantity}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "favorite_id"}, {Name: "variant_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"quantity", "updated_at"}),
		}).
		Create(item).Error
	if err != nil {
		return nil, err
	}
	return r.FindItem(ctx, favoriteID, variantID)
}

// FindItem loads one favorite line with its variant and product.
func (r *Repository) FindItem(ctx context.Context, favoriteID, variantID uuid.UUID) (*models.FavoriteItem, error) {
	var item models.FavoriteItem
	err := r.db.WithContext(ctx).
		Preload("Variant.Product").
		Where("favorite_id = ? AND variant_id = ?", favoriteID, variantID).
		First(&item).Error
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// SetQuantity overwrites the quantity and reports how many rows changed.
func (r *Repository) SetQuantity(ctx context.Context, favoriteID, variantID uuid.UUID, quantity int) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.FavoriteItem{}).
		Where("favorite_id = ? AND variant_id = ?", favoriteID, variantID).
		Updates(map[string]any{"quantity": quantity, "updated_at": time.Now().UTC()})
	return res.RowsAffected, res.Error
}

// Delete removes the favorite line and reports how many rows were deleted.
func (r *Repository) Delete(ctx context.Context, favoriteID, variantID uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("favorite_id = ? AND variant_id = ?", favoriteID, variantID).
		Delete(&models.FavoriteItem{})
	return res.RowsAffected, res.Error
}
