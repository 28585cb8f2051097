package catalog

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
)

const (
	minPriceColumn = "(SELECT MIN(v.price_cents) FROM product_variants v WHERE v.product_id = p.id AND v.is_active = ?) AS min_price_cents"
	maxPriceColumn = "(SELECT MAX(v.price_cents) FROM product_variants v WHERE v.product_id = p.id AND v.is_active = ?) AS max_price_cents"
	stockColumn    = "(SELECT COALESCE(SUM(v.inventory_quantity), 0) FROM product_variants v WHERE v.product_id = p.id AND v.is_active = ?) AS total_stock"
	thumbColumn    = "(SELECT i.url FROM product_images i WHERE i.product_id = p.id ORDER BY i.position ASC LIMIT 1) AS thumbnail_url"

	priceRangeClause = "EXISTS (SELECT 1 FROM product_variants v WHERE v.product_id = p.id AND v.is_active = ? AND v.price_cents >= ? AND v.price_cents <= ?)"
	inStockClause    = "EXISTS (SELECT 1 FROM product_variants v WHERE v.product_id = p.id AND v.is_active = ? AND v.inventory_quantity > 0)"

	activeProductJoin = "JOIN products ON products.id = product_variants.product_id AND products.is_active = ?"

	decrementStockExpr = "CASE WHEN inventory_quantity > ? THEN inventory_quantity - ? ELSE 0 END"

	unboundedPrice = int64(1) << 62
)

// Repository reads the product catalog.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a catalog repository bound to the provided DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx scopes the repository to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// ListCategories returns distinct categories of active products.
func (r *Repository) ListCategories(ctx context.Context) ([]CategoryDTO, error) {
	var rows []CategoryDTO
	err := r.db.WithContext(ctx).
		Table("products").
		Select("category AS name, COUNT(*) AS product_count").
		Where("is_active = ?", true).
		Group("category").
		Order("category ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	if rows == nil {
		rows = []CategoryDTO{}
	}
	return rows, nil
}

// ListProducts runs the filtered listing. Newest-first uses keyset paging on
// (created_at, id); the other sorts use LIMIT/OFFSET from page.
func (r *Repository) ListProducts(ctx context.Context, filters ProductFilters, page PageParams, cursor *pagination.Cursor) ([]productSummaryRecord, error) {
	query := r.db.WithContext(ctx).
		Table("products p").
		Select(strings.Join([]string{
			"p.id", "p.handle", "p.title", "p.category", "p.vendor", "p.created_at",
			minPriceColumn, maxPriceColumn, stockColumn, thumbColumn,
		}, ", "), true, true, true).
		Where("p.is_active = ?", true)

	if filters.Category != "" {
		query = query.Where("p.category = ?", filters.Category)
	}
	if q := strings.TrimSpace(filters.Query); q != "" {
		query = query.Where("LOWER(p.title) LIKE ?", "%"+strings.ToLower(q)+"%")
	}
	if filters.MinPriceCents != nil || filters.MaxPriceCents != nil {
		lower, upper := int64(0), unboundedPrice
		if filters.MinPriceCents != nil {
			lower = *filters.MinPriceCents
		}
		if filters.MaxPriceCents != nil {
			upper = *filters.MaxPriceCents
		}
		query = query.Where(priceRangeClause, true, lower, upper)
	}
	if filters.InStock {
		query = query.Where(inStockClause, true)
	}

	limit := pagination.LimitWithBuffer(page.Limit)
	switch filters.Sort {
	case enums.ProductSortPriceAsc:
		query = query.Order("min_price_cents ASC").Order("p.id ASC")
	case enums.ProductSortPriceDesc:
		query = query.Order("min_price_cents DESC").Order("p.id ASC")
	case enums.ProductSortTitle:
		query = query.Order("LOWER(p.title) ASC").Order("p.id ASC")
	default:
		query = query.Scopes(pagination.Before(cursor, "p"))
	}
	if filters.Sort != enums.ProductSortNewest && page.Page > 1 {
		query = query.Offset((page.Page - 1) * pagination.NormalizeLimit(page.Limit))
	}

	var records []productSummaryRecord
	if err := query.Limit(limit).Scan(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

// FindProduct loads an active product by id or handle with its active variants and images.
func (r *Repository) FindProduct(ctx context.Context, ref string) (*models.Product, error) {
	query := r.db.WithContext(ctx).
		Preload("Variants", func(db *gorm.DB) *gorm.DB {
			return db.Where("is_active = ?", true).Order("price_cents ASC").Order("id ASC")
		}).
		Preload("Images", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC").Order("id ASC")
		}).
		Where("is_active = ?", true)

	if id, err := uuid.Parse(ref); err == nil {
		query = query.Where("id = ?", id)
	} else {
		query = query.Where("handle = ?", ref)
	}

	var product models.Product
	if err := query.First(&product).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// ProductExists reports whether an active product with id exists.
func (r *Repository) ProductExists(ctx context.Context, id uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ? AND is_active = ?", id, true).
		Count(&count).Error
	return count > 0, err
}

// FindActiveVariant loads a purchasable variant with its product.
func (r *Repository) FindActiveVariant(ctx context.Context, id uuid.UUID) (*models.ProductVariant, error) {
	var variant models.ProductVariant
	err := r.db.WithContext(ctx).
		Preload("Product").
		Joins(activeProductJoin, true).
		Where("product_variants.id = ? AND product_variants.is_active = ?", id, true).
		First(&variant).Error
	if err != nil {
		return nil, err
	}
	return &variant, nil
}

// FindActiveVariants loads the purchasable subset of ids, keyed by variant id.
func (r *Repository) FindActiveVariants(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.ProductVariant, error) {
	found := make(map[uuid.UUID]models.ProductVariant, len(ids))
	if len(ids) == 0 {
		return found, nil
	}
	var variants []models.ProductVariant
	err := r.db.WithContext(ctx).
		Preload("Product").
		Joins(activeProductJoin, true).
		Where("product_variants.id IN ? AND product_variants.is_active = ?", ids, true).
		Find(&variants).Error
	if err != nil {
		return nil, err
	}
	for _, v := range variants {
		found[v.ID] = v
	}
	return found, nil
}

// DecrementStock removes quantity units from a variant, flooring at zero.
func (r *Repository) DecrementStock(ctx context.Context, variantID uuid.UUID, quantity int) error {
	if quantity <= 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&models.ProductVariant{}).
		Where("id = ?", variantID).
		Updates(map[string]any{
			"inventory_quantity": gorm.Expr(decrementStockExpr, quantity, quantity),
			"updated_at":         time.Now().UTC(),
		}).Error
}

// RatingTotals returns the review count and rating sum for a product.
func (r *Repository) RatingTotals(ctx context.Context, productID uuid.UUID) (count, sum int64, err error) {
	var row struct {
		ReviewCount int64
		RatingSum   int64
	}
	err = r.db.WithContext(ctx).
		Table("reviews").
		Select("COUNT(*) AS review_count, COALESCE(SUM(rating), 0) AS rating_sum").
		Where("product_id = ?", productID).
		Scan(&row).Error
	return row.ReviewCount, row.RatingSum, err
}
