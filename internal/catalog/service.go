package catalog

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
	"github.com/angelmondragon/storefront-backend/pkg/pricing"
)

// Service exposes catalog browsing.
type Service interface {
	ListCategories(ctx context.Context) ([]CategoryDTO, error)
	ListProducts(ctx context.Context, filters ProductFilters, page PageParams) (ProductListDTO, error)
	GetProduct(ctx context.Context, ref string) (ProductDetailDTO, error)
}

type service struct {
	repo *Repository
}

// NewService builds a catalog service backed by repo.
func NewService(repo *Repository) (Service, error) {
	if repo == nil {
		return nil, errors.New("catalog repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) ListCategories(ctx context.Context) ([]CategoryDTO, error) {
	categories, err := s.repo.ListCategories(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list categories")
	}
	return categories, nil
}

// ListProducts validates the filters and returns one page of product summaries.
func (s *service) ListProducts(ctx context.Context, filters ProductFilters, page PageParams) (ProductListDTO, error) {
	if filters.Sort == "" {
		filters.Sort = enums.ProductSortNewest
	}
	if !filters.Sort.IsValid() {
		return ProductListDTO{}, pkgerrors.Newf(pkgerrors.CodeValidation, "invalid sort %q", filters.Sort)
	}
	if filters.MinPriceCents != nil && *filters.MinPriceCents < 0 {
		return ProductListDTO{}, pkgerrors.New(pkgerrors.CodeValidation, "min_price must be non-negative")
	}
	if filters.MaxPriceCents != nil && *filters.MaxPriceCents < 0 {
		return ProductListDTO{}, pkgerrors.New(pkgerrors.CodeValidation, "max_price must be non-negative")
	}
	if filters.MinPriceCents != nil && filters.MaxPriceCents != nil && *filters.MinPriceCents > *filters.MaxPriceCents {
		return ProductListDTO{}, pkgerrors.New(pkgerrors.CodeValidation, "min_price must not exceed max_price")
	}
	if page.Page < 0 {
		return ProductListDTO{}, pkgerrors.New(pkgerrors.CodeValidation, "page must be positive")
	}
	filters.Category = strings.TrimSpace(filters.Category)

	var cursor *pagination.Cursor
	if filters.Sort == enums.ProductSortNewest {
		parsed, err := pagination.ParseCursor(page.Cursor)
		if err != nil {
			return ProductListDTO{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		cursor = parsed
	}

	records, err := s.repo.ListProducts(ctx, filters, page, cursor)
	if err != nil {
		return ProductListDTO{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list products")
	}

	limit := pagination.NormalizeLimit(page.Limit)
	result := ProductListDTO{Items: make([]ProductSummary, 0, len(records))}
	hasMore := len(records) > limit
	if hasMore {
		records = records[:limit]
	}
	for _, record := range records {
		result.Items = append(result.Items, record.toDTO())
	}
	if hasMore {
		if filters.Sort == enums.ProductSortNewest {
			last := records[len(records)-1]
			result.NextCursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
		} else {
			current := page.Page
			if current < 1 {
				current = 1
			}
			result.NextPage = current + 1
		}
	}
	return result, nil
}

// GetProduct returns the product page by id or handle.
func (s *service) GetProduct(ctx context.Context, ref string) (ProductDetailDTO, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ProductDetailDTO{}, pkgerrors.New(pkgerrors.CodeValidation, "product reference is required")
	}
	product, err := s.repo.FindProduct(ctx, ref)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ProductDetailDTO{}, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "product not found")
		}
		return ProductDetailDTO{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	count, sum, err := s.repo.RatingTotals(ctx, product.ID)
	if err != nil {
		return ProductDetailDTO{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load rating summary")
	}
	return detailFromModel(product, RatingSummary{
		AverageRating: pricing.AverageRating(sum, count),
		ReviewCount:   count,
	}), nil
}

// VariantLookup resolves purchasable variants for the cart and favorites services.
type VariantLookup interface {
	FindActiveVariant(ctx context.Context, id uuid.UUID) (*models.ProductVariant, error)
	FindActiveVariants(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.ProductVariant, error)
}

var _ VariantLookup = (*Repository)(nil)
