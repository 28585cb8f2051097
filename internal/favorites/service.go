package favorites

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/internal/catalog"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
)

// ServiceParams groups dependencies for the favorites service.
type ServiceParams struct {
	Repo     *Repository
	Variants catalog.VariantLookup
}

// Service exposes business rules for favorites management.
type Service interface {
	List(ctx context.Context, customerID uuid.UUID, cursor string, limit int) (FavoritesPageDTO, error)
	Add(ctx context.Context, customerID, variantID uuid.UUID, quantity int) (FavoriteItemDTO, error)
	UpdateQuantity(ctx context.Context, customerID, variantID uuid.UUID, quantity int) (FavoriteItemDTO, error)
	Remove(ctx context.Context, customerID, variantID uuid.UUID) error
}

type service struct {
	repo     *Repository
	variants catalog.VariantLookup
}

// NewService builds a favorites service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, errors.New("favorites repo is required")
	}
	if params.Variants == nil {
		return nil, errors.New("variant lookup is required")
	}
	return &service{repo: params.Repo, variants: params.Variants}, nil
}

func (s *service) List(ctx context.Context, customerID uuid.UUID, cursor string, limit int) (FavoritesPageDTO, error) {
	decoded, err := pagination.ParseCursor(cursor)
	if err != nil {
		return FavoritesPageDTO{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	list, err := s.list(ctx, customerID)
	if err != nil {
		return FavoritesPageDTO{}, err
	}
	rows, err := s.repo.ListItems(ctx, list.ID, decoded, limit)
	if err != nil {
		return FavoritesPageDTO{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list favorites")
	}

	page := pagination.Build(rows, limit, func(item models.FavoriteItem) pagination.Cursor {
		return pagination.Cursor{CreatedAt: item.CreatedAt, ID: item.ID}
	})
	result := FavoritesPageDTO{Items: make([]FavoriteItemDTO, 0, len(page.Items)), NextCursor: page.NextCursor}
	for _, item := range page.Items {
		result.Items = append(result.Items, itemToDTO(item))
	}
	return result, nil
}

// Add saves a variant, overwriting the quantity when it is already a favorite.
func (s *service) Add(ctx context.Context, customerID, variantID uuid.UUID, quantity int) (FavoriteItemDTO, error) {
	if variantID == uuid.Nil {
		return FavoriteItemDTO{}, pkgerrors.New(pkgerrors.CodeValidation, "variant id is required")
	}
	if quantity < 1 {
		return FavoriteItemDTO{}, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}
	if _, err := s.variants.FindActiveVariant(ctx, variantID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return FavoriteItemDTO{}, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "variant not found")
		}
		return FavoriteItemDTO{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load variant")
	}
	list, err := s.list(ctx, customerID)
	if err != nil {
		return FavoriteItemDTO{}, err
	}
	item, err := s.repo.Upsert(ctx, list.ID, variantID, quantity)
	if err != nil {
		return FavoriteItemDTO{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save favorite")
	}
	return itemToDTO(*item), nil
}

func (s *service) UpdateQuantity(ctx context.Context, customerID, variantID uuid.UUID, quantity int) (FavoriteItemDTO, error) {
	if quantity < 1 {
		return FavoriteItemDTO{}, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}
	list, err := s.list(ctx, customerID)
	if err != nil {
		return FavoriteItemDTO{}, err
	}
	rows, err := s.repo.SetQuantity(ctx, list.ID, variantID, quantity)
	if err != nil {
		return FavoriteItemDTO{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update favorite")
	}
	if rows == 0 {
		return FavoriteItemDTO{}, pkgerrors.New(pkgerrors.CodeNotFound, "favorite not found")
	}
	item, err := s.repo.FindItem(ctx, list.ID, variantID)
	if err != nil {
		return FavoriteItemDTO{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load favorite")
	}
	return itemToDTO(*item), nil
}

func (s *service) Remove(ctx context.Context, customerID, variantID uuid.UUID) error {
	list, err := s.list(ctx, customerID)
	if err != nil {
		return err
	}
	rows, err := s.repo.Delete(ctx, list.ID, variantID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "remove favorite")
	}
	if rows == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "favorite not found")
	}
	return nil
}

func (s *service) list(ctx context.Context, customerID uuid.UUID) (*models.Favorite, error) {
	if customerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer id is required")
	}
	list, err := s.repo.EnsureList(ctx, customerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load favorites")
	}
	return list, nil
}
