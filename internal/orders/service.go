package orders

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
)

// Service exposes order history to customers.
type Service interface {
	List(ctx context.Context, customerID uuid.UUID, cursor string, limit int) (OrdersPageDTO, error)
	Get(ctx context.Context, customerID, orderID uuid.UUID) (OrderDTO, error)
}

type service struct {
	repo *Repository
}

// NewService builds the order history service.
func NewService(repo *Repository) (Service, error) {
	if repo == nil {
		return nil, errors.New("orders repository required")
	}
	return &service{repo: repo}, nil
}

// List returns the customer's fulfilled orders, newest first.
func (s *service) List(ctx context.Context, customerID uuid.UUID, cursor string, limit int) (OrdersPageDTO, error) {
	if customerID == uuid.Nil {
		return OrdersPageDTO{}, pkgerrors.New(pkgerrors.CodeValidation, "customer id is required")
	}
	decoded, err := pagination.ParseCursor(cursor)
	if err != nil {
		return OrdersPageDTO{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, err := s.repo.ListFulfilled(ctx, customerID, decoded, limit)
	if err != nil {
		return OrdersPageDTO{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	page := pagination.Build(rows, limit, func(o models.Order) pagination.Cursor {
		return pagination.Cursor{CreatedAt: o.CreatedAt, ID: o.ID}
	})
	result := OrdersPageDTO{Items: make([]OrderDTO, 0, len(page.Items)), NextCursor: page.NextCursor}
	for i := range page.Items {
		result.Items = append(result.Items, FromModel(&page.Items[i]))
	}
	return result, nil
}

// Get returns one fulfilled order. Orders of other customers are reported as missing.
func (s *service) Get(ctx context.Context, customerID, orderID uuid.UUID) (OrderDTO, error) {
	if customerID == uuid.Nil || orderID == uuid.Nil {
		return OrderDTO{}, pkgerrors.New(pkgerrors.CodeValidation, "customer id and order id are required")
	}
	order, err := s.repo.FindFulfilledForCustomer(ctx, customerID, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return OrderDTO{}, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "order not found")
		}
		return OrderDTO{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return FromModel(order), nil
}
