package cart

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/internal/catalog"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

// MaxItemQuantity caps the units of a single variant in one cart.
const MaxItemQuantity = 10

const defaultCurrency = "usd"

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service exposes cart operations for the authenticated customer.
type Service interface {
	GetCart(ctx context.Context, customerID uuid.UUID) (CartDTO, error)
	AddItem(ctx context.Context, customerID, variantID uuid.UUID, quantity int) (CartDTO, error)
	UpdateItem(ctx context.Context, customerID, variantID uuid.UUID, quantity int) (CartDTO, error)
	RemoveItem(ctx context.Context, customerID, variantID uuid.UUID) (CartDTO, error)
	Clear(ctx context.Context, customerID uuid.UUID) error
	Merge(ctx context.Context, customerID uuid.UUID, items []MergeItemInput) (MergeResultDTO, error)
}

// ServiceParams groups dependencies for the cart service.
type ServiceParams struct {
	Repo     *Repository
	Variants catalog.VariantLookup
	Tx       txRunner
	TaxRate  decimal.Decimal
}

type service struct {
	repo     *Repository
	variants catalog.VariantLookup
	tx       txRunner
	taxRate  decimal.Decimal
}

// NewService builds a cart service backed by the provided stack.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if params.Variants == nil {
		return nil, fmt.Errorf("variant lookup required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.TaxRate.IsNegative() {
		return nil, fmt.Errorf("tax rate must be non-negative")
	}
	return &service{
		repo:     params.Repo,
		variants: params.Variants,
		tx:       params.Tx,
		taxRate:  params.TaxRate,
	}, nil
}

func (s *service) GetCart(ctx context.Context, customerID uuid.UUID) (CartDTO, error) {
	cart, err := s.activeCart(ctx, s.repo, customerID)
	if err != nil {
		return CartDTO{}, err
	}
	return s.view(ctx, cart)
}

// AddItem adds quantity units of a variant. The stored quantity is left
// unchanged when the new total would exceed MaxItemQuantity.
func (s *service) AddItem(ctx context.Context, customerID, variantID uuid.UUID, quantity int) (CartDTO, error) {
	if variantID == uuid.Nil {
		return CartDTO{}, pkgerrors.New(pkgerrors.CodeValidation, "variant id is required")
	}
	if quantity < 1 {
		return CartDTO{}, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}
	if quantity > MaxItemQuantity {
		return CartDTO{}, quantityCapError(0, quantity)
	}
	if err := s.ensureVariant(ctx, variantID); err != nil {
		return CartDTO{}, err
	}

	var cart *models.Cart
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		var err error
		cart, err = s.activeCart(ctx, repo, customerID)
		if err != nil {
			return err
		}

		existing, err := repo.FindItem(ctx, cart.ID, variantID)
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			return repo.CreateItem(ctx, &models.CartItem{CartID: cart.ID, VariantID: variantID, Quantity: quantity})
		case err != nil:
			return err
		}

		if quantity > MaxItemQuantity-existing.Quantity {
			return quantityCapError(existing.Quantity, quantity)
		}
		_, err = repo.SetQuantity(ctx, cart.ID, variantID, existing.Quantity+quantity)
		return err
	})
	if err != nil {
		return CartDTO{}, translate(err, "add cart item")
	}
	return s.view(ctx, cart)
}

// UpdateItem sets the quantity of an existing line.
func (s *service) UpdateItem(ctx context.Context, customerID, variantID uuid.UUID, quantity int) (CartDTO, error) {
	if quantity < 1 || quantity > MaxItemQuantity {
		return CartDTO{}, pkgerrors.Newf(pkgerrors.CodeValidation, "quantity must be between 1 and %d", MaxItemQuantity)
	}
	cart, err := s.activeCart(ctx, s.repo, customerID)
	if err != nil {
		return CartDTO{}, err
	}
	rows, err := s.repo.SetQuantity(ctx, cart.ID, variantID, quantity)
	if err != nil {
		return CartDTO{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update cart item")
	}
	if rows == 0 {
		return CartDTO{}, pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
	}
	return s.view(ctx, cart)
}

func (s *service) RemoveItem(ctx context.Context, customerID, variantID uuid.UUID) (CartDTO, error) {
	cart, err := s.activeCart(ctx, s.repo, customerID)
	if err != nil {
		return CartDTO{}, err
	}
	rows, err := s.repo.DeleteItem(ctx, cart.ID, variantID)
	if err != nil {
		return CartDTO{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "remove cart item")
	}
	if rows == 0 {
		return CartDTO{}, pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
	}
	return s.view(ctx, cart)
}

func (s *service) Clear(ctx context.Context, customerID uuid.UUID) error {
	cart, err := s.activeCart(ctx, s.repo, customerID)
	if err != nil {
		return err
	}
	if err := s.repo.ClearItems(ctx, cart.ID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear cart")
	}
	return nil
}

// Merge folds a guest cart into the server cart. Each variant ends at
// min(server + local, MaxItemQuantity); clamped lines are reported back.
func (s *service) Merge(ctx context.Context, customerID uuid.UUID, items []MergeItemInput) (MergeResultDTO, error) {
	if len(items) == 0 {
		return MergeResultDTO{}, pkgerrors.New(pkgerrors.CodeValidation, "items are required")
	}

	order := make([]uuid.UUID, 0, len(items))
	local := make(map[uuid.UUID]int, len(items))
	for _, item := range items {
		if item.VariantID == uuid.Nil || item.Quantity < 1 {
			return MergeResultDTO{}, pkgerrors.New(pkgerrors.CodeValidation, "each item needs a variant id and a quantity of at least 1")
		}
		if _, seen := local[item.VariantID]; !seen {
			order = append(order, item.VariantID)
		}
		local[item.VariantID] = capAdd(local[item.VariantID], item.Quantity)
	}

	found, err := s.variants.FindActiveVariants(ctx, order)
	if err != nil {
		return MergeResultDTO{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load variants")
	}
	var unknown []uuid.UUID
	for _, id := range order {
		if _, ok := found[id]; !ok {
			unknown = append(unknown, id)
		}
	}
	if len(unknown) > 0 {
		return MergeResultDTO{}, pkgerrors.New(pkgerrors.CodeValidation, "unknown variants in merge").
			WithDetails(map[string]any{"unknown_variant_ids": unknown})
	}

	var (
		cart    *models.Cart
		clamped = []ClampedItemDTO{}
	)
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		var err error
		cart, err = s.activeCart(ctx, repo, customerID)
		if err != nil {
			return err
		}
		for _, variantID := range order {
			existing, err := repo.FindItem(ctx, cart.ID, variantID)
			if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
			current := 0
			if existing != nil {
				current = existing.Quantity
			}
			requested := capAdd(current, local[variantID])
			quantity := requested
			if quantity > MaxItemQuantity {
				quantity = MaxItemQuantity
				clamped = append(clamped, ClampedItemDTO{VariantID: variantID, Requested: requested, Quantity: quantity})
			}
			if existing == nil {
				if err := repo.CreateItem(ctx, &models.CartItem{CartID: cart.ID, VariantID: variantID, Quantity: quantity}); err != nil {
					return err
				}
				continue
			}
			if quantity != current {
				if _, err := repo.SetQuantity(ctx, cart.ID, variantID, quantity); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return MergeResultDTO{}, translate(err, "merge cart")
	}

	view, err := s.view(ctx, cart)
	if err != nil {
		return MergeResultDTO{}, err
	}
	return MergeResultDTO{Cart: view, Clamped: clamped}, nil
}

// activeCart loads the customer's active cart, opening a fresh one after a
// previous cart was converted.
func (s *service) activeCart(ctx context.Context, repo *Repository, customerID uuid.UUID) (*models.Cart, error) {
	if customerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer id is required")
	}
	cart, err := repo.FindActive(ctx, customerID)
	if err == nil {
		return cart, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	cart, err = repo.Create(ctx, customerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create cart")
	}
	return cart, nil
}

func (s *service) ensureVariant(ctx context.Context, variantID uuid.UUID) error {
	if _, err := s.variants.FindActiveVariant(ctx, variantID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "variant not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load variant")
	}
	return nil
}

func (s *service) view(ctx context.Context, cart *models.Cart) (CartDTO, error) {
	items, err := s.repo.ListItems(ctx, cart.ID)
	if err != nil {
		return CartDTO{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart items")
	}
	return buildCartDTO(cart, items, s.taxRate, defaultCurrency), nil
}

// capAdd adds two non-negative quantities, saturating at math.MaxInt.
func capAdd(a, b int) int {
	if b > math.MaxInt-a {
		return math.MaxInt
	}
	return a + b
}

func quantityCapError(current, adding int) error {
	return pkgerrors.Newf(pkgerrors.CodeValidation, "quantity per item cannot exceed %d", MaxItemQuantity).
		WithDetails(map[string]any{
			"max_quantity":     MaxItemQuantity,
			"current_quantity": current,
			"requested_add":    adding,
		})
}

func translate(err error, msg string) error {
	if typed := pkgerrors.As(err); typed != nil {
		return typed
	}
	if db.IsUniqueViolation(err, "") {
		return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "cart changed concurrently, retry")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, msg)
}
