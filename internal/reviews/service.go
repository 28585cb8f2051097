package reviews

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
	"github.com/angelmondragon/storefront-backend/pkg/pricing"
)

const (
	minRating = 1
	maxRating = 5
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type productChecker interface {
	ProductExists(ctx context.Context, id uuid.UUID) (bool, error)
}

// Service manages product reviews and helpful votes.
type Service interface {
	Submit(ctx context.Context, customerID uuid.UUID, input SubmitInput) (ReviewDTO, error)
	List(ctx context.Context, productID uuid.UUID, page, limit int) (ReviewListDTO, error)
	Vote(ctx context.Context, customerID, reviewID uuid.UUID) (ReviewDTO, error)
	Unvote(ctx context.Context, customerID, reviewID uuid.UUID) (ReviewDTO, error)
}

// ServiceParams groups dependencies for the reviews service.
type ServiceParams struct {
	Repo     *Repository
	Products productChecker
	Tx       txRunner
}

type service struct {
	repo     *Repository
	products productChecker
	tx       txRunner
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, errors.New("reviews repository required")
	}
	if params.Products == nil {
		return nil, errors.New("product checker required")
	}
	if params.Tx == nil {
		return nil, errors.New("transaction runner required")
	}
	return &service{repo: params.Repo, products: params.Products, tx: params.Tx}, nil
}

// Submit stores the customer's single review for a product.
func (s *service) Submit(ctx context.Context, customerID uuid.UUID, input SubmitInput) (ReviewDTO, error) {
	if customerID == uuid.Nil || input.ProductID == uuid.Nil {
		return ReviewDTO{}, pkgerrors.New(pkgerrors.CodeValidation, "customer id and product id are required")
	}
	if input.Rating < minRating || input.Rating > maxRating {
		return ReviewDTO{}, pkgerrors.Newf(pkgerrors.CodeValidation, "rating must be between %d and %d", minRating, maxRating)
	}
	exists, err := s.products.ProductExists(ctx, input.ProductID)
	if err != nil {
		return ReviewDTO{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	if !exists {
		return ReviewDTO{}, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}

	review := &models.Review{
		ProductID:  input.ProductID,
		CustomerID: customerID,
		Rating:     input.Rating,
		Title:      strings.TrimSpace(input.Title),
		Body:       strings.TrimSpace(input.Body),
	}
	if err := s.repo.Create(ctx, review); err != nil {
		if db.IsUniqueViolation(err, "") {
			return ReviewDTO{}, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "product already reviewed")
		}
		return ReviewDTO{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create review")
	}
	return toDTO(*review), nil
}

// List pages through a product's reviews, most helpful first.
func (s *service) List(ctx context.Context, productID uuid.UUID, page, limit int) (ReviewListDTO, error) {
	if productID == uuid.Nil {
		return ReviewListDTO{}, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	if page < 1 {
		page = 1
	}
	limit = pagination.NormalizeLimit(limit)

	rows, err := s.repo.ListForProduct(ctx, productID, (page-1)*limit, limit+1)
	if err != nil {
		return ReviewListDTO{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list reviews")
	}
	count, sum, err := s.repo.Totals(ctx, productID)
	if err != nil {
		return ReviewListDTO{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "summarize reviews")
	}

	result := ReviewListDTO{
		Items:   make([]ReviewDTO, 0, len(rows)),
		Summary: Summary{AverageRating: pricing.AverageRating(sum, count), ReviewCount: count},
	}
	if len(rows) > limit {
		rows = rows[:limit]
		result.NextPage = page + 1
	}
	for _, row := range rows {
		result.Items = append(result.Items, toDTO(row))
	}
	return result, nil
}

// Vote records one helpful vote per customer and bumps the counter in the same transaction.
func (s *service) Vote(ctx context.Context, customerID, reviewID uuid.UUID) (ReviewDTO, error) {
	return s.changeVote(ctx, customerID, reviewID, func(repo *Repository) error {
		if err := repo.CreateVote(ctx, reviewID, customerID); err != nil {
			if db.IsUniqueViolation(err, "") {
				return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "review already voted")
			}
			return err
		}
		return repo.AdjustVoteCount(ctx, reviewID, 1)
	})
}

func (s *service) Unvote(ctx context.Context, customerID, reviewID uuid.UUID) (ReviewDTO, error) {
	return s.changeVote(ctx, customerID, reviewID, func(repo *Repository) error {
		rows, err := repo.DeleteVote(ctx, reviewID, customerID)
		if err != nil {
			return err
		}
		if rows == 0 {
			return pkgerrors.New(pkgerrors.CodeNotFound, "vote not found")
		}
		return repo.AdjustVoteCount(ctx, reviewID, -1)
	})
}

func (s *service) changeVote(ctx context.Context, customerID, reviewID uuid.UUID, fn func(repo *Repository) error) (ReviewDTO, error) {
	if customerID == uuid.Nil || reviewID == uuid.Nil {
		return ReviewDTO{}, pkgerrors.New(pkgerrors.CodeValidation, "customer id and review id are required")
	}
	if _, err := s.repo.FindByID(ctx, reviewID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ReviewDTO{}, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "review not found")
		}
		return ReviewDTO{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load review")
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return fn(s.repo.WithTx(tx))
	})
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil {
			return ReviewDTO{}, typed
		}
		return ReviewDTO{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record vote")
	}

	updated, err := s.repo.FindByID(ctx, reviewID)
	if err != nil {
		return ReviewDTO{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload review")
	}
	return toDTO(*updated), nil
}
