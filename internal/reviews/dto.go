package reviews

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
)

// SubmitInput is a new review for a product.
type SubmitInput struct {
	ProductID uuid.UUID
	Rating    int
	Title     string
	Body      string
}

type ReviewDTO struct {
	ID         uuid.UUID `json:"id"`
	ProductID  uuid.UUID `json:"product_id"`
	CustomerID uuid.UUID `json:"customer_id"`
	Rating     int       `json:"rating"`
	Title      string    `json:"title"`
	Body       string    `json:"body"`
	VoteCount  int       `json:"vote_count"`
	CreatedAt  time.Time `json:"created_at"`
}

// Summary is the aggregate rating of a product.
type Summary struct {
	AverageRating decimal.Decimal `json:"average_rating"`
	ReviewCount   int64           `json:"review_count"`
}

// ReviewListDTO is one page of reviews plus the product summary.
type ReviewListDTO struct {
	Items    []ReviewDTO `json:"items"`
	Summary  Summary     `json:"summary"`
	NextPage int         `json:"next_page,omitempty"`
}

func toDTO(r models.Review) ReviewDTO {
	return ReviewDTO{
		ID:         r.ID,
		ProductID:  r.ProductID,
		CustomerID: r.CustomerID,
		Rating:     r.Rating,
		Title:      r.Title,
		Body:       r.Body,
		VoteCount:  r.VoteCount,
		CreatedAt:  r.CreatedAt,
	}
}
