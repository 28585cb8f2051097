// Package pricing holds the money arithmetic shared by cart, checkout and reviews.
// All amounts are integer minor units (cents); fractional results round half-up.
package pricing

import (
	"github.com/shopspring/decimal"
)

// Totals is the computed cost breakdown of a set of lines.
type Totals struct {
	SubtotalCents int64 `json:"subtotal_cents"`
	TaxCents      int64 `json:"tax_cents"`
	TotalCents    int64 `json:"total_cents"`
}

// Line is one priced quantity.
type Line struct {
	UnitPriceCents int64
	Quantity       int
}

// LineTotal multiplies a unit price by its quantity.
func LineTotal(unitPriceCents int64, quantity int) int64 {
	if quantity <= 0 {
		return 0
	}
	return unitPriceCents * int64(quantity)
}

// Compute sums the lines and applies rate, a fraction such as 0.0825.
func Compute(lines []Line, rate decimal.Decimal) Totals {
	var subtotal int64
	for _, line := range lines {
		subtotal += LineTotal(line.UnitPriceCents, line.Quantity)
	}
	tax := Tax(subtotal, rate)
	return Totals{
		SubtotalCents: subtotal,
		TaxCents:      tax,
		TotalCents:    subtotal + tax,
	}
}

// Tax returns round_half_up(subtotal * rate) in cents.
func Tax(subtotalCents int64, rate decimal.Decimal) int64 {
	if subtotalCents <= 0 || !rate.IsPositive() {
		return 0
	}
	return decimal.NewFromInt(subtotalCents).Mul(rate).Round(0).IntPart()
}

// AverageRating returns the mean of ratings rounded half-up to two places; zero when empty.
func AverageRating(ratingSum, count int64) decimal.Decimal {
	if count <= 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(ratingSum).Div(decimal.NewFromInt(count)).Round(2)
}
