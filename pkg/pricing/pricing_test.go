package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestComputeAppliesTaxHalfUp(t *testing.T) {
	rate := decimal.RequireFromString("0.0825")
	// 1000 * 0.0825 = 82.5 rounds up to 83.
	got := Compute([]Line{{UnitPriceCents: 500, Quantity: 2}}, rate)
	want := Totals{SubtotalCents: 1000, TaxCents: 83, TotalCents: 1083}
	if got != want {
		t.Fatalf("Compute() = %+v, want %+v", got, want)
	}
}

func TestTaxRoundsDownBelowHalf(t *testing.T) {
	// 1999 * 0.07 = 139.93
	if got := Tax(1999, decimal.RequireFromString("0.07")); got != 140 {
		t.Fatalf("Tax() = %d, want 140", got)
	}
	// 1234 * 0.05 = 61.7
	if got := Tax(1234, decimal.RequireFromString("0.05")); got != 62 {
		t.Fatalf("Tax() = %d, want 62", got)
	}
	// 1001 * 0.1 = 100.1
	if got := Tax(1001, decimal.RequireFromString("0.1")); got != 100 {
		t.Fatalf("Tax() = %d, want 100", got)
	}
}

func TestComputeZeroRateAndEmpty(t *testing.T) {
	if got := Compute(nil, decimal.RequireFromString("0.2")); got != (Totals{}) {
		t.Fatalf("expected zero totals, got %+v", got)
	}
	got := Compute([]Line{{UnitPriceCents: 250, Quantity: 3}, {UnitPriceCents: 100, Quantity: 0}}, decimal.Zero)
	if got.SubtotalCents != 750 || got.TaxCents != 0 || got.TotalCents != 750 {
		t.Fatalf("unexpected totals %+v", got)
	}
}

func TestAverageRating(t *testing.T) {
	cases := []struct {
		sum, count int64
		want       string
	}{
		{13, 3, "4.33"},
		{14, 3, "4.67"},
		{5, 1, "5"},
		{9, 2, "4.5"},
		{0, 0, "0"},
	}
	for _, tc := range cases {
		got := AverageRating(tc.sum, tc.count)
		if !got.Equal(decimal.RequireFromString(tc.want)) {
			t.Fatalf("AverageRating(%d, %d) = %s, want %s", tc.sum, tc.count, got, tc.want)
		}
	}
}
