package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCalculateTotals(t *testing.T) {
	tests := []struct {
		name  string
		items []LineItem
		want  Totals
	}{
		{
			name:  "two lines",
			items: []LineItem{{Quantity: 10, UnitPrice: 100}, {Quantity: 5, UnitPrice: 200}},
			want:  Totals{Subtotal: 2000, TaxAmount: 400, Total: 2400},
		},
		{
			name:  "empty",
			items: nil,
			want:  Totals{},
		},
		{
			name:  "fractional quantity",
			items: []LineItem{{Quantity: 1.5, UnitPrice: 33.33}},
			// 49.995 -> 50.00, tax 9.999 -> 10.00
			want: Totals{Subtotal: 50, TaxAmount: 10, Total: 60},
		},
		{
			name:  "independent rounding",
			items: []LineItem{{Quantity: 1, UnitPrice: 0.125}},
			// subtotal 0.125 -> 0.13, tax 0.025 -> 0.03, total is their sum
			want: Totals{Subtotal: 0.13, TaxAmount: 0.03, Total: 0.16},
		},
		{
			name:  "zero price line",
			items: []LineItem{{Quantity: 3, UnitPrice: 0}, {Quantity: 2, UnitPrice: 12.5}},
			want:  Totals{Subtotal: 25, TaxAmount: 5, Total: 30},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CalculateTotals(tt.items)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCalculateTotals_TotalIsSumOfRoundedParts(t *testing.T) {
	prices := []float64{0.01, 0.05, 0.125, 1.115, 19.99, 333.333, 1234.565}
	for _, p := range prices {
		for q := 1.0; q <= 7; q++ {
			got := CalculateTotals([]LineItem{{Quantity: q, UnitPrice: p}})
			assert.Equal(t, round2(got.Subtotal+got.TaxAmount), got.Total, "qty=%v price=%v", q, p)
		}
	}
}
