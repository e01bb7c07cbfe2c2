package services

import "github.com/shopspring/decimal"

// VATRate is the fixed value-added tax rate applied to every invoice.
const VATRate = 0.20

var vatRate = decimal.NewFromFloat(VATRate)

// LineItem is the numeric part of an invoice line.
type LineItem struct {
	Quantity  float64
	UnitPrice float64
}

// Totals are the stored invoice amounts.
type Totals struct {
	Subtotal  float64 `json:"subtotal"`
	TaxAmount float64 `json:"tax_amount"`
	Total     float64 `json:"total"`
}

// CalculateTotals sums quantity*price over the items, applies VAT and rounds
// subtotal and tax to cents independently. Total is the sum of the two
// rounded amounts, so Total == Subtotal + TaxAmount always holds.
// Input is assumed validated.
func CalculateTotals(items []LineItem) Totals {
	subtotal := decimal.Zero
	for _, it := range items {
		subtotal = subtotal.Add(LineTotal(it.Quantity, it.UnitPrice))
	}
	tax := subtotal.Mul(vatRate)

	sub := subtotal.Round(2)
	vat := tax.Round(2)
	return Totals{
		Subtotal:  sub.InexactFloat64(),
		TaxAmount: vat.InexactFloat64(),
		Total:     sub.Add(vat).Round(2).InexactFloat64(),
	}
}

// LineTotal is quantity*unit price, unrounded.
func LineTotal(quantity, unitPrice float64) decimal.Decimal {
	return decimal.NewFromFloat(quantity).Mul(decimal.NewFromFloat(unitPrice))
}

// round2 rounds half away from zero to 2 decimal places.
func round2(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}
