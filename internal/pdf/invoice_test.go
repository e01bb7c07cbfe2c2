package pdf

import (
	"bytes"
	"testing"
	"time"

	"github.com/diewo77/invoice-tracker/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleInvoice() *models.Invoice {
	due := time.Date(2025, 7, 15, 0, 0, 0, 0, time.UTC)
	return &models.Invoice{
		InvoiceNumber: "ACM-2025-0001",
		IssueDate:     time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC),
		DueDate:       &due,
		Agency:        &models.Agency{Name: "Acme Beograd", TaxID: "105123456", City: "Beograd", Country: "Srbija"},
		Client:        &models.Client{Name: "Globex Čačak", Email: "billing@globex.test"},
		Items: []models.InvoiceItem{
			{Product: &models.Product{Name: "Consulting", Unit: "hour"}, Quantity: 10, UnitPrice: 100, Total: 1000},
			{Description: "Travel", Quantity: 1, UnitPrice: 1300, Total: 1300},
		},
		Subtotal:  2300,
		TaxAmount: 460,
		Total:     2760,
		Notes:     "Thank you.",
	}
}

func TestRender(t *testing.T) {
	out, err := Render(sampleInvoice())
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF-")))
	assert.Greater(t, len(out), 1000)
}

func TestRender_Incomplete(t *testing.T) {
	inv := sampleInvoice()
	inv.Client = nil
	_, err := Render(inv)
	assert.ErrorIs(t, err, ErrIncomplete)
}

func TestMoney(t *testing.T) {
	cases := map[float64]string{
		0:          "0.00 RSD",
		12.5:       "12.50 RSD",
		999.999:    "1,000.00 RSD",
		1234567.89: "1,234,567.89 RSD",
		-4500:      "-4,500.00 RSD",
	}
	for in, want := range cases {
		assert.Equal(t, want, Money(in))
	}
}

func TestFilename(t *testing.T) {
	assert.Equal(t, "invoice-INV-2025-0007.pdf", Filename(&models.Invoice{InvoiceNumber: "INV-2025-0007"}))
}
