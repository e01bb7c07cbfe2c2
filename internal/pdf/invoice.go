// Package pdf renders invoices as A4 PDF documents.
package pdf

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/diewo77/invoice-tracker/internal/models"
	"github.com/jung-kurt/gofpdf"
	"github.com/shopspring/decimal"
)

const (
	dateLayout = "02.01.2006"
	currency   = "RSD"
	lineHeight = 5.0
)

// column widths of the items table, in mm
var colWidths = []float64{10, 85, 25, 30, 30}

// ErrIncomplete is returned for invoices loaded without agency or client.
var ErrIncomplete = errors.New("invoice has no agency or client loaded")

// Filename is the download name for an invoice document.
func Filename(inv *models.Invoice) string {
	return "invoice-" + inv.InvoiceNumber + ".pdf"
}

// Render draws the invoice. Agency, Client and Items (with products, when
// linked) must be preloaded.
func Render(inv *models.Invoice) ([]byte, error) {
	if inv.Agency == nil || inv.Client == nil {
		return nil, ErrIncomplete
	}
	doc := gofpdf.New("P", "mm", "A4", "")
	tr := doc.UnicodeTranslatorFromDescriptor("")
	doc.SetTitle("Invoice "+inv.InvoiceNumber, true)
	doc.SetCreator("invoice-tracker", true)
	doc.SetCreationDate(inv.CreatedAt)
	doc.SetMargins(15, 15, 15)
	doc.AddPage()

	// header
	doc.SetFont("Helvetica", "B", 20)
	doc.CellFormat(90, 10, "INVOICE", "", 0, "L", false, 0, "")
	doc.SetFont("Helvetica", "", 10)
	meta := []string{
		"Number: " + inv.InvoiceNumber,
		"Issue date: " + inv.IssueDate.Format(dateLayout),
	}
	if inv.DueDate != nil {
		meta = append(meta, "Due date: "+inv.DueDate.Format(dateLayout))
	}
	doc.MultiCell(0, lineHeight, tr(strings.Join(meta, "\n")), "", "R", false)
	doc.Ln(6)

	// parties
	top := doc.GetY()
	party(doc, tr, 15, top, "From", partyLines(inv.Agency.Name, inv.Agency.TaxID, inv.Agency.Address,
		inv.Agency.ZipCode, inv.Agency.City, inv.Agency.Country, inv.Agency.Phone, inv.Agency.Email, inv.Agency.Website))
	bottom := doc.GetY()
	party(doc, tr, 110, top, "To", partyLines(inv.Client.Name, inv.Client.TaxID, inv.Client.Address,
		inv.Client.ZipCode, inv.Client.City, inv.Client.Country, inv.Client.Phone, inv.Client.Email, ""))
	doc.SetY(max(bottom, doc.GetY()) + 8)

	// items
	doc.SetFont("Helvetica", "B", 10)
	doc.SetFillColor(240, 240, 240)
	for i, h := range []string{"#", "Description", "Quantity", "Unit Price", "Total"} {
		align := "R"
		if i < 2 {
			align = "L"
		}
		doc.CellFormat(colWidths[i], 7, h, "B", 0, align, true, 0, "")
	}
	doc.Ln(-1)
	doc.SetFont("Helvetica", "", 10)
	for i, item := range inv.Items {
		qty := formatNumber(item.Quantity, 2)
		if item.Product != nil && item.Product.Unit != "" {
			qty += " " + item.Product.Unit
		}
		cells := []string{
			strconv.Itoa(i + 1),
			item.Label(),
			qty,
			Money(item.UnitPrice),
			Money(item.Total),
		}
		for j, c := range cells {
			align := "R"
			if j < 2 {
				align = "L"
			}
			doc.CellFormat(colWidths[j], 7, tr(c), "B", 0, align, false, 0, "")
		}
		doc.Ln(-1)
	}
	doc.Ln(4)

	// totals
	for _, row := range []struct {
		label string
		value float64
		bold  bool
	}{
		{"Subtotal", inv.Subtotal, false},
		{"VAT (20%)", inv.TaxAmount, false},
		{"Total", inv.Total, true},
	} {
		style := ""
		if row.bold {
			style = "B"
		}
		doc.SetFont("Helvetica", style, 10)
		doc.CellFormat(140, 7, row.label, "", 0, "R", false, 0, "")
		doc.CellFormat(40, 7, Money(row.value), "", 1, "R", false, 0, "")
	}

	if notes := strings.TrimSpace(inv.Notes); notes != "" {
		doc.Ln(6)
		doc.SetFont("Helvetica", "B", 10)
		doc.CellFormat(0, 6, "Notes", "", 1, "L", false, 0, "")
		doc.SetFont("Helvetica", "", 10)
		doc.MultiCell(0, lineHeight, tr(notes), "", "L", false)
	}

	doc.SetY(-25)
	doc.SetFont("Helvetica", "I", 8)
	doc.CellFormat(0, 5, "This is a computer-generated invoice.", "", 0, "C", false, 0, "")

	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		return nil, fmt.Errorf("render invoice %s: %w", inv.InvoiceNumber, err)
	}
	return buf.Bytes(), nil
}

func party(doc *gofpdf.Fpdf, tr func(string) string, x, y float64, title string, lines []string) {
	doc.SetXY(x, y)
	doc.SetFont("Helvetica", "B", 11)
	doc.CellFormat(85, 6, title, "", 2, "L", false, 0, "")
	for i, l := range lines {
		style := ""
		if i == 0 {
			style = "B"
		}
		doc.SetFont("Helvetica", style, 10)
		doc.CellFormat(85, lineHeight, tr(l), "", 2, "L", false, 0, "")
	}
}

func partyLines(name, taxID, address, zip, city, country, phone, email, website string) []string {
	lines := []string{name}
	if taxID != "" {
		lines = append(lines, "Tax ID: "+taxID)
	}
	if address != "" {
		lines = append(lines, address)
	}
	if c := strings.TrimSpace(zip + " " + city); c != "" {
		lines = append(lines, c)
	}
	for _, v := range []string{country, phone, email, website} {
		if v != "" {
			lines = append(lines, v)
		}
	}
	return lines
}

// Money formats an amount with two decimals, thousands separators and the
// currency code, e.g. "1,234.50 RSD".
func Money(v float64) string {
	return formatNumber(v, 2) + " " + currency
}

func formatNumber(v float64, places int32) string {
	s := decimal.NewFromFloat(v).StringFixed(places)
	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}
	intPart, frac, _ := strings.Cut(s, ".")
	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	if frac != "" {
		return sign + b.String() + "." + frac
	}
	return sign + b.String()
}
