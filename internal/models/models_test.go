package models

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"gorm.io/gorm"
)

func TestAgency_Prefix(t *testing.T) {
	tests := []struct {
		name   string
		prefix string
		want   string
	}{
		{"configured", "ABC", "ABC"},
		{"blank falls back", "", "INV"},
		{"whitespace falls back", "   ", "INV"},
		{"trimmed", " TST ", "TST"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := &Agency{InvoiceNumberPrefix: tt.prefix}
			if got := a.Prefix(); got != tt.want {
				t.Errorf("Prefix() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestClient_FullAddress(t *testing.T) {
	tests := []struct {
		name   string
		client Client
		want   string
	}{
		{
			name: "full address",
			client: Client{
				Address: "Kneza Mihaila 15",
				ZipCode: "11000",
				City:    "Belgrade",
				Country: "Serbia",
			},
			want: "Kneza Mihaila 15\n11000 Belgrade\nSerbia",
		},
		{
			name:   "only city",
			client: Client{City: "Belgrade"},
			want:   "Belgrade",
		},
		{
			name:   "address and city",
			client: Client{Address: "Terazije 27", City: "Belgrade"},
			want:   "Terazije 27\nBelgrade",
		},
		{
			name:   "empty",
			client: Client{},
			want:   "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.client.FullAddress(); got != tt.want {
				t.Errorf("FullAddress() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestProduct_PriceFor(t *testing.T) {
	override := 80.0
	p := &Product{
		Price: 100,
		AgencyPrices: []AgencyProduct{
			{AgencyID: 1, Price: &override},
			{AgencyID: 2},
		},
	}

	if got := p.PriceFor(1); got != 80 {
		t.Errorf("PriceFor(1) = %v, want 80", got)
	}
	if got := p.PriceFor(2); got != 100 {
		t.Errorf("PriceFor(2) = %v, want base price 100", got)
	}
	if got := p.PriceFor(3); got != 100 {
		t.Errorf("PriceFor(3) = %v, want base price 100", got)
	}
	if !p.AvailableTo(2) || p.AvailableTo(3) {
		t.Errorf("AvailableTo mismatch")
	}
}

func TestInvoiceItem_Label(t *testing.T) {
	item := &InvoiceItem{Description: "Consulting"}
	if got := item.Label(); got != "Consulting" {
		t.Errorf("Label() = %q, want Consulting", got)
	}
	item = &InvoiceItem{Product: &Product{Name: "Hosting"}}
	if got := item.Label(); got != "Hosting" {
		t.Errorf("Label() = %q, want Hosting", got)
	}
}

func TestInvoice_DeletedAtJSON(t *testing.T) {
	b, err := json.Marshal(&Invoice{InvoiceNumber: "INV-2025-0001"})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(b), `"deleted_at":null`) {
		t.Errorf("live invoice: got %s, want deleted_at null", b)
	}

	deleted := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	b, err = json.Marshal(&Invoice{DeletedAt: gorm.DeletedAt{Time: deleted, Valid: true}})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(b), `"deleted_at":"2025-06-15T12:00:00Z"`) {
		t.Errorf("deleted invoice: got %s", b)
	}
}
