package models

import (
	"strings"
	"time"
)

// DefaultInvoicePrefix is used when an agency has no prefix configured.
const DefaultInvoicePrefix = "INV"

// Agency is the tenant issuing invoices.
// Agencies are never soft deleted; deactivate them with IsActive instead.
type Agency struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Identity
	Name  string `gorm:"size:255;not null" json:"name"`
	TaxID string `gorm:"size:50" json:"tax_id,omitempty"`

	// Address
	Address string `gorm:"size:500" json:"address,omitempty"`
	City    string `gorm:"size:100" json:"city,omitempty"`
	ZipCode string `gorm:"size:20" json:"zip_code,omitempty"`
	Country string `gorm:"size:100" json:"country,omitempty"`

	// Contact
	Email   string `gorm:"size:255" json:"email,omitempty"`
	Phone   string `gorm:"size:50" json:"phone,omitempty"`
	Website string `gorm:"size:255" json:"website,omitempty"`

	IsActive bool `gorm:"default:true" json:"is_active"`

	// InvoiceNumberPrefix is uppercase [A-Z0-9_-], at most 20 chars.
	InvoiceNumberPrefix string `gorm:"size:20;not null;default:'INV'" json:"invoice_number_prefix"`

	// Relations
	Clients  []Client  `gorm:"many2many:agency_client;" json:"clients,omitempty"`
	Invoices []Invoice `gorm:"foreignKey:AgencyID" json:"invoices,omitempty"`
	Settings []Setting `gorm:"foreignKey:AgencyID" json:"settings,omitempty"`
}

// Prefix returns the configured invoice number prefix, falling back to INV.
func (a *Agency) Prefix() string {
	p := strings.TrimSpace(a.InvoiceNumberPrefix)
	if p == "" {
		return DefaultInvoicePrefix
	}
	return p
}

// FullAddress returns the formatted postal address.
func (a *Agency) FullAddress() string {
	return joinAddress(a.Address, a.ZipCode, a.City, a.Country)
}

func joinAddress(street, zip, city, country string) string {
	addr := street
	if zip != "" || city != "" {
		if addr != "" {
			addr += "\n"
		}
		addr += strings.TrimSpace(zip + " " + city)
	}
	if country != "" {
		if addr != "" {
			addr += "\n"
		}
		addr += country
	}
	return addr
}
