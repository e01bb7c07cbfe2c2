package models

import (
	"time"

	"gorm.io/gorm"
)

// Invoice represents a billing invoice issued by an agency to a client.
// Amounts are derived from the items and stored rounded to 2 decimals.
type Invoice struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at"`

	// Issuing agency
	AgencyID uint    `gorm:"not null;uniqueIndex:idx_invoice_agency_number,priority:1" json:"agency_id"`
	Agency   *Agency `gorm:"foreignKey:AgencyID" json:"agency,omitempty"`

	// Client relationship
	ClientID uint    `gorm:"index;not null" json:"client_id"`
	Client   *Client `gorm:"foreignKey:ClientID" json:"client,omitempty"`

	// Invoice identification. The unique index also covers soft-deleted
	// rows, so a deleted invoice keeps its number reserved.
	InvoiceNumber string `gorm:"size:255;not null;uniqueIndex:idx_invoice_agency_number,priority:2" json:"invoice_number"`

	// Invoice dates
	IssueDate time.Time  `gorm:"not null;index" json:"issue_date"`
	DueDate   *time.Time `json:"due_date,omitempty"`

	// Amounts
	Subtotal  float64 `gorm:"type:decimal(15,2);not null;default:0" json:"subtotal"`
	TaxAmount float64 `gorm:"type:decimal(15,2);not null;default:0" json:"tax_amount"`
	Total     float64 `gorm:"type:decimal(15,2);not null;default:0" json:"total"`

	Notes string `gorm:"type:text" json:"notes,omitempty"`

	// Invoice items
	Items []InvoiceItem `gorm:"foreignKey:InvoiceID" json:"items,omitempty"`
}

// IsDeleted reports whether the invoice has been soft deleted.
func (i *Invoice) IsDeleted() bool {
	return i.DeletedAt.Valid
}

// InvoiceItem represents a line item on an invoice.
// Items are replaced wholesale on update and are not soft deleted.
type InvoiceItem struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Parent invoice
	InvoiceID uint     `gorm:"index;not null" json:"invoice_id"`
	Invoice   *Invoice `gorm:"foreignKey:InvoiceID" json:"-"`

	// Optional product reference (null for custom items)
	ProductID *uint    `gorm:"index" json:"product_id,omitempty"`
	Product   *Product `gorm:"foreignKey:ProductID" json:"product,omitempty"`

	Description string  `gorm:"size:500" json:"description,omitempty"`
	Quantity    float64 `gorm:"type:decimal(18,6);not null" json:"quantity"`
	UnitPrice   float64 `gorm:"type:decimal(18,6);not null" json:"unit_price"`
	Total       float64 `gorm:"type:decimal(30,12);not null" json:"total"`

	// Position in the submitted item list
	SortOrder int `gorm:"not null;default:0" json:"sort_order"`
}

// Label returns the text shown for the line: its description, or the
// product name for product lines without one.
func (item *InvoiceItem) Label() string {
	if item.Description != "" {
		return item.Description
	}
	if item.Product != nil {
		return item.Product.Name
	}
	return ""
}
