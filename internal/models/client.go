package models

import "time"

// Client represents a customer billed by one or more agencies.
type Client struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Client information
	Name  string `gorm:"size:255;not null;index" json:"name"`
	TaxID string `gorm:"size:50" json:"tax_id,omitempty"`
	Email string `gorm:"size:255" json:"email,omitempty"`
	Phone string `gorm:"size:50" json:"phone,omitempty"`
	Note  string `gorm:"type:text" json:"note,omitempty"`

	// Address
	Address string `gorm:"size:500" json:"address,omitempty"`
	City    string `gorm:"size:100" json:"city,omitempty"`
	ZipCode string `gorm:"size:20" json:"zip_code,omitempty"`
	Country string `gorm:"size:100" json:"country,omitempty"`

	// Relations. The agency_client join table has a composite primary key,
	// so an (agency, client) pair can only be linked once.
	Agencies []Agency  `gorm:"many2many:agency_client;" json:"agencies,omitempty"`
	Invoices []Invoice `gorm:"foreignKey:ClientID" json:"invoices,omitempty"`
}

// FullAddress returns the formatted full address.
func (c *Client) FullAddress() string {
	return joinAddress(c.Address, c.ZipCode, c.City, c.Country)
}
