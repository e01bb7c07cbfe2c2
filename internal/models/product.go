package models

import "time"

// Product represents a catalog entry shared between agencies.
type Product struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Product information
	Code        string  `gorm:"size:50;index" json:"code,omitempty"`
	Name        string  `gorm:"size:255;not null" json:"name"`
	Description string  `gorm:"type:text" json:"description,omitempty"`
	Price       float64 `gorm:"type:decimal(15,2);not null;default:0" json:"price"`
	Unit        string  `gorm:"size:50;default:'unit'" json:"unit"` // unit, hour, day, kg, etc.

	// Per-agency availability and price overrides
	AgencyPrices []AgencyProduct `gorm:"foreignKey:ProductID" json:"agency_prices,omitempty"`
}

// AgencyProduct links a product to an agency. A nil Price means the agency
// bills the product at its base price.
type AgencyProduct struct {
	AgencyID  uint     `gorm:"primaryKey;autoIncrement:false" json:"agency_id"`
	ProductID uint     `gorm:"primaryKey;autoIncrement:false" json:"product_id"`
	Price     *float64 `gorm:"type:decimal(15,2)" json:"price,omitempty"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// PriceFor returns the price the given agency bills for this product.
// AgencyPrices must be loaded for overrides to apply.
func (p *Product) PriceFor(agencyID uint) float64 {
	for _, ap := range p.AgencyPrices {
		if ap.AgencyID == agencyID && ap.Price != nil {
			return *ap.Price
		}
	}
	return p.Price
}

// AvailableTo reports whether the product is linked to the agency.
func (p *Product) AvailableTo(agencyID uint) bool {
	for _, ap := range p.AgencyPrices {
		if ap.AgencyID == agencyID {
			return true
		}
	}
	return false
}
