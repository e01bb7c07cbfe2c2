package models

import "time"

// Setting keys understood by the compliance report and settings screens.
const (
	SettingPDVLimit              = "pdv_limit"
	SettingMinClientsPerYear     = "min_clients_per_year"
	SettingClientMaxSharePercent = "client_max_share_percent"
)

// Setting is an agency-scoped key/value pair. Values are stored as strings
// and parsed by the settings store.
type Setting struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	AgencyID uint    `gorm:"not null;uniqueIndex:idx_setting_agency_key,priority:1" json:"agency_id"`
	Agency   *Agency `gorm:"foreignKey:AgencyID" json:"-"`
	Key      string  `gorm:"size:100;not null;uniqueIndex:idx_setting_agency_key,priority:2" json:"key"`
	Value    string  `gorm:"type:text" json:"value"`
}

// InvoiceSequence holds the last invoice number handed out for an agency,
// year and prefix. A new prefix starts its own count.
type InvoiceSequence struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
	AgencyID   uint      `gorm:"not null;uniqueIndex:idx_sequence_agency_year_prefix,priority:1" json:"agency_id"`
	Year       int       `gorm:"not null;uniqueIndex:idx_sequence_agency_year_prefix,priority:2" json:"year"`
	Prefix     string    `gorm:"size:20;not null;uniqueIndex:idx_sequence_agency_year_prefix,priority:3" json:"prefix"`
	LastNumber int       `gorm:"not null;default:0" json:"last_number"`
}
