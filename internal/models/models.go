// Package models holds the gorm entities of the invoicing domain.
package models

// All returns every persisted model in dependency order, for AutoMigrate.
func All() []any {
	return []any{
		&Agency{},
		&Client{},
		&Product{},
		&AgencyProduct{},
		&Setting{},
		&Invoice{},
		&InvoiceItem{},
		&InvoiceSequence{},
	}
}
