package db

import (
	"embed"
	"errors"
	"fmt"

	"github.com/diewo77/invoice-tracker/internal/models"
	migrate "github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

var requiredTables = []string{"agencies", "clients", "agency_client", "products", "invoices", "invoice_items", "settings", "invoice_sequences"}

// Migrate brings the schema up to date. With useSQL set on a postgres
// database the embedded SQL migrations run through golang-migrate; otherwise
// gorm AutoMigrate derives the schema from the models.
func Migrate(db *gorm.DB, databaseURL string, useSQL bool, log *zap.Logger) error {
	if useSQL && db.Dialector.Name() == "postgres" {
		log.Info("running sql migrations")
		if err := runSQLMigrations(databaseURL); err != nil {
			return fmt.Errorf("sql migrations failed: %w", err)
		}
	} else {
		for _, m := range models.All() {
			if err := db.AutoMigrate(m); err != nil {
				return fmt.Errorf("automigrate %T: %w", m, err)
			}
		}
	}
	for _, table := range requiredTables {
		if !db.Migrator().HasTable(table) {
			return errors.New("missing table after migration: " + table)
		}
	}
	return nil
}

func runSQLMigrations(databaseURL string) error {
	src, err := iofs.New(migrationFiles, "migrations")
	if err != nil {
		return err
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, ToURLDSN(databaseURL))
	if err != nil {
		return err
	}
	defer m.Close()
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}
