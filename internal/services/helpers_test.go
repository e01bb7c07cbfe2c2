package services

import (
	"strings"
	"testing"
	"time"

	"github.com/diewo77/invoice-tracker/internal/models"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// fixedNow is the reference instant for clock-sensitive tests.
var fixedNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func fixedClock(t time.Time) Clock {
	return func() time.Time { return t }
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open("file:"+name+"?mode=memory&cache=shared"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
		NowFunc:        func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := db.AutoMigrate(models.All()...); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func nopLogger() *zap.Logger { return zap.NewNop() }

func createAgency(t *testing.T, db *gorm.DB, name, prefix string) *models.Agency {
	t.Helper()
	a := &models.Agency{Name: name, InvoiceNumberPrefix: prefix, IsActive: true}
	if err := db.Create(a).Error; err != nil {
		t.Fatalf("create agency: %v", err)
	}
	return a
}

func createClient(t *testing.T, db *gorm.DB, name string, agencies ...*models.Agency) *models.Client {
	t.Helper()
	c := &models.Client{Name: name}
	if err := db.Create(c).Error; err != nil {
		t.Fatalf("create client: %v", err)
	}
	for _, a := range agencies {
		if err := db.Model(c).Association("Agencies").Append(a); err != nil {
			t.Fatalf("attach client: %v", err)
		}
	}
	return c
}

func createProduct(t *testing.T, db *gorm.DB, name string, price float64) *models.Product {
	t.Helper()
	p := &models.Product{Name: name, Price: price, Unit: "unit"}
	if err := db.Create(p).Error; err != nil {
		t.Fatalf("create product: %v", err)
	}
	return p
}

// insertInvoice writes a bare invoice row without going through the
// lifecycle service.
func insertInvoice(t *testing.T, db *gorm.DB, agencyID, clientID uint, number string, issued time.Time, total float64) *models.Invoice {
	t.Helper()
	inv := &models.Invoice{
		AgencyID:      agencyID,
		ClientID:      clientID,
		InvoiceNumber: number,
		IssueDate:     issued.UTC(),
		Subtotal:      round2(total / (1 + VATRate)),
		Total:         total,
	}
	inv.TaxAmount = round2(total - inv.Subtotal)
	if err := db.Omit("Agency", "Client", "Items").Create(inv).Error; err != nil {
		t.Fatalf("insert invoice: %v", err)
	}
	return inv
}
