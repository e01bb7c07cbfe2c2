package db

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/diewo77/invoice-tracker/internal/config"
	"github.com/diewo77/invoice-tracker/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var seedNow = time.Date(2025, 6, 15, 9, 30, 0, 0, time.UTC)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	cfg := config.DatabaseConfig{Driver: "sqlite", Path: filepath.Join(t.TempDir(), "test.db")}
	db, err := Open(cfg, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = Close(db) })
	require.NoError(t, Migrate(db, "", true, zap.NewNop()))
	return db
}

func count(t *testing.T, db *gorm.DB, model any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(model).Count(&n).Error)
	return n
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open(config.DatabaseConfig{Driver: "oracle"}, zap.NewNop())
	assert.ErrorIs(t, err, ErrUnknownDriver)
}

func TestMigrate_CreatesTables(t *testing.T) {
	db := openTestDB(t)
	for _, table := range requiredTables {
		assert.True(t, db.Migrator().HasTable(table), table)
	}
	// a second run is a no-op
	assert.NoError(t, Migrate(db, "", false, zap.NewNop()))
}

func TestSeed_Idempotent(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	clock := func() time.Time { return seedNow }

	require.NoError(t, Seed(ctx, db, zap.NewNop(), clock))
	require.NoError(t, Seed(ctx, db, zap.NewNop(), clock))

	assert.Equal(t, int64(3), count(t, db, &models.Agency{}))
	assert.Equal(t, int64(6), count(t, db, &models.Client{}))
	assert.Equal(t, int64(5), count(t, db, &models.Product{}))
	assert.Equal(t, int64(15), count(t, db, &models.AgencyProduct{}))
	assert.Equal(t, int64(5), count(t, db, &models.Invoice{}))

	var first models.Invoice
	require.NoError(t, db.Joins("JOIN agencies ON agencies.id = invoices.agency_id").
		Where("agencies.name = ?", "Digital Solutions Agency").
		Order("invoices.issue_date ASC").First(&first).Error)
	assert.Equal(t, "INV-2025-0001", first.InvoiceNumber)
	assert.Equal(t, time.Date(2025, 4, 15, 0, 0, 0, 0, time.UTC), first.IssueDate.UTC())
	// 40 x 50000 + 20 x 100000
	assert.Equal(t, 4000000.0, first.Subtotal)
	assert.Equal(t, 800000.0, first.TaxAmount)
	assert.Equal(t, 4800000.0, first.Total)

	var links int64
	require.NoError(t, db.Table("agency_client").Count(&links).Error)
	assert.Equal(t, int64(15), links)
}
