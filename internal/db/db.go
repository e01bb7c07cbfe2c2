// Package db opens the database, applies the schema and seeds demo data.
package db

import (
	"errors"
	"fmt"
	"time"

	"github.com/diewo77/invoice-tracker/internal/config"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	connectAttempts = 10
	connectDelay    = 2 * time.Second
)

var ErrUnknownDriver = errors.New("unknown database driver")

// Open connects to the configured database. Postgres connections are retried
// while the server starts up.
func Open(cfg config.DatabaseConfig, log *zap.Logger) (*gorm.DB, error) {
	logLevel := logger.Silent
	if cfg.Debug {
		logLevel = logger.Info
	}
	gcfg := &gorm.Config{
		Logger:         logger.Default.LogMode(logLevel),
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
	}

	var (
		db  *gorm.DB
		err error
	)
	switch cfg.Driver {
	case "postgres", "postgresql", "":
		dsn := NormalizeDSN(cfg.DSN())
		log.Info("connecting to database", zap.String("driver", "postgres"), zap.String("dsn", MaskDSN(dsn)))
		for i := 1; i <= connectAttempts; i++ {
			db, err = gorm.Open(postgres.Open(dsn), gcfg)
			if err == nil {
				break
			}
			log.Warn("database not ready, retrying", zap.Int("attempt", i), zap.Error(err))
			time.Sleep(connectDelay)
		}
		if err != nil {
			return nil, fmt.Errorf("connect database after %d attempts: %w", connectAttempts, err)
		}
	case "sqlite":
		log.Info("opening database", zap.String("driver", "sqlite"), zap.String("path", cfg.Path))
		db, err = gorm.Open(sqlite.Open(cfg.Path+"?_foreign_keys=on"), gcfg)
		if err != nil {
			return nil, fmt.Errorf("open sqlite %s: %w", cfg.Path, err)
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		// sqlite serialises writers anyway
		sqlDB.SetMaxOpenConns(1)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.Driver)
	}

	if err := db.Exec("SELECT 1").Error; err != nil {
		return nil, fmt.Errorf("db ping failed: %w", err)
	}
	return db, nil
}

// Close releases the underlying connection pool.
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
