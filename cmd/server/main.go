package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/diewo77/invoice-tracker/internal/config"
	"github.com/diewo77/invoice-tracker/internal/db"
	"github.com/diewo77/invoice-tracker/internal/logger"
	"github.com/diewo77/invoice-tracker/internal/services"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

var (
	migrateOnlyFlag = flag.Bool("migrate-only", false, "Run DB migrations and exit")
	seedOnlyFlag    = flag.Bool("seed-only", false, "Run DB seed and exit")
)

func main() {
	flag.Parse()

	// Load environment variables from .env file
	_ = godotenv.Load()

	cfg := config.Load()

	log, err := logger.New(logger.Config{
		Development: cfg.App.Dev,
		Encoding:    cfg.Log.Encoding,
		Level:       cfg.Log.Level,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if err := run(cfg, log); err != nil {
		log.Fatal("server failed", zap.Error(err))
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	dbConn, err := db.Open(cfg.Database, log.Named("db"))
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer func() { _ = db.Close(dbConn) }()

	migrate := func() error {
		if err := db.Migrate(dbConn, cfg.Database.URL(), cfg.App.Migrations, log.Named("db")); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
		log.Info("migrations completed")
		return nil
	}
	seed := func() error {
		if err := db.Seed(context.Background(), dbConn, log.Named("seed"), services.SystemClock); err != nil {
			return fmt.Errorf("seeding failed: %w", err)
		}
		return nil
	}

	if *migrateOnlyFlag {
		return migrate()
	}
	if *seedOnlyFlag {
		if err := migrate(); err != nil {
			return err
		}
		return seed()
	}

	if err := migrate(); err != nil {
		return err
	}
	if cfg.App.Seed {
		if err := seed(); err != nil {
			return err
		}
	}

	app := NewApp(cfg, dbConn, log)
	defer func() {
		if err := app.Close(); err != nil {
			log.Warn("closing app", zap.Error(err))
		}
	}()

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      app,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server starting", zap.String("port", cfg.Server.Port), zap.Bool("dev", cfg.App.Dev))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-quit:
		log.Info("shutdown signal received")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("error during shutdown", zap.Error(err))
	}
	log.Info("server stopped gracefully")
	return nil
}
