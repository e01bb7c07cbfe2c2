package main

import (
	"errors"
	"net/http"

	"github.com/diewo77/invoice-tracker/internal/config"
	"github.com/diewo77/invoice-tracker/internal/events"
	"github.com/diewo77/invoice-tracker/internal/handlers"
	"github.com/diewo77/invoice-tracker/internal/server"
	"github.com/diewo77/invoice-tracker/internal/services"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// App wires the services and handlers around one database connection.
type App struct {
	handler http.Handler
	closers []func() error
}

// NewApp creates the application with all routes configured. Invoice events
// are always logged and also published to Kafka when brokers are set.
func NewApp(cfg *config.Config, db *gorm.DB, log *zap.Logger) *App {
	app := &App{}

	dispatchers := events.Multi{events.NewLogDispatcher(log.Named("events"))}
	if cfg.Kafka.Enabled() {
		w := events.NewKafkaWriter(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		kd := events.NewKafkaDispatcher(w, cfg.Kafka.Timeout)
		dispatchers = append(dispatchers, kd)
		app.closers = append(app.closers, kd.Close)
		log.Info("publishing invoice events to kafka", zap.Strings("brokers", cfg.Kafka.Brokers), zap.String("topic", cfg.Kafka.Topic))
	}

	svcLog := log.Named("services")
	numbers := services.NewNumberGenerator(db, services.SystemClock)
	invoices := services.NewInvoiceService(db, numbers, dispatchers, svcLog, services.SystemClock)
	settings := services.NewSettingsStore(db, svcLog)
	reports := services.NewReportService(db, settings, svcLog, services.SystemClock)
	dashboard := services.NewDashboardService(db, services.SystemClock)

	httpLog := log.Named("http")
	app.handler = server.New(db, server.Handlers{
		Invoices: handlers.NewInvoiceHandler(invoices, numbers, httpLog),
		Reports:  handlers.NewReportHandler(reports, dashboard, httpLog),
		Settings: handlers.NewSettingsHandler(settings, httpLog),
		Catalog: handlers.NewCatalogHandler(
			services.NewAgencyService(db, svcLog),
			services.NewClientService(db, svcLog),
			services.NewProductService(db, svcLog),
			httpLog,
		),
	}, httpLog)
	return app
}

// ServeHTTP implements http.Handler.
func (a *App) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.handler.ServeHTTP(w, r)
}

// Close releases event publishers.
func (a *App) Close() error {
	var errs []error
	for _, c := range a.closers {
		errs = append(errs, c())
	}
	return errors.Join(errs...)
}
