package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"cashops/internal/backend"
	"cashops/internal/config"
	"cashops/internal/events"
	apphttp "cashops/internal/http"
	applog "cashops/internal/log"
	"cashops/internal/report/sheets"
	"cashops/internal/services"
)

func main() {
	if err := run(); err != nil {
		os.Exit(1)
	}
}

func run() error {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	logger := applog.New(applog.DefaultConfig())
	applog.SetDefault(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Invalid configuration", applog.FieldError, err)
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := backend.Open(backend.Config{
		Type:          backend.Type(cfg.DataBackend),
		DBPath:        cfg.SQLiteDBPath,
		DataDirectory: cfg.DataDirectory,
	}, logger.WithComponent(applog.ComponentBackend).Logger)
	if err != nil {
		logger.Error("Failed to open storage backend",
			applog.FieldBackend, cfg.DataBackend,
			applog.FieldError, err)
		return err
	}
	defer store.Cleanup()

	var eventsClient *events.Client
	if cfg.AMQPURL != "" {
		eventsClient, err = events.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to connect to AMQP broker", applog.FieldError, err)
			return err
		}
		defer eventsClient.Close()
		logger.Info("Change events enabled", "exchange", cfg.AMQPExchange)
	} else {
		logger.Info("Change events disabled, no AMQP URL configured")
	}

	exporter, err := sheets.NewExporter(ctx, sheets.Config{
		SpreadsheetID:   cfg.SheetsSpreadsheetID,
		SheetName:       cfg.SheetsSheetName,
		CredentialsJSON: cfg.SheetsCredentialsJSON,
		CredentialsFile: cfg.SheetsCredentialsFile,
	})
	if err != nil {
		logger.Error("Failed to configure sheets export", applog.FieldError, err)
		return err
	}

	srv := apphttp.NewServer(apphttp.Options{
		Addr:             ":" + cfg.Port,
		Logger:           logger,
		Transactions:     services.NewTransactionService(store.Store, eventsClient),
		Budgets:          services.NewBudgetService(store.Store, eventsClient),
		Materializer:     services.NewMaterializer(store.Store, eventsClient),
		Exporter:         exporter,
		MetricsCacheSize: cfg.MetricsCacheSize,
		MetricsCacheTTL:  cfg.MetricsCacheTTL,
	})

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting cashops server",
			"port", cfg.Port,
			applog.FieldBackend, cfg.DataBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		logger.Info("Shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server error", applog.FieldError, err)
		return err
	}
	logger.Info("Server stopped gracefully")
	return nil
}
