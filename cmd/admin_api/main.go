package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/accounting-ledger-sync/internal/admin_api"
	"github.com/accounting-ledger-sync/internal/admin_api/service"
	"github.com/accounting-ledger-sync/internal/config"
	"github.com/accounting-ledger-sync/internal/data/mongo"
	"github.com/accounting-ledger-sync/internal/data/postgres"
	"github.com/accounting-ledger-sync/internal/ledger"
	"github.com/accounting-ledger-sync/internal/logger"
	"github.com/accounting-ledger-sync/internal/platform/messaging/producers"
	"github.com/accounting-ledger-sync/internal/platform/persistence"
	"github.com/accounting-ledger-sync/internal/source"
	"github.com/accounting-ledger-sync/internal/sync_engine/components"
)

func main() {
	// Create base context with cancellation
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	// Initialize configuration
	cfg, err := config.LoadConfig("admin_api")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.NewLogger(cfg)

	// Initialize databases with app context
	postgresDB, err := persistence.NewPostgresDB(appCtx, log, &cfg.Postgres)
	if err != nil {
		log.Error("Failed to initialize PostgreSQL", "error", err)
		os.Exit(1)
	}

	mongoDB, err := persistence.NewMongoDB(appCtx, log, &cfg.MongoDB)
	if err != nil {
		log.Error("Failed to initialize MongoDB", "error", err)
		os.Exit(1)
	}

	// Initialize Kafka run report producer so manually triggered runs report
	// through the same transports as scheduled ones
	reportProducer, err := producers.NewRunReportProducer(log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize run report Kafka producer", "error", err)
		os.Exit(1)
	}

	// Initialize repositories
	docRepo := postgres.NewDocumentRepository(log, postgresDB)
	failureRepo := postgres.NewFailedDocumentRepository(log, postgresDB)
	mappingRepo := postgres.NewMappingRepository(log, postgresDB)
	linkRepo := postgres.NewCostCenterRepository(log, postgresDB)
	runRepo := postgres.NewSyncRunRepository(log, postgresDB)
	reportRepo := mongo.NewReportRepository(log, mongoDB.Database())

	// Initialize remote system clients
	sourceClient := source.NewClient(log, &cfg.Source, cfg.WorkerPool.Size)
	ledgerClient := ledger.NewClient(log, &cfg.Ledger)

	reportPublisher := components.NewReportPublisher(reportRepo, reportProducer, log.With("component", "report_publisher"))

	// Initialize the sync engine for manual triggers
	syncService := components.CreateSyncService(
		postgresDB,
		docRepo,
		failureRepo,
		mappingRepo,
		linkRepo,
		runRepo,
		sourceClient,
		ledgerClient,
		reportPublisher,
		log,
		cfg,
	)

	// Initialize services
	runService := service.NewRunService(runRepo, reportRepo)
	maintenanceService := service.NewMaintenanceService(syncService, failureRepo, docRepo, mappingRepo)

	// Initialize REST server
	server := admin_api.NewServer(log, cfg, runService, maintenanceService)
	log.Info("REST server initialized")

	// Create error channel for server errors
	errChan := make(chan error, 1)

	// Start server in goroutine
	go func() {
		log.Info("Starting HTTP server", "port", cfg.Server.Port)
		if err := server.Start(); err != nil {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	// Set up signal handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	// Wait for a shutdown signal or error
	var serverErr error
	select {
	case <-quit:
		log.Info("Shutdown signal received")
	case err := <-errChan:
		log.Error("Server error occurred", "error", err)
		serverErr = err
	}

	// Cancel the application context
	cancelAppCtx()

	// Create a shutdown context with timeout
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancelShutdown()

	// Graceful shutdown sequence
	log.Info("Starting graceful shutdown...")

	// Shutdown HTTP server
	if err = server.Stop(shutdownCtx); err != nil {
		log.Error("Error during server shutdown", "error", err)
	}

	if err = reportProducer.Close(); err != nil {
		log.Error("Error closing run report Kafka producer", "error", err)
	}

	// Shutdown postgres connection pool
	postgresDB.Close()

	// Close MongoDB connection
	if err = mongoDB.Close(shutdownCtx); err != nil {
		log.Error("Error closing MongoDB connection", "error", err)
	}

	// Final status
	if serverErr != nil {
		log.Error("HTTP server shutdown with errors", "error", serverErr)
	} else {
		log.Info("Server shutdown completed successfully")
	}
}
