package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/accounting-ledger-sync/internal/config"
	"github.com/accounting-ledger-sync/internal/data/mongo"
	"github.com/accounting-ledger-sync/internal/data/postgres"
	"github.com/accounting-ledger-sync/internal/ledger"
	"github.com/accounting-ledger-sync/internal/logger"
	"github.com/accounting-ledger-sync/internal/platform/messaging/consumers"
	"github.com/accounting-ledger-sync/internal/platform/messaging/producers"
	"github.com/accounting-ledger-sync/internal/platform/persistence"
	"github.com/accounting-ledger-sync/internal/source"
	"github.com/accounting-ledger-sync/internal/sync_engine/components"
	"github.com/accounting-ledger-sync/internal/sync_engine/consumer"
	"github.com/accounting-ledger-sync/internal/sync_engine/scheduler"
)

func main() {
	// Create base context with cancellation
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	// Initialize configuration
	cfg, err := config.LoadConfig("sync_service")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.NewLogger(cfg)

	log.Info("Starting Sync Service",
		"app_name", cfg.Application.Name,
		"env", cfg.Application.Env,
	)

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

	// Initialize Kafka consumer for document edit events
	kafkaConsumer := consumers.NewKafkaConsumer(appCtx, log, &cfg.Kafka)

	// Initialize Kafka DLQ producer
	dlqProducer, err := producers.NewDLQProducer(log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize DLQ Kafka producer", "error", err)
		os.Exit(1)
	}

	// Initialize Kafka run report producer
	reportProducer, err := producers.NewRunReportProducer(log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize run report Kafka producer", "error", err)
		os.Exit(1)
	}

	reportPublisher := components.NewReportPublisher(reportRepo, reportProducer, log.With("component", "report_publisher"))

	// Initialize sync service with separated concerns
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

	// Initialize edit event handler
	editEventHandler := consumer.NewEditEventHandler(
		log,
		syncService,
		dlqProducer,
	)

	// Initialize scheduler
	syncScheduler := scheduler.NewScheduler(&cfg.Sync, syncService, log)

	// Create error channel for service errors
	errChan := make(chan error, 2)

	// Create wait group for graceful shutdown
	var wg sync.WaitGroup

	// Start Kafka consumer in a goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Info("Starting Kafka consumer",
			"topic", cfg.Kafka.EditEventTopic,
			"group", cfg.Kafka.ConsumerGroup,
		)
		if err := kafkaConsumer.Subscribe(appCtx, cfg.Kafka.EditEventTopic, cfg.Kafka.ConsumerGroup, editEventHandler.HandleMessage); err != nil {
			errChan <- fmt.Errorf("kafka consumer error: %w", err)
		}
	}()

	// Start scheduler in a goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()
		syncScheduler.Start(appCtx)
	}()

	// Set up signal handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	// Wait for a shutdown signal or error
	var serviceErr error
	select {
	case <-quit:
		log.Info("Shutdown signal received")
	case err := <-errChan:
		log.Error("Service error occurred", "error", err)
		serviceErr = err
	}

	// Cancel the application context
	cancelAppCtx()

	// Create a shutdown context with timeout
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelShutdown()

	// Graceful shutdown sequence
	log.Info("Starting graceful shutdown...")

	// Wait for all goroutines to finish
	log.Info("Waiting for services to stop...")
	wgChan := make(chan struct{})
	go func() {
		wg.Wait()
		close(wgChan)
	}()

	select {
	case <-wgChan:
		log.Info("All services stopped successfully")
	case <-shutdownCtx.Done():
		log.Warn("Shutdown timeout reached, forcing exit")
	}

	// Close Kafka producers
	if err = reportProducer.Close(); err != nil {
		log.Error("Error closing run report Kafka producer", "error", err)
	}
	if dlqProducer != nil {
		if err = dlqProducer.Close(); err != nil {
			log.Error("Error closing DLQ Kafka producer", "error", err)
		}
	}

	// Close Kafka consumer
	if err = kafkaConsumer.Close(); err != nil {
		log.Error("Error closing Kafka consumer", "error", err)
	}

	// Shutdown postgres connection pool
	postgresDB.Close()

	// Close MongoDB connection
	if err = mongoDB.Close(shutdownCtx); err != nil {
		log.Error("Error closing MongoDB connection", "error", err)
	}

	// Final status
	if serviceErr != nil {
		log.Error("Sync Service shutdown with errors", "error", serviceErr)
	} else {
		log.Info("Sync Service shutdown completed successfully")
	}
}
