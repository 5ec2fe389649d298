package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/novabank/core-banking/internal/config"
	"github.com/novabank/core-banking/internal/data/mongo"
	"github.com/novabank/core-banking/internal/data/postgres"
	"github.com/novabank/core-banking/internal/logger"
	"github.com/novabank/core-banking/internal/platform/messaging/producers"
	"github.com/novabank/core-banking/internal/platform/persistence"
	"github.com/novabank/core-banking/internal/settlement"
)

func main() {
	// Create base context with cancellation
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	// Initialize configuration
	cfg, err := config.LoadConfig("settlement_worker")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.NewLogger(cfg)

	// Initialize PostgreSQL with app context
	postgresDB, err := persistence.NewPostgresDB(appCtx, log, &cfg.Postgres)
	if err != nil {
		log.Error("Failed to initialize PostgreSQL", "error", err)
		os.Exit(1)
	}

	// Initialize MongoDB for audit records
	mongoDB, err := persistence.NewMongoDB(appCtx, log, &cfg.MongoDB)
	if err != nil {
		log.Error("Failed to initialize MongoDB", "error", err)
		os.Exit(1)
	}

	// Initialize Kafka producer for completion events
	eventProducer, err := producers.NewTransferEventProducer(appCtx, log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize transfer event producer", "error", err)
		os.Exit(1)
	}

	// Initialize repositories
	accountRepo := postgres.NewAccountRepository(log, postgresDB)
	transferRepo := postgres.NewTransferRepository(log, postgresDB)
	transactionRepo := postgres.NewTransactionRepository(log, postgresDB)
	jobRepo := postgres.NewJobRepository(log, postgresDB)
	auditRepo := mongo.NewAuditRepository(log, mongoDB.Database())

	// Initialize the completion pipeline
	completer := settlement.NewCompletionService(log, postgresDB, accountRepo, transferRepo,
		transactionRepo, jobRepo, auditRepo, eventProducer)

	poller, err := settlement.NewPoller(&cfg.Scheduler, jobRepo, completer, log)
	if err != nil {
		log.Error("Failed to initialize settlement poller", "error", err)
		os.Exit(1)
	}

	// Start poller in goroutine
	go poller.Start(appCtx)
	log.Info("Settlement worker started")

	// Set up signal handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	<-quit
	log.Info("Shutdown signal received")

	// Cancel the application context to stop the poller loop
	cancelAppCtx()

	// Graceful shutdown sequence
	log.Info("Starting graceful shutdown...")

	poller.Shutdown()
	postgresDB.Close()

	if err = mongoDB.Close(context.Background()); err != nil {
		log.Error("Error closing MongoDB connection", "error", err)
	}

	if err = eventProducer.Close(); err != nil {
		log.Error("Error closing transfer event producer", "error", err)
	}

	log.Info("Settlement worker shutdown completed successfully")
}
