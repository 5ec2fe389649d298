package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/novabank/core-banking/internal/api"
	"github.com/novabank/core-banking/internal/config"
	"github.com/novabank/core-banking/internal/data/mongo"
	"github.com/novabank/core-banking/internal/data/postgres"
	"github.com/novabank/core-banking/internal/logger"
	"github.com/novabank/core-banking/internal/pinguard"
	"github.com/novabank/core-banking/internal/platform/messaging/producers"
	"github.com/novabank/core-banking/internal/platform/persistence"
	"github.com/novabank/core-banking/internal/service"
)

func main() {
	// Create base context with cancellation
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	// Initialize configuration
	cfg, err := config.LoadConfig("api")
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

	// Initialize Kafka producers
	eventProducer, err := producers.NewTransferEventProducer(appCtx, log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize transfer event producer", "error", err)
		os.Exit(1)
	}

	emailProducer, err := producers.NewEmailRequestProducer(appCtx, log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize email request producer", "error", err)
		os.Exit(1)
	}

	// Initialize repositories
	accountRepo := postgres.NewAccountRepository(log, postgresDB)
	transferRepo := postgres.NewTransferRepository(log, postgresDB)
	transactionRepo := postgres.NewTransactionRepository(log, postgresDB)
	jobRepo := postgres.NewJobRepository(log, postgresDB)
	userRepo := postgres.NewUserRepository(log, postgresDB)
	auditRepo := mongo.NewAuditRepository(log, mongoDB.Database())

	// Initialize services
	pins := pinguard.NewGuard(postgresDB, userRepo, log)
	accountService := service.NewAccountService(log, postgresDB, accountRepo, transactionRepo, auditRepo)
	transferService := service.NewTransferService(log, postgresDB, accountRepo, transferRepo,
		transactionRepo, jobRepo, auditRepo, pins, &cfg.Transfer)
	adminService := service.NewAdminService(log, postgresDB, accountRepo, transferRepo,
		transactionRepo, jobRepo, auditRepo, userRepo, eventProducer, emailProducerOrNil(emailProducer),
		cfg.Transfer.CompletionDelay)

	// Initialize REST server
	server := api.NewServer(log, cfg, accountService, transferService, adminService, pins)
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

	if err = server.Stop(shutdownCtx); err != nil {
		log.Error("Error during server shutdown", "error", err)
	}

	postgresDB.Close()

	if err = eventProducer.Close(); err != nil {
		log.Error("Error closing transfer event producer", "error", err)
	}
	if emailProducer != nil {
		if err = emailProducer.Close(); err != nil {
			log.Error("Error closing email request producer", "error", err)
		}
	}

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

// emailProducerOrNil keeps a typed-nil producer from masquerading as a
// non-nil MessagePublisher inside the services
func emailProducerOrNil(p *producers.EmailRequestProducer) producers.MessagePublisher {
	if p == nil {
		return nil
	}
	return p
}
