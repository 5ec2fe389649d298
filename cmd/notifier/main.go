package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/novabank/core-banking/internal/config"
	"github.com/novabank/core-banking/internal/logger"
	"github.com/novabank/core-banking/internal/notifier"
	"github.com/novabank/core-banking/internal/platform/messaging/consumers"
)

func main() {
	// Create base context with cancellation
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	// Initialize configuration
	cfg, err := config.LoadConfig("notifier")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.NewLogger(cfg)

	if cfg.Kafka.EmailTopic == "" {
		log.Error("KAFKA_EMAIL_TOPIC must be set for the notifier")
		os.Exit(1)
	}

	// Initialize the email pipeline
	consumer := consumers.NewKafkaConsumer(log, &cfg.Kafka, cfg.Kafka.EmailTopic)
	sender := notifier.NewSMTPSender(&cfg.SMTP)
	dispatcher := notifier.NewDispatcher(log, consumer, sender)

	if err := dispatcher.Start(appCtx, cfg.Kafka.EmailTopic, cfg.Kafka.ConsumerGroup); err != nil {
		log.Error("Failed to start notifier dispatcher", "error", err)
		os.Exit(1)
	}
	log.Info("Notifier started", "topic", cfg.Kafka.EmailTopic)

	// Set up signal handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	<-quit
	log.Info("Shutdown signal received")

	// Cancel the application context to stop the consumer loop
	cancelAppCtx()

	// Graceful shutdown sequence
	log.Info("Starting graceful shutdown...")

	if err := consumer.Close(); err != nil {
		log.Error("Error closing Kafka consumer", "error", err)
	}

	log.Info("Notifier shutdown completed successfully")
}
