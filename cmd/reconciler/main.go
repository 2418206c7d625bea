package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rent-reconciliation-ledger/internal/config"
	"github.com/rent-reconciliation-ledger/internal/data/mongo"
	"github.com/rent-reconciliation-ledger/internal/data/postgres"
	"github.com/rent-reconciliation-ledger/internal/logger"
	"github.com/rent-reconciliation-ledger/internal/platform/messaging/consumers"
	"github.com/rent-reconciliation-ledger/internal/platform/messaging/producers"
	"github.com/rent-reconciliation-ledger/internal/platform/persistence"
	"github.com/rent-reconciliation-ledger/internal/processor/consumer"
	"github.com/rent-reconciliation-ledger/internal/processor/outbox_poller"
	"github.com/rent-reconciliation-ledger/internal/processor/service"
)

func main() {
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	cfg, err := config.LoadConfig("reconciler")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewLogger(cfg)

	log.Info("Starting reconciler",
		"app_name", cfg.Application.Name,
		"env", cfg.Application.Env,
	)

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

	outboxRepo := postgres.NewOutboxRepository(log, postgresDB)
	eventStore := postgres.NewEventStore(log, postgresDB, outboxRepo)
	rentCallRepo := mongo.NewRentCallRepository(log, mongoDB.Database())
	if err := rentCallRepo.EnsureIndexes(appCtx); err != nil {
		log.Error("Failed to create rent call indexes", "error", err)
		os.Exit(1)
	}

	eventPublisher, err := producers.NewEventPublisher(appCtx, log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize event publisher", "error", err)
		os.Exit(1)
	}

	dlqProducer, err := producers.NewDLQProducer(appCtx, log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize DLQ Kafka producer", "error", err)
		os.Exit(1)
	}

	workerPool, err := service.NewWorkerPool(cfg.WorkerPool.Size, log)
	if err != nil {
		log.Error("Failed to initialize worker pool", "error", err)
		os.Exit(1)
	}

	dispatcher := service.NewDispatcher(log, eventStore, cfg.Ledger)
	commandHandler := consumer.NewPaymentCommandHandler(log, dispatcher, workerPool, dlqProducer)
	kafkaConsumer := consumers.NewKafkaConsumer(appCtx, log, &cfg.Kafka, dlqProducer)

	projector := outbox_poller.NewRentCallProjector(outboxRepo, eventStore, rentCallRepo, eventPublisher, log)
	poller := outbox_poller.NewPoller(&cfg.Outbox, outboxRepo, projector, log)

	var wg sync.WaitGroup

	if err := kafkaConsumer.Subscribe(appCtx, commandHandler.HandleMessage); err != nil {
		log.Error("Failed to subscribe to payment commands", "error", err)
		os.Exit(1)
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		poller.Start(appCtx)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	<-quit
	log.Info("Shutdown signal received")

	cancelAppCtx()

	log.Info("Shutting down worker pool", "running_workers", workerPool.Running())
	workerPool.Shutdown()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelShutdown()

	log.Info("Starting graceful shutdown...")

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

	if err := kafkaConsumer.Close(); err != nil {
		log.Error("Error closing Kafka consumer", "error", err)
	}
	if err := dlqProducer.Close(); err != nil {
		log.Error("Error closing DLQ Kafka producer", "error", err)
	}
	if err := eventPublisher.Close(); err != nil {
		log.Error("Error closing event publisher", "error", err)
	}

	postgresDB.Close()

	if err := mongoDB.Close(shutdownCtx); err != nil {
		log.Error("Error closing MongoDB connection", "error", err)
	}

	log.Info("Reconciler shutdown completed successfully")
}
