package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rent-reconciliation-ledger/internal/api"
	"github.com/rent-reconciliation-ledger/internal/api/service"
	"github.com/rent-reconciliation-ledger/internal/config"
	"github.com/rent-reconciliation-ledger/internal/data/mongo"
	"github.com/rent-reconciliation-ledger/internal/data/postgres"
	"github.com/rent-reconciliation-ledger/internal/logger"
	"github.com/rent-reconciliation-ledger/internal/platform/persistence"
	processor "github.com/rent-reconciliation-ledger/internal/processor/service"
	"github.com/rent-reconciliation-ledger/internal/reconciliation"
)

func main() {
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	cfg, err := config.LoadConfig("api")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewLogger(cfg)

	matching := engineConfig(cfg.Matching)
	if err := matching.Validate(); err != nil {
		log.Error("Invalid matching configuration", "error", err)
		os.Exit(1)
	}

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

	// Repositories
	outboxRepo := postgres.NewOutboxRepository(log, postgresDB)
	eventStore := postgres.NewEventStore(log, postgresDB, outboxRepo)
	transactionRepo := postgres.NewTransactionRepository(log, postgresDB)
	rentCallRepo := mongo.NewRentCallRepository(log, mongoDB.Database())
	if err := rentCallRepo.EnsureIndexes(appCtx); err != nil {
		log.Error("Failed to create rent call indexes", "error", err)
		os.Exit(1)
	}

	// Services
	dispatcher := processor.NewDispatcher(log, eventStore, cfg.Ledger)
	importService := service.NewImportService(log, postgresDB.Pool(), transactionRepo)
	reconciliationService := service.NewReconciliationService(
		log,
		transactionRepo,
		rentCallRepo,
		eventStore,
		reconciliation.NewEngine(matching),
		dispatcher,
	)
	paymentService := service.NewPaymentService(log, dispatcher, rentCallRepo)

	server := api.NewServer(log, cfg, importService, reconciliationService, paymentService)

	errChan := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	var serverErr error
	select {
	case <-quit:
		log.Info("Shutdown signal received")
	case serverErr = <-errChan:
		log.Error("Server error occurred", "error", serverErr)
	}

	cancelAppCtx()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancelShutdown()

	log.Info("Starting graceful shutdown...")

	// Stop accepting requests before the pools they use go away
	if err := server.Stop(shutdownCtx); err != nil {
		log.Error("Error during server shutdown", "error", err)
	}

	postgresDB.Close()

	if err := mongoDB.Close(shutdownCtx); err != nil {
		log.Error("Error closing MongoDB connection", "error", err)
	}

	if serverErr != nil {
		log.Error("API shutdown completed with errors", "error", serverErr)
		os.Exit(1)
	}
	log.Info("API shutdown completed successfully")
}

func engineConfig(m config.MatchingConfig) reconciliation.Config {
	return reconciliation.Config{
		AmountWeight:       m.AmountWeight,
		NameWeight:         m.NameWeight,
		ReferenceWeight:    m.ReferenceWeight,
		TemporalWeight:     m.TemporalWeight,
		InclusionThreshold: m.InclusionThreshold,
		AmbiguityEpsilon:   m.AmbiguityEpsilon,
		HighThreshold:      m.HighThreshold,
		MediumThreshold:    m.MediumThreshold,
		GraceDays:          m.GraceDays,
		DecayMonths:        m.DecayMonths,
	}
}
