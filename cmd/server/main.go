package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/subosito/gotenv"
	"go.uber.org/zap"

	"github.com/plantops/workdesk/internal/application/dispatcher"
	"github.com/plantops/workdesk/internal/application/service"
	appwf "github.com/plantops/workdesk/internal/application/workflow"
	"github.com/plantops/workdesk/internal/config"
	"github.com/plantops/workdesk/internal/domain/event"
	"github.com/plantops/workdesk/internal/infrastructure/cache"
	"github.com/plantops/workdesk/internal/infrastructure/mailer"
	"github.com/plantops/workdesk/internal/infrastructure/persistence/repository"
	"github.com/plantops/workdesk/internal/infrastructure/persistence/sqlite"
	"github.com/plantops/workdesk/internal/infrastructure/worker"
	httpiface "github.com/plantops/workdesk/internal/interfaces/http"
	"github.com/plantops/workdesk/pkg/database"
	"github.com/plantops/workdesk/pkg/utils"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "server exited: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// .env is optional; real deployments set the environment directly
	_ = gotenv.Load()

	configPath := os.Getenv("WORKDESK_CONFIG")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := utils.NewLogger(utils.LoggerConfig{
		Level:      cfg.Logger.Level,
		OutputPath: cfg.Logger.OutputPath,
		Format:     cfg.Logger.Format,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync()

	logger.Info("Starting workdesk server")

	db, err := database.New(database.Config{
		Path:            cfg.Database.Path,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}, logger)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	migrator := database.NewMigrator(db, logger)
	if err := migrator.RunMigrations(cfg.Database.MigrationsDir); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	txManager := sqlite.NewDB(db.DB, logger)

	deviationRepo := repository.NewDeviationRepository(db.DB, logger)
	overtimeRepo := repository.NewOvertimeRepository(db.DB, logger)
	inventoryRepo := repository.NewInventoryRepository(db.DB, logger)
	failureRepo := repository.NewFailureRepository(db.DB, logger)
	sequenceRepo := repository.NewSequenceRepository(db.DB)
	coverageRepo := repository.NewCoverageRepository(db.DB)
	outboxRepo := repository.NewOutboxRepository(db.DB, logger)

	viewCache := cache.NewViewCache(cfg.Cache.TTL, cfg.Cache.CleanupInterval, logger)

	mailClient := mailer.NewClient(mailer.Config{
		BaseURL:     cfg.Mailer.BaseURL,
		APIKey:      cfg.Mailer.APIKey,
		FromAddress: cfg.Mailer.FromAddress,
		FromName:    cfg.Mailer.FromName,
		Timeout:     cfg.Mailer.Timeout,
		MaxRetries:  cfg.Mailer.MaxRetries,
	}, logger)

	events := dispatcher.NewDispatcher(logger)
	events.SubscribeNamed(event.TypeStatusChanged, "status-audit", dispatcher.StatusChangeAudit(logger))

	executor := appwf.NewExecutor(
		appwf.Tables(),
		txManager,
		outboxRepo,
		viewCache,
		logger,
		appwf.WithDispatcher(events),
	)

	services := httpiface.Services{
		Deviations: service.NewDeviationService(deviationRepo, sequenceRepo, txManager, executor, viewCache, logger),
		Overtime:   service.NewOvertimeService(overtimeRepo, sequenceRepo, coverageRepo, txManager, executor, viewCache, logger),
		Inventory:  service.NewInventoryService(inventoryRepo, sequenceRepo, txManager, executor, viewCache, logger),
		Failures:   service.NewFailureService(failureRepo, sequenceRepo, txManager, executor, viewCache, logger),
		Reports:    service.NewReportService(deviationRepo, overtimeRepo, logger),
	}

	server := httpiface.NewServer(
		httpiface.ServerConfig{
			Host:         cfg.Server.Host,
			Port:         cfg.Server.Port,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
		},
		httpiface.AuthConfig{
			Secret: cfg.Auth.JWTSecret,
			Issuer: cfg.Auth.Issuer,
		},
		services,
		logger,
	)

	workers := worker.NewManager(logger)
	workers.Register(worker.NewOutboxWorker(
		outboxRepo,
		mailClient,
		cfg.Outbox.PollInterval,
		cfg.Outbox.BatchSize,
		cfg.Outbox.MaxAttempts,
		logger,
	))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := workers.StartAll(ctx); err != nil {
		return fmt.Errorf("start workers: %w", err)
	}

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.Start(ctx)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		logger.Info("Shutdown signal received", zap.String("signal", sig.String()))
	case err := <-serverErr:
		if err != nil {
			logger.Error("Server failed", zap.Error(err))
		}
	}

	cancel()

	if err := server.Stop(); err != nil {
		logger.Error("Server shutdown failed", zap.Error(err))
	}
	if err := workers.StopAll(); err != nil {
		logger.Error("Worker shutdown failed", zap.Error(err))
	}
	if err := events.Close(); err != nil {
		logger.Error("Dispatcher shutdown failed", zap.Error(err))
	}

	logger.Info("Workdesk server stopped")
	return nil
}
