package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/cwsupport/crf-provisioner/internal/app"
	"github.com/cwsupport/crf-provisioner/internal/canvas"
	"github.com/cwsupport/crf-provisioner/internal/config"
	"github.com/cwsupport/crf-provisioner/internal/repository"
	"github.com/cwsupport/crf-provisioner/internal/service"
	"github.com/cwsupport/crf-provisioner/internal/warehouse"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := app.NewLogger(cfg.Environment)
	defer logger.Sync()

	logger.Info("Starting course site provisioner", zap.String("environment", cfg.Environment))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.DatabaseDSN)
	if err != nil {
		logger.Fatal("Failed to create database pool", zap.Error(err))
	}
	defer pool.Close()

	migrator, err := app.NewMigrator(pool, "migrations", logger)
	if err != nil {
		logger.Fatal("Failed to create migrator", zap.Error(err))
	}
	if err := migrator.Run(ctx); err != nil {
		logger.Fatal("Failed to run migrations", zap.Error(err))
	}
	migrator.Close()

	wh, err := warehouse.New(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to connect to the warehouse", zap.Error(err))
	}
	defer wh.Close()

	cv := canvas.NewClient(cfg, logger)
	account, err := cv.GetAccount(ctx, canvas.MainAccountID)
	if err != nil {
		logger.Fatal("Failed to reach Canvas", zap.Error(err))
	}
	logger.Info("Connected to Canvas", zap.String("account", account.Name))

	schools := repository.NewSchoolRepository(pool)
	subjects := repository.NewSubjectRepository(pool)
	scheduleTypes := repository.NewScheduleTypeRepository(pool)
	users := repository.NewUserRepository(pool)
	sections := repository.NewSectionRepository(pool)
	requests := repository.NewRequestRepository(pool)
	autoAdds := repository.NewAutoAddRepository(pool)

	syncService := service.NewSyncService(wh, cv, schools, subjects, scheduleTypes, users, sections, logger)
	directoryService := service.NewDirectoryService(wh, cv, users, logger)
	requestService := service.NewRequestService(requests, sections, logger)
	builderService := service.NewBuilderService(requests, sections, schools, autoAdds, directoryService, cv, logger)

	scheduler := app.NewScheduler(syncService, builderService, requestService, logger)
	if err := scheduler.Start(ctx); err != nil {
		logger.Fatal("Failed to start scheduler", zap.Error(err))
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down")
	scheduler.Stop()
}
