package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"housebalance/internal/application/dto"
	"housebalance/internal/infrastructure/config"
	"housebalance/internal/infrastructure/di"
	"housebalance/internal/infrastructure/logging"

	"go.uber.org/zap"
)

func main() {
	cfg, cfgErr := config.LoadConfig()
	if cfgErr != nil {
		logging.New(logging.Config{}).Fatal("startup config error",
			zap.String("code", cfgErr.Code),
			zap.String("message", cfgErr.Message),
			zap.Any("metadata", cfgErr.Metadata),
		)
	}
	logger := di.NewLogger(cfg)
	defer func() { _ = logger.Sync() }()

	logger.Info("transfer config",
		zap.String("mode", cfg.TransferMode),
		zap.Strings("classes", cfg.SortedClasses()),
		zap.Duration("timeout", cfg.TransferTimeout),
		zap.String("default_fee_rate", cfg.WithdrawalFeeRate.String()),
	)

	container, buildErr := di.BuildServer(cfg, logger)
	if buildErr != nil {
		logger.Error("dependency wiring error", zap.Error(buildErr))
		os.Exit(1)
	}
	defer container.Close(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("persistence initialization starting", zap.String("database_target", cfg.DatabaseTarget))
	persistenceErr := container.InitializePersistenceUseCase.Execute(ctx, dto.InitializePersistenceCommand{
		ReadinessTimeout:       cfg.DBReadinessTimeout,
		ReadinessRetryInterval: cfg.DBReadinessRetryInterval,
	})
	if persistenceErr != nil {
		logger.Error("persistence initialization failed",
			zap.String("code", persistenceErr.Code),
			zap.String("message", persistenceErr.Message),
			zap.Any("details", persistenceErr.Details),
		)
		container.Close(logger)
		os.Exit(1)
	}
	logger.Info("persistence initialization completed", zap.String("database_target", cfg.DatabaseTarget))

	if container.ReconcilerWorker != nil && container.ReconcilerWorker.Enabled() {
		go container.ReconcilerWorker.Start(ctx)
	}
	if container.AuditWorker != nil && container.AuditWorker.Enabled() {
		go container.AuditWorker.Start(ctx)
	}

	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- container.Server.Start()
	}()

	select {
	case err := <-serverErrCh:
		if err != nil {
			logger.Error("server startup failed", zap.Error(err))
			container.Close(logger)
			os.Exit(1)
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		if err := container.Server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", zap.Error(err))
			container.Close(logger)
			os.Exit(1)
		}

		if err := <-serverErrCh; err != nil {
			logger.Error("server stopped with error", zap.Error(err))
			container.Close(logger)
			os.Exit(1)
		}

		logger.Info("server stopped")
	}
}
