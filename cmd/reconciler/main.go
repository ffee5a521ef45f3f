package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
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
	logger := di.NewLogger(cfg).With(zap.String("runtime", "reconciler"))
	defer func() { _ = logger.Sync() }()

	if reconcilerCfgErr := validateReconcilerConfig(cfg); reconcilerCfgErr != nil {
		logger.Error("reconciler config error",
			zap.String("code", reconcilerCfgErr.Code),
			zap.String("message", reconcilerCfgErr.Message),
		)
		os.Exit(1)
	}

	container, buildErr := di.BuildReconciler(cfg, logger)
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

	if container.ReconcilerWorker == nil || !container.ReconcilerWorker.Enabled() {
		logger.Error("reconciler startup failed",
			zap.String("code", "RECONCILER_WORKER_NOT_ENABLED"),
			zap.String("message", "reconciler worker is not enabled"),
		)
		container.Close(logger)
		os.Exit(1)
	}

	container.ReconcilerWorker.Start(ctx)
	logger.Info("reconciler stopped")
}

// validateReconcilerConfig rejects the devtest transfer mode: its treasury lives
// in the server process, so a separate reconciler would see every transfer as
// missing and release holds for withdrawals that were paid.
func validateReconcilerConfig(cfg config.Config) *config.ConfigError {
	if !cfg.ReconcilerEnabled {
		return &config.ConfigError{
			Code:    "CONFIG_RECONCILER_DISABLED",
			Message: "RECONCILER_ENABLED must be true for reconciler runtime",
		}
	}
	if strings.EqualFold(strings.TrimSpace(cfg.TransferMode), "devtest") {
		return &config.ConfigError{
			Code:    "CONFIG_RECONCILER_DEVTEST_UNSUPPORTED",
			Message: "TRANSFER_MODE=devtest keeps transfers in the server process; run the reconciler inside the server instead",
		}
	}

	return nil
}
