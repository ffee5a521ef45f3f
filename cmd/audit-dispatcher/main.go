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
	logger := di.NewLogger(cfg).With(zap.String("runtime", "audit_dispatcher"))
	defer func() { _ = logger.Sync() }()

	if dispatcherCfgErr := validateAuditDispatcherConfig(cfg); dispatcherCfgErr != nil {
		logger.Error("audit dispatcher config error",
			zap.String("code", dispatcherCfgErr.Code),
			zap.String("message", dispatcherCfgErr.Message),
		)
		os.Exit(1)
	}

	container, buildErr := di.BuildAuditDispatcher(cfg, logger)
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

	if container.AuditWorker == nil || !container.AuditWorker.Enabled() {
		logger.Error("audit dispatcher startup failed",
			zap.String("code", "AUDIT_WORKER_NOT_ENABLED"),
			zap.String("message", "audit worker is not enabled"),
		)
		container.Close(logger)
		os.Exit(1)
	}

	go container.AuditWorker.Start(ctx)
	<-ctx.Done()
	logger.Info("audit dispatcher stopped")
}

func validateAuditDispatcherConfig(cfg config.Config) *config.ConfigError {
	if !cfg.AuditEnabled {
		return &config.ConfigError{
			Code:    "CONFIG_AUDIT_DISABLED",
			Message: "AUDIT_ENABLED must be true for audit dispatcher runtime",
		}
	}
	if !cfg.AuditDispatchEnabled {
		return &config.ConfigError{
			Code:    "CONFIG_AUDIT_DISPATCH_DISABLED",
			Message: "AUDIT_DISPATCH_ENABLED must be true for audit dispatcher runtime",
		}
	}
	if len(cfg.AuditKafkaBrokers) == 0 {
		return &config.ConfigError{
			Code:    "CONFIG_AUDIT_KAFKA_BROKERS_REQUIRED",
			Message: "AUDIT_KAFKA_BROKERS is required when audit dispatcher runtime is enabled",
		}
	}

	return nil
}
