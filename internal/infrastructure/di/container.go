package di

import (
	"database/sql"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"housebalance/internal/adapters/inbound/http/controllers"
	httpRouter "housebalance/internal/adapters/inbound/http/router"
	auditkafka "housebalance/internal/adapters/outbound/audit/kafka"
	rediscache "housebalance/internal/adapters/outbound/cache/redis"
	"housebalance/internal/adapters/outbound/docs"
	postgresqlauditoutbox "housebalance/internal/adapters/outbound/persistence/postgresql/auditoutbox"
	postgresqlbootstrap "housebalance/internal/adapters/outbound/persistence/postgresql/bootstrap"
	postgresqlledger "housebalance/internal/adapters/outbound/persistence/postgresql/ledger"
	postgresqlshared "housebalance/internal/adapters/outbound/persistence/postgresql/shared"
	"housebalance/internal/adapters/outbound/transfer"
	devtesttransfer "housebalance/internal/adapters/outbound/transfer/devtest"
	signertransfer "housebalance/internal/adapters/outbound/transfer/signer"
	portsin "housebalance/internal/application/ports/in"
	portsout "housebalance/internal/application/ports/out"
	"housebalance/internal/application/use_cases"
	"housebalance/internal/domain/policies"
	valueobjects "housebalance/internal/domain/value_objects"
	"housebalance/internal/infrastructure/auditdispatch"
	"housebalance/internal/infrastructure/config"
	"housebalance/internal/infrastructure/httpserver"
	"housebalance/internal/infrastructure/logging"
	"housebalance/internal/infrastructure/reconciler"

	"go.uber.org/zap"
)

type Container struct {
	Database                     *sql.DB
	Server                       *httpserver.Server
	InitializePersistenceUseCase portsin.InitializePersistenceUseCase
	ReconcilerWorker             *reconciler.Worker
	AuditWorker                  *auditdispatch.Worker

	closers []namedCloser
}

type namedCloser struct {
	name   string
	closer io.Closer
}

// Close releases the cache and broker clients, then the database pool.
func (c Container) Close(logger *zap.Logger) {
	if logger == nil {
		logger = zap.NewNop()
	}
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i].closer.Close(); err != nil {
			logger.Warn("close warning", zap.String("resource", c.closers[i].name), zap.Error(err))
		}
	}
	if c.Database == nil {
		return
	}
	if err := c.Database.Close(); err != nil {
		logger.Warn("database close warning", zap.Error(err))
	}
}

// NewLogger builds the process logger from the logging section of cfg.
func NewLogger(cfg config.Config) *zap.Logger {
	return logging.New(logging.Config{
		Level:      cfg.LogLevel,
		Format:     cfg.LogFormat,
		File:       cfg.LogFile,
		MaxSizeMB:  cfg.LogMaxSizeMB,
		MaxBackups: cfg.LogMaxBackups,
		MaxAgeDays: cfg.LogMaxAgeDays,
	})
}

type TransferGatewayBuilder func(cfg config.Config, class valueobjects.AddressClass, logger *zap.Logger) portsout.TransferGateway

var transferGatewayBuilders = map[string]TransferGatewayBuilder{
	"devtest": func(cfg config.Config, class valueobjects.AddressClass, logger *zap.Logger) portsout.TransferGateway {
		return devtesttransfer.NewGateway(devtesttransfer.Config{
			Class:         class,
			TreasuryFunds: cfg.DevtestTreasuryFunds,
		}, logger)
	},
	"signer": func(cfg config.Config, class valueobjects.AddressClass, logger *zap.Logger) portsout.TransferGateway {
		return signertransfer.NewGateway(signertransfer.Config{
			Class:      class,
			BaseURL:    cfg.TransferSignerURLs[class],
			AuthToken:  cfg.TransferSignerToken,
			HMACSecret: cfg.TransferSignerSecret,
			Timeout:    cfg.TransferTimeout,
		}, logger)
	},
}

var transferGatewayBuildersMu sync.RWMutex

func RegisterTransferGatewayBuilder(mode string, builder TransferGatewayBuilder) {
	normalizedMode := strings.ToLower(strings.TrimSpace(mode))
	if normalizedMode == "" || builder == nil {
		return
	}

	transferGatewayBuildersMu.Lock()
	defer transferGatewayBuildersMu.Unlock()
	transferGatewayBuilders[normalizedMode] = builder
}

// core holds what every runtime needs to touch the ledger.
type core struct {
	database                     *sql.DB
	ledgerRepository             *postgresqlledger.Repository
	ledger                       portsout.LedgerStore
	balanceCache                 *rediscache.CachedLedger
	registry                     *transfer.Registry
	persistenceGateway           *postgresqlbootstrap.Gateway
	initializePersistenceUseCase portsin.InitializePersistenceUseCase
	closers                      []namedCloser
}

func buildCore(cfg config.Config, logger *zap.Logger) (core, error) {
	registry, buildErr := BuildTransferRegistry(cfg, logger)
	if buildErr != nil {
		return core{}, buildErr
	}

	persistenceGateway := postgresqlbootstrap.NewGateway(
		cfg.DatabaseURL,
		cfg.DatabaseTarget,
		cfg.MigrationsPath,
		logger,
	)
	databasePool := postgresqlshared.NewDatabasePool(cfg.DatabaseURL, postgresqlshared.DefaultPoolConfig(), logger)
	ledgerRepository := postgresqlledger.NewRepository(databasePool, postgresqlledger.Config{
		AuditEnabled:     cfg.AuditEnabled,
		AuditMaxAttempts: cfg.AuditMaxAttempts,
	}, logger)

	built := core{
		database:                     databasePool,
		ledgerRepository:             ledgerRepository,
		ledger:                       ledgerRepository,
		registry:                     registry,
		persistenceGateway:           persistenceGateway,
		initializePersistenceUseCase: use_cases.NewInitializePersistenceUseCase(persistenceGateway),
	}

	if cfg.BalanceCacheEnabled() {
		cached, err := rediscache.NewCachedLedger(ledgerRepository, rediscache.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			TTL:      cfg.BalanceCacheTTL,
		}, logger)
		if err != nil {
			_ = databasePool.Close()
			return core{}, fmt.Errorf("balance cache: %w", err)
		}
		built.ledger = cached
		built.balanceCache = cached
		built.closers = append(built.closers, namedCloser{name: "redis", closer: cached})
	}

	return built, nil
}

// BuildTransferRegistry assembles one gateway per configured chain class.
func BuildTransferRegistry(cfg config.Config, logger *zap.Logger) (*transfer.Registry, error) {
	mode := strings.ToLower(strings.TrimSpace(cfg.TransferMode))

	transferGatewayBuildersMu.RLock()
	builder, exists := transferGatewayBuilders[mode]
	transferGatewayBuildersMu.RUnlock()
	if !exists {
		return nil, fmt.Errorf("unsupported transfer mode: %s", cfg.TransferMode)
	}
	if len(cfg.TransferClasses) == 0 {
		return nil, errors.New("no transfer classes configured")
	}

	gateways := make(map[valueobjects.AddressClass]portsout.TransferGateway, len(cfg.TransferClasses))
	for _, class := range cfg.TransferClasses {
		gateway := builder(cfg, class, logger)
		if gateway == nil {
			return nil, fmt.Errorf("transfer mode %s built no gateway for %s", mode, class)
		}
		gateways[class] = gateway
	}

	return transfer.NewRegistry(gateways), nil
}

func buildReconcilerWorker(cfg config.Config, built core, logger *zap.Logger) *reconciler.Worker {
	useCase := use_cases.NewReconcileWithdrawalsUseCase(
		built.ledgerRepository,
		built.ledger,
		built.registry,
		logger,
	)
	return reconciler.NewWorker(
		cfg.ReconcilerEnabled,
		cfg.ReconcilerPollInterval,
		cfg.ReconcilerBatchSize,
		cfg.ReconcilerWorkerID,
		cfg.ReconcilerLeaseDuration,
		cfg.ReconcilerStaleAfter,
		useCase,
		logger,
	)
}

func buildAuditWorker(cfg config.Config, databasePool *sql.DB, logger *zap.Logger) (*auditdispatch.Worker, []namedCloser, error) {
	if !cfg.AuditDispatchEnabled {
		return auditdispatch.NewWorker(false, 0, 0, "", 0, 0, 0, nil, logger), nil, nil
	}

	publisher, appErr := auditkafka.NewPublisher(auditkafka.Config{
		Brokers: cfg.AuditKafkaBrokers,
		Topic:   cfg.AuditKafkaTopic,
	}, logger)
	if appErr != nil {
		return nil, nil, fmt.Errorf("audit publisher: %s", appErr.Message)
	}

	useCase := use_cases.NewDispatchAuditEventsUseCase(
		postgresqlauditoutbox.NewRepository(databasePool),
		publisher,
	)
	worker := auditdispatch.NewWorker(
		true,
		cfg.AuditPollInterval,
		cfg.AuditBatchSize,
		cfg.AuditWorkerID,
		cfg.AuditLeaseDuration,
		cfg.AuditInitialBackoff,
		cfg.AuditMaxBackoff,
		useCase,
		logger,
	)
	return worker, []namedCloser{{name: "kafka", closer: publisher}}, nil
}

// BuildServer wires the HTTP API. The reconciler and the audit dispatcher
// run in the same process when enabled.
func BuildServer(cfg config.Config, logger *zap.Logger) (Container, error) {
	built, buildErr := buildCore(cfg, logger)
	if buildErr != nil {
		return Container{}, buildErr
	}

	feeSchedule, feeErr := policies.NewFeeSchedule(cfg.WithdrawalFeeRate, cfg.WithdrawalFeeRates)
	if feeErr != nil {
		closeCore(built)
		return Container{}, fmt.Errorf("withdrawal fee schedule: %s", feeErr.Message)
	}

	auditWorker, auditClosers, auditErr := buildAuditWorker(cfg, built.database, logger)
	if auditErr != nil {
		closeCore(built)
		return Container{}, auditErr
	}

	probes := map[string]portsout.ReadinessProbe{
		"postgres": built.persistenceGateway,
	}
	if built.balanceCache != nil {
		probes["redis"] = built.balanceCache
	}

	clock := use_cases.NewSystemClock()
	healthUseCase := use_cases.NewGetHealthUseCase(probes)
	openAPIReadModel := docs.NewFileOpenAPISpecReadModel(cfg.OpenAPISpecPath)
	openAPIUseCase := use_cases.NewGetOpenAPISpecUseCase(openAPIReadModel)
	depositUseCase := use_cases.NewDepositUseCase(built.ledger, clock, logger)
	withdrawUseCase := use_cases.NewWithdrawUseCase(
		built.ledger,
		built.registry,
		feeSchedule,
		clock,
		use_cases.NewUUIDGenerator(),
		cfg.TransferTimeout,
		logger,
	)
	getBalanceUseCase := use_cases.NewGetBalanceUseCase(built.ledger)
	getWithdrawalUseCase := use_cases.NewGetWithdrawalUseCase(built.ledger)

	router := httpRouter.New(httpRouter.Dependencies{
		HealthController:      controllers.NewHealthController(healthUseCase, logger),
		SwaggerController:     controllers.NewSwaggerController(openAPIUseCase, logger),
		DepositsController:    controllers.NewDepositsController(depositUseCase, logger),
		WithdrawalsController: controllers.NewWithdrawalsController(withdrawUseCase, getWithdrawalUseCase, logger),
		BalancesController:    controllers.NewBalancesController(getBalanceUseCase, logger),
	})

	server := httpserver.New(cfg.Address(), router, logger)

	return Container{
		Database:                     built.database,
		Server:                       server,
		InitializePersistenceUseCase: built.initializePersistenceUseCase,
		ReconcilerWorker:             buildReconcilerWorker(cfg, built, logger),
		AuditWorker:                  auditWorker,
		closers:                      append(built.closers, auditClosers...),
	}, nil
}

func BuildReconciler(cfg config.Config, logger *zap.Logger) (Container, error) {
	built, buildErr := buildCore(cfg, logger)
	if buildErr != nil {
		return Container{}, buildErr
	}

	return Container{
		Database:                     built.database,
		InitializePersistenceUseCase: built.initializePersistenceUseCase,
		ReconcilerWorker:             buildReconcilerWorker(cfg, built, logger),
		closers:                      built.closers,
	}, nil
}

func BuildAuditDispatcher(cfg config.Config, logger *zap.Logger) (Container, error) {
	persistenceGateway := postgresqlbootstrap.NewGateway(
		cfg.DatabaseURL,
		cfg.DatabaseTarget,
		cfg.MigrationsPath,
		logger,
	)
	databasePool := postgresqlshared.NewDatabasePool(cfg.DatabaseURL, postgresqlshared.DefaultPoolConfig(), logger)

	auditWorker, auditClosers, auditErr := buildAuditWorker(cfg, databasePool, logger)
	if auditErr != nil {
		_ = databasePool.Close()
		return Container{}, auditErr
	}

	return Container{
		Database:                     databasePool,
		InitializePersistenceUseCase: use_cases.NewInitializePersistenceUseCase(persistenceGateway),
		AuditWorker:                  auditWorker,
		closers:                      auditClosers,
	}, nil
}

func closeCore(built core) {
	Container{Database: built.database, closers: built.closers}.Close(nil)
}
