package config

import (
	"encoding/json"
	"errors"
	"io/fs"
	"net/url"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"housebalance/internal/domain/policies"
	valueobjects "housebalance/internal/domain/value_objects"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

const (
	defaultPort                     = "8080"
	defaultOpenAPISpec              = "api/openapi.yaml"
	defaultShutdownTimeout          = 10 * time.Second
	defaultDBReadinessTimeout       = 30 * time.Second
	defaultDBReadinessRetryInterval = 2 * time.Second
	defaultMigrationsPath           = "internal/adapters/outbound/persistence/postgresql/migrations"
	defaultLogLevel                 = "info"
	defaultLogFormat                = "json"
	defaultLogMaxSizeMB             = 100
	defaultLogMaxBackups            = 5
	defaultLogMaxAgeDays            = 14
	defaultWithdrawalFeeRate        = "0.02"
	defaultTransferMode             = "devtest"
	defaultTransferTimeout          = 30 * time.Second
	defaultReconcilerPollInterval   = 15 * time.Second
	defaultReconcilerBatchSize      = 50
	defaultReconcilerLeaseDuration  = 30 * time.Second
	defaultReconcilerStaleAfter     = 2 * time.Minute
	defaultAuditPollInterval        = 5 * time.Second
	defaultAuditBatchSize           = 100
	defaultAuditMaxAttempts         = 25
	defaultAuditInitialBackoff      = 5 * time.Second
	defaultAuditMaxBackoff          = 5 * time.Minute
	defaultAuditLeaseDuration       = 30 * time.Second
	defaultAuditKafkaTopic          = "housebalance.audit"
	defaultBalanceCacheTTL          = 5 * time.Second
)

const (
	feeRatesEnv        = "WITHDRAWAL_FEE_RATES_JSON"
	signerURLsEnv      = "TRANSFER_SIGNER_URLS_JSON"
	transferClassesEnv = "TRANSFER_CLASSES"
)

type ConfigError struct {
	Code     string
	Message  string
	Metadata map[string]string
}

func (e *ConfigError) Error() string {
	if e == nil {
		return ""
	}

	return e.Message
}

type Config struct {
	Port                     string
	OpenAPISpecPath          string
	ShutdownTimeout          time.Duration
	DatabaseURL              string
	DatabaseTarget           string
	DBReadinessTimeout       time.Duration
	DBReadinessRetryInterval time.Duration
	MigrationsPath           string

	LogLevel      string
	LogFormat     string
	LogFile       string
	LogMaxSizeMB  int
	LogMaxBackups int
	LogMaxAgeDays int

	WithdrawalFeeRate  decimal.Decimal
	WithdrawalFeeRates map[valueobjects.AddressClass]decimal.Decimal

	TransferMode         string
	TransferClasses      []valueobjects.AddressClass
	TransferTimeout      time.Duration
	TransferSignerURLs   map[valueobjects.AddressClass]string
	TransferSignerToken  string
	TransferSignerSecret string
	DevtestTreasuryFunds decimal.Decimal

	ReconcilerEnabled       bool
	ReconcilerPollInterval  time.Duration
	ReconcilerBatchSize     int
	ReconcilerWorkerID      string
	ReconcilerLeaseDuration time.Duration
	ReconcilerStaleAfter    time.Duration

	AuditEnabled         bool
	AuditDispatchEnabled bool
	AuditKafkaBrokers    []string
	AuditKafkaTopic      string
	AuditPollInterval    time.Duration
	AuditBatchSize       int
	AuditWorkerID        string
	AuditLeaseDuration   time.Duration
	AuditMaxAttempts     int
	AuditInitialBackoff  time.Duration
	AuditMaxBackoff      time.Duration

	RedisAddr       string
	RedisPassword   string
	RedisDB         int
	BalanceCacheTTL time.Duration
}

// LoadConfig reads the process environment. A .env file (or the file named by
// ENV_FILE) is applied first without overriding variables that are already set.
func LoadConfig() (Config, *ConfigError) {
	if dotEnvErr := loadDotEnv(); dotEnvErr != nil {
		return Config{}, dotEnvErr
	}

	databaseURL := strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if databaseURL == "" {
		return Config{}, &ConfigError{
			Code:    "CONFIG_DATABASE_URL_REQUIRED",
			Message: "DATABASE_URL is required",
		}
	}

	databaseTarget, parseErr := parseDatabaseTarget(databaseURL)
	if parseErr != nil {
		return Config{}, parseErr
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = defaultPort
	}

	openAPISpecPath := os.Getenv("OPENAPI_SPEC_PATH")
	if openAPISpecPath == "" {
		openAPISpecPath = defaultOpenAPISpec
	}

	migrationsPath := strings.TrimSpace(os.Getenv("MIGRATIONS_PATH"))
	if migrationsPath == "" {
		migrationsPath = defaultMigrationsPath
	}

	cfg := Config{
		Port:                     port,
		OpenAPISpecPath:          openAPISpecPath,
		DatabaseURL:              databaseURL,
		DatabaseTarget:           databaseTarget,
		DBReadinessTimeout:       defaultDBReadinessTimeout,
		DBReadinessRetryInterval: defaultDBReadinessRetryInterval,
		MigrationsPath:           migrationsPath,
		LogLevel:                 envOrDefault("LOG_LEVEL", defaultLogLevel),
		LogFormat:                strings.ToLower(envOrDefault("LOG_FORMAT", defaultLogFormat)),
		LogFile:                  strings.TrimSpace(os.Getenv("LOG_FILE")),
		TransferMode:             strings.ToLower(envOrDefault("TRANSFER_MODE", defaultTransferMode)),
		TransferSignerToken:      strings.TrimSpace(os.Getenv("TRANSFER_SIGNER_TOKEN")),
		TransferSignerSecret:     strings.TrimSpace(os.Getenv("TRANSFER_SIGNER_HMAC_SECRET")),
		ReconcilerWorkerID:       envOrDefault("RECONCILER_WORKER_ID", defaultWorkerID("reconciler")),
		AuditWorkerID:            envOrDefault("AUDIT_DISPATCH_WORKER_ID", defaultWorkerID("audit-dispatcher")),
		AuditKafkaTopic:          envOrDefault("AUDIT_KAFKA_TOPIC", defaultAuditKafkaTopic),
		AuditKafkaBrokers:        splitList(os.Getenv("AUDIT_KAFKA_BROKERS")),
		RedisAddr:                strings.TrimSpace(os.Getenv("REDIS_ADDR")),
		RedisPassword:            os.Getenv("REDIS_PASSWORD"),
	}

	var cfgErr *ConfigError
	if cfg.ShutdownTimeout, cfgErr = durationEnv("SHUTDOWN_TIMEOUT", defaultShutdownTimeout); cfgErr != nil {
		return Config{}, cfgErr
	}
	if cfg.LogMaxSizeMB, cfgErr = positiveIntEnv("LOG_MAX_SIZE_MB", defaultLogMaxSizeMB); cfgErr != nil {
		return Config{}, cfgErr
	}
	if cfg.LogMaxBackups, cfgErr = positiveIntEnv("LOG_MAX_BACKUPS", defaultLogMaxBackups); cfgErr != nil {
		return Config{}, cfgErr
	}
	if cfg.LogMaxAgeDays, cfgErr = positiveIntEnv("LOG_MAX_AGE_DAYS", defaultLogMaxAgeDays); cfgErr != nil {
		return Config{}, cfgErr
	}
	switch cfg.LogFormat {
	case "json", "console":
	default:
		return Config{}, &ConfigError{
			Code:     "CONFIG_LOG_FORMAT_INVALID",
			Message:  "LOG_FORMAT must be json or console",
			Metadata: map[string]string{"value": cfg.LogFormat},
		}
	}

	if cfgErr = loadFeeConfig(&cfg); cfgErr != nil {
		return Config{}, cfgErr
	}
	if cfgErr = loadTransferConfig(&cfg); cfgErr != nil {
		return Config{}, cfgErr
	}
	if cfgErr = loadReconcilerConfig(&cfg); cfgErr != nil {
		return Config{}, cfgErr
	}
	if cfgErr = loadAuditConfig(&cfg); cfgErr != nil {
		return Config{}, cfgErr
	}

	if cfg.RedisDB, cfgErr = nonNegativeIntEnv("REDIS_DB", 0); cfgErr != nil {
		return Config{}, cfgErr
	}
	if cfg.BalanceCacheTTL, cfgErr = durationEnv("BALANCE_CACHE_TTL", defaultBalanceCacheTTL); cfgErr != nil {
		return Config{}, cfgErr
	}

	return cfg, nil
}

func (c Config) Address() string {
	return ":" + c.Port
}

func (c Config) BalanceCacheEnabled() bool {
	return c.RedisAddr != ""
}

func loadDotEnv() *ConfigError {
	path := strings.TrimSpace(os.Getenv("ENV_FILE"))
	explicit := path != ""
	if !explicit {
		path = ".env"
	}

	if err := godotenv.Load(path); err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return &ConfigError{
			Code:     "CONFIG_ENV_FILE_INVALID",
			Message:  "failed to load env file",
			Metadata: map[string]string{"path": path, "error": err.Error()},
		}
	}
	return nil
}

func loadFeeConfig(cfg *Config) *ConfigError {
	rawRate := envOrDefault("WITHDRAWAL_FEE_RATE", defaultWithdrawalFeeRate)
	rate, cfgErr := parseFeeRate("WITHDRAWAL_FEE_RATE", rawRate)
	if cfgErr != nil {
		return cfgErr
	}
	cfg.WithdrawalFeeRate = rate

	cfg.WithdrawalFeeRates = map[valueobjects.AddressClass]decimal.Decimal{}
	raw := strings.TrimSpace(os.Getenv(feeRatesEnv))
	if raw == "" {
		return nil
	}

	decoded := map[string]string{}
	if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
		return &ConfigError{
			Code:    "CONFIG_WITHDRAWAL_FEE_RATES_INVALID",
			Message: feeRatesEnv + " must be a JSON object of address class to decimal string",
		}
	}
	for rawClass, rawClassRate := range decoded {
		class, ok := valueobjects.ParseAddressClass(rawClass)
		if !ok {
			return &ConfigError{
				Code:     "CONFIG_WITHDRAWAL_FEE_RATES_INVALID",
				Message:  feeRatesEnv + " contains an unknown address class",
				Metadata: map[string]string{"address_class": rawClass},
			}
		}
		classRate, cfgErr := parseFeeRate(feeRatesEnv, rawClassRate)
		if cfgErr != nil {
			cfgErr.Metadata["address_class"] = class.String()
			return cfgErr
		}
		cfg.WithdrawalFeeRates[class] = classRate
	}
	return nil
}

func parseFeeRate(name string, raw string) (decimal.Decimal, *ConfigError) {
	rate, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil || policies.ValidateFeeRate(rate) != nil {
		return decimal.Decimal{}, &ConfigError{
			Code:     "CONFIG_WITHDRAWAL_FEE_RATE_INVALID",
			Message:  name + " must be a decimal between 0 and 1 with at most 8 decimal places",
			Metadata: map[string]string{"value": raw},
		}
	}
	return rate, nil
}

func loadTransferConfig(cfg *Config) *ConfigError {
	switch cfg.TransferMode {
	case "devtest", "signer":
	default:
		return &ConfigError{
			Code:     "CONFIG_TRANSFER_MODE_INVALID",
			Message:  "TRANSFER_MODE must be devtest or signer",
			Metadata: map[string]string{"value": cfg.TransferMode},
		}
	}

	var cfgErr *ConfigError
	if cfg.TransferTimeout, cfgErr = durationEnv("TRANSFER_TIMEOUT", defaultTransferTimeout); cfgErr != nil {
		return cfgErr
	}

	rawClasses := splitList(os.Getenv(transferClassesEnv))
	if len(rawClasses) == 0 {
		rawClasses = []string{
			valueobjects.AddressClassKaspa.String(),
			valueobjects.AddressClassEVM.String(),
			valueobjects.AddressClassSui.String(),
			valueobjects.AddressClassSolana.String(),
			valueobjects.AddressClassStellar.String(),
		}
	}
	seen := map[valueobjects.AddressClass]struct{}{}
	for _, rawClass := range rawClasses {
		class, ok := valueobjects.ParseAddressClass(rawClass)
		if !ok {
			return &ConfigError{
				Code:     "CONFIG_TRANSFER_CLASSES_INVALID",
				Message:  transferClassesEnv + " contains an unknown address class",
				Metadata: map[string]string{"address_class": rawClass},
			}
		}
		if _, duplicate := seen[class]; duplicate {
			continue
		}
		seen[class] = struct{}{}
		cfg.TransferClasses = append(cfg.TransferClasses, class)
	}

	treasury := strings.TrimSpace(os.Getenv("TRANSFER_DEVTEST_TREASURY_FUNDS"))
	cfg.DevtestTreasuryFunds = decimal.Zero
	if treasury != "" {
		funds, err := decimal.NewFromString(treasury)
		if err != nil || funds.IsNegative() {
			return &ConfigError{
				Code:     "CONFIG_TRANSFER_DEVTEST_TREASURY_INVALID",
				Message:  "TRANSFER_DEVTEST_TREASURY_FUNDS must be a non-negative decimal",
				Metadata: map[string]string{"value": treasury},
			}
		}
		cfg.DevtestTreasuryFunds = funds
	}

	signerURLs, cfgErr := parseSignerURLs(strings.TrimSpace(os.Getenv(signerURLsEnv)))
	if cfgErr != nil {
		return cfgErr
	}
	cfg.TransferSignerURLs = signerURLs
	if cfg.TransferMode != "signer" {
		return nil
	}

	for _, class := range cfg.TransferClasses {
		if _, ok := signerURLs[class]; !ok {
			return &ConfigError{
				Code:     "CONFIG_TRANSFER_SIGNER_URL_REQUIRED",
				Message:  signerURLsEnv + " must define a signer URL for every enabled address class",
				Metadata: map[string]string{"address_class": class.String()},
			}
		}
	}
	if cfg.TransferSignerSecret == "" {
		return &ConfigError{
			Code:    "CONFIG_TRANSFER_SIGNER_HMAC_SECRET_REQUIRED",
			Message: "TRANSFER_SIGNER_HMAC_SECRET is required for signer transfer mode",
		}
	}
	return nil
}

func parseSignerURLs(raw string) (map[valueobjects.AddressClass]string, *ConfigError) {
	out := map[valueobjects.AddressClass]string{}
	if raw == "" {
		return out, nil
	}

	decoded := map[string]string{}
	if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
		return nil, &ConfigError{
			Code:    "CONFIG_TRANSFER_SIGNER_URLS_INVALID",
			Message: signerURLsEnv + " must be a JSON object of address class to URL",
		}
	}
	for rawClass, rawURL := range decoded {
		class, ok := valueobjects.ParseAddressClass(rawClass)
		if !ok {
			return nil, &ConfigError{
				Code:     "CONFIG_TRANSFER_SIGNER_URLS_INVALID",
				Message:  signerURLsEnv + " contains an unknown address class",
				Metadata: map[string]string{"address_class": rawClass},
			}
		}
		normalized, appErr := valueobjects.NormalizeServiceURL(rawURL, signerURLsEnv)
		if appErr != nil {
			return nil, &ConfigError{
				Code:     "CONFIG_TRANSFER_SIGNER_URLS_INVALID",
				Message:  appErr.Message,
				Metadata: map[string]string{"address_class": class.String()},
			}
		}
		out[class] = normalized
	}
	return out, nil
}

func loadReconcilerConfig(cfg *Config) *ConfigError {
	var cfgErr *ConfigError
	if cfg.ReconcilerEnabled, cfgErr = boolEnv("RECONCILER_ENABLED", true); cfgErr != nil {
		return cfgErr
	}
	if cfg.ReconcilerPollInterval, cfgErr = durationEnv("RECONCILER_POLL_INTERVAL", defaultReconcilerPollInterval); cfgErr != nil {
		return cfgErr
	}
	if cfg.ReconcilerBatchSize, cfgErr = positiveIntEnv("RECONCILER_BATCH_SIZE", defaultReconcilerBatchSize); cfgErr != nil {
		return cfgErr
	}
	if cfg.ReconcilerLeaseDuration, cfgErr = durationEnv("RECONCILER_LEASE_DURATION", defaultReconcilerLeaseDuration); cfgErr != nil {
		return cfgErr
	}
	if cfg.ReconcilerStaleAfter, cfgErr = durationEnv("RECONCILER_STALE_AFTER", defaultReconcilerStaleAfter); cfgErr != nil {
		return cfgErr
	}

	// A withdrawal whose transfer is still in flight must not look stale.
	if cfg.ReconcilerStaleAfter <= cfg.TransferTimeout {
		return &ConfigError{
			Code:    "CONFIG_RECONCILER_STALE_AFTER_TOO_SHORT",
			Message: "RECONCILER_STALE_AFTER must be greater than TRANSFER_TIMEOUT",
			Metadata: map[string]string{
				"stale_after":      cfg.ReconcilerStaleAfter.String(),
				"transfer_timeout": cfg.TransferTimeout.String(),
			},
		}
	}
	return nil
}

func loadAuditConfig(cfg *Config) *ConfigError {
	var cfgErr *ConfigError
	if cfg.AuditEnabled, cfgErr = boolEnv("AUDIT_ENABLED", true); cfgErr != nil {
		return cfgErr
	}
	if cfg.AuditDispatchEnabled, cfgErr = boolEnv("AUDIT_DISPATCH_ENABLED", false); cfgErr != nil {
		return cfgErr
	}
	if cfg.AuditPollInterval, cfgErr = durationEnv("AUDIT_DISPATCH_POLL_INTERVAL", defaultAuditPollInterval); cfgErr != nil {
		return cfgErr
	}
	if cfg.AuditBatchSize, cfgErr = positiveIntEnv("AUDIT_DISPATCH_BATCH_SIZE", defaultAuditBatchSize); cfgErr != nil {
		return cfgErr
	}
	if cfg.AuditLeaseDuration, cfgErr = durationEnv("AUDIT_DISPATCH_LEASE_DURATION", defaultAuditLeaseDuration); cfgErr != nil {
		return cfgErr
	}
	if cfg.AuditMaxAttempts, cfgErr = positiveIntEnv("AUDIT_MAX_ATTEMPTS", defaultAuditMaxAttempts); cfgErr != nil {
		return cfgErr
	}
	if cfg.AuditInitialBackoff, cfgErr = durationEnv("AUDIT_INITIAL_BACKOFF", defaultAuditInitialBackoff); cfgErr != nil {
		return cfgErr
	}
	if cfg.AuditMaxBackoff, cfgErr = durationEnv("AUDIT_MAX_BACKOFF", defaultAuditMaxBackoff); cfgErr != nil {
		return cfgErr
	}
	if cfg.AuditMaxBackoff < cfg.AuditInitialBackoff {
		return &ConfigError{
			Code:    "CONFIG_AUDIT_MAX_BACKOFF_INVALID",
			Message: "AUDIT_MAX_BACKOFF must be greater than or equal to AUDIT_INITIAL_BACKOFF",
		}
	}

	if cfg.AuditDispatchEnabled {
		if !cfg.AuditEnabled {
			return &ConfigError{
				Code:    "CONFIG_AUDIT_DISABLED",
				Message: "AUDIT_ENABLED must be true when AUDIT_DISPATCH_ENABLED is true",
			}
		}
		if len(cfg.AuditKafkaBrokers) == 0 {
			return &ConfigError{
				Code:    "CONFIG_AUDIT_KAFKA_BROKERS_REQUIRED",
				Message: "AUDIT_KAFKA_BROKERS is required when AUDIT_DISPATCH_ENABLED is true",
			}
		}
	}
	return nil
}

func parseDatabaseTarget(databaseURL string) (string, *ConfigError) {
	parsed, err := url.Parse(databaseURL)
	if err != nil {
		return "", &ConfigError{
			Code:    "CONFIG_DATABASE_URL_INVALID",
			Message: "DATABASE_URL is invalid",
		}
	}

	switch parsed.Scheme {
	case "postgres", "postgresql":
	default:
		return "", &ConfigError{
			Code:    "CONFIG_DATABASE_URL_SCHEME_INVALID",
			Message: "DATABASE_URL must use postgres or postgresql scheme",
		}
	}

	if parsed.Host == "" {
		return "", &ConfigError{
			Code:    "CONFIG_DATABASE_URL_HOST_MISSING",
			Message: "DATABASE_URL host is required",
		}
	}

	databaseName := strings.TrimPrefix(parsed.Path, "/")
	if databaseName == "" {
		return "", &ConfigError{
			Code:    "CONFIG_DATABASE_NAME_MISSING",
			Message: "DATABASE_URL database name is required",
		}
	}

	return parsed.Host + "/" + databaseName, nil
}

func envOrDefault(name string, fallback string) string {
	value := strings.TrimSpace(os.Getenv(name))
	if value == "" {
		return fallback
	}
	return value
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func durationEnv(name string, fallback time.Duration) (time.Duration, *ConfigError) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback, nil
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil || parsed <= 0 {
		return 0, &ConfigError{
			Code:     "CONFIG_" + name + "_INVALID",
			Message:  name + " must be a positive duration",
			Metadata: map[string]string{"value": raw},
		}
	}
	return parsed, nil
}

func positiveIntEnv(name string, fallback int) (int, *ConfigError) {
	parsed, cfgErr := nonNegativeIntEnv(name, fallback)
	if cfgErr != nil {
		return 0, cfgErr
	}
	if parsed == 0 {
		return 0, &ConfigError{
			Code:     "CONFIG_" + name + "_INVALID",
			Message:  name + " must be a positive integer",
			Metadata: map[string]string{"value": "0"},
		}
	}
	return parsed, nil
}

func nonNegativeIntEnv(name string, fallback int) (int, *ConfigError) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback, nil
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil || parsed < 0 {
		return 0, &ConfigError{
			Code:     "CONFIG_" + name + "_INVALID",
			Message:  name + " must be a non-negative integer",
			Metadata: map[string]string{"value": raw},
		}
	}
	return parsed, nil
}

func boolEnv(name string, fallback bool) (bool, *ConfigError) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback, nil
	}
	parsed, err := strconv.ParseBool(raw)
	if err != nil {
		return false, &ConfigError{
			Code:     "CONFIG_" + name + "_INVALID",
			Message:  name + " must be a boolean",
			Metadata: map[string]string{"value": raw},
		}
	}
	return parsed, nil
}

func defaultWorkerID(role string) string {
	host, err := os.Hostname()
	if err != nil || strings.TrimSpace(host) == "" {
		return role
	}
	return role + "-" + host
}

// SortedClasses returns the enabled transfer classes in a stable order for logging.
func (c Config) SortedClasses() []string {
	out := make([]string, 0, len(c.TransferClasses))
	for _, class := range c.TransferClasses {
		out = append(out, class.String())
	}
	sort.Strings(out)
	return out
}
