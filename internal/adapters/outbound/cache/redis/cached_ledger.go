package redis

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"strings"
	"time"

	"housebalance/internal/application/dto"
	portsout "housebalance/internal/application/ports/out"
	valueobjects "housebalance/internal/domain/value_objects"
	apperrors "housebalance/internal/shared_kernel/errors"

	goredis "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	balanceKeyPrefix = "housebalance:balance:"
	defaultCacheTTL  = 5 * time.Second
	pingTimeout      = 2 * time.Second
)

type Config struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

type cacheClient interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	Del(ctx context.Context, key string) error
	Ping(ctx context.Context) error
	Close() error
}

// CachedLedger serves GetBalance through Redis and drops the cached entry
// after every mutation that touches the balance row. Orchestrators never
// read from it before mutating, so a stale entry only affects the query path.
type CachedLedger struct {
	portsout.LedgerStore
	cache  cacheClient
	ttl    time.Duration
	logger *zap.Logger
}

var _ portsout.LedgerStore = (*CachedLedger)(nil)

func NewCachedLedger(base portsout.LedgerStore, cfg Config, logger *zap.Logger) (*CachedLedger, error) {
	if base == nil {
		return nil, stderrors.New("base ledger store is required")
	}
	if strings.TrimSpace(cfg.Addr) == "" {
		return nil, stderrors.New("redis address is required")
	}

	client := goredis.NewClient(&goredis.Options{
		Addr:     strings.TrimSpace(cfg.Addr),
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	cache := redisClient{client: client}
	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := cache.Ping(ctx); err != nil {
		_ = cache.Close()
		return nil, err
	}

	return newCachedLedger(base, cache, cfg.TTL, logger), nil
}

func newCachedLedger(base portsout.LedgerStore, cache cacheClient, ttl time.Duration, logger *zap.Logger) *CachedLedger {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedLedger{
		LedgerStore: base,
		cache:       cache,
		ttl:         ttl,
		logger:      logger.With(zap.String("component", "balance_cache")),
	}
}

func (c *CachedLedger) CheckReadiness(ctx context.Context) *apperrors.AppError {
	if err := c.cache.Ping(ctx); err != nil {
		return apperrors.NewUnavailable(
			"balance_cache_unavailable",
			"balance cache is not reachable",
			map[string]any{"error": err.Error()},
		)
	}
	return nil
}

func (c *CachedLedger) Close() error {
	if c == nil || c.cache == nil {
		return nil
	}
	return c.cache.Close()
}

type cachedBalance struct {
	UserAddress  string    `json:"user_address"`
	AddressClass string    `json:"address_class"`
	Balance      string    `json:"balance"`
	Reserved     string    `json:"reserved"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (c *CachedLedger) GetBalance(ctx context.Context, userAddress string) (dto.BalanceRecord, bool, *apperrors.AppError) {
	key := balanceKey(userAddress)
	raw, err := c.cache.Get(ctx, key)
	switch {
	case err == nil:
		if record, ok := decodeBalance(raw); ok {
			return record, true, nil
		}
	case !stderrors.Is(err, goredis.Nil):
		c.logger.Warn("balance cache read failed", zap.String("user_address", userAddress), zap.Error(err))
	}

	record, found, appErr := c.LedgerStore.GetBalance(ctx, userAddress)
	if appErr != nil || !found {
		return record, found, appErr
	}

	payload, err := json.Marshal(cachedBalance{
		UserAddress:  record.UserAddress,
		AddressClass: record.AddressClass.String(),
		Balance:      record.Balance.String(),
		Reserved:     record.Reserved.String(),
		CreatedAt:    record.CreatedAt,
		UpdatedAt:    record.UpdatedAt,
	})
	if err == nil {
		if err := c.cache.Set(ctx, key, string(payload), c.ttl); err != nil {
			c.logger.Warn("balance cache write failed", zap.String("user_address", userAddress), zap.Error(err))
		}
	}
	return record, true, nil
}

func (c *CachedLedger) CreditOnce(ctx context.Context, command dto.CreditCommand) (dto.CreditResult, *apperrors.AppError) {
	result, appErr := c.LedgerStore.CreditOnce(ctx, command)
	if appErr == nil && !result.Replayed {
		c.invalidate(ctx, command.UserAddress)
	}
	return result, appErr
}

func (c *CachedLedger) ReserveFunds(ctx context.Context, command dto.ReserveFundsCommand) (dto.ReserveFundsResult, *apperrors.AppError) {
	result, appErr := c.LedgerStore.ReserveFunds(ctx, command)
	if appErr == nil {
		c.invalidate(ctx, command.Withdrawal.UserAddress)
	}
	return result, appErr
}

func (c *CachedLedger) DebitReserved(ctx context.Context, command dto.DebitReservedCommand) (dto.DebitReservedResult, *apperrors.AppError) {
	result, appErr := c.LedgerStore.DebitReserved(ctx, command)
	if appErr == nil && !result.Replayed {
		c.invalidate(ctx, result.Withdrawal.UserAddress)
	}
	return result, appErr
}

func (c *CachedLedger) ReleaseReservation(ctx context.Context, command dto.ReleaseReservationCommand) (dto.ReleaseReservationResult, *apperrors.AppError) {
	result, appErr := c.LedgerStore.ReleaseReservation(ctx, command)
	if appErr == nil && !result.Replayed {
		c.invalidate(ctx, result.Withdrawal.UserAddress)
	}
	return result, appErr
}

func (c *CachedLedger) invalidate(ctx context.Context, userAddress string) {
	if strings.TrimSpace(userAddress) == "" {
		return
	}
	if err := c.cache.Del(ctx, balanceKey(userAddress)); err != nil {
		c.logger.Warn("balance cache invalidation failed", zap.String("user_address", userAddress), zap.Error(err))
	}
}

func balanceKey(userAddress string) string {
	return balanceKeyPrefix + userAddress
}

func decodeBalance(raw string) (dto.BalanceRecord, bool) {
	var cached cachedBalance
	if err := json.Unmarshal([]byte(raw), &cached); err != nil {
		return dto.BalanceRecord{}, false
	}
	balance, err := decimal.NewFromString(cached.Balance)
	if err != nil {
		return dto.BalanceRecord{}, false
	}
	reserved, err := decimal.NewFromString(cached.Reserved)
	if err != nil {
		return dto.BalanceRecord{}, false
	}
	return dto.BalanceRecord{
		UserAddress:  cached.UserAddress,
		AddressClass: valueobjects.AddressClass(cached.AddressClass),
		Balance:      balance,
		Reserved:     reserved,
		CreatedAt:    cached.CreatedAt,
		UpdatedAt:    cached.UpdatedAt,
	}, true
}

type redisClient struct {
	client *goredis.Client
}

func (r redisClient) Get(ctx context.Context, key string) (string, error) {
	return r.client.Get(ctx, key).Result()
}

func (r redisClient) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	return r.client.Set(ctx, key, value, ttl).Err()
}

func (r redisClient) Del(ctx context.Context, key string) error {
	return r.client.Del(ctx, key).Err()
}

func (r redisClient) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r redisClient) Close() error {
	return r.client.Close()
}
