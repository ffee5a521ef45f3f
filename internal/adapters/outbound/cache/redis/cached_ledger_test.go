//go:build !integration

package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"housebalance/internal/application/dto"
	portsout "housebalance/internal/application/ports/out"
	"housebalance/internal/domain/entities"
	valueobjects "housebalance/internal/domain/value_objects"
	apperrors "housebalance/internal/shared_kernel/errors"

	goredis "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

const testAddress = "0xfb6916095ca1df60bb79ce92ce3ea74c37c5d359"

type fakeCache struct {
	values  map[string]string
	ttls    map[string]time.Duration
	deleted []string
	getErr  error
	pingErr error
}

func newFakeCache() *fakeCache {
	return &fakeCache{values: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (c *fakeCache) Get(_ context.Context, key string) (string, error) {
	if c.getErr != nil {
		return "", c.getErr
	}
	value, ok := c.values[key]
	if !ok {
		return "", goredis.Nil
	}
	return value, nil
}

func (c *fakeCache) Set(_ context.Context, key string, value string, ttl time.Duration) error {
	c.values[key] = value
	c.ttls[key] = ttl
	return nil
}

func (c *fakeCache) Del(_ context.Context, key string) error {
	delete(c.values, key)
	c.deleted = append(c.deleted, key)
	return nil
}

func (c *fakeCache) Ping(_ context.Context) error {
	return c.pingErr
}

func (c *fakeCache) Close() error {
	return nil
}

// countingStore implements only what the tests touch.
type countingStore struct {
	portsout.LedgerStore
	record     dto.BalanceRecord
	found      bool
	reads      int
	creditErr  *apperrors.AppError
	withdrawal entities.Withdrawal
}

func (s *countingStore) GetBalance(_ context.Context, _ string) (dto.BalanceRecord, bool, *apperrors.AppError) {
	s.reads++
	return s.record, s.found, nil
}

func (s *countingStore) CreditOnce(_ context.Context, command dto.CreditCommand) (dto.CreditResult, *apperrors.AppError) {
	if s.creditErr != nil {
		return dto.CreditResult{}, s.creditErr
	}
	s.record.Balance = s.record.Balance.Add(command.Amount)
	return dto.CreditResult{Balance: s.record}, nil
}

func (s *countingStore) DebitReserved(_ context.Context, _ dto.DebitReservedCommand) (dto.DebitReservedResult, *apperrors.AppError) {
	return dto.DebitReservedResult{Withdrawal: s.withdrawal, Balance: s.record}, nil
}

func seededStore() *countingStore {
	return &countingStore{
		record: dto.BalanceRecord{
			UserAddress:  testAddress,
			AddressClass: valueobjects.AddressClassEVM,
			Balance:      decimal.RequireFromString("1000.5"),
			Reserved:     decimal.RequireFromString("100"),
			UpdatedAt:    time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		},
		found:      true,
		withdrawal: entities.Withdrawal{ID: "wd_1", UserAddress: testAddress},
	}
}

func TestCachedLedgerReadsThroughOnce(t *testing.T) {
	store := seededStore()
	cache := newFakeCache()
	ledger := newCachedLedger(store, cache, time.Minute, nil)

	first, found, appErr := ledger.GetBalance(context.Background(), testAddress)
	require.Nil(t, appErr)
	require.True(t, found)
	require.Equal(t, time.Minute, cache.ttls[balanceKey(testAddress)])

	second, found, appErr := ledger.GetBalance(context.Background(), testAddress)
	require.Nil(t, appErr)
	require.True(t, found)
	require.Equal(t, 1, store.reads)
	require.True(t, first.Balance.Equal(second.Balance))
	require.True(t, first.Reserved.Equal(second.Reserved))
	require.Equal(t, valueobjects.AddressClassEVM, second.AddressClass)
	require.True(t, first.UpdatedAt.Equal(second.UpdatedAt))
}

func TestCachedLedgerDoesNotCacheMissingBalance(t *testing.T) {
	store := &countingStore{}
	cache := newFakeCache()
	ledger := newCachedLedger(store, cache, 0, nil)

	_, found, appErr := ledger.GetBalance(context.Background(), testAddress)
	require.Nil(t, appErr)
	require.False(t, found)
	require.Empty(t, cache.values)
}

func TestCachedLedgerInvalidatesAfterMutation(t *testing.T) {
	store := seededStore()
	cache := newFakeCache()
	ledger := newCachedLedger(store, cache, time.Minute, nil)

	_, _, appErr := ledger.GetBalance(context.Background(), testAddress)
	require.Nil(t, appErr)

	_, appErr = ledger.CreditOnce(context.Background(), dto.CreditCommand{
		UserAddress: testAddress,
		Amount:      decimal.RequireFromString("10"),
	})
	require.Nil(t, appErr)
	require.NotContains(t, cache.values, balanceKey(testAddress))

	record, _, appErr := ledger.GetBalance(context.Background(), testAddress)
	require.Nil(t, appErr)
	require.Equal(t, "1010.5", record.Balance.String())
	require.Equal(t, 2, store.reads)

	_, appErr = ledger.DebitReserved(context.Background(), dto.DebitReservedCommand{WithdrawalID: "wd_1"})
	require.Nil(t, appErr)
	require.Equal(t, []string{balanceKey(testAddress), balanceKey(testAddress)}, cache.deleted)
}

func TestCachedLedgerKeepsEntryWhenMutationFails(t *testing.T) {
	store := seededStore()
	store.creditErr = apperrors.NewUnavailable("ledger_unavailable", "down", nil)
	cache := newFakeCache()
	ledger := newCachedLedger(store, cache, time.Minute, nil)

	_, appErr := ledger.CreditOnce(context.Background(), dto.CreditCommand{UserAddress: testAddress, Amount: decimal.NewFromInt(1)})
	require.NotNil(t, appErr)
	require.Empty(t, cache.deleted)
}

func TestCachedLedgerFallsBackWhenRedisFails(t *testing.T) {
	store := seededStore()
	cache := newFakeCache()
	cache.getErr = errors.New("connection refused")
	ledger := newCachedLedger(store, cache, time.Minute, nil)

	record, found, appErr := ledger.GetBalance(context.Background(), testAddress)
	require.Nil(t, appErr)
	require.True(t, found)
	require.Equal(t, "1000.5", record.Balance.String())
	require.Equal(t, 1, store.reads)
}

func TestCachedLedgerIgnoresCorruptEntry(t *testing.T) {
	store := seededStore()
	cache := newFakeCache()
	cache.values[balanceKey(testAddress)] = "{not json"
	ledger := newCachedLedger(store, cache, time.Minute, nil)

	record, _, appErr := ledger.GetBalance(context.Background(), testAddress)
	require.Nil(t, appErr)
	require.Equal(t, "1000.5", record.Balance.String())
	require.Equal(t, 1, store.reads)
}

func TestCachedLedgerCheckReadiness(t *testing.T) {
	cache := newFakeCache()
	cached := newCachedLedger(&countingStore{}, cache, time.Second, nil)
	require.Nil(t, cached.CheckReadiness(context.Background()))

	cache.pingErr = errors.New("connection refused")
	appErr := cached.CheckReadiness(context.Background())
	require.NotNil(t, appErr)
	require.Equal(t, "balance_cache_unavailable", appErr.Code)
}
