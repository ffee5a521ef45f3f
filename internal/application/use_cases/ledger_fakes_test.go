//go:build !integration

package use_cases

import (
	"context"
	"fmt"
	"sync"
	"time"

	"housebalance/internal/application/dto"
	portsout "housebalance/internal/application/ports/out"
	"housebalance/internal/domain/entities"
	valueobjects "housebalance/internal/domain/value_objects"
	apperrors "housebalance/internal/shared_kernel/errors"

	"github.com/shopspring/decimal"
)

type fakeDeposit struct {
	address string
	amount  decimal.Decimal
}

// fakeLedger mirrors the conditional updates of the postgres ledger under one mutex.
type fakeLedger struct {
	mu          sync.Mutex
	balances    map[string]*dto.BalanceRecord
	deposits    map[string]fakeDeposit
	withdrawals map[string]*entities.Withdrawal
	byKey       map[string]string

	debitErr    *apperrors.AppError
	releaseErr  *apperrors.AppError
	markErr     *apperrors.AppError
	creditCalls int
	debitCalls  int
	markedLUF   int
}

var _ portsout.LedgerStore = (*fakeLedger)(nil)

func newFakeLedger() *fakeLedger {
	return &fakeLedger{
		balances:    map[string]*dto.BalanceRecord{},
		deposits:    map[string]fakeDeposit{},
		withdrawals: map[string]*entities.Withdrawal{},
		byKey:       map[string]string{},
	}
}

func (f *fakeLedger) seed(address string, balance string) {
	classified := valueobjects.Classify(address)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.balances[classified.Canonical] = &dto.BalanceRecord{
		UserAddress:  classified.Canonical,
		AddressClass: classified.Class,
		Balance:      decimal.RequireFromString(balance),
		Reserved:     decimal.Zero,
	}
}

func (f *fakeLedger) balanceOf(address string) (decimal.Decimal, decimal.Decimal) {
	f.mu.Lock()
	defer f.mu.Unlock()
	record, ok := f.balances[valueobjects.Classify(address).Canonical]
	if !ok {
		return decimal.Zero, decimal.Zero
	}
	return record.Balance, record.Reserved
}

func (f *fakeLedger) withdrawal(id string) entities.Withdrawal {
	f.mu.Lock()
	defer f.mu.Unlock()
	return *f.withdrawals[id]
}

func (f *fakeLedger) onlyWithdrawal() entities.Withdrawal {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, withdrawal := range f.withdrawals {
		return *withdrawal
	}
	panic("no withdrawal recorded")
}

func (f *fakeLedger) GetBalance(_ context.Context, userAddress string) (dto.BalanceRecord, bool, *apperrors.AppError) {
	f.mu.Lock()
	defer f.mu.Unlock()
	record, ok := f.balances[userAddress]
	if !ok {
		return dto.BalanceRecord{}, false, nil
	}
	return *record, true, nil
}

func (f *fakeLedger) CreditOnce(_ context.Context, command dto.CreditCommand) (dto.CreditResult, *apperrors.AppError) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.creditCalls++

	if existing, ok := f.deposits[command.IdempotencyKey]; ok {
		if existing.address != command.UserAddress || !existing.amount.Equal(command.Amount) {
			return dto.CreditResult{}, apperrors.NewConflict("deposit_tx_hash_conflict", "conflict", nil)
		}
		return dto.CreditResult{Balance: *f.balances[command.UserAddress], Replayed: true}, nil
	}

	f.deposits[command.IdempotencyKey] = fakeDeposit{address: command.UserAddress, amount: command.Amount}
	record, ok := f.balances[command.UserAddress]
	if !ok {
		record = &dto.BalanceRecord{
			UserAddress:  command.UserAddress,
			AddressClass: command.AddressClass,
			Balance:      decimal.Zero,
			Reserved:     decimal.Zero,
			CreatedAt:    command.CreditedAt,
		}
		f.balances[command.UserAddress] = record
	}
	record.Balance = record.Balance.Add(command.Amount)
	record.UpdatedAt = command.CreditedAt
	return dto.CreditResult{Balance: *record, CreditedAt: command.CreditedAt}, nil
}

func (f *fakeLedger) ReserveFunds(_ context.Context, command dto.ReserveFundsCommand) (dto.ReserveFundsResult, *apperrors.AppError) {
	f.mu.Lock()
	defer f.mu.Unlock()

	withdrawal := command.Withdrawal
	if existingID, ok := f.byKey[withdrawal.IdempotencyKey]; ok {
		existing := f.withdrawals[existingID]
		return dto.ReserveFundsResult{}, apperrors.NewConflict("withdrawal_already_submitted", "duplicate", map[string]any{
			"idempotency_key": withdrawal.IdempotencyKey,
			"withdrawal_id":   existingID,
			"status":          existing.Status.String(),
		})
	}

	record, ok := f.balances[withdrawal.UserAddress]
	if !ok || record.Balance.Sub(record.Reserved).LessThan(withdrawal.Amount) {
		return dto.ReserveFundsResult{}, apperrors.NewInsufficientFunds("insufficient_funds", "insufficient", nil)
	}

	record.Reserved = record.Reserved.Add(withdrawal.Amount)
	f.withdrawals[withdrawal.ID] = &withdrawal
	f.byKey[withdrawal.IdempotencyKey] = withdrawal.ID
	return dto.ReserveFundsResult{Withdrawal: withdrawal, Balance: *record}, nil
}

func (f *fakeLedger) DebitReserved(_ context.Context, command dto.DebitReservedCommand) (dto.DebitReservedResult, *apperrors.AppError) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.debitCalls++
	if f.debitErr != nil {
		return dto.DebitReservedResult{}, f.debitErr
	}

	withdrawal, ok := f.withdrawals[command.WithdrawalID]
	if !ok {
		return dto.DebitReservedResult{}, apperrors.NewNotFound("withdrawal_not_found", "missing", nil)
	}
	record := f.balances[withdrawal.UserAddress]
	if withdrawal.Status == valueobjects.WithdrawalStatusCompleted && withdrawal.TransferTxID != nil && *withdrawal.TransferTxID == command.TransferTxID {
		return dto.DebitReservedResult{Withdrawal: *withdrawal, Balance: *record, Replayed: true}, nil
	}
	if !withdrawal.Status.CanSettle() {
		return dto.DebitReservedResult{}, apperrors.NewConflict("withdrawal_state_conflict", "conflict", nil)
	}

	txID := command.TransferTxID
	settledAt := command.SettledAt
	withdrawal.Status = valueobjects.WithdrawalStatusCompleted
	withdrawal.TransferTxID = &txID
	withdrawal.SettledAt = &settledAt
	record.Balance = record.Balance.Sub(withdrawal.Amount)
	record.Reserved = record.Reserved.Sub(withdrawal.Amount)
	return dto.DebitReservedResult{Withdrawal: *withdrawal, Balance: *record}, nil
}

func (f *fakeLedger) ReleaseReservation(_ context.Context, command dto.ReleaseReservationCommand) (dto.ReleaseReservationResult, *apperrors.AppError) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.releaseErr != nil {
		return dto.ReleaseReservationResult{}, f.releaseErr
	}

	withdrawal, ok := f.withdrawals[command.WithdrawalID]
	if !ok {
		return dto.ReleaseReservationResult{}, apperrors.NewNotFound("withdrawal_not_found", "missing", nil)
	}
	record := f.balances[withdrawal.UserAddress]
	if withdrawal.Status == valueobjects.WithdrawalStatusReleased {
		return dto.ReleaseReservationResult{Withdrawal: *withdrawal, Balance: *record, Replayed: true}, nil
	}
	if !withdrawal.Status.CanRelease() {
		return dto.ReleaseReservationResult{}, apperrors.NewConflict("withdrawal_state_conflict", "conflict", nil)
	}

	reason := command.Reason
	withdrawal.Status = valueobjects.WithdrawalStatusReleased
	withdrawal.LastError = &reason
	record.Reserved = record.Reserved.Sub(withdrawal.Amount)
	return dto.ReleaseReservationResult{Withdrawal: *withdrawal, Balance: *record}, nil
}

func (f *fakeLedger) MarkTransferUnknown(_ context.Context, command dto.MarkWithdrawalCommand) *apperrors.AppError {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.markErr != nil {
		return f.markErr
	}
	withdrawal, ok := f.withdrawals[command.WithdrawalID]
	if !ok || withdrawal.Status != valueobjects.WithdrawalStatusReserved {
		return apperrors.NewConflict("withdrawal_state_conflict", "conflict", nil)
	}
	withdrawal.Status = valueobjects.WithdrawalStatusTransferUnknown
	return nil
}

func (f *fakeLedger) MarkLedgerUpdateFailed(_ context.Context, command dto.MarkWithdrawalCommand) *apperrors.AppError {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.markedLUF++
	if f.markErr != nil {
		return f.markErr
	}
	withdrawal, ok := f.withdrawals[command.WithdrawalID]
	if !ok || !withdrawal.Status.CanRelease() {
		return apperrors.NewConflict("withdrawal_state_conflict", "conflict", nil)
	}
	txID := command.TransferTxID
	withdrawal.Status = valueobjects.WithdrawalStatusLedgerUpdateFailed
	withdrawal.TransferTxID = &txID
	return nil
}

func (f *fakeLedger) GetWithdrawal(_ context.Context, withdrawalID string) (entities.Withdrawal, bool, *apperrors.AppError) {
	f.mu.Lock()
	defer f.mu.Unlock()
	withdrawal, ok := f.withdrawals[withdrawalID]
	if !ok {
		return entities.Withdrawal{}, false, nil
	}
	return *withdrawal, true, nil
}

type fakeTransferGateway struct {
	mu         sync.Mutex
	transfers  []dto.TransferInput
	byToken    map[string]string
	err        *apperrors.AppError
	lookup     dto.TransferLookupOutput
	lookupErr  *apperrors.AppError
	lookups    int
	blockUntil <-chan struct{}
}

func newFakeTransferGateway() *fakeTransferGateway {
	return &fakeTransferGateway{byToken: map[string]string{}}
}

func (g *fakeTransferGateway) Transfer(ctx context.Context, input dto.TransferInput) (dto.TransferOutput, *apperrors.AppError) {
	if g.blockUntil != nil {
		select {
		case <-g.blockUntil:
		case <-ctx.Done():
			return dto.TransferOutput{}, apperrors.NewTransferFailed(portsout.TransferErrorOutcomeUnknown, "timed out", nil)
		}
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return dto.TransferOutput{}, g.err
	}
	if txID, ok := g.byToken[input.IdempotencyToken]; ok {
		return dto.TransferOutput{TransactionID: txID}, nil
	}
	g.transfers = append(g.transfers, input)
	txID := fmt.Sprintf("0xtx%d", len(g.transfers))
	g.byToken[input.IdempotencyToken] = txID
	return dto.TransferOutput{TransactionID: txID}, nil
}

func (g *fakeTransferGateway) LookupTransfer(_ context.Context, _ dto.TransferLookupInput) (dto.TransferLookupOutput, *apperrors.AppError) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.lookups++
	return g.lookup, g.lookupErr
}

func (g *fakeTransferGateway) transferCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.transfers)
}

type staticRegistry map[valueobjects.AddressClass]portsout.TransferGateway

func (r staticRegistry) Resolve(class valueobjects.AddressClass) (portsout.TransferGateway, bool) {
	gateway, ok := r[class]
	return gateway, ok
}

type fixedClock struct {
	now time.Time
}

func (c fixedClock) NowUTC() time.Time {
	return c.now
}

type sequenceIDs struct {
	mu   sync.Mutex
	next int
}

func (s *sequenceIDs) NewID(prefix string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	return fmt.Sprintf("%s%d", prefix, s.next)
}
