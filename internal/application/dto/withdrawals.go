package dto

import (
	"time"

	"housebalance/internal/domain/entities"
	valueobjects "housebalance/internal/domain/value_objects"

	"github.com/shopspring/decimal"
)

type WithdrawCommand struct {
	UserAddress    string
	Amount         string
	IdempotencyKey string
}

// WithdrawOutput describes a withdrawal whose chain transfer succeeded. When
// Warning is set the ledger could not be settled and NewBalance is unknown.
type WithdrawOutput struct {
	WithdrawalID  string
	UserAddress   string
	AddressClass  valueobjects.AddressClass
	Amount        decimal.Decimal
	Fee           decimal.Decimal
	NetAmount     decimal.Decimal
	TransactionID string
	Status        valueobjects.WithdrawalStatus
	NewBalance    *decimal.Decimal
	Warning       string
	Error         string
}

type GetWithdrawalQuery struct {
	WithdrawalID string
}

type WithdrawalOutput struct {
	Withdrawal entities.Withdrawal
}

type ReserveFundsCommand struct {
	Withdrawal entities.Withdrawal
}

type ReserveFundsResult struct {
	Withdrawal entities.Withdrawal
	Balance    BalanceRecord
}

type DebitReservedCommand struct {
	WithdrawalID string
	TransferTxID string
	SettledAt    time.Time
}

type DebitReservedResult struct {
	Withdrawal entities.Withdrawal
	Balance    BalanceRecord
	Replayed   bool
}

type ReleaseReservationCommand struct {
	WithdrawalID string
	Reason       string
	ReleasedAt   time.Time
}

type ReleaseReservationResult struct {
	Withdrawal entities.Withdrawal
	Balance    BalanceRecord
	Replayed   bool
}

type MarkWithdrawalCommand struct {
	WithdrawalID string
	TransferTxID string
	Reason       string
	UpdatedAt    time.Time
}
