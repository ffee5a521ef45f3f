package dto

import (
	"time"

	valueobjects "housebalance/internal/domain/value_objects"

	"github.com/shopspring/decimal"
)

type DepositCommand struct {
	UserAddress string
	Amount      string
	ChainTxHash string
}

type DepositOutput struct {
	UserAddress  string
	AddressClass valueobjects.AddressClass
	Amount       decimal.Decimal
	NewBalance   decimal.Decimal
	ChainTxHash  string
	Replayed     bool
	CreditedAt   time.Time
}

// CreditCommand credits Amount at most once per IdempotencyKey.
type CreditCommand struct {
	UserAddress    string
	AddressClass   valueobjects.AddressClass
	Amount         decimal.Decimal
	IdempotencyKey string
	CreditedAt     time.Time
}

type CreditResult struct {
	Balance    BalanceRecord
	Replayed   bool
	CreditedAt time.Time
}
