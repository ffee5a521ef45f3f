package dto

import (
	"time"

	valueobjects "housebalance/internal/domain/value_objects"

	"github.com/shopspring/decimal"
)

type BalanceRecord struct {
	UserAddress  string
	AddressClass valueobjects.AddressClass
	Balance      decimal.Decimal
	Reserved     decimal.Decimal
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type GetBalanceQuery struct {
	UserAddress string
}

type BalanceOutput struct {
	UserAddress  string
	AddressClass valueobjects.AddressClass
	Balance      decimal.Decimal
	Reserved     decimal.Decimal
	Available    decimal.Decimal
	UpdatedAt    *time.Time
	Found        bool
}
