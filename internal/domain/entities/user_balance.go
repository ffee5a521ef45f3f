package entities

import (
	"time"

	valueobjects "housebalance/internal/domain/value_objects"

	"github.com/shopspring/decimal"
)

type UserBalance struct {
	UserAddress  string
	AddressClass valueobjects.AddressClass
	Balance      decimal.Decimal
	Reserved     decimal.Decimal
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Available is the part of Balance not held by open withdrawals.
func (b UserBalance) Available() decimal.Decimal {
	available := b.Balance.Sub(b.Reserved)
	if available.IsNegative() {
		return decimal.Zero
	}
	return available
}

func (b UserBalance) CanReserve(amount decimal.Decimal) bool {
	return amount.IsPositive() && b.Available().GreaterThanOrEqual(amount)
}
