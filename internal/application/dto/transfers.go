package dto

import (
	valueobjects "housebalance/internal/domain/value_objects"

	"github.com/shopspring/decimal"
)

type TransferInput struct {
	AddressClass     valueobjects.AddressClass
	Destination      string
	Amount           decimal.Decimal
	IdempotencyToken string
}

type TransferOutput struct {
	TransactionID string
}

type TransferLookupState string

const (
	TransferLookupConfirmed TransferLookupState = "confirmed"
	TransferLookupNotFound  TransferLookupState = "not_found"
	TransferLookupPending   TransferLookupState = "pending"
)

type TransferLookupInput struct {
	AddressClass     valueobjects.AddressClass
	IdempotencyToken string
}

type TransferLookupOutput struct {
	State         TransferLookupState
	TransactionID string
}
