package entities

import (
	"strings"
	"time"

	"housebalance/internal/domain/policies"
	valueobjects "housebalance/internal/domain/value_objects"
	apperrors "housebalance/internal/shared_kernel/errors"

	"github.com/shopspring/decimal"
)

type Withdrawal struct {
	ID             string
	IdempotencyKey string
	UserAddress    string
	AddressClass   valueobjects.AddressClass
	Amount         decimal.Decimal
	FeeRate        decimal.Decimal
	Fee            decimal.Decimal
	Net            decimal.Decimal
	Status         valueobjects.WithdrawalStatus
	TransferToken  string
	TransferTxID   *string
	LastError      *string
	CreatedAt      time.Time
	UpdatedAt      time.Time
	SettledAt      *time.Time
}

type NewWithdrawalInput struct {
	ID             string
	IdempotencyKey string
	Address        valueobjects.ClassifiedAddress
	Quote          policies.FeeQuote
	TransferToken  string
	RequestedAt    time.Time
}

func NewReservedWithdrawal(input NewWithdrawalInput) (Withdrawal, *apperrors.AppError) {
	if strings.TrimSpace(input.ID) == "" {
		return Withdrawal{}, apperrors.NewInternal(
			"withdrawal_id_missing",
			"withdrawal id is required",
			nil,
		)
	}
	if strings.TrimSpace(input.TransferToken) == "" {
		return Withdrawal{}, apperrors.NewInternal(
			"transfer_token_missing",
			"transfer idempotency token is required",
			nil,
		)
	}
	if !input.Address.Class.IsValid() {
		return Withdrawal{}, apperrors.NewValidation(
			"invalid_address",
			"user_address does not match any supported chain format",
			map[string]any{"field": "user_address"},
		)
	}
	if appErr := valueobjects.ValidateAmount(input.Quote.Amount, "amount"); appErr != nil {
		return Withdrawal{}, appErr
	}
	if !input.Quote.Fee.Add(input.Quote.Net).Equal(input.Quote.Amount) {
		return Withdrawal{}, apperrors.NewInternal(
			"fee_quote_inconsistent",
			"fee and net amount must add up to the withdrawal amount",
			map[string]any{
				"amount": input.Quote.Amount.String(),
				"fee":    input.Quote.Fee.String(),
				"net":    input.Quote.Net.String(),
			},
		)
	}

	idempotencyKey := strings.TrimSpace(input.IdempotencyKey)
	if idempotencyKey == "" {
		idempotencyKey = input.ID
	}

	requestedAt := input.RequestedAt.UTC()
	return Withdrawal{
		ID:             input.ID,
		IdempotencyKey: idempotencyKey,
		UserAddress:    input.Address.Canonical,
		AddressClass:   input.Address.Class,
		Amount:         input.Quote.Amount,
		FeeRate:        input.Quote.FeeRate,
		Fee:            input.Quote.Fee,
		Net:            input.Quote.Net,
		Status:         valueobjects.WithdrawalStatusReserved,
		TransferToken:  input.TransferToken,
		CreatedAt:      requestedAt,
		UpdatedAt:      requestedAt,
	}, nil
}
