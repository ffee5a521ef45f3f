package out

import (
	"context"

	"housebalance/internal/application/dto"
	valueobjects "housebalance/internal/domain/value_objects"
	apperrors "housebalance/internal/shared_kernel/errors"
)

const (
	// Definite failures: no funds left the treasury.
	TransferErrorNetwork                   = "transfer_network_error"
	TransferErrorInsufficientTreasuryFunds = "transfer_insufficient_treasury_funds"
	TransferErrorInvalidAddress            = "transfer_invalid_address"

	// TransferErrorOutcomeUnknown means the transfer may or may not have been broadcast.
	TransferErrorOutcomeUnknown = "transfer_outcome_unknown"
)

// TransferGateway pays out from the treasury of one chain family. Repeating a
// Transfer with the same idempotency token must never pay twice.
type TransferGateway interface {
	Transfer(ctx context.Context, input dto.TransferInput) (dto.TransferOutput, *apperrors.AppError)
	LookupTransfer(ctx context.Context, input dto.TransferLookupInput) (dto.TransferLookupOutput, *apperrors.AppError)
}

type TransferGatewayRegistry interface {
	Resolve(class valueobjects.AddressClass) (TransferGateway, bool)
}

// IsDefiniteTransferFailure reports whether the error guarantees nothing was sent.
func IsDefiniteTransferFailure(appErr *apperrors.AppError) bool {
	if appErr == nil || appErr.Type != apperrors.TypeTransferFailed {
		return false
	}
	switch appErr.Code {
	case TransferErrorNetwork, TransferErrorInsufficientTreasuryFunds, TransferErrorInvalidAddress:
		return true
	default:
		return false
	}
}
