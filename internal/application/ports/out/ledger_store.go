package out

import (
	"context"

	"housebalance/internal/application/dto"
	"housebalance/internal/domain/entities"
	apperrors "housebalance/internal/shared_kernel/errors"
)

// BalanceReadModel serves read-only balance lookups. Implementations may cache.
type BalanceReadModel interface {
	GetBalance(ctx context.Context, userAddress string) (dto.BalanceRecord, bool, *apperrors.AppError)
}

// LedgerStore owns every mutation of user balances. Each method is atomic.
type LedgerStore interface {
	BalanceReadModel

	CreditOnce(ctx context.Context, command dto.CreditCommand) (dto.CreditResult, *apperrors.AppError)
	// ReserveFunds holds the withdrawal amount only if the available balance
	// covers it. It fails with an insufficient_funds error otherwise.
	ReserveFunds(ctx context.Context, command dto.ReserveFundsCommand) (dto.ReserveFundsResult, *apperrors.AppError)
	DebitReserved(ctx context.Context, command dto.DebitReservedCommand) (dto.DebitReservedResult, *apperrors.AppError)
	ReleaseReservation(ctx context.Context, command dto.ReleaseReservationCommand) (dto.ReleaseReservationResult, *apperrors.AppError)
	MarkTransferUnknown(ctx context.Context, command dto.MarkWithdrawalCommand) *apperrors.AppError
	MarkLedgerUpdateFailed(ctx context.Context, command dto.MarkWithdrawalCommand) *apperrors.AppError
	GetWithdrawal(ctx context.Context, withdrawalID string) (entities.Withdrawal, bool, *apperrors.AppError)
}
