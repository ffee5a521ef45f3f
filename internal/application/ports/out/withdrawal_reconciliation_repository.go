package out

import (
	"context"

	"housebalance/internal/application/dto"
	"housebalance/internal/domain/entities"
	apperrors "housebalance/internal/shared_kernel/errors"
)

type WithdrawalReconciliationRepository interface {
	ClaimStaleWithdrawals(
		ctx context.Context,
		command dto.ClaimStaleWithdrawalsCommand,
	) ([]entities.Withdrawal, *apperrors.AppError)
}
