package in

import (
	"context"

	"housebalance/internal/application/dto"
	apperrors "housebalance/internal/shared_kernel/errors"
)

type ReconcileWithdrawalsUseCase interface {
	Execute(ctx context.Context, command dto.ReconcileWithdrawalsCommand) (dto.ReconcileWithdrawalsOutput, *apperrors.AppError)
}
