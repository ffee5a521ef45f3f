package in

import (
	"context"

	"housebalance/internal/application/dto"
	apperrors "housebalance/internal/shared_kernel/errors"
)

type GetWithdrawalUseCase interface {
	Execute(ctx context.Context, query dto.GetWithdrawalQuery) (dto.WithdrawalOutput, *apperrors.AppError)
}
