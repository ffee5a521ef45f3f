package in

import (
	"context"

	"housebalance/internal/application/dto"
	apperrors "housebalance/internal/shared_kernel/errors"
)

type GetBalanceUseCase interface {
	Execute(ctx context.Context, query dto.GetBalanceQuery) (dto.BalanceOutput, *apperrors.AppError)
}
