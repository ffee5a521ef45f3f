package in

import (
	"context"

	"housebalance/internal/application/dto"
	apperrors "housebalance/internal/shared_kernel/errors"
)

type WithdrawUseCase interface {
	Execute(ctx context.Context, command dto.WithdrawCommand) (dto.WithdrawOutput, *apperrors.AppError)
}
