package in

import (
	"context"

	"housebalance/internal/application/dto"
	apperrors "housebalance/internal/shared_kernel/errors"
)

type DepositUseCase interface {
	Execute(ctx context.Context, command dto.DepositCommand) (dto.DepositOutput, *apperrors.AppError)
}
