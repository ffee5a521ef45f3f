package in

import (
	"context"

	"housebalance/internal/application/dto"
	apperrors "housebalance/internal/shared_kernel/errors"
)

type GetHealthUseCase interface {
	Execute(ctx context.Context, command dto.GetHealthCommand) (dto.HealthOutput, *apperrors.AppError)
}
