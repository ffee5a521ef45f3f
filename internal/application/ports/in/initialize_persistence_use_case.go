package in

import (
	"context"

	"housebalance/internal/application/dto"
	apperrors "housebalance/internal/shared_kernel/errors"
)

type InitializePersistenceUseCase interface {
	Execute(ctx context.Context, command dto.InitializePersistenceCommand) *apperrors.AppError
}
