package in

import (
	"context"

	"housebalance/internal/application/dto"
	apperrors "housebalance/internal/shared_kernel/errors"
)

type GetOpenAPISpecUseCase interface {
	Execute(ctx context.Context, query dto.GetOpenAPISpecQuery) (dto.OpenAPISpecOutput, *apperrors.AppError)
}
