package in

import (
	"context"

	"housebalance/internal/application/dto"
	apperrors "housebalance/internal/shared_kernel/errors"
)

type DispatchAuditEventsUseCase interface {
	Execute(ctx context.Context, command dto.DispatchAuditEventsCommand) (dto.DispatchAuditEventsOutput, *apperrors.AppError)
}
