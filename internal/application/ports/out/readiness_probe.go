package out

import (
	"context"

	apperrors "housebalance/internal/shared_kernel/errors"
)

type ReadinessProbe interface {
	CheckReadiness(ctx context.Context) *apperrors.AppError
}
