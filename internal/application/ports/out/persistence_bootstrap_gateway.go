package out

import (
	"context"

	apperrors "housebalance/internal/shared_kernel/errors"
)

type PersistenceBootstrapGateway interface {
	ReadinessProbe
	RunMigrations(ctx context.Context) *apperrors.AppError
}
