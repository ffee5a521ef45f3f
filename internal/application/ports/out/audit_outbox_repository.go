package out

import (
	"context"
	"time"

	"housebalance/internal/application/dto"
	apperrors "housebalance/internal/shared_kernel/errors"
)

type AuditOutboxRepository interface {
	ClaimPendingForDispatch(
		ctx context.Context,
		now time.Time,
		limit int,
		leaseOwner string,
		leaseUntil time.Time,
	) ([]dto.PendingAuditEvent, *apperrors.AppError)
	MarkDelivered(
		ctx context.Context,
		id int64,
		leaseOwner string,
		deliveredAt time.Time,
	) (bool, *apperrors.AppError)
	MarkRetry(
		ctx context.Context,
		id int64,
		leaseOwner string,
		attempts int,
		nextAttemptAt time.Time,
		lastError string,
		updatedAt time.Time,
	) (bool, *apperrors.AppError)
	MarkFailed(
		ctx context.Context,
		id int64,
		leaseOwner string,
		attempts int,
		lastError string,
		updatedAt time.Time,
	) (bool, *apperrors.AppError)
}

type AuditEventPublisher interface {
	PublishAuditEvent(ctx context.Context, input dto.PublishAuditEventInput) *apperrors.AppError
}
