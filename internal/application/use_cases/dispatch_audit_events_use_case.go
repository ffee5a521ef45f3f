package use_cases

import (
	"context"
	"strings"
	"time"

	"housebalance/internal/application/dto"
	portsin "housebalance/internal/application/ports/in"
	portsout "housebalance/internal/application/ports/out"
	apperrors "housebalance/internal/shared_kernel/errors"
)

type dispatchAuditEventsUseCase struct {
	repository portsout.AuditOutboxRepository
	publisher  portsout.AuditEventPublisher
}

func NewDispatchAuditEventsUseCase(
	repository portsout.AuditOutboxRepository,
	publisher portsout.AuditEventPublisher,
) portsin.DispatchAuditEventsUseCase {
	return &dispatchAuditEventsUseCase{
		repository: repository,
		publisher:  publisher,
	}
}

func (u *dispatchAuditEventsUseCase) Execute(
	ctx context.Context,
	command dto.DispatchAuditEventsCommand,
) (dto.DispatchAuditEventsOutput, *apperrors.AppError) {
	if u.repository == nil {
		return dto.DispatchAuditEventsOutput{}, apperrors.NewInternal(
			"audit_outbox_repository_missing",
			"audit outbox repository is required",
			nil,
		)
	}
	if u.publisher == nil {
		return dto.DispatchAuditEventsOutput{}, apperrors.NewInternal(
			"audit_event_publisher_missing",
			"audit event publisher is required",
			nil,
		)
	}
	if command.BatchSize <= 0 {
		return dto.DispatchAuditEventsOutput{}, apperrors.NewValidation(
			"dispatch_audit_batch_size_invalid",
			"dispatch audit batch size must be greater than zero",
			map[string]any{"batch_size": command.BatchSize},
		)
	}
	workerID := strings.TrimSpace(command.WorkerID)
	if workerID == "" {
		return dto.DispatchAuditEventsOutput{}, apperrors.NewValidation(
			"dispatch_audit_worker_id_invalid",
			"dispatch audit worker id is required",
			nil,
		)
	}
	if command.LeaseDuration <= 0 {
		return dto.DispatchAuditEventsOutput{}, apperrors.NewValidation(
			"dispatch_audit_lease_duration_invalid",
			"dispatch audit lease duration must be greater than zero",
			map[string]any{"lease_duration": command.LeaseDuration.String()},
		)
	}
	if command.InitialBackoff <= 0 {
		return dto.DispatchAuditEventsOutput{}, apperrors.NewValidation(
			"dispatch_audit_initial_backoff_invalid",
			"dispatch audit initial backoff must be greater than zero",
			map[string]any{"initial_backoff": command.InitialBackoff.String()},
		)
	}
	if command.MaxBackoff < command.InitialBackoff {
		return dto.DispatchAuditEventsOutput{}, apperrors.NewValidation(
			"dispatch_audit_max_backoff_invalid",
			"dispatch audit max backoff must be greater than or equal to initial backoff",
			map[string]any{
				"initial_backoff": command.InitialBackoff.String(),
				"max_backoff":     command.MaxBackoff.String(),
			},
		)
	}

	startedAt := time.Now().UTC()
	now := command.Now.UTC()
	if command.Now.IsZero() {
		now = startedAt
	}

	rows, appErr := u.repository.ClaimPendingForDispatch(
		ctx,
		now,
		command.BatchSize,
		workerID,
		now.Add(command.LeaseDuration),
	)
	if appErr != nil {
		return dto.DispatchAuditEventsOutput{}, appErr
	}

	output := dto.DispatchAuditEventsOutput{Claimed: len(rows)}
	for _, row := range rows {
		publishErr := u.publisher.PublishAuditEvent(ctx, dto.PublishAuditEventInput{
			EventID:      row.EventID,
			EventType:    row.EventType,
			AggregateKey: row.AggregateKey,
			Payload:      row.Payload,
		})
		if publishErr == nil {
			updated, markErr := u.repository.MarkDelivered(ctx, row.ID, workerID, now)
			if markErr != nil {
				return output, markErr
			}
			if updated {
				output.Published++
			} else {
				output.Skipped++
			}
			continue
		}

		output.Errors++
		nextAttempts := row.Attempts + 1
		errorMessage := auditDispatchErrorMessage(publishErr)
		if nextAttempts >= row.MaxAttempts {
			updated, markErr := u.repository.MarkFailed(ctx, row.ID, workerID, nextAttempts, errorMessage, now)
			if markErr != nil {
				return output, markErr
			}
			if updated {
				output.Failed++
			} else {
				output.Skipped++
			}
			continue
		}

		nextAttemptAt := now.Add(auditRetryBackoff(nextAttempts, command.InitialBackoff, command.MaxBackoff))
		updated, markErr := u.repository.MarkRetry(ctx, row.ID, workerID, nextAttempts, nextAttemptAt, errorMessage, now)
		if markErr != nil {
			return output, markErr
		}
		if updated {
			output.Retried++
		} else {
			output.Skipped++
		}
	}

	output.LatencyMS = time.Since(startedAt).Milliseconds()
	return output, nil
}

func auditDispatchErrorMessage(appErr *apperrors.AppError) string {
	message := strings.TrimSpace(appErr.Message)
	if message == "" {
		message = strings.TrimSpace(appErr.Code)
	}
	if message == "" {
		message = "audit event publish failed"
	}
	return message
}

func auditRetryBackoff(attempts int, initial time.Duration, max time.Duration) time.Duration {
	if attempts <= 1 {
		return initial
	}

	backoff := initial
	for i := 1; i < attempts; i++ {
		if backoff >= max {
			return max
		}
		backoff *= 2
		if backoff > max {
			return max
		}
	}

	return backoff
}
