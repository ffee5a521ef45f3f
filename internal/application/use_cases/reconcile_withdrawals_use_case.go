package use_cases

import (
	"context"
	"strings"
	"time"

	"housebalance/internal/application/dto"
	portsin "housebalance/internal/application/ports/in"
	portsout "housebalance/internal/application/ports/out"
	"housebalance/internal/domain/entities"
	valueobjects "housebalance/internal/domain/value_objects"
	apperrors "housebalance/internal/shared_kernel/errors"

	"go.uber.org/zap"
)

type reconcileWithdrawalsUseCase struct {
	repository portsout.WithdrawalReconciliationRepository
	ledger     portsout.LedgerStore
	gateways   portsout.TransferGatewayRegistry
	logger     *zap.Logger
}

// NewReconcileWithdrawalsUseCase resolves withdrawals left open by a crash, an
// ambiguous transfer or a failed ledger update. It never issues a transfer.
func NewReconcileWithdrawalsUseCase(
	repository portsout.WithdrawalReconciliationRepository,
	ledger portsout.LedgerStore,
	gateways portsout.TransferGatewayRegistry,
	logger *zap.Logger,
) portsin.ReconcileWithdrawalsUseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &reconcileWithdrawalsUseCase{
		repository: repository,
		ledger:     ledger,
		gateways:   gateways,
		logger:     logger,
	}
}

type reconcileOutcome int

const (
	reconcileOutcomeUnresolved reconcileOutcome = iota
	reconcileOutcomeSettled
	reconcileOutcomeReleased
)

func (u *reconcileWithdrawalsUseCase) Execute(
	ctx context.Context,
	command dto.ReconcileWithdrawalsCommand,
) (dto.ReconcileWithdrawalsOutput, *apperrors.AppError) {
	if u.repository == nil {
		return dto.ReconcileWithdrawalsOutput{}, apperrors.NewInternal(
			"withdrawal_reconciliation_repository_missing",
			"withdrawal reconciliation repository is required",
			nil,
		)
	}
	if u.ledger == nil {
		return dto.ReconcileWithdrawalsOutput{}, apperrors.NewInternal(
			"ledger_store_missing",
			"ledger store is required",
			nil,
		)
	}
	if u.gateways == nil {
		return dto.ReconcileWithdrawalsOutput{}, apperrors.NewInternal(
			"transfer_gateway_registry_missing",
			"transfer gateway registry is required",
			nil,
		)
	}
	if command.BatchSize <= 0 {
		return dto.ReconcileWithdrawalsOutput{}, apperrors.NewValidation(
			"reconcile_batch_size_invalid",
			"reconcile batch size must be greater than zero",
			map[string]any{"batch_size": command.BatchSize},
		)
	}
	workerID := strings.TrimSpace(command.WorkerID)
	if workerID == "" {
		return dto.ReconcileWithdrawalsOutput{}, apperrors.NewValidation(
			"reconcile_worker_id_invalid",
			"reconcile worker id is required",
			nil,
		)
	}
	if command.LeaseDuration <= 0 {
		return dto.ReconcileWithdrawalsOutput{}, apperrors.NewValidation(
			"reconcile_lease_duration_invalid",
			"reconcile lease duration must be greater than zero",
			map[string]any{"lease_duration": command.LeaseDuration.String()},
		)
	}
	if command.StaleAfter <= 0 {
		return dto.ReconcileWithdrawalsOutput{}, apperrors.NewValidation(
			"reconcile_stale_after_invalid",
			"reconcile stale-after window must be greater than zero",
			map[string]any{"stale_after": command.StaleAfter.String()},
		)
	}

	now := command.Now.UTC()
	if command.Now.IsZero() {
		now = time.Now().UTC()
	}

	rows, appErr := u.repository.ClaimStaleWithdrawals(ctx, dto.ClaimStaleWithdrawalsCommand{
		Now:         now,
		StaleBefore: now.Add(-command.StaleAfter),
		Limit:       command.BatchSize,
		LeaseOwner:  workerID,
		LeaseUntil:  now.Add(command.LeaseDuration),
	})
	if appErr != nil {
		return dto.ReconcileWithdrawalsOutput{}, appErr
	}

	output := dto.ReconcileWithdrawalsOutput{Claimed: len(rows)}
	for _, withdrawal := range rows {
		outcome, rowErr := u.reconcileOne(ctx, now, withdrawal)
		if rowErr != nil {
			output.Errors++
			u.logger.Warn("withdrawal reconciliation failed",
				zap.String("withdrawal_id", withdrawal.ID),
				zap.String("status", withdrawal.Status.String()),
				zap.String("code", rowErr.Code),
				zap.String("error", rowErr.Message),
			)
			if rowErr.Type == apperrors.TypeUnavailable {
				return output, rowErr
			}
			continue
		}

		switch outcome {
		case reconcileOutcomeSettled:
			output.Settled++
		case reconcileOutcomeReleased:
			output.Released++
		default:
			output.Unresolved++
		}
	}

	return output, nil
}

func (u *reconcileWithdrawalsUseCase) reconcileOne(
	ctx context.Context,
	now time.Time,
	withdrawal entities.Withdrawal,
) (reconcileOutcome, *apperrors.AppError) {
	if withdrawal.Status == valueobjects.WithdrawalStatusLedgerUpdateFailed &&
		withdrawal.TransferTxID != nil && *withdrawal.TransferTxID != "" {
		return u.settle(ctx, now, withdrawal, *withdrawal.TransferTxID)
	}

	gateway, ok := u.gateways.Resolve(withdrawal.AddressClass)
	if !ok || gateway == nil {
		return reconcileOutcomeUnresolved, apperrors.NewInternal(
			"transfer_gateway_not_configured",
			"no transfer gateway is configured for the withdrawal chain",
			map[string]any{"address_class": withdrawal.AddressClass.String()},
		)
	}

	lookup, appErr := gateway.LookupTransfer(ctx, dto.TransferLookupInput{
		AddressClass:     withdrawal.AddressClass,
		IdempotencyToken: withdrawal.TransferToken,
	})
	if appErr != nil {
		return reconcileOutcomeUnresolved, appErr
	}

	switch lookup.State {
	case dto.TransferLookupConfirmed:
		if lookup.TransactionID == "" {
			return reconcileOutcomeUnresolved, nil
		}
		return u.settle(ctx, now, withdrawal, lookup.TransactionID)
	case dto.TransferLookupNotFound:
		if !withdrawal.Status.CanRelease() {
			return reconcileOutcomeUnresolved, nil
		}
		return u.release(ctx, now, withdrawal)
	default:
		return reconcileOutcomeUnresolved, nil
	}
}

func (u *reconcileWithdrawalsUseCase) settle(
	ctx context.Context,
	now time.Time,
	withdrawal entities.Withdrawal,
	transferTxID string,
) (reconcileOutcome, *apperrors.AppError) {
	result, appErr := u.ledger.DebitReserved(ctx, dto.DebitReservedCommand{
		WithdrawalID: withdrawal.ID,
		TransferTxID: transferTxID,
		SettledAt:    now,
	})
	if appErr != nil {
		if appErr.Type == apperrors.TypeConflict {
			return reconcileOutcomeUnresolved, nil
		}
		return reconcileOutcomeUnresolved, appErr
	}

	u.logger.Info("withdrawal settled by reconciler",
		zap.String("withdrawal_id", withdrawal.ID),
		zap.String("address", withdrawal.UserAddress),
		zap.String("transfer_tx_id", transferTxID),
		zap.String("new_balance", result.Balance.Balance.String()),
		zap.Bool("replayed", result.Replayed),
	)
	return reconcileOutcomeSettled, nil
}

func (u *reconcileWithdrawalsUseCase) release(
	ctx context.Context,
	now time.Time,
	withdrawal entities.Withdrawal,
) (reconcileOutcome, *apperrors.AppError) {
	_, appErr := u.ledger.ReleaseReservation(ctx, dto.ReleaseReservationCommand{
		WithdrawalID: withdrawal.ID,
		Reason:       "transfer not found on reconciliation",
		ReleasedAt:   now,
	})
	if appErr != nil {
		if appErr.Type == apperrors.TypeConflict {
			return reconcileOutcomeUnresolved, nil
		}
		return reconcileOutcomeUnresolved, appErr
	}

	u.logger.Info("withdrawal released by reconciler",
		zap.String("withdrawal_id", withdrawal.ID),
		zap.String("address", withdrawal.UserAddress),
		zap.String("amount", withdrawal.Amount.String()),
	)
	return reconcileOutcomeReleased, nil
}
