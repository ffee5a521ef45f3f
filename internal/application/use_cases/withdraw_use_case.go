package use_cases

import (
	"context"
	stderrors "errors"
	"time"

	"housebalance/internal/application/dto"
	portsin "housebalance/internal/application/ports/in"
	portsout "housebalance/internal/application/ports/out"
	"housebalance/internal/domain/entities"
	"housebalance/internal/domain/policies"
	valueobjects "housebalance/internal/domain/value_objects"
	apperrors "housebalance/internal/shared_kernel/errors"

	"go.uber.org/zap"
)

const (
	withdrawalIDPrefix     = "wd_"
	transferTokenPrefix    = "xfer_"
	defaultTransferTimeout = 30 * time.Second

	ledgerUpdateFailedWarning = "withdrawal was sent on-chain but the balance update failed; please contact support"
)

type withdrawUseCase struct {
	ledger          portsout.LedgerStore
	gateways        portsout.TransferGatewayRegistry
	fees            policies.FeeSchedule
	clock           Clock
	ids             IDGenerator
	transferTimeout time.Duration
	logger          *zap.Logger
}

func NewWithdrawUseCase(
	ledger portsout.LedgerStore,
	gateways portsout.TransferGatewayRegistry,
	fees policies.FeeSchedule,
	clock Clock,
	ids IDGenerator,
	transferTimeout time.Duration,
	logger *zap.Logger,
) portsin.WithdrawUseCase {
	if clock == nil {
		clock = NewSystemClock()
	}
	if ids == nil {
		ids = NewUUIDGenerator()
	}
	if transferTimeout <= 0 {
		transferTimeout = defaultTransferTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &withdrawUseCase{
		ledger:          ledger,
		gateways:        gateways,
		fees:            fees,
		clock:           clock,
		ids:             ids,
		transferTimeout: transferTimeout,
		logger:          logger,
	}
}

func (u *withdrawUseCase) Execute(ctx context.Context, command dto.WithdrawCommand) (dto.WithdrawOutput, *apperrors.AppError) {
	if u.ledger == nil {
		return dto.WithdrawOutput{}, apperrors.NewInternal(
			"ledger_store_missing",
			"ledger store is required",
			nil,
		)
	}
	if u.gateways == nil {
		return dto.WithdrawOutput{}, apperrors.NewInternal(
			"transfer_gateway_registry_missing",
			"transfer gateway registry is required",
			nil,
		)
	}

	address, appErr := valueobjects.ParseUserAddress(command.UserAddress)
	if appErr != nil {
		return dto.WithdrawOutput{}, appErr
	}
	amount, appErr := valueobjects.ParseAmount(command.Amount, "amount")
	if appErr != nil {
		return dto.WithdrawOutput{}, appErr
	}
	gateway, ok := u.gateways.Resolve(address.Class)
	if !ok || gateway == nil {
		return dto.WithdrawOutput{}, apperrors.NewValidation(
			"unsupported_network",
			"withdrawals are not enabled for this chain",
			map[string]any{"address_class": address.Class.String()},
		)
	}
	quote, appErr := u.fees.Quote(address.Class, amount)
	if appErr != nil {
		return dto.WithdrawOutput{}, appErr
	}

	withdrawal, appErr := entities.NewReservedWithdrawal(entities.NewWithdrawalInput{
		ID:             u.ids.NewID(withdrawalIDPrefix),
		IdempotencyKey: command.IdempotencyKey,
		Address:        address,
		Quote:          quote,
		TransferToken:  u.ids.NewID(transferTokenPrefix),
		RequestedAt:    u.clock.NowUTC(),
	})
	if appErr != nil {
		return dto.WithdrawOutput{}, appErr
	}

	logger := u.logger.With(
		zap.String("withdrawal_id", withdrawal.ID),
		zap.String("address", withdrawal.UserAddress),
		zap.String("address_class", withdrawal.AddressClass.String()),
		zap.String("amount", withdrawal.Amount.String()),
		zap.String("fee", withdrawal.Fee.String()),
	)

	reserved, appErr := u.ledger.ReserveFunds(ctx, dto.ReserveFundsCommand{Withdrawal: withdrawal})
	if appErr != nil {
		logger.Info("withdrawal rejected", zap.String("code", appErr.Code))
		return dto.WithdrawOutput{}, appErr
	}
	withdrawal = reserved.Withdrawal

	if ctx.Err() != nil {
		u.release(context.WithoutCancel(ctx), logger, withdrawal.ID, "request canceled before transfer")
		return dto.WithdrawOutput{}, apperrors.NewValidation(
			"request_canceled",
			"withdrawal request was canceled before the transfer was issued",
			map[string]any{"withdrawal_id": withdrawal.ID},
		)
	}

	// Once the transfer is issued the client can no longer abort the withdrawal.
	transferCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), u.transferTimeout)
	defer cancel()

	receipt, transferErr := gateway.Transfer(transferCtx, dto.TransferInput{
		AddressClass:     withdrawal.AddressClass,
		Destination:      withdrawal.UserAddress,
		Amount:           withdrawal.Net,
		IdempotencyToken: withdrawal.TransferToken,
	})
	if transferErr == nil && receipt.TransactionID == "" {
		transferErr = apperrors.NewTransferFailed(
			portsout.TransferErrorOutcomeUnknown,
			"transfer gateway returned no transaction id",
			nil,
		)
	}
	if transferErr != nil {
		return dto.WithdrawOutput{}, u.handleTransferFailure(transferCtx, logger, withdrawal, transferErr)
	}

	ledgerCtx := context.WithoutCancel(ctx)
	settled, settleErr := u.ledger.DebitReserved(ledgerCtx, dto.DebitReservedCommand{
		WithdrawalID: withdrawal.ID,
		TransferTxID: receipt.TransactionID,
		SettledAt:    u.clock.NowUTC(),
	})
	if settleErr != nil {
		logger.Error("withdrawal sent but ledger update failed",
			zap.String("transfer_tx_id", receipt.TransactionID),
			zap.String("code", settleErr.Code),
			zap.String("error", settleErr.Message),
		)
		if markErr := u.ledger.MarkLedgerUpdateFailed(ledgerCtx, dto.MarkWithdrawalCommand{
			WithdrawalID: withdrawal.ID,
			TransferTxID: receipt.TransactionID,
			Reason:       settleErr.Message,
			UpdatedAt:    u.clock.NowUTC(),
		}); markErr != nil {
			logger.Error("failed to record ledger update failure",
				zap.String("transfer_tx_id", receipt.TransactionID),
				zap.String("code", markErr.Code),
			)
		}

		return dto.WithdrawOutput{
			WithdrawalID:  withdrawal.ID,
			UserAddress:   withdrawal.UserAddress,
			AddressClass:  withdrawal.AddressClass,
			Amount:        withdrawal.Amount,
			Fee:           withdrawal.Fee,
			NetAmount:     withdrawal.Net,
			TransactionID: receipt.TransactionID,
			Status:        valueobjects.WithdrawalStatusLedgerUpdateFailed,
			Warning:       ledgerUpdateFailedWarning,
			Error:         settleErr.Message,
		}, nil
	}

	newBalance := settled.Balance.Balance
	logger.Info("withdrawal completed",
		zap.String("transfer_tx_id", receipt.TransactionID),
		zap.String("net_amount", withdrawal.Net.String()),
		zap.String("new_balance", newBalance.String()),
	)

	return dto.WithdrawOutput{
		WithdrawalID:  withdrawal.ID,
		UserAddress:   withdrawal.UserAddress,
		AddressClass:  withdrawal.AddressClass,
		Amount:        withdrawal.Amount,
		Fee:           withdrawal.Fee,
		NetAmount:     withdrawal.Net,
		TransactionID: receipt.TransactionID,
		Status:        valueobjects.WithdrawalStatusCompleted,
		NewBalance:    &newBalance,
	}, nil
}

func (u *withdrawUseCase) handleTransferFailure(
	transferCtx context.Context,
	logger *zap.Logger,
	withdrawal entities.Withdrawal,
	transferErr *apperrors.AppError,
) *apperrors.AppError {
	ledgerCtx := context.WithoutCancel(transferCtx)
	details := map[string]any{"withdrawal_id": withdrawal.ID}

	if portsout.IsDefiniteTransferFailure(transferErr) && !stderrors.Is(transferCtx.Err(), context.DeadlineExceeded) {
		logger.Warn("withdrawal transfer failed",
			zap.String("code", transferErr.Code),
			zap.String("error", transferErr.Message),
		)
		u.release(ledgerCtx, logger, withdrawal.ID, transferErr.Message)

		details["retry_safe"] = true
		return transferErr.WithDetails(details)
	}

	logger.Error("withdrawal transfer outcome unknown",
		zap.String("code", transferErr.Code),
		zap.String("error", transferErr.Message),
		zap.String("transfer_token", withdrawal.TransferToken),
	)
	if markErr := u.ledger.MarkTransferUnknown(ledgerCtx, dto.MarkWithdrawalCommand{
		WithdrawalID: withdrawal.ID,
		Reason:       transferErr.Message,
		UpdatedAt:    u.clock.NowUTC(),
	}); markErr != nil {
		logger.Error("failed to record unknown transfer outcome", zap.String("code", markErr.Code))
	}

	details["retry_safe"] = false
	return apperrors.NewTransferFailed(
		portsout.TransferErrorOutcomeUnknown,
		"transfer outcome is unknown; funds stay reserved until the transfer is reconciled",
		details,
	)
}

func (u *withdrawUseCase) release(ctx context.Context, logger *zap.Logger, withdrawalID, reason string) {
	_, appErr := u.ledger.ReleaseReservation(ctx, dto.ReleaseReservationCommand{
		WithdrawalID: withdrawalID,
		Reason:       reason,
		ReleasedAt:   u.clock.NowUTC(),
	})
	if appErr != nil {
		// The reconciler releases the hold once the transfer lookup reports not_found.
		logger.Error("failed to release withdrawal reservation", zap.String("code", appErr.Code))
	}
}
