package use_cases

import (
	"context"

	"housebalance/internal/application/dto"
	portsin "housebalance/internal/application/ports/in"
	portsout "housebalance/internal/application/ports/out"
	valueobjects "housebalance/internal/domain/value_objects"
	apperrors "housebalance/internal/shared_kernel/errors"

	"go.uber.org/zap"
)

type depositUseCase struct {
	ledger portsout.LedgerStore
	clock  Clock
	logger *zap.Logger
}

func NewDepositUseCase(ledger portsout.LedgerStore, clock Clock, logger *zap.Logger) portsin.DepositUseCase {
	if clock == nil {
		clock = NewSystemClock()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &depositUseCase{
		ledger: ledger,
		clock:  clock,
		logger: logger,
	}
}

func (u *depositUseCase) Execute(ctx context.Context, command dto.DepositCommand) (dto.DepositOutput, *apperrors.AppError) {
	if u.ledger == nil {
		return dto.DepositOutput{}, apperrors.NewInternal(
			"ledger_store_missing",
			"ledger store is required",
			nil,
		)
	}

	address, appErr := valueobjects.ParseUserAddress(command.UserAddress)
	if appErr != nil {
		return dto.DepositOutput{}, appErr
	}
	amount, appErr := valueobjects.ParseAmount(command.Amount, "amount")
	if appErr != nil {
		return dto.DepositOutput{}, appErr
	}
	chainTxHash, appErr := valueobjects.NormalizeChainTxHash(address.Class, command.ChainTxHash)
	if appErr != nil {
		return dto.DepositOutput{}, appErr
	}

	result, appErr := u.ledger.CreditOnce(ctx, dto.CreditCommand{
		UserAddress:    address.Canonical,
		AddressClass:   address.Class,
		Amount:         amount,
		IdempotencyKey: chainTxHash,
		CreditedAt:     u.clock.NowUTC(),
	})
	if appErr != nil {
		u.logger.Warn("deposit credit failed",
			zap.String("address", address.Canonical),
			zap.String("amount", amount.String()),
			zap.String("chain_tx_hash", chainTxHash),
			zap.String("code", appErr.Code),
		)
		return dto.DepositOutput{}, appErr
	}

	if result.Replayed {
		u.logger.Info("deposit replay ignored",
			zap.String("address", address.Canonical),
			zap.String("chain_tx_hash", chainTxHash),
		)
	} else {
		u.logger.Info("deposit credited",
			zap.String("address", address.Canonical),
			zap.String("amount", amount.String()),
			zap.String("new_balance", result.Balance.Balance.String()),
			zap.String("chain_tx_hash", chainTxHash),
		)
	}

	return dto.DepositOutput{
		UserAddress:  address.Canonical,
		AddressClass: address.Class,
		Amount:       amount,
		NewBalance:   result.Balance.Balance,
		ChainTxHash:  chainTxHash,
		Replayed:     result.Replayed,
		CreditedAt:   result.CreditedAt,
	}, nil
}
