package use_cases

import (
	"context"
	"strings"

	"housebalance/internal/application/dto"
	portsin "housebalance/internal/application/ports/in"
	portsout "housebalance/internal/application/ports/out"
	apperrors "housebalance/internal/shared_kernel/errors"
)

type getWithdrawalUseCase struct {
	ledger portsout.LedgerStore
}

func NewGetWithdrawalUseCase(ledger portsout.LedgerStore) portsin.GetWithdrawalUseCase {
	return &getWithdrawalUseCase{ledger: ledger}
}

func (u *getWithdrawalUseCase) Execute(ctx context.Context, query dto.GetWithdrawalQuery) (dto.WithdrawalOutput, *apperrors.AppError) {
	if u.ledger == nil {
		return dto.WithdrawalOutput{}, apperrors.NewInternal(
			"ledger_store_missing",
			"ledger store is required",
			nil,
		)
	}

	id := strings.TrimSpace(query.WithdrawalID)
	if id == "" {
		return dto.WithdrawalOutput{}, apperrors.NewValidation(
			"invalid_request",
			"withdrawal id is required",
			map[string]any{"field": "id"},
		)
	}

	withdrawal, found, appErr := u.ledger.GetWithdrawal(ctx, id)
	if appErr != nil {
		return dto.WithdrawalOutput{}, appErr
	}
	if !found {
		return dto.WithdrawalOutput{}, apperrors.NewNotFound(
			"withdrawal_not_found",
			"withdrawal not found",
			map[string]any{"id": id},
		)
	}

	return dto.WithdrawalOutput{Withdrawal: withdrawal}, nil
}
