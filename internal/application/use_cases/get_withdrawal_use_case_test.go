//go:build !integration

package use_cases

import (
	"context"
	"testing"
	"time"

	"housebalance/internal/application/dto"
	valueobjects "housebalance/internal/domain/value_objects"
	apperrors "housebalance/internal/shared_kernel/errors"

	"github.com/stretchr/testify/require"
)

func TestGetWithdrawalUseCaseReturnsRecordedWithdrawal(t *testing.T) {
	ledger, _, build := newWithdrawFixture(t, "1000")
	submitted, appErr := build(time.Second).Execute(context.Background(), dto.WithdrawCommand{
		UserAddress: testEVMAddress,
		Amount:      "10",
	})
	require.Nil(t, appErr)

	output, appErr := NewGetWithdrawalUseCase(ledger).Execute(context.Background(), dto.GetWithdrawalQuery{
		WithdrawalID: submitted.WithdrawalID,
	})
	require.Nil(t, appErr)
	require.Equal(t, valueobjects.WithdrawalStatusCompleted, output.Withdrawal.Status)
	require.Equal(t, submitted.TransactionID, *output.Withdrawal.TransferTxID)
}

func TestGetWithdrawalUseCaseErrors(t *testing.T) {
	useCase := NewGetWithdrawalUseCase(newFakeLedger())

	_, appErr := useCase.Execute(context.Background(), dto.GetWithdrawalQuery{WithdrawalID: "wd_missing"})
	require.NotNil(t, appErr)
	require.Equal(t, apperrors.TypeNotFound, appErr.Type)
	require.Equal(t, "withdrawal_not_found", appErr.Code)

	_, appErr = useCase.Execute(context.Background(), dto.GetWithdrawalQuery{WithdrawalID: "  "})
	require.NotNil(t, appErr)
	require.Equal(t, apperrors.TypeValidation, appErr.Type)
}
