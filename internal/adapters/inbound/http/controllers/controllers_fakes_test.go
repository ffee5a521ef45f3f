//go:build !integration

package controllers

import (
	"context"

	"housebalance/internal/application/dto"
	apperrors "housebalance/internal/shared_kernel/errors"
)

type fakeDepositUseCase struct {
	command dto.DepositCommand
	output  dto.DepositOutput
	err     *apperrors.AppError
}

func (f *fakeDepositUseCase) Execute(_ context.Context, command dto.DepositCommand) (dto.DepositOutput, *apperrors.AppError) {
	f.command = command
	return f.output, f.err
}

type fakeWithdrawUseCase struct {
	command dto.WithdrawCommand
	calls   int
	output  dto.WithdrawOutput
	err     *apperrors.AppError
}

func (f *fakeWithdrawUseCase) Execute(_ context.Context, command dto.WithdrawCommand) (dto.WithdrawOutput, *apperrors.AppError) {
	f.calls++
	f.command = command
	return f.output, f.err
}

type fakeGetWithdrawalUseCase struct {
	query  dto.GetWithdrawalQuery
	output dto.WithdrawalOutput
	err    *apperrors.AppError
}

func (f *fakeGetWithdrawalUseCase) Execute(_ context.Context, query dto.GetWithdrawalQuery) (dto.WithdrawalOutput, *apperrors.AppError) {
	f.query = query
	return f.output, f.err
}

type fakeGetBalanceUseCase struct {
	query  dto.GetBalanceQuery
	output dto.BalanceOutput
	err    *apperrors.AppError
}

func (f *fakeGetBalanceUseCase) Execute(_ context.Context, query dto.GetBalanceQuery) (dto.BalanceOutput, *apperrors.AppError) {
	f.query = query
	return f.output, f.err
}
