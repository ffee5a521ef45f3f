package use_cases

import (
	"context"

	"housebalance/internal/application/dto"
	portsin "housebalance/internal/application/ports/in"
	portsout "housebalance/internal/application/ports/out"
	valueobjects "housebalance/internal/domain/value_objects"
	apperrors "housebalance/internal/shared_kernel/errors"

	"github.com/shopspring/decimal"
)

type getBalanceUseCase struct {
	readModel portsout.BalanceReadModel
}

func NewGetBalanceUseCase(readModel portsout.BalanceReadModel) portsin.GetBalanceUseCase {
	return &getBalanceUseCase{readModel: readModel}
}

// Execute never reports an unknown address as missing; it has a zero balance.
func (u *getBalanceUseCase) Execute(ctx context.Context, query dto.GetBalanceQuery) (dto.BalanceOutput, *apperrors.AppError) {
	if u.readModel == nil {
		return dto.BalanceOutput{}, apperrors.NewInternal(
			"balance_read_model_missing",
			"balance read model is required",
			nil,
		)
	}

	address, appErr := valueobjects.ParseUserAddress(query.UserAddress)
	if appErr != nil {
		return dto.BalanceOutput{}, appErr
	}

	record, found, appErr := u.readModel.GetBalance(ctx, address.Canonical)
	if appErr != nil {
		return dto.BalanceOutput{}, appErr
	}
	if !found {
		return dto.BalanceOutput{
			UserAddress:  address.Canonical,
			AddressClass: address.Class,
			Balance:      decimal.Zero,
			Reserved:     decimal.Zero,
			Available:    decimal.Zero,
		}, nil
	}

	available := record.Balance.Sub(record.Reserved)
	if available.IsNegative() {
		available = decimal.Zero
	}
	updatedAt := record.UpdatedAt.UTC()

	return dto.BalanceOutput{
		UserAddress:  address.Canonical,
		AddressClass: address.Class,
		Balance:      record.Balance,
		Reserved:     record.Reserved,
		Available:    available,
		UpdatedAt:    &updatedAt,
		Found:        true,
	}, nil
}
