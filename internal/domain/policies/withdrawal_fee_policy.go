package policies

import (
	valueobjects "housebalance/internal/domain/value_objects"
	apperrors "housebalance/internal/shared_kernel/errors"

	"github.com/shopspring/decimal"
)

// DefaultWithdrawalFeeRate is the protocol fee applied when no override is configured.
var DefaultWithdrawalFeeRate = decimal.RequireFromString("0.02")

// FeeRateScale matches the fee_rate column precision.
const FeeRateScale = 8

type FeeQuote struct {
	Amount  decimal.Decimal
	FeeRate decimal.Decimal
	Fee     decimal.Decimal
	Net     decimal.Decimal
}

// ComputeNet splits amount into fee and net. Fee + Net always equals Amount.
func ComputeNet(amount, feeRate decimal.Decimal) (FeeQuote, *apperrors.AppError) {
	if appErr := ValidateFeeRate(feeRate); appErr != nil {
		return FeeQuote{}, appErr
	}
	if amount.IsNegative() {
		return FeeQuote{}, apperrors.NewValidation(
			"invalid_amount",
			"amount must not be negative",
			map[string]any{"amount": amount.String()},
		)
	}

	// Fee is truncated to ledger precision so the split stays exact when stored.
	// Below 10^-18 the fee rounds to zero and the whole amount is paid out.
	fee := amount.Mul(feeRate).Truncate(valueobjects.AmountScale)
	return FeeQuote{
		Amount:  amount,
		FeeRate: feeRate,
		Fee:     fee,
		Net:     amount.Sub(fee),
	}, nil
}

func ValidateFeeRate(feeRate decimal.Decimal) *apperrors.AppError {
	if feeRate.IsNegative() || feeRate.GreaterThan(decimal.NewFromInt(1)) {
		return apperrors.NewInternal(
			"fee_rate_invalid",
			"fee rate must be between 0 and 1",
			map[string]any{"fee_rate": feeRate.String()},
		)
	}
	if !feeRate.Equal(feeRate.Truncate(FeeRateScale)) {
		return apperrors.NewInternal(
			"fee_rate_invalid",
			"fee rate must have at most 8 decimal places",
			map[string]any{"fee_rate": feeRate.String()},
		)
	}
	return nil
}

type FeeSchedule struct {
	Default  decimal.Decimal
	PerClass map[valueobjects.AddressClass]decimal.Decimal
}

func NewFeeSchedule(defaultRate decimal.Decimal, perClass map[valueobjects.AddressClass]decimal.Decimal) (FeeSchedule, *apperrors.AppError) {
	if appErr := ValidateFeeRate(defaultRate); appErr != nil {
		return FeeSchedule{}, appErr
	}

	rates := make(map[valueobjects.AddressClass]decimal.Decimal, len(perClass))
	for class, rate := range perClass {
		if appErr := ValidateFeeRate(rate); appErr != nil {
			return FeeSchedule{}, appErr.WithDetails(map[string]any{"address_class": class.String()})
		}
		rates[class] = rate
	}

	return FeeSchedule{Default: defaultRate, PerClass: rates}, nil
}

func (s FeeSchedule) RateFor(class valueobjects.AddressClass) decimal.Decimal {
	if rate, ok := s.PerClass[class]; ok {
		return rate
	}
	return s.Default
}

func (s FeeSchedule) Quote(class valueobjects.AddressClass, amount decimal.Decimal) (FeeQuote, *apperrors.AppError) {
	return ComputeNet(amount, s.RateFor(class))
}
