package valueobjects

import (
	"regexp"
	"strings"

	apperrors "housebalance/internal/shared_kernel/errors"

	"github.com/shopspring/decimal"
)

const (
	// AmountScale matches the NUMERIC(38,18) ledger columns.
	AmountScale          = 18
	amountIntegerDigits  = 38 - AmountScale
	amountPatternLiteral = `^[0-9]+(\.[0-9]+)?$`
)

var amountPattern = regexp.MustCompile(amountPatternLiteral)

// ParseAmount parses a plain decimal literal and requires it to be positive
// and representable in the ledger without rounding.
func ParseAmount(raw, field string) (decimal.Decimal, *apperrors.AppError) {
	value := strings.TrimSpace(raw)
	if !amountPattern.MatchString(value) {
		return decimal.Decimal{}, apperrors.NewValidation(
			"invalid_amount",
			field+" must be a positive decimal number",
			map[string]any{"field": field},
		)
	}

	amount, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Decimal{}, apperrors.NewValidation(
			"invalid_amount",
			field+" must be a positive decimal number",
			map[string]any{"field": field},
		)
	}

	return amount, ValidateAmount(amount, field)
}

func ValidateAmount(amount decimal.Decimal, field string) *apperrors.AppError {
	if !amount.IsPositive() {
		return apperrors.NewValidation(
			"invalid_amount",
			field+" must be greater than zero",
			map[string]any{"field": field},
		)
	}

	if !amount.Equal(amount.Truncate(AmountScale)) {
		return apperrors.NewValidation(
			"invalid_amount",
			field+" supports at most 18 fractional digits",
			map[string]any{"field": field},
		)
	}

	if len(amount.Truncate(0).String()) > amountIntegerDigits {
		return apperrors.NewValidation(
			"invalid_amount",
			field+" exceeds the supported range",
			map[string]any{"field": field},
		)
	}

	return nil
}
