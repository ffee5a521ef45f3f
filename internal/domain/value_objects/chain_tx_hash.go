package valueobjects

import (
	"strings"
	"unicode"

	apperrors "housebalance/internal/shared_kernel/errors"
)

const maxChainTxHashLength = 256

// NormalizeChainTxHash trims a deposit transaction hash. Hex hashes on EVM,
// Kaspa and Stellar are lower-cased. Base58 digests on Sui and Solana are case
// sensitive and kept as sent.
func NormalizeChainTxHash(class AddressClass, raw string) (string, *apperrors.AppError) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return "", apperrors.NewValidation(
			"invalid_request",
			"chain_tx_hash is required",
			map[string]any{"field": "chain_tx_hash"},
		)
	}
	if len(value) > maxChainTxHashLength {
		return "", apperrors.NewValidation(
			"invalid_request",
			"chain_tx_hash is too long",
			map[string]any{"field": "chain_tx_hash", "max_length": maxChainTxHashLength},
		)
	}
	for _, r := range value {
		if unicode.IsSpace(r) || unicode.IsControl(r) {
			return "", apperrors.NewValidation(
				"invalid_request",
				"chain_tx_hash must not contain whitespace",
				map[string]any{"field": "chain_tx_hash"},
			)
		}
	}

	if foldsHexTxHash(class) && isHexHash(value) {
		return strings.ToLower(value), nil
	}
	return value, nil
}

func foldsHexTxHash(class AddressClass) bool {
	switch class {
	case AddressClassEVM, AddressClassKaspa, AddressClassStellar:
		return true
	default:
		return false
	}
}

func isHexHash(value string) bool {
	digits := value
	if strings.HasPrefix(digits, "0x") || strings.HasPrefix(digits, "0X") {
		digits = digits[2:]
	}
	if digits == "" {
		return false
	}
	for _, r := range digits {
		if !('0' <= r && r <= '9' || 'a' <= r && r <= 'f' || 'A' <= r && r <= 'F') {
			return false
		}
	}
	return true
}
