package valueobjects

import (
	"regexp"
	"strings"
	"sync"

	apperrors "housebalance/internal/shared_kernel/errors"

	"github.com/mr-tron/base58"
	"github.com/stellar/go/strkey"
	"golang.org/x/crypto/sha3"
)

type AddressClass string

const (
	AddressClassKaspa   AddressClass = "kaspa"
	AddressClassEVM     AddressClass = "evm"
	AddressClassSui     AddressClass = "sui"
	AddressClassStellar AddressClass = "stellar"
	AddressClassSolana  AddressClass = "solana"
	AddressClassInvalid AddressClass = "invalid"
)

func (c AddressClass) String() string {
	return string(c)
}

func (c AddressClass) IsValid() bool {
	return c != "" && c != AddressClassInvalid
}

// ParseAddressClass accepts only classes that have a registered validator.
func ParseAddressClass(raw string) (AddressClass, bool) {
	normalized := AddressClass(strings.ToLower(strings.TrimSpace(raw)))
	for _, validator := range registeredValidators() {
		if validator.Class == normalized {
			return normalized, true
		}
	}
	return "", false
}

var (
	evmAddressPattern     = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)
	suiAddressPattern     = regexp.MustCompile(`^0x[0-9a-fA-F]{64}$`)
	stellarAccountPattern = regexp.MustCompile(`^G[A-Z2-7]{55}$`)
	kaspaPrefixes         = []string{"kaspa:", "kaspatest:"}
)

const solanaPublicKeyLength = 32

// AddressValidator recognises one address family. Matches must not panic on any input.
type AddressValidator struct {
	Class        AddressClass
	Matches      func(address string) bool
	Canonicalize func(address string) string
}

type ClassifiedAddress struct {
	Class     AddressClass
	Canonical string
}

var (
	validatorsMu sync.RWMutex
	validators   = defaultAddressValidators()
)

func defaultAddressValidators() []AddressValidator {
	return []AddressValidator{
		{Class: AddressClassKaspa, Matches: isKaspaAddress, Canonicalize: strings.ToLower},
		{Class: AddressClassEVM, Matches: isEVMAddress, Canonicalize: lowerHex},
		{Class: AddressClassSui, Matches: suiAddressPattern.MatchString, Canonicalize: lowerHex},
		{Class: AddressClassStellar, Matches: isStellarAccount, Canonicalize: identity},
		{Class: AddressClassSolana, Matches: isSolanaPublicKey, Canonicalize: identity},
	}
}

// RegisterAddressValidator appends a validator after the built-in ones, or
// replaces the validator already registered for the same class.
func RegisterAddressValidator(validator AddressValidator) {
	if !validator.Class.IsValid() || validator.Matches == nil {
		return
	}
	if validator.Canonicalize == nil {
		validator.Canonicalize = identity
	}

	validatorsMu.Lock()
	defer validatorsMu.Unlock()

	for i := range validators {
		if validators[i].Class == validator.Class {
			validators[i] = validator
			return
		}
	}
	validators = append(validators, validator)
}

func registeredValidators() []AddressValidator {
	validatorsMu.RLock()
	defer validatorsMu.RUnlock()

	out := make([]AddressValidator, len(validators))
	copy(out, validators)
	return out
}

// Classify returns the first matching class in registration order, or
// AddressClassInvalid. It never fails.
func Classify(address string) ClassifiedAddress {
	trimmed := strings.TrimSpace(address)
	if trimmed == "" {
		return ClassifiedAddress{Class: AddressClassInvalid}
	}

	for _, validator := range registeredValidators() {
		if validator.Matches(trimmed) {
			return ClassifiedAddress{
				Class:     validator.Class,
				Canonical: validator.Canonicalize(trimmed),
			}
		}
	}

	return ClassifiedAddress{Class: AddressClassInvalid}
}

// ParseUserAddress classifies raw and maps the invalid class to a validation error.
func ParseUserAddress(raw string) (ClassifiedAddress, *apperrors.AppError) {
	if strings.TrimSpace(raw) == "" {
		return ClassifiedAddress{}, apperrors.NewValidation(
			"invalid_request",
			"user_address is required",
			map[string]any{"field": "user_address"},
		)
	}

	classified := Classify(raw)
	if !classified.Class.IsValid() {
		return ClassifiedAddress{}, apperrors.NewValidation(
			"invalid_address",
			"user_address does not match any supported chain format",
			map[string]any{"field": "user_address"},
		)
	}

	return classified, nil
}

func isKaspaAddress(address string) bool {
	lower := strings.ToLower(address)
	for _, prefix := range kaspaPrefixes {
		if !strings.HasPrefix(lower, prefix) {
			continue
		}
		payload := lower[len(prefix):]
		return payload != "" && !strings.ContainsAny(payload, " \t\r\n:")
	}
	return false
}

func isEVMAddress(address string) bool {
	if !evmAddressPattern.MatchString(address) {
		return false
	}

	hexPart := address[2:]
	if hexPart == strings.ToLower(hexPart) || hexPart == strings.ToUpper(hexPart) {
		return true
	}

	checksummed, appErr := ToEIP55Checksum(address)
	if appErr != nil {
		return false
	}
	return checksummed == address
}

func isStellarAccount(address string) bool {
	if !stellarAccountPattern.MatchString(address) {
		return false
	}
	return strkey.IsValidEd25519PublicKey(address)
}

func isSolanaPublicKey(address string) bool {
	if len(address) < 32 || len(address) > 44 {
		return false
	}
	decoded, err := base58.Decode(address)
	if err != nil {
		return false
	}
	return len(decoded) == solanaPublicKeyLength
}

func lowerHex(address string) string {
	return "0x" + strings.ToLower(address[2:])
}

func identity(address string) string {
	return address
}

func ToEIP55Checksum(canonical string) (string, *apperrors.AppError) {
	normalized := "0x" + strings.ToLower(strings.TrimSpace(strings.TrimPrefix(canonical, "0x")))
	if !evmAddressPattern.MatchString(normalized) {
		return "", apperrors.NewInternal(
			"address_canonical_invalid",
			"canonical evm address is invalid",
			map[string]any{"address": canonical},
		)
	}

	hexPart := strings.TrimPrefix(normalized, "0x")
	hash := sha3.NewLegacyKeccak256()
	if _, err := hash.Write([]byte(hexPart)); err != nil {
		return "", apperrors.NewInternal(
			"address_checksum_hash_failed",
			"failed to hash address for checksum",
			map[string]any{"error": err.Error()},
		)
	}
	checksumBytes := hash.Sum(nil)

	out := make([]byte, len(hexPart))
	for i := 0; i < len(hexPart); i++ {
		ch := hexPart[i]
		if ch >= '0' && ch <= '9' {
			out[i] = ch
			continue
		}

		var nibble byte
		if i%2 == 0 {
			nibble = (checksumBytes[i/2] >> 4) & 0x0f
		} else {
			nibble = checksumBytes[i/2] & 0x0f
		}

		if nibble >= 8 {
			out[i] = ch - 'a' + 'A'
		} else {
			out[i] = ch
		}
	}

	return "0x" + string(out), nil
}

// FormatAddressForResponse renders a stored canonical address for API output.
func FormatAddressForResponse(class AddressClass, canonical string) string {
	if class != AddressClassEVM {
		return canonical
	}
	checksummed, appErr := ToEIP55Checksum(canonical)
	if appErr != nil {
		return canonical
	}
	return checksummed
}
