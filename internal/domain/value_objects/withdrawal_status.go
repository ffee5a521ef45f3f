package valueobjects

import apperrors "housebalance/internal/shared_kernel/errors"

type WithdrawalStatus string

const (
	// WithdrawalStatusReserved holds funds before the chain transfer is issued.
	WithdrawalStatusReserved           WithdrawalStatus = "reserved"
	WithdrawalStatusCompleted          WithdrawalStatus = "completed"
	WithdrawalStatusReleased           WithdrawalStatus = "released"
	WithdrawalStatusTransferUnknown    WithdrawalStatus = "transfer_unknown"
	WithdrawalStatusLedgerUpdateFailed WithdrawalStatus = "ledger_update_failed"
)

func ParseWithdrawalStatus(raw string) (WithdrawalStatus, *apperrors.AppError) {
	switch WithdrawalStatus(raw) {
	case WithdrawalStatusReserved,
		WithdrawalStatusCompleted,
		WithdrawalStatusReleased,
		WithdrawalStatusTransferUnknown,
		WithdrawalStatusLedgerUpdateFailed:
		return WithdrawalStatus(raw), nil
	default:
		return "", apperrors.NewInternal(
			"withdrawal_status_invalid",
			"withdrawal status is invalid",
			map[string]any{"status": raw},
		)
	}
}

func (s WithdrawalStatus) String() string {
	return string(s)
}

// IsOpen reports whether funds are still held for the withdrawal.
func (s WithdrawalStatus) IsOpen() bool {
	switch s {
	case WithdrawalStatusReserved, WithdrawalStatusTransferUnknown, WithdrawalStatusLedgerUpdateFailed:
		return true
	default:
		return false
	}
}

// CanSettle reports whether a confirmed transfer may still debit the hold.
func (s WithdrawalStatus) CanSettle() bool {
	return s.IsOpen()
}

// CanRelease reports whether the hold may be returned. Once a transfer id is
// known the hold can only be settled.
func (s WithdrawalStatus) CanRelease() bool {
	return s == WithdrawalStatusReserved || s == WithdrawalStatusTransferUnknown
}
