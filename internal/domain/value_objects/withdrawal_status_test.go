//go:build !integration

package valueobjects

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseWithdrawalStatus(t *testing.T) {
	tests := []struct {
		name   string
		raw    string
		valid  bool
		status WithdrawalStatus
	}{
		{name: "reserved", raw: "reserved", valid: true, status: WithdrawalStatusReserved},
		{name: "completed", raw: "completed", valid: true, status: WithdrawalStatusCompleted},
		{name: "released", raw: "released", valid: true, status: WithdrawalStatusReleased},
		{name: "transfer_unknown", raw: "transfer_unknown", valid: true, status: WithdrawalStatusTransferUnknown},
		{name: "ledger_update_failed", raw: "ledger_update_failed", valid: true, status: WithdrawalStatusLedgerUpdateFailed},
		{name: "invalid", raw: "wat", valid: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			status, appErr := ParseWithdrawalStatus(tc.raw)
			if !tc.valid {
				require.NotNil(t, appErr)
				return
			}
			require.Nil(t, appErr)
			require.Equal(t, tc.status, status)
		})
	}
}

func TestWithdrawalStatusTransitions(t *testing.T) {
	require.True(t, WithdrawalStatusReserved.CanRelease())
	require.True(t, WithdrawalStatusTransferUnknown.CanRelease())
	require.False(t, WithdrawalStatusLedgerUpdateFailed.CanRelease())
	require.True(t, WithdrawalStatusLedgerUpdateFailed.CanSettle())
	require.False(t, WithdrawalStatusCompleted.CanSettle())
	require.False(t, WithdrawalStatusReleased.IsOpen())
}
