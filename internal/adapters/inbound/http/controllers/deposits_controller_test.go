//go:build !integration

package controllers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"housebalance/internal/application/dto"
	valueobjects "housebalance/internal/domain/value_objects"
	apperrors "housebalance/internal/shared_kernel/errors"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestDepositsControllerCreateDeposit(t *testing.T) {
	creditedAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	useCase := &fakeDepositUseCase{output: dto.DepositOutput{
		UserAddress:  "0xfb6916095ca1df60bb79ce92ce3ea74c37c5d359",
		AddressClass: valueobjects.AddressClassEVM,
		Amount:       decimal.RequireFromString("10.5"),
		NewBalance:   decimal.RequireFromString("110.5"),
		ChainTxHash:  "0xhash",
		CreditedAt:   creditedAt,
	}}
	controller := NewDepositsController(useCase, nil)

	body := `{"user_address":"0xFB6916095ca1df60bB79Ce92cE3Ea74c37c5d359","amount":10.50,"chain_tx_hash":"0xhash"}`
	rec := httptest.NewRecorder()
	controller.CreateDeposit(rec, httptest.NewRequest(http.MethodPost, "/v1/deposits", strings.NewReader(body)))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Empty(t, rec.Header().Get(headerIdempotencyReplayed))
	require.Equal(t, "10.50", useCase.command.Amount)
	require.Equal(t, "0xhash", useCase.command.ChainTxHash)

	var payload depositResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	require.Equal(t, "110.5", payload.NewBalance)
	require.Equal(t, "0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359", payload.UserAddress)
	require.Equal(t, "evm", payload.AddressClass)
	require.False(t, payload.Replayed)
	require.True(t, creditedAt.Equal(payload.CreditedAt))
}

func TestDepositsControllerReplaySetsHeader(t *testing.T) {
	useCase := &fakeDepositUseCase{output: dto.DepositOutput{
		UserAddress:  "GA7QYNF7SOWQ3GLR2BGMZEHXAVIRZA4KVWLTJJFC7MGXUA74P7UJVSGZ",
		AddressClass: valueobjects.AddressClassStellar,
		Amount:       decimal.RequireFromString("1"),
		NewBalance:   decimal.RequireFromString("1"),
		ChainTxHash:  "tx-1",
		Replayed:     true,
	}}
	controller := NewDepositsController(useCase, nil)

	body := `{"user_address":"GA7QYNF7SOWQ3GLR2BGMZEHXAVIRZA4KVWLTJJFC7MGXUA74P7UJVSGZ","amount":"1","chain_tx_hash":"tx-1"}`
	rec := httptest.NewRecorder()
	controller.CreateDeposit(rec, httptest.NewRequest(http.MethodPost, "/v1/deposits", strings.NewReader(body)))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "true", rec.Header().Get(headerIdempotencyReplayed))
}

func TestDepositsControllerRejectsMalformedBody(t *testing.T) {
	testCases := map[string]string{
		"not json":      `{"user_address":`,
		"unknown field": `{"user_address":"x","amount":"1","chain_tx_hash":"h","memo":"m"}`,
		"two objects":   `{"user_address":"x"}{"user_address":"y"}`,
		"bool amount":   `{"user_address":"x","amount":true,"chain_tx_hash":"h"}`,
	}

	for name, body := range testCases {
		t.Run(name, func(t *testing.T) {
			useCase := &fakeDepositUseCase{}
			controller := NewDepositsController(useCase, nil)

			rec := httptest.NewRecorder()
			controller.CreateDeposit(rec, httptest.NewRequest(http.MethodPost, "/v1/deposits", strings.NewReader(body)))

			require.Equal(t, http.StatusBadRequest, rec.Code)
			require.Empty(t, useCase.command.UserAddress)

			var payload errorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
			require.Equal(t, "invalid_request", payload.Error.Code)
		})
	}
}

func TestDepositsControllerMapsErrors(t *testing.T) {
	testCases := []struct {
		name   string
		err    *apperrors.AppError
		status int
		code   string
	}{
		{name: "validation", err: apperrors.NewValidation("invalid_amount", "amount must be positive", nil), status: http.StatusBadRequest, code: "invalid_amount"},
		{name: "conflict", err: apperrors.NewConflict("deposit_conflict", "chain_tx_hash already credited", nil), status: http.StatusConflict, code: "deposit_conflict"},
		{name: "unavailable", err: apperrors.NewUnavailable("ledger_unavailable", "ledger store is unavailable", nil), status: http.StatusServiceUnavailable, code: "ledger_unavailable"},
		{name: "internal masked", err: apperrors.NewInternal("ledger_query_failed", "pq: relation does not exist", nil), status: http.StatusInternalServerError, code: "internal_error"},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			controller := NewDepositsController(&fakeDepositUseCase{err: testCase.err}, nil)

			body := `{"user_address":"x","amount":"1","chain_tx_hash":"h"}`
			rec := httptest.NewRecorder()
			controller.CreateDeposit(rec, httptest.NewRequest(http.MethodPost, "/v1/deposits", strings.NewReader(body)))

			require.Equal(t, testCase.status, rec.Code)
			var payload errorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
			require.Equal(t, testCase.code, payload.Error.Code)
			require.NotContains(t, rec.Body.String(), "relation does not exist")
		})
	}
}
