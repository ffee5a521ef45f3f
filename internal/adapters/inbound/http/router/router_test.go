//go:build !integration

package router

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"housebalance/internal/adapters/inbound/http/controllers"
	"housebalance/internal/adapters/outbound/docs"
	"housebalance/internal/application/dto"
	"housebalance/internal/application/use_cases"
	"housebalance/internal/domain/entities"
	valueobjects "housebalance/internal/domain/value_objects"
	apperrors "housebalance/internal/shared_kernel/errors"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func TestRouterHealthAndSwaggerRoutes(t *testing.T) {
	openAPISpecPath := writeTempOpenAPISpec(t)
	mux := newTestRouter(openAPISpecPath)

	t.Run("healthz returns 200", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		rec := httptest.NewRecorder()

		mux.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", rec.Code)
		}

		if !strings.Contains(rec.Body.String(), `"status":"ok"`) {
			t.Fatalf("expected body to contain status ok, got %s", rec.Body.String())
		}
	})

	t.Run("swagger root redirects to index", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/swagger", nil)
		rec := httptest.NewRecorder()

		mux.ServeHTTP(rec, req)

		if rec.Code != http.StatusTemporaryRedirect {
			t.Fatalf("expected status %d, got %d", http.StatusTemporaryRedirect, rec.Code)
		}

		location := rec.Header().Get("Location")
		if location != "/swagger/index.html" {
			t.Fatalf("expected redirect location /swagger/index.html, got %q", location)
		}
	})

	t.Run("swagger UI index is served", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/swagger/index.html", nil)
		rec := httptest.NewRecorder()

		mux.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", rec.Code)
		}

		contentType := rec.Header().Get("Content-Type")
		if !strings.Contains(contentType, "text/html") {
			t.Fatalf("expected text/html content type, got %q", contentType)
		}
	})

	t.Run("openapi spec is served with version 3.0.3", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/swagger/openapi.yaml", nil)
		rec := httptest.NewRecorder()

		mux.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", rec.Code)
		}

		if !strings.Contains(rec.Body.String(), "openapi: 3.0.3") {
			t.Fatalf("expected openapi version 3.0.3 in body, got %s", rec.Body.String())
		}
	})
}

func TestRouterLedgerRoutes(t *testing.T) {
	mux := newTestRouter(writeTempOpenAPISpec(t))

	t.Run("deposit route returns 200", func(t *testing.T) {
		body := bytes.NewBufferString(`{"user_address":"0xfb6916095ca1df60bb79ce92ce3ea74c37c5d359","amount":"10","chain_tx_hash":"0xhash"}`)
		req := httptest.NewRequest(http.MethodPost, "/v1/deposits", body)
		rec := httptest.NewRecorder()

		mux.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d body=%s", rec.Code, rec.Body.String())
		}
		if !strings.Contains(rec.Body.String(), `"new_balance":"10"`) {
			t.Fatalf("expected new balance in body, got %s", rec.Body.String())
		}
	})

	t.Run("withdraw route returns 200", func(t *testing.T) {
		body := bytes.NewBufferString(`{"user_address":"0xfb6916095ca1df60bb79ce92ce3ea74c37c5d359","amount":"5"}`)
		req := httptest.NewRequest(http.MethodPost, "/v1/withdrawals", body)
		rec := httptest.NewRecorder()

		mux.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d body=%s", rec.Code, rec.Body.String())
		}
		if !strings.Contains(rec.Body.String(), `"transaction_id":"0xtx"`) {
			t.Fatalf("expected transaction id in body, got %s", rec.Body.String())
		}
	})

	t.Run("get withdrawal route passes the path id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/v1/withdrawals/wd_test", nil)
		rec := httptest.NewRecorder()

		mux.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d body=%s", rec.Code, rec.Body.String())
		}
		if !strings.Contains(rec.Body.String(), `"withdrawal_id":"wd_test"`) {
			t.Fatalf("expected withdrawal id in body, got %s", rec.Body.String())
		}
	})

	t.Run("balance route passes the path address", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/v1/balances/0xfb6916095ca1df60bb79ce92ce3ea74c37c5d359", nil)
		rec := httptest.NewRecorder()

		mux.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d body=%s", rec.Code, rec.Body.String())
		}
		if !strings.Contains(rec.Body.String(), `"user_address":"0xfb6916095ca1df60bb79ce92ce3ea74c37c5d359"`) {
			t.Fatalf("expected address in body, got %s", rec.Body.String())
		}
	})
}

func TestRouterRejectsWrongMethods(t *testing.T) {
	mux := newTestRouter(writeTempOpenAPISpec(t))

	testCases := []struct {
		method string
		path   string
	}{
		{method: http.MethodPost, path: "/healthz"},
		{method: http.MethodGet, path: "/v1/deposits"},
		{method: http.MethodDelete, path: "/v1/withdrawals/wd_test"},
		{method: http.MethodPost, path: "/v1/balances/0xabc"},
	}

	for _, testCase := range testCases {
		req := httptest.NewRequest(testCase.method, testCase.path, nil)
		rec := httptest.NewRecorder()

		mux.ServeHTTP(rec, req)

		if rec.Code != http.StatusMethodNotAllowed {
			t.Fatalf("expected 405 for %s %s, got %d", testCase.method, testCase.path, rec.Code)
		}
	}
}

func newTestRouter(openAPISpecPath string) *http.ServeMux {
	logger := zap.NewNop()

	healthUseCase := use_cases.NewGetHealthUseCase(nil)
	openAPIReadModel := docs.NewFileOpenAPISpecReadModel(openAPISpecPath)
	openAPIUseCase := use_cases.NewGetOpenAPISpecUseCase(openAPIReadModel)

	return New(Dependencies{
		HealthController:      controllers.NewHealthController(healthUseCase, logger),
		SwaggerController:     controllers.NewSwaggerController(openAPIUseCase, logger),
		DepositsController:    controllers.NewDepositsController(stubDepositUseCase{}, logger),
		WithdrawalsController: controllers.NewWithdrawalsController(stubWithdrawUseCase{}, stubGetWithdrawalUseCase{}, logger),
		BalancesController:    controllers.NewBalancesController(stubGetBalanceUseCase{}, logger),
	})
}

func writeTempOpenAPISpec(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "openapi.yaml")

	content := []byte("openapi: 3.0.3\ninfo:\n  title: test\n  version: 1.0.0\npaths:\n  /healthz:\n    get:\n      responses:\n        '200':\n          description: ok\n")
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("failed to write temp openapi file: %v", err)
	}

	return path
}

type stubDepositUseCase struct{}

func (stubDepositUseCase) Execute(_ context.Context, command dto.DepositCommand) (dto.DepositOutput, *apperrors.AppError) {
	amount := decimal.RequireFromString(command.Amount)
	return dto.DepositOutput{
		UserAddress:  command.UserAddress,
		AddressClass: valueobjects.AddressClassEVM,
		Amount:       amount,
		NewBalance:   amount,
		ChainTxHash:  command.ChainTxHash,
		CreditedAt:   time.Unix(0, 0).UTC(),
	}, nil
}

type stubWithdrawUseCase struct{}

func (stubWithdrawUseCase) Execute(_ context.Context, command dto.WithdrawCommand) (dto.WithdrawOutput, *apperrors.AppError) {
	amount := decimal.RequireFromString(command.Amount)
	newBalance := decimal.RequireFromString("5")
	return dto.WithdrawOutput{
		WithdrawalID:  "wd_test",
		UserAddress:   command.UserAddress,
		AddressClass:  valueobjects.AddressClassEVM,
		Amount:        amount,
		Fee:           decimal.Zero,
		NetAmount:     amount,
		TransactionID: "0xtx",
		Status:        valueobjects.WithdrawalStatusCompleted,
		NewBalance:    &newBalance,
	}, nil
}

type stubGetWithdrawalUseCase struct{}

func (stubGetWithdrawalUseCase) Execute(_ context.Context, query dto.GetWithdrawalQuery) (dto.WithdrawalOutput, *apperrors.AppError) {
	createdAt := time.Unix(0, 0).UTC()
	return dto.WithdrawalOutput{Withdrawal: entities.Withdrawal{
		ID:           query.WithdrawalID,
		UserAddress:  "0xfb6916095ca1df60bb79ce92ce3ea74c37c5d359",
		AddressClass: valueobjects.AddressClassEVM,
		Amount:       decimal.RequireFromString("5"),
		FeeRate:      decimal.Zero,
		Fee:          decimal.Zero,
		Net:          decimal.RequireFromString("5"),
		Status:       valueobjects.WithdrawalStatusReserved,
		CreatedAt:    createdAt,
		UpdatedAt:    createdAt,
	}}, nil
}

type stubGetBalanceUseCase struct{}

func (stubGetBalanceUseCase) Execute(_ context.Context, query dto.GetBalanceQuery) (dto.BalanceOutput, *apperrors.AppError) {
	return dto.BalanceOutput{
		UserAddress:  query.UserAddress,
		AddressClass: valueobjects.AddressClassEVM,
		Balance:      decimal.Zero,
		Reserved:     decimal.Zero,
		Available:    decimal.Zero,
	}, nil
}
