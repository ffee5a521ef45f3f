package controllers

import (
	"net/http"
	"strings"
	"time"

	"housebalance/internal/application/dto"
	portsin "housebalance/internal/application/ports/in"
	valueobjects "housebalance/internal/domain/value_objects"

	"go.uber.org/zap"
)

const headerIdempotencyKey = "Idempotency-Key"

type WithdrawalsController struct {
	withdrawUseCase      portsin.WithdrawUseCase
	getWithdrawalUseCase portsin.GetWithdrawalUseCase
	logger               *zap.Logger
}

type withdrawPayload struct {
	UserAddress string       `json:"user_address"`
	Amount      decimalInput `json:"amount"`
}

type withdrawResponse struct {
	Success       bool    `json:"success"`
	WithdrawalID  string  `json:"withdrawal_id"`
	UserAddress   string  `json:"user_address"`
	AddressClass  string  `json:"address_class"`
	TransactionID string  `json:"transaction_id"`
	Amount        string  `json:"amount"`
	Fee           string  `json:"fee"`
	NetAmount     string  `json:"net_amount"`
	NewBalance    *string `json:"new_balance,omitempty"`
	Status        string  `json:"status"`
	Warning       string  `json:"warning,omitempty"`
	Error         string  `json:"error,omitempty"`
}

type withdrawalResponse struct {
	WithdrawalID   string     `json:"withdrawal_id"`
	IdempotencyKey string     `json:"idempotency_key"`
	UserAddress    string     `json:"user_address"`
	AddressClass   string     `json:"address_class"`
	Amount         string     `json:"amount"`
	FeeRate        string     `json:"fee_rate"`
	Fee            string     `json:"fee"`
	NetAmount      string     `json:"net_amount"`
	Status         string     `json:"status"`
	TransferToken  string     `json:"transfer_token"`
	TransactionID  *string    `json:"transaction_id"`
	LastError      *string    `json:"last_error"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
	SettledAt      *time.Time `json:"settled_at"`
}

func NewWithdrawalsController(
	withdrawUseCase portsin.WithdrawUseCase,
	getWithdrawalUseCase portsin.GetWithdrawalUseCase,
	logger *zap.Logger,
) *WithdrawalsController {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WithdrawalsController{
		withdrawUseCase:      withdrawUseCase,
		getWithdrawalUseCase: getWithdrawalUseCase,
		logger:               logger,
	}
}

func (c *WithdrawalsController) CreateWithdrawal(w http.ResponseWriter, r *http.Request) {
	payload := withdrawPayload{}
	if appErr := decodeJSONBody(w, r, &payload); appErr != nil {
		writeAppError(w, appErr)
		return
	}

	output, appErr := c.withdrawUseCase.Execute(r.Context(), dto.WithdrawCommand{
		UserAddress:    payload.UserAddress,
		Amount:         string(payload.Amount),
		IdempotencyKey: strings.TrimSpace(r.Header.Get(headerIdempotencyKey)),
	})
	if appErr != nil {
		logRequestError(c.logger, r, "/v1/withdrawals", appErr)
		writeAppError(w, appErr)
		return
	}

	response := withdrawResponse{
		Success:       true,
		WithdrawalID:  output.WithdrawalID,
		UserAddress:   valueobjects.FormatAddressForResponse(output.AddressClass, output.UserAddress),
		AddressClass:  output.AddressClass.String(),
		TransactionID: output.TransactionID,
		Amount:        output.Amount.String(),
		Fee:           output.Fee.String(),
		NetAmount:     output.NetAmount.String(),
		Status:        output.Status.String(),
		Warning:       output.Warning,
		Error:         output.Error,
	}
	if output.NewBalance != nil {
		newBalance := output.NewBalance.String()
		response.NewBalance = &newBalance
	}
	writeJSON(w, http.StatusOK, response)
}

func (c *WithdrawalsController) GetWithdrawal(w http.ResponseWriter, r *http.Request) {
	output, appErr := c.getWithdrawalUseCase.Execute(r.Context(), dto.GetWithdrawalQuery{
		WithdrawalID: r.PathValue("id"),
	})
	if appErr != nil {
		logRequestError(c.logger, r, "/v1/withdrawals/{id}", appErr)
		writeAppError(w, appErr)
		return
	}

	withdrawal := output.Withdrawal
	writeJSON(w, http.StatusOK, withdrawalResponse{
		WithdrawalID:   withdrawal.ID,
		IdempotencyKey: withdrawal.IdempotencyKey,
		UserAddress:    valueobjects.FormatAddressForResponse(withdrawal.AddressClass, withdrawal.UserAddress),
		AddressClass:   withdrawal.AddressClass.String(),
		Amount:         withdrawal.Amount.String(),
		FeeRate:        withdrawal.FeeRate.String(),
		Fee:            withdrawal.Fee.String(),
		NetAmount:      withdrawal.Net.String(),
		Status:         withdrawal.Status.String(),
		TransferToken:  withdrawal.TransferToken,
		TransactionID:  withdrawal.TransferTxID,
		LastError:      withdrawal.LastError,
		CreatedAt:      withdrawal.CreatedAt,
		UpdatedAt:      withdrawal.UpdatedAt,
		SettledAt:      withdrawal.SettledAt,
	})
}
