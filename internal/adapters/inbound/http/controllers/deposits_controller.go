package controllers

import (
	"net/http"
	"time"

	"housebalance/internal/application/dto"
	portsin "housebalance/internal/application/ports/in"
	valueobjects "housebalance/internal/domain/value_objects"

	"go.uber.org/zap"
)

const headerIdempotencyReplayed = "X-Idempotency-Replayed"

type DepositsController struct {
	useCase portsin.DepositUseCase
	logger  *zap.Logger
}

type depositPayload struct {
	UserAddress string       `json:"user_address"`
	Amount      decimalInput `json:"amount"`
	ChainTxHash string       `json:"chain_tx_hash"`
}

type depositResponse struct {
	UserAddress  string    `json:"user_address"`
	AddressClass string    `json:"address_class"`
	Amount       string    `json:"amount"`
	NewBalance   string    `json:"new_balance"`
	ChainTxHash  string    `json:"chain_tx_hash"`
	Replayed     bool      `json:"replayed"`
	CreditedAt   time.Time `json:"credited_at"`
}

func NewDepositsController(useCase portsin.DepositUseCase, logger *zap.Logger) *DepositsController {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DepositsController{
		useCase: useCase,
		logger:  logger,
	}
}

func (c *DepositsController) CreateDeposit(w http.ResponseWriter, r *http.Request) {
	payload := depositPayload{}
	if appErr := decodeJSONBody(w, r, &payload); appErr != nil {
		writeAppError(w, appErr)
		return
	}

	output, appErr := c.useCase.Execute(r.Context(), dto.DepositCommand{
		UserAddress: payload.UserAddress,
		Amount:      string(payload.Amount),
		ChainTxHash: payload.ChainTxHash,
	})
	if appErr != nil {
		logRequestError(c.logger, r, "/v1/deposits", appErr)
		writeAppError(w, appErr)
		return
	}

	if output.Replayed {
		w.Header().Set(headerIdempotencyReplayed, "true")
	}
	writeJSON(w, http.StatusOK, depositResponse{
		UserAddress:  valueobjects.FormatAddressForResponse(output.AddressClass, output.UserAddress),
		AddressClass: output.AddressClass.String(),
		Amount:       output.Amount.String(),
		NewBalance:   output.NewBalance.String(),
		ChainTxHash:  output.ChainTxHash,
		Replayed:     output.Replayed,
		CreditedAt:   output.CreditedAt,
	})
}
