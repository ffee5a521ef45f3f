package controllers

import (
	"net/http"
	"time"

	"housebalance/internal/application/dto"
	portsin "housebalance/internal/application/ports/in"
	valueobjects "housebalance/internal/domain/value_objects"

	"go.uber.org/zap"
)

type BalancesController struct {
	useCase portsin.GetBalanceUseCase
	logger  *zap.Logger
}

type balanceResponse struct {
	UserAddress  string     `json:"user_address"`
	AddressClass string     `json:"address_class"`
	Balance      string     `json:"balance"`
	Reserved     string     `json:"reserved"`
	Available    string     `json:"available"`
	UpdatedAt    *time.Time `json:"updated_at"`
}

func NewBalancesController(useCase portsin.GetBalanceUseCase, logger *zap.Logger) *BalancesController {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BalancesController{
		useCase: useCase,
		logger:  logger,
	}
}

func (c *BalancesController) GetBalance(w http.ResponseWriter, r *http.Request) {
	output, appErr := c.useCase.Execute(r.Context(), dto.GetBalanceQuery{UserAddress: r.PathValue("address")})
	if appErr != nil {
		logRequestError(c.logger, r, "/v1/balances/{address}", appErr)
		writeAppError(w, appErr)
		return
	}

	writeJSON(w, http.StatusOK, balanceResponse{
		UserAddress:  valueobjects.FormatAddressForResponse(output.AddressClass, output.UserAddress),
		AddressClass: output.AddressClass.String(),
		Balance:      output.Balance.String(),
		Reserved:     output.Reserved.String(),
		Available:    output.Available.String(),
		UpdatedAt:    output.UpdatedAt,
	})
}
