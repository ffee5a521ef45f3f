package router

import (
	"net/http"

	"housebalance/internal/adapters/inbound/http/controllers"
)

type Dependencies struct {
	HealthController      *controllers.HealthController
	SwaggerController     *controllers.SwaggerController
	DepositsController    *controllers.DepositsController
	WithdrawalsController *controllers.WithdrawalsController
	BalancesController    *controllers.BalancesController
}

func New(deps Dependencies) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", deps.HealthController.GetHealth)
	mux.HandleFunc("GET /swagger", deps.SwaggerController.RedirectToIndex)
	mux.HandleFunc("GET /swagger/openapi.yaml", deps.SwaggerController.GetOpenAPISpec)
	mux.HandleFunc("GET /swagger/", deps.SwaggerController.ServeUI)
	mux.HandleFunc("POST /v1/deposits", deps.DepositsController.CreateDeposit)
	mux.HandleFunc("POST /v1/withdrawals", deps.WithdrawalsController.CreateWithdrawal)
	mux.HandleFunc("GET /v1/withdrawals/{id}", deps.WithdrawalsController.GetWithdrawal)
	mux.HandleFunc("GET /v1/balances/{address}", deps.BalancesController.GetBalance)

	return mux
}
