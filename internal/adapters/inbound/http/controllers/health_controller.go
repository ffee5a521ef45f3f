package controllers

import (
	"net/http"

	"housebalance/internal/application/dto"
	portsin "housebalance/internal/application/ports/in"
	valueobjects "housebalance/internal/domain/value_objects"

	"go.uber.org/zap"
)

type HealthController struct {
	useCase portsin.GetHealthUseCase
	logger  *zap.Logger
}

func NewHealthController(useCase portsin.GetHealthUseCase, logger *zap.Logger) *HealthController {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HealthController{
		useCase: useCase,
		logger:  logger,
	}
}

func (c *HealthController) GetHealth(w http.ResponseWriter, r *http.Request) {
	output, appErr := c.useCase.Execute(r.Context(), dto.GetHealthCommand{})
	if appErr != nil {
		logRequestError(c.logger, r, "/healthz", appErr)
		writeAppError(w, appErr)
		return
	}

	status := http.StatusOK
	if output.Status != valueobjects.HealthStatusOK.String() {
		status = http.StatusServiceUnavailable
		c.logger.Warn("health check degraded", zap.Any("checks", output.Checks))
	}
	writeJSON(w, status, output)
}
