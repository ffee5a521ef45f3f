package use_cases

import (
	"context"
	"time"

	"housebalance/internal/application/dto"
	portsin "housebalance/internal/application/ports/in"
	portsout "housebalance/internal/application/ports/out"
	"housebalance/internal/domain/value_objects"
	apperrors "housebalance/internal/shared_kernel/errors"
)

const healthProbeTimeout = 2 * time.Second

type getHealthUseCase struct {
	probes map[string]portsout.ReadinessProbe
}

// NewGetHealthUseCase reports ok when every named probe is ready. Without
// probes it only reports process liveness.
func NewGetHealthUseCase(probes map[string]portsout.ReadinessProbe) portsin.GetHealthUseCase {
	filtered := make(map[string]portsout.ReadinessProbe, len(probes))
	for name, probe := range probes {
		if probe != nil {
			filtered[name] = probe
		}
	}
	return &getHealthUseCase{probes: filtered}
}

func (u *getHealthUseCase) Execute(ctx context.Context, _ dto.GetHealthCommand) (dto.HealthOutput, *apperrors.AppError) {
	if len(u.probes) == 0 {
		return dto.HealthOutput{Status: valueobjects.NewHealthyStatus().String()}, nil
	}

	probeCtx, cancel := context.WithTimeout(ctx, healthProbeTimeout)
	defer cancel()

	results := make(map[string]bool, len(u.probes))
	checks := make(map[string]string, len(u.probes))
	for name, probe := range u.probes {
		appErr := probe.CheckReadiness(probeCtx)
		results[name] = appErr == nil
		if appErr != nil {
			checks[name] = appErr.Code
			continue
		}
		checks[name] = valueobjects.HealthStatusOK.String()
	}

	return dto.HealthOutput{
		Status: valueobjects.CombineHealth(results).String(),
		Checks: checks,
	}, nil
}
