//go:build !integration

package use_cases

import (
	"context"
	"testing"

	"housebalance/internal/application/dto"
	portsout "housebalance/internal/application/ports/out"
	apperrors "housebalance/internal/shared_kernel/errors"

	"github.com/stretchr/testify/require"
)

func TestGetHealthUseCase_Execute(t *testing.T) {
	useCase := NewGetHealthUseCase(nil)

	output, appErr := useCase.Execute(context.Background(), dto.GetHealthCommand{})
	require.Nil(t, appErr)
	require.Equal(t, "ok", output.Status)
	require.Empty(t, output.Checks)
}

func TestGetHealthUseCase_ExecuteReportsDegradedDependency(t *testing.T) {
	useCase := NewGetHealthUseCase(map[string]portsout.ReadinessProbe{
		"database": stubReadinessProbe{err: apperrors.NewUnavailable("DB_CONNECT_FAILED", "down", nil)},
		"cache":    stubReadinessProbe{},
	})

	output, appErr := useCase.Execute(context.Background(), dto.GetHealthCommand{})
	require.Nil(t, appErr)
	require.Equal(t, "degraded", output.Status)
	require.Equal(t, "DB_CONNECT_FAILED", output.Checks["database"])
	require.Equal(t, "ok", output.Checks["cache"])
}

type stubReadinessProbe struct {
	err *apperrors.AppError
}

func (s stubReadinessProbe) CheckReadiness(context.Context) *apperrors.AppError {
	return s.err
}
