package valueobjects

type HealthStatus string

const (
	HealthStatusOK       HealthStatus = "ok"
	HealthStatusDegraded HealthStatus = "degraded"
)

func NewHealthyStatus() HealthStatus {
	return HealthStatusOK
}

// CombineHealth is ok only when every dependency check passed.
func CombineHealth(checks map[string]bool) HealthStatus {
	for _, healthy := range checks {
		if !healthy {
			return HealthStatusDegraded
		}
	}
	return HealthStatusOK
}

func (h HealthStatus) String() string {
	return string(h)
}
