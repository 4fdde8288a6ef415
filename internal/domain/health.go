package domain

// HealthStatus is the outcome of one `retrace doctor` check.
type HealthStatus string

const (
	HealthOK    HealthStatus = "ok"
	HealthWarn  HealthStatus = "warn"
	HealthError HealthStatus = "error"
)

// HealthCheck is one check of the config file, session archive, coaching
// cache or a model's credentials.
type HealthCheck struct {
	Name    string       `json:"name"`
	Status  HealthStatus `json:"status"`
	Details string       `json:"details"`
}

// HealthReport is everything doctor found, in check order.
type HealthReport struct {
	Checks []HealthCheck `json:"checks"`
}

// Worst returns the most severe status in the report, ok when empty.
func (r HealthReport) Worst() HealthStatus {
	worst := HealthOK
	for _, check := range r.Checks {
		switch check.Status {
		case HealthError:
			return HealthError
		case HealthWarn:
			worst = HealthWarn
		}
	}
	return worst
}
