package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/doeshing/retrace/internal/domain"
)

func TestHealthReport_Worst(t *testing.T) {
	assert.Equal(t, domain.HealthOK, domain.HealthReport{}.Worst())

	report := domain.HealthReport{Checks: []domain.HealthCheck{
		{Name: "Config file", Status: domain.HealthOK},
		{Name: "Credentials", Status: domain.HealthWarn},
	}}
	assert.Equal(t, domain.HealthWarn, report.Worst())

	report.Checks = append(report.Checks, domain.HealthCheck{Name: "Archive", Status: domain.HealthError})
	assert.Equal(t, domain.HealthError, report.Worst())
}
