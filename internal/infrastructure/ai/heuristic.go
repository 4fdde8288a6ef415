package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/doeshing/retrace/internal/domain"
	"github.com/doeshing/retrace/internal/ports"
)

// HeuristicCoach produces a deterministic report card without any network
// call. It is the offline fallback when no provider has credentials.
type HeuristicCoach struct{}

// NewHeuristicCoach returns the offline coach.
func NewHeuristicCoach() *HeuristicCoach {
	return &HeuristicCoach{}
}

// SubmitForCoaching implements ports.Coach.
func (HeuristicCoach) SubmitForCoaching(_ context.Context, payload domain.CoachingPayload) (domain.CoachingResult, error) {
	metrics := payload.Metrics
	failing := "the failing tests"
	if len(payload.FailedTests) > 0 {
		failing = strings.Join(payload.FailedTests, ", ")
	}

	var diagnosis string
	switch {
	case metrics.ConvergenceRate == 0:
		diagnosis = fmt.Sprintf("No recent run passed a single test. You re-ran %s rapidly (thrash score %.1f) without the output changing direction.", failing, metrics.ThrashScore)
	case metrics.ConvergenceRate < 0.5:
		diagnosis = fmt.Sprintf("Only %.0f%% of recent runs made progress and %s keep failing. The edits look like guesses rather than tests of a hypothesis.", metrics.ConvergenceRate*100, failing)
	default:
		diagnosis = fmt.Sprintf("Most recent runs pass some tests, but %s keep failing in quick succession.", failing)
	}

	return domain.CoachingResult{
		ReportCard: domain.ReportCard{
			Diagnosis:             diagnosis,
			MentalModelGap:        "Your expectation of what the code does on the failing input differs from what it actually does.",
			VerificationChallenge: fmt.Sprintf("Before the next run, write down the exact value you expect for %s, then print the intermediate values and compare.", failing),
		},
		CognitiveShadow: []domain.Value{},
	}, nil
}

var _ ports.Coach = HeuristicCoach{}
