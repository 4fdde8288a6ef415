package domain

import (
	"strings"
	"time"
)

// RunOutcome is the per-run line of an archived session.
type RunOutcome struct {
	RunNumber   int       `json:"runNumber"`
	Timestamp   time.Time `json:"timestamp"`
	TestsPassed int       `json:"testsPassed"`
	TestsTotal  int       `json:"testsTotal"`
	Terminated  bool      `json:"terminated,omitempty"`
}

// FullyPassed reports whether the run was green.
func (o RunOutcome) FullyPassed() bool {
	return o.TestsTotal > 0 && o.TestsPassed == o.TestsTotal
}

// SessionArtifact is what survives a closed session when archiving is enabled.
type SessionArtifact struct {
	SessionID   string              `json:"sessionId"`
	UserID      string              `json:"userId,omitempty"`
	ProblemID   string              `json:"problemId,omitempty"`
	RunCount    int                 `json:"runCount"`
	Summary     SessionSummary      `json:"summary"`
	RunOutcomes []RunOutcome        `json:"runOutcomes"`
	Regressions []Regression        `json:"regressions"`
	Coaching    []CoachingOutcome   `json:"coaching,omitempty"`
	Snapshots   []ExecutionSnapshot `json:"snapshots,omitempty"`
	CreatedAt   time.Time           `json:"createdAt"`
}

// LastOutcome returns the final run outcome of the session.
func (a SessionArtifact) LastOutcome() (RunOutcome, bool) {
	if len(a.RunOutcomes) == 0 {
		return RunOutcome{}, false
	}
	return a.RunOutcomes[len(a.RunOutcomes)-1], true
}

// EndedGreen reports whether the last recorded run passed every test.
func (a SessionArtifact) EndedGreen() bool {
	last, ok := a.LastOutcome()
	return ok && last.FullyPassed()
}

// NarrativeReliability rates how far coaching narratives can be trusted.
type NarrativeReliability string

const (
	NarrativeReliabilityHigh   NarrativeReliability = "high"
	NarrativeReliabilityMedium NarrativeReliability = "medium"
	NarrativeReliabilityLow    NarrativeReliability = "low"
)

// RateNarrative maps a flag count onto a reliability: none is high, up to two
// is medium, more is low.
func RateNarrative(flags int) NarrativeReliability {
	switch {
	case flags > 2:
		return NarrativeReliabilityLow
	case flags > 0:
		return NarrativeReliabilityMedium
	default:
		return NarrativeReliabilityHigh
	}
}

// Signals aggregates archived sessions into comparative stats.
type Signals struct {
	SessionCount         int                  `json:"sessionCount"`
	FullPassRate         float64              `json:"fullPassRate"`
	AverageRuns          float64              `json:"averageRuns"`
	NarrativeFlagCount   int                  `json:"narrativeFlagCount"`
	NarrativeReliability NarrativeReliability `json:"narrativeReliability"`
}

var fullPassClaims = []string{"all tests passed", "full pass"}

// ComputeSignals summarizes archived sessions. A narrative flag is raised when
// a coaching diagnosis claims a full pass the session never reached.
func ComputeSignals(artifacts []SessionArtifact) Signals {
	if len(artifacts) == 0 {
		return Signals{NarrativeReliability: NarrativeReliabilityHigh}
	}

	totalRuns := 0
	fullPass := 0
	flags := 0
	for _, artifact := range artifacts {
		runs := artifact.RunCount
		if runs == 0 {
			runs = len(artifact.RunOutcomes)
		}
		totalRuns += runs

		green := artifact.EndedGreen()
		if green {
			fullPass++
		}
		if !green && claimsFullPass(artifact.Coaching) {
			flags++
		}
	}

	count := len(artifacts)
	return Signals{
		SessionCount:         count,
		FullPassRate:         float64(fullPass) / float64(count),
		AverageRuns:          float64(totalRuns) / float64(count),
		NarrativeFlagCount:   flags,
		NarrativeReliability: RateNarrative(flags),
	}
}

func claimsFullPass(outcomes []CoachingOutcome) bool {
	for _, outcome := range outcomes {
		if outcome.Result == nil {
			continue
		}
		diagnosis := strings.ToLower(strings.TrimSpace(outcome.Result.ReportCard.Diagnosis))
		for _, claim := range fullPassClaims {
			if strings.Contains(diagnosis, claim) {
				return true
			}
		}
	}
	return false
}

// CacheEntry stores a cached coaching response.
type CacheEntry struct {
	Key       string         `json:"key"`
	Result    CoachingResult `json:"result"`
	Model     string         `json:"model"`
	CreatedAt time.Time      `json:"created_at"`
}
