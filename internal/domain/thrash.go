package domain

import (
	"encoding/json"
	"math"
	"time"
)

// RunEvent is the minimal per-run record kept in the rolling thrash window.
type RunEvent struct {
	Timestamp time.Time `json:"timestamp"`
	Passed    int       `json:"passed"`
	Failed    int       `json:"failed"`
	Total     int       `json:"total"`
}

// FullyPassed reports whether every test of a non-empty run passed.
func (e RunEvent) FullyPassed() bool {
	return e.Total > 0 && e.Passed == e.Total
}

// SessionSummary holds the session heuristics fed to the coaching gate.
// ActiveSecondsToPass is +Inf until the window contains a fully green run.
type SessionSummary struct {
	ThrashScore         float64 `json:"thrash_score"`
	ConvergenceRate     float64 `json:"convergence_rate"`
	ActiveSecondsToPass float64 `json:"active_seconds_to_pass"`
}

// HasPassed reports whether ActiveSecondsToPass is finite.
func (s SessionSummary) HasPassed() bool {
	return !math.IsInf(s.ActiveSecondsToPass, 1)
}

type sessionSummaryJSON struct {
	ThrashScore         float64  `json:"thrash_score"`
	ConvergenceRate     float64  `json:"convergence_rate"`
	ActiveSecondsToPass *float64 `json:"active_seconds_to_pass"`
}

// MarshalJSON encodes an infinite ActiveSecondsToPass as null.
func (s SessionSummary) MarshalJSON() ([]byte, error) {
	out := sessionSummaryJSON{
		ThrashScore:     s.ThrashScore,
		ConvergenceRate: s.ConvergenceRate,
	}
	if s.HasPassed() {
		seconds := s.ActiveSecondsToPass
		out.ActiveSecondsToPass = &seconds
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes a null ActiveSecondsToPass as +Inf.
func (s *SessionSummary) UnmarshalJSON(data []byte) error {
	var in sessionSummaryJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	s.ThrashScore = in.ThrashScore
	s.ConvergenceRate = in.ConvergenceRate
	s.ActiveSecondsToPass = math.Inf(1)
	if in.ActiveSecondsToPass != nil {
		s.ActiveSecondsToPass = *in.ActiveSecondsToPass
	}
	return nil
}

const (
	// defaultRunSpacing is used when the window holds fewer than two events.
	defaultRunSpacing = 1.0
	// minRunSpacing keeps bursts of near-simultaneous events from exploding the score.
	minRunSpacing = 0.5
)

// ComputePlaceholderMetrics derives the thrash score, convergence rate and time
// to first green run from a chronological window of run events.
func ComputePlaceholderMetrics(events []RunEvent) SessionSummary {
	if len(events) == 0 {
		return SessionSummary{ActiveSecondsToPass: math.Inf(1)}
	}

	consecutiveFailures := 0
	for i := len(events) - 1; i >= 0; i-- {
		if events[i].Failed == 0 {
			break
		}
		consecutiveFailures++
	}

	first := events[0]
	last := events[len(events)-1]

	avgSecondsBetweenRuns := defaultRunSpacing
	if len(events) >= 2 {
		span := last.Timestamp.Sub(first.Timestamp).Seconds()
		avgSecondsBetweenRuns = math.Max(span/float64(len(events)-1), minRunSpacing)
	}

	progressed := 0
	for _, event := range events {
		if event.Passed > 0 {
			progressed++
		}
	}

	secondsToPass := math.Inf(1)
	for _, event := range events {
		if event.FullyPassed() {
			secondsToPass = event.Timestamp.Sub(first.Timestamp).Seconds()
			break
		}
	}

	return SessionSummary{
		ThrashScore:         float64(consecutiveFailures) / avgSecondsBetweenRuns,
		ConvergenceRate:     float64(progressed) / float64(len(events)),
		ActiveSecondsToPass: secondsToPass,
	}
}

// RunWindow is a FIFO window of the most recent run events. It is not safe
// for concurrent use.
type RunWindow struct {
	events   []RunEvent
	capacity int
}

// NewRunWindow creates a window; non-positive capacities use the default.
func NewRunWindow(capacity int) *RunWindow {
	if capacity <= 0 {
		capacity = DefaultRunWindowSize
	}
	return &RunWindow{capacity: capacity}
}

// Append adds an event and drops the oldest ones beyond capacity.
func (w *RunWindow) Append(event RunEvent) {
	w.events = append(w.events, event)
	if overflow := len(w.events) - w.capacity; overflow > 0 {
		trimmed := make([]RunEvent, w.capacity)
		copy(trimmed, w.events[overflow:])
		w.events = trimmed
	}
}

// Events returns a copy of the window, oldest first.
func (w *RunWindow) Events() []RunEvent {
	out := make([]RunEvent, len(w.events))
	copy(out, w.events)
	return out
}

// Len returns the number of events held.
func (w *RunWindow) Len() int {
	return len(w.events)
}

// Summary scores the current window.
func (w *RunWindow) Summary() SessionSummary {
	return ComputePlaceholderMetrics(w.events)
}
