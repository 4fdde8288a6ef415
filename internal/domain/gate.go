package domain

import (
	"sync"
	"time"
)

// GateDecision explains why the coaching gate did or did not fire.
type GateDecision string

const (
	GateFired          GateDecision = "fired"
	GateBelowThreshold GateDecision = "below_threshold"
	GateInFlight       GateDecision = "in_flight"
	GateCoolingDown    GateDecision = "cooling_down"
	GateRunPassing     GateDecision = "run_passing"
	GateDisabled       GateDecision = "disabled"
)

// CoachingGate decides when a thrash summary warrants the external coaching
// call. TryBegin and Finish may be called from different goroutines.
type CoachingGate struct {
	threshold float64
	cooldown  time.Duration

	mu          sync.Mutex
	inFlight    bool
	lastTrigger time.Time
}

// NewCoachingGate builds a gate. A negative threshold or cooldown falls back to
// the defaults.
func NewCoachingGate(threshold float64, cooldown time.Duration) *CoachingGate {
	if threshold < 0 {
		threshold = DefaultThrashThreshold
	}
	if cooldown < 0 {
		cooldown = DefaultCoachingCooldown
	}
	return &CoachingGate{threshold: threshold, cooldown: cooldown}
}

// Evaluate reports what TryBegin would decide without changing state.
func (g *CoachingGate) Evaluate(summary SessionSummary, run RunEvent, now time.Time) GateDecision {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.decide(summary, run, now)
}

// TryBegin fires the gate when the score exceeds the threshold, no call is in
// flight, the cooldown since the last trigger elapsed and the triggering run
// has at least one failing test. Firing marks a call in flight.
func (g *CoachingGate) TryBegin(summary SessionSummary, run RunEvent, now time.Time) GateDecision {
	g.mu.Lock()
	defer g.mu.Unlock()

	decision := g.decide(summary, run, now)
	if decision == GateFired {
		g.inFlight = true
		g.lastTrigger = now
	}
	return decision
}

// Finish clears the in-flight flag once the external call settles.
func (g *CoachingGate) Finish() {
	g.mu.Lock()
	g.inFlight = false
	g.mu.Unlock()
}

// InFlight reports whether a coaching call is outstanding.
func (g *CoachingGate) InFlight() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.inFlight
}

// LastTrigger returns when the gate last fired, zero if never.
func (g *CoachingGate) LastTrigger() time.Time {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.lastTrigger
}

func (g *CoachingGate) decide(summary SessionSummary, run RunEvent, now time.Time) GateDecision {
	switch {
	case summary.ThrashScore <= g.threshold:
		return GateBelowThreshold
	case g.inFlight:
		return GateInFlight
	case !g.lastTrigger.IsZero() && now.Sub(g.lastTrigger) < g.cooldown:
		return GateCoolingDown
	case run.Failed == 0:
		return GateRunPassing
	default:
		return GateFired
	}
}
