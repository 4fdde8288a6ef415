package domain_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/doeshing/retrace/internal/domain"
)

func thrashy(score float64) domain.SessionSummary {
	return domain.SessionSummary{ThrashScore: score}
}

func TestCoachingGate_Decisions(t *testing.T) {
	failing := domain.RunEvent{Passed: 0, Failed: 2, Total: 2}
	passing := domain.RunEvent{Passed: 2, Failed: 0, Total: 2}

	tests := []struct {
		name    string
		summary domain.SessionSummary
		run     domain.RunEvent
		want    domain.GateDecision
	}{
		{"fires above threshold on failing run", thrashy(4.0), failing, domain.GateFired},
		{"threshold is exclusive", thrashy(3.0), failing, domain.GateBelowThreshold},
		{"passing run suppresses", thrashy(5.0), passing, domain.GateRunPassing},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gate := domain.NewCoachingGate(domain.DefaultThrashThreshold, domain.DefaultCoachingCooldown)
			assert.Equal(t, tt.want, gate.TryBegin(tt.summary, tt.run, t0))
			assert.Equal(t, tt.want == domain.GateFired, gate.InFlight())
		})
	}
}

func TestCoachingGate_InFlightAndCooldown(t *testing.T) {
	gate := domain.NewCoachingGate(3.0, 15*time.Second)
	failing := domain.RunEvent{Failed: 1, Total: 1}

	assert.Equal(t, domain.GateFired, gate.TryBegin(thrashy(4), failing, t0))
	assert.Equal(t, t0, gate.LastTrigger())
	assert.Equal(t, domain.GateInFlight, gate.TryBegin(thrashy(4), failing, t0.Add(time.Minute)))

	gate.Finish()
	assert.Equal(t, domain.GateCoolingDown, gate.TryBegin(thrashy(4), failing, t0.Add(10*time.Second)))
	assert.Equal(t, domain.GateCoolingDown, gate.Evaluate(thrashy(4), failing, t0.Add(14*time.Second)))
	assert.Equal(t, domain.GateFired, gate.TryBegin(thrashy(4), failing, t0.Add(15*time.Second)))
}

func TestCoachingGate_EvaluateDoesNotMutate(t *testing.T) {
	gate := domain.NewCoachingGate(3.0, time.Second)
	failing := domain.RunEvent{Failed: 1, Total: 1}

	assert.Equal(t, domain.GateFired, gate.Evaluate(thrashy(9), failing, t0))
	assert.False(t, gate.InFlight())
	assert.True(t, gate.LastTrigger().IsZero())
}

func TestCoachingGate_ConcurrentTryBeginFiresOnce(t *testing.T) {
	gate := domain.NewCoachingGate(3.0, time.Hour)
	failing := domain.RunEvent{Failed: 1, Total: 1}

	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		fired int
	)
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if gate.TryBegin(thrashy(10), failing, t0) == domain.GateFired {
				mu.Lock()
				fired++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, fired)
}

func TestNewCoachingGate_NegativeFallsBack(t *testing.T) {
	gate := domain.NewCoachingGate(-1, -1)
	failing := domain.RunEvent{Failed: 1, Total: 1}
	assert.Equal(t, domain.GateBelowThreshold, gate.TryBegin(thrashy(3.0), failing, t0))
	assert.Equal(t, domain.GateFired, gate.TryBegin(thrashy(3.1), failing, t0))
	gate.Finish()
	assert.Equal(t, domain.GateCoolingDown, gate.TryBegin(thrashy(3.1), failing, t0.Add(14*time.Second)))
}
