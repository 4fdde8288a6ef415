package domain_test

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doeshing/retrace/internal/domain"
)

func event(offset time.Duration, passed, failed int) domain.RunEvent {
	return domain.RunEvent{Timestamp: t0.Add(offset), Passed: passed, Failed: failed, Total: passed + failed}
}

func TestComputePlaceholderMetrics_Empty(t *testing.T) {
	summary := domain.ComputePlaceholderMetrics(nil)
	assert.Equal(t, 0.0, summary.ThrashScore)
	assert.Equal(t, 0.0, summary.ConvergenceRate)
	assert.True(t, math.IsInf(summary.ActiveSecondsToPass, 1))
	assert.False(t, summary.HasPassed())
}

func TestComputePlaceholderMetrics(t *testing.T) {
	tests := []struct {
		name            string
		events          []domain.RunEvent
		wantThrash      float64
		wantConvergence float64
		wantToPass      float64
	}{
		{
			name: "four failures a second apart",
			events: []domain.RunEvent{
				event(0, 0, 2), event(time.Second, 0, 2), event(2*time.Second, 1, 1), event(3*time.Second, 0, 2),
			},
			wantThrash:      4.0,
			wantConvergence: 0.25,
			wantToPass:      math.Inf(1),
		},
		{
			name:            "single failing event uses default spacing",
			events:          []domain.RunEvent{event(0, 0, 1)},
			wantThrash:      1.0,
			wantConvergence: 0,
			wantToPass:      math.Inf(1),
		},
		{
			name: "rapid fire is floored at half a second",
			events: []domain.RunEvent{
				event(0, 0, 1), event(10*time.Millisecond, 0, 1), event(20*time.Millisecond, 0, 1),
			},
			wantThrash:      6.0,
			wantConvergence: 0,
			wantToPass:      math.Inf(1),
		},
		{
			name: "passing run stops the failure streak",
			events: []domain.RunEvent{
				event(0, 0, 1), event(10*time.Second, 2, 0), event(20*time.Second, 1, 1),
			},
			wantThrash:      0.1,
			wantConvergence: 2.0 / 3.0,
			wantToPass:      10,
		},
		{
			name: "convergence counts any progress",
			events: []domain.RunEvent{
				event(0, 1, 2), event(2*time.Second, 0, 3), event(4*time.Second, 2, 1), event(6*time.Second, 0, 3), event(8*time.Second, 3, 0),
			},
			wantThrash:      0,
			wantConvergence: 0.6,
			wantToPass:      8,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			summary := domain.ComputePlaceholderMetrics(tt.events)
			assert.InDelta(t, tt.wantThrash, summary.ThrashScore, 1e-9)
			assert.InDelta(t, tt.wantConvergence, summary.ConvergenceRate, 1e-9)
			if math.IsInf(tt.wantToPass, 1) {
				assert.True(t, math.IsInf(summary.ActiveSecondsToPass, 1))
			} else {
				assert.InDelta(t, tt.wantToPass, summary.ActiveSecondsToPass, 1e-9)
			}
		})
	}
}

func TestComputePlaceholderMetrics_ZeroTotalIsNotGreen(t *testing.T) {
	summary := domain.ComputePlaceholderMetrics([]domain.RunEvent{event(0, 0, 0)})
	assert.False(t, summary.HasPassed())
	assert.Equal(t, 0.0, summary.ThrashScore)
}

func TestSessionSummary_JSONInfinityIsNull(t *testing.T) {
	encoded, err := json.Marshal(domain.ComputePlaceholderMetrics(nil))
	require.NoError(t, err)
	assert.JSONEq(t, `{"thrash_score":0,"convergence_rate":0,"active_seconds_to_pass":null}`, string(encoded))

	var decoded domain.SessionSummary
	require.NoError(t, json.Unmarshal(encoded, &decoded))
	assert.True(t, math.IsInf(decoded.ActiveSecondsToPass, 1))

	finite := domain.SessionSummary{ThrashScore: 1, ConvergenceRate: 0.5, ActiveSecondsToPass: 12}
	encoded, err = json.Marshal(finite)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(encoded, &decoded))
	assert.Equal(t, finite, decoded)
}

func TestRunWindow_FIFO(t *testing.T) {
	window := domain.NewRunWindow(3)
	for i := 0; i < 5; i++ {
		window.Append(event(time.Duration(i)*time.Second, i, 1))
	}

	events := window.Events()
	require.Len(t, events, 3)
	assert.Equal(t, []int{2, 3, 4}, []int{events[0].Passed, events[1].Passed, events[2].Passed})
	assert.Equal(t, 3, window.Len())
}

func TestRunWindow_DefaultCapacity(t *testing.T) {
	window := domain.NewRunWindow(0)
	for i := 0; i < 25; i++ {
		window.Append(event(time.Duration(i)*time.Second, 0, 1))
	}
	assert.Equal(t, domain.DefaultRunWindowSize, window.Len())
}
