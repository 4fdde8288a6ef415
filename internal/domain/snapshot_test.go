package domain_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doeshing/retrace/internal/domain"
)

var t0 = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

func passResult() domain.RunResult {
	return domain.RunResult{Success: true, Output: domain.String("ok")}
}

func tc(name string, passed bool, output interface{}) domain.TestCaseResult {
	return domain.TestCaseResult{TestName: name, Passed: passed, Output: domain.MustValue(output)}
}

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("snap-%d", n)
	}
}

func TestSnapshotStore_DeduplicatesConsecutiveCode(t *testing.T) {
	store := domain.NewSnapshotStore()

	first, ok := store.Add(domain.Attempt{Code: "x", Result: passResult(), Timestamp: t0})
	require.True(t, ok)

	again, ok := store.Add(domain.Attempt{Code: "x", Result: passResult(), Timestamp: t0.Add(time.Second)})
	assert.False(t, ok)
	assert.Equal(t, first.ID, again.ID)

	assert.Equal(t, 1, store.Len())
	latest, found := store.Latest()
	require.True(t, found)
	assert.Equal(t, 1, latest.RunNumber)
}

func TestSnapshotStore_RevertIsNotDeduplicated(t *testing.T) {
	store := domain.NewSnapshotStore()
	for _, code := range []string{"a", "b", "a"} {
		_, ok := store.Add(domain.Attempt{Code: code, Result: passResult(), Timestamp: t0})
		require.True(t, ok)
	}

	history := store.History()
	require.Len(t, history, 3)
	assert.Equal(t, []int{1, 2, 3}, []int{history[0].RunNumber, history[1].RunNumber, history[2].RunNumber})
}

func TestSnapshotStore_SynthesizesShadowRun(t *testing.T) {
	store := domain.NewSnapshotStore()
	snapshot, ok := store.Add(domain.Attempt{
		Code:      "print(1)",
		Result:    domain.RunResult{Success: false, Output: domain.Number(1), Error: "boom"},
		Timestamp: t0,
	})
	require.True(t, ok)

	require.Len(t, snapshot.Results, 1)
	shadow := snapshot.Results[0]
	assert.Equal(t, domain.ShadowRunTestName, shadow.TestName)
	assert.False(t, shadow.Passed)
	assert.Equal(t, "boom", shadow.Error)
	assert.True(t, shadow.Output.Equal(domain.Number(1)))
	assert.False(t, snapshot.Success)
	assert.Equal(t, 0, snapshot.PassCount)
	assert.Equal(t, 1, snapshot.FailCount)
}

func TestSnapshotStore_EmptyResultsAreNotSuccess(t *testing.T) {
	store := domain.NewSnapshotStore()
	snapshot, _ := store.Add(domain.Attempt{Code: "pass", Timestamp: t0, TestResults: []domain.TestCaseResult{}})

	assert.Empty(t, snapshot.Results)
	assert.False(t, snapshot.Success)
	assert.Equal(t, []float64{0}, store.PassRateOverTime())
}

func TestSnapshotStore_CapDropsOldestWithoutRenumbering(t *testing.T) {
	store := domain.NewSnapshotStore(domain.WithIDGenerator(sequentialIDs()))
	for i := 0; i < 60; i++ {
		store.Add(domain.Attempt{Code: fmt.Sprintf("v%d", i), Result: passResult(), Timestamp: t0.Add(time.Duration(i) * time.Second)})
	}

	history := store.History()
	require.Len(t, history, domain.DefaultHistoryCapacity)
	assert.Equal(t, 11, history[0].RunNumber)
	assert.Equal(t, "snap-11", history[0].ID)
	assert.Equal(t, 60, history[len(history)-1].RunNumber)

	next, ok := store.Add(domain.Attempt{Code: "v60", Result: passResult(), Timestamp: t0})
	require.True(t, ok)
	assert.Equal(t, 61, next.RunNumber)
}

func TestSnapshotStore_Clear(t *testing.T) {
	store := domain.NewSnapshotStore()
	store.Add(domain.Attempt{Code: "x", Result: passResult(), Timestamp: t0})
	store.Clear()

	assert.Equal(t, 0, store.Len())
	_, ok := store.Latest()
	assert.False(t, ok)

	snapshot, ok := store.Add(domain.Attempt{Code: "x", Result: passResult(), Timestamp: t0})
	require.True(t, ok)
	assert.Equal(t, 1, snapshot.RunNumber)
}

func TestSnapshotStore_PassRateOverTime(t *testing.T) {
	store := domain.NewSnapshotStore()
	store.Add(domain.Attempt{Code: "a", Timestamp: t0, TestResults: []domain.TestCaseResult{
		tc("t1", true, 1.0), tc("t2", false, 2.0), tc("t3", false, 3.0), tc("t4", true, 4.0),
	}})
	store.Add(domain.Attempt{Code: "b", Timestamp: t0, TestResults: []domain.TestCaseResult{
		tc("t1", true, 1.0),
	}})

	assert.Equal(t, []float64{0.5, 1}, store.PassRateOverTime())
}

func TestSnapshotStore_RegressionDetectedUsesLastTwoOnly(t *testing.T) {
	store := domain.NewSnapshotStore()
	assert.False(t, store.RegressionDetected())

	store.Add(domain.Attempt{Code: "a", Timestamp: t0, TestResults: []domain.TestCaseResult{tc("t1", true, 1.0)}})
	store.Add(domain.Attempt{Code: "b", Timestamp: t0, TestResults: []domain.TestCaseResult{tc("t1", false, 0.0)}})
	assert.True(t, store.RegressionDetected())

	store.Add(domain.Attempt{Code: "c", Timestamp: t0, TestResults: []domain.TestCaseResult{tc("t1", false, 2.0)}})
	assert.False(t, store.RegressionDetected())
	assert.Len(t, domain.DetectRegressions(store.History()), 1)
}

func TestSnapshotStore_ByRun(t *testing.T) {
	store := domain.NewSnapshotStore()
	store.Add(domain.Attempt{Code: "a", Result: passResult(), Timestamp: t0})
	store.Add(domain.Attempt{Code: "b", Result: passResult(), Timestamp: t0})

	snapshot, ok := store.ByRun(2)
	require.True(t, ok)
	assert.Equal(t, "b", snapshot.Code)

	_, ok = store.ByRun(3)
	assert.False(t, ok)
}

func TestHashCode_Stable(t *testing.T) {
	assert.Equal(t, domain.HashCode("def f(): pass"), domain.HashCode("def f(): pass"))
	assert.NotEqual(t, domain.HashCode("a"), domain.HashCode("b"))
}

func TestSnapshotStore_Properties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	codes := gen.SliceOf(gen.IntRange(0, 4))
	verdicts := gen.SliceOf(gen.Bool())

	properties.Property("history never exceeds capacity and run numbers step by one", prop.ForAll(
		func(picks []int, capacity int) bool {
			store := domain.NewSnapshotStore(domain.WithCapacity(capacity))
			accepted := 0
			for i, pick := range picks {
				if _, ok := store.Add(domain.Attempt{Code: fmt.Sprintf("code-%d", pick), Result: passResult(), Timestamp: t0.Add(time.Duration(i) * time.Second)}); ok {
					accepted++
				}
			}
			history := store.History()
			if len(history) > capacity {
				return false
			}
			for i := 1; i < len(history); i++ {
				if history[i].RunNumber != history[i-1].RunNumber+1 {
					return false
				}
				if history[i].CodeHash == history[i-1].CodeHash {
					return false
				}
			}
			if len(history) > 0 && history[len(history)-1].RunNumber != accepted {
				return false
			}
			return true
		},
		codes, gen.IntRange(1, 8),
	))

	properties.Property("counts agree with results", prop.ForAll(
		func(passed []bool) bool {
			results := make([]domain.TestCaseResult, len(passed))
			for i, p := range passed {
				results[i] = tc(fmt.Sprintf("t%d", i), p, float64(i))
			}
			snapshot := domain.NewSnapshot(domain.Attempt{Code: "x", TestResults: results})
			if snapshot.PassCount+snapshot.FailCount != len(snapshot.Results) {
				return false
			}
			return snapshot.Success == (snapshot.FailCount == 0 && len(snapshot.Results) > 0)
		},
		verdicts,
	))

	properties.Property("identical code twice appends once", prop.ForAll(
		func(code string) bool {
			store := domain.NewSnapshotStore()
			store.Add(domain.Attempt{Code: code, Result: passResult(), Timestamp: t0})
			store.Add(domain.Attempt{Code: code, Result: passResult(), Timestamp: t0})
			return store.Len() == 1
		},
		gen.AnyString(),
	))

	properties.TestingRun(t)
}
