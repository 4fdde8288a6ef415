package domain

import (
	"strconv"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"
)

// ShadowRunTestName names the pseudo-test synthesized when an attempt only
// reports a coarse result.
const ShadowRunTestName = "shadow_run"

// TestCaseResult is the outcome of one named test case within a snapshot.
type TestCaseResult struct {
	TestName string `json:"testName"`
	Passed   bool   `json:"passed"`
	Output   Value  `json:"output"`
	Error    string `json:"error,omitempty"`
}

// RunResult is the coarse outcome of an attempt when per-test results are
// unavailable.
type RunResult struct {
	Success bool   `json:"success"`
	Output  Value  `json:"output"`
	Error   string `json:"error,omitempty"`
}

// Attempt is one execution reported by the sandbox.
// A nil TestResults slice means per-test granularity was not available.
type Attempt struct {
	Code        string           `json:"code"`
	Result      RunResult        `json:"result"`
	Timestamp   time.Time        `json:"timestamp"`
	TestResults []TestCaseResult `json:"testResults,omitempty"`
	DurationMS  int64            `json:"durationMs,omitempty"`
	Terminated  bool             `json:"terminated,omitempty"`
}

// ExecutionSnapshot is one accepted execution attempt.
type ExecutionSnapshot struct {
	ID         string           `json:"id"`
	Timestamp  time.Time        `json:"timestamp"`
	RunNumber  int              `json:"runNumber"`
	Code       string           `json:"code"`
	CodeHash   string           `json:"codeHash"`
	Results    []TestCaseResult `json:"results"`
	Success    bool             `json:"success"`
	PassCount  int              `json:"passCount"`
	FailCount  int              `json:"failCount"`
	DurationMS int64            `json:"durationMs"`
	Terminated bool             `json:"terminated"`
}

// PassRate returns passCount over the number of results, 0 when empty.
func (s ExecutionSnapshot) PassRate() float64 {
	if len(s.Results) == 0 {
		return 0
	}
	return float64(s.PassCount) / float64(len(s.Results))
}

// FailedTests returns the names of failing tests in declaration order.
func (s ExecutionSnapshot) FailedTests() []string {
	var names []string
	for _, result := range s.Results {
		if !result.Passed {
			names = append(names, result.TestName)
		}
	}
	return names
}

// RunEvent returns the lightweight window summary of s.
func (s ExecutionSnapshot) RunEvent() RunEvent {
	return RunEvent{
		Timestamp: s.Timestamp,
		Passed:    s.PassCount,
		Failed:    s.FailCount,
		Total:     len(s.Results),
	}
}

// HashCode returns the consecutive-duplicate key for code. It is not
// collision safe.
func HashCode(code string) string {
	return strconv.FormatUint(xxhash.Sum64String(code), 16)
}

// NewSnapshot derives an ExecutionSnapshot from an attempt. ID and RunNumber
// are left to the caller.
func NewSnapshot(attempt Attempt) ExecutionSnapshot {
	results := attempt.TestResults
	if results == nil {
		results = []TestCaseResult{shadowRun(attempt.Result)}
	}
	results = append([]TestCaseResult(nil), results...)

	passCount := 0
	for _, result := range results {
		if result.Passed {
			passCount++
		}
	}
	failCount := len(results) - passCount

	return ExecutionSnapshot{
		Timestamp:  attempt.Timestamp,
		Code:       attempt.Code,
		CodeHash:   HashCode(attempt.Code),
		Results:    results,
		Success:    failCount == 0 && len(results) > 0,
		PassCount:  passCount,
		FailCount:  failCount,
		DurationMS: attempt.DurationMS,
		Terminated: attempt.Terminated,
	}
}

func shadowRun(result RunResult) TestCaseResult {
	return TestCaseResult{
		TestName: ShadowRunTestName,
		Passed:   result.Success,
		Output:   result.Output,
		Error:    result.Error,
	}
}

// SnapshotStore is the ordered, capped, deduplicated attempt log of one
// coding session. It is not safe for concurrent use; callers serialize Add.
type SnapshotStore struct {
	history  []ExecutionSnapshot
	capacity int
	newID    func() string
}

// SnapshotStoreOption customizes a SnapshotStore.
type SnapshotStoreOption func(*SnapshotStore)

// WithCapacity overrides the history cap. Non-positive values are ignored.
func WithCapacity(capacity int) SnapshotStoreOption {
	return func(s *SnapshotStore) {
		if capacity > 0 {
			s.capacity = capacity
		}
	}
}

// WithIDGenerator overrides how snapshot IDs are minted.
func WithIDGenerator(gen func() string) SnapshotStoreOption {
	return func(s *SnapshotStore) {
		if gen != nil {
			s.newID = gen
		}
	}
}

// NewSnapshotStore creates an empty store.
func NewSnapshotStore(opts ...SnapshotStoreOption) *SnapshotStore {
	store := &SnapshotStore{
		capacity: DefaultHistoryCapacity,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(store)
	}
	return store
}

// Add records an attempt. It returns false without touching history when the
// code hashes the same as the most recent snapshot.
func (s *SnapshotStore) Add(attempt Attempt) (ExecutionSnapshot, bool) {
	snapshot := NewSnapshot(attempt)

	runNumber := 1
	if n := len(s.history); n > 0 {
		last := s.history[n-1]
		if last.CodeHash == snapshot.CodeHash {
			return last, false
		}
		runNumber = last.RunNumber + 1
	}

	snapshot.ID = s.newID()
	snapshot.RunNumber = runNumber
	s.history = append(s.history, snapshot)

	if overflow := len(s.history) - s.capacity; overflow > 0 {
		trimmed := make([]ExecutionSnapshot, s.capacity)
		copy(trimmed, s.history[overflow:])
		s.history = trimmed
	}
	return snapshot, true
}

// Clear empties the history.
func (s *SnapshotStore) Clear() {
	s.history = nil
}

// Len returns the number of retained snapshots.
func (s *SnapshotStore) Len() int {
	return len(s.history)
}

// History returns a copy of the retained snapshots, oldest first.
func (s *SnapshotStore) History() []ExecutionSnapshot {
	out := make([]ExecutionSnapshot, len(s.history))
	copy(out, s.history)
	return out
}

// Latest returns the most recent snapshot.
func (s *SnapshotStore) Latest() (ExecutionSnapshot, bool) {
	if len(s.history) == 0 {
		return ExecutionSnapshot{}, false
	}
	return s.history[len(s.history)-1], true
}

// ByRun finds a retained snapshot by its run number.
func (s *SnapshotStore) ByRun(runNumber int) (ExecutionSnapshot, bool) {
	for _, snapshot := range s.history {
		if snapshot.RunNumber == runNumber {
			return snapshot, true
		}
	}
	return ExecutionSnapshot{}, false
}

// PassRateOverTime returns each snapshot's pass rate, oldest first.
func (s *SnapshotStore) PassRateOverTime() []float64 {
	rates := make([]float64, len(s.history))
	for i, snapshot := range s.history {
		rates[i] = snapshot.PassRate()
	}
	return rates
}

// RegressionDetected compares only the last two snapshots and reports whether
// any test passed in the earlier one and fails in the latest.
func (s *SnapshotStore) RegressionDetected() bool {
	n := len(s.history)
	if n < 2 {
		return false
	}
	return hasRegression(s.history[n-2], s.history[n-1])
}

func hasRegression(prev, curr ExecutionSnapshot) bool {
	previous := indexResults(prev.Results)
	for _, result := range curr.Results {
		if before, ok := previous[result.TestName]; ok && before.Passed && !result.Passed {
			return true
		}
	}
	return false
}

// indexResults maps test names to their first occurrence.
func indexResults(results []TestCaseResult) map[string]TestCaseResult {
	index := make(map[string]TestCaseResult, len(results))
	for _, result := range results {
		if _, seen := index[result.TestName]; !seen {
			index[result.TestName] = result
		}
	}
	return index
}
