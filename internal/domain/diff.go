package domain

// TestDiff compares one current test against its same-named predecessor.
type TestDiff struct {
	TestName       string `json:"testName"`
	PreviousOutput *Value `json:"previousOutput,omitempty"`
	CurrentOutput  Value  `json:"currentOutput"`
	Changed        bool   `json:"changed"`
	Regression     bool   `json:"regression"`
	Fixed          bool   `json:"fixed"`
}

// DiffSnapshots compares every test of curr, in curr's order, against prev.
// Tests present only in prev are not reported. A nil prev makes every test
// novel.
func DiffSnapshots(prev *ExecutionSnapshot, curr ExecutionSnapshot) []TestDiff {
	var previous map[string]TestCaseResult
	if prev != nil {
		previous = indexResults(prev.Results)
	}

	diffs := make([]TestDiff, 0, len(curr.Results))
	for _, result := range curr.Results {
		diff := TestDiff{
			TestName:      result.TestName,
			CurrentOutput: result.Output,
		}
		if before, ok := previous[result.TestName]; ok {
			output := before.Output
			diff.PreviousOutput = &output
			diff.Changed = !before.Output.Equal(result.Output)
			diff.Regression = before.Passed && !result.Passed
			diff.Fixed = !before.Passed && result.Passed
		}
		diffs = append(diffs, diff)
	}
	return diffs
}
