package domain

// Regression marks the first run at which a test went from passing to failing.
type Regression struct {
	TestName       string `json:"testName"`
	RegressedAtRun int    `json:"regressedAtRun"`
}

// DetectRegressions scans the whole history and reports each test's first
// pass-to-fail transition, in chronological order. Later regressions of an
// already reported test are ignored.
func DetectRegressions(history []ExecutionSnapshot) []Regression {
	regressions := []Regression{}
	seen := make(map[string]struct{})

	for i := 1; i < len(history); i++ {
		previous := indexResults(history[i-1].Results)
		for _, result := range history[i].Results {
			if _, done := seen[result.TestName]; done {
				continue
			}
			before, ok := previous[result.TestName]
			if !ok || !before.Passed || result.Passed {
				continue
			}
			seen[result.TestName] = struct{}{}
			regressions = append(regressions, Regression{
				TestName:       result.TestName,
				RegressedAtRun: history[i].RunNumber,
			})
		}
	}
	return regressions
}
