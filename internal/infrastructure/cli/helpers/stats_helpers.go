package helpers

import (
	"sort"

	"github.com/doeshing/retrace/internal/domain"
)

// CountStatistic pairs a label with how often it occurred.
type CountStatistic struct {
	Key   string
	Count int
}

// TopCounts returns the most frequent keys, count descending then key
// ascending. A limit of 0 or less returns everything.
func TopCounts(frequency map[string]int, limit int) []CountStatistic {
	stats := make([]CountStatistic, 0, len(frequency))
	for key, count := range frequency {
		stats = append(stats, CountStatistic{Key: key, Count: count})
	}
	sort.Slice(stats, func(i, j int) bool {
		if stats[i].Count == stats[j].Count {
			return stats[i].Key < stats[j].Key
		}
		return stats[i].Count > stats[j].Count
	})
	if limit > 0 && len(stats) > limit {
		return stats[:limit]
	}
	return stats
}

// SessionsPerProblem counts archived sessions by problem ID.
func SessionsPerProblem(artifacts []domain.SessionArtifact) map[string]int {
	counts := make(map[string]int)
	for _, artifact := range artifacts {
		problem := artifact.ProblemID
		if problem == "" {
			problem = "(none)"
		}
		counts[problem]++
	}
	return counts
}

// EntriesPerModel counts cache entries by model.
func EntriesPerModel(entries []domain.CacheEntry) map[string]int {
	counts := make(map[string]int)
	for _, entry := range entries {
		counts[entry.Model]++
	}
	return counts
}

// Percent returns part/total as a percentage, 0 when total is 0.
func Percent(part, total float64) float64 {
	if total == 0 {
		return 0
	}
	return part / total * 100
}
