package pipeline

import (
	"github.com/giygas/mfds-matcher/generics"
)

// CheckConsistency compares, per source ID, the generic counts reported on the results with the
// number of itemized generic rows. Sources are reported in first-seen result order.
func CheckConsistency(results []MatchResult, items []generics.Item) []Discrepancy {
	itemCounts := make(map[string]int)
	for _, it := range items {
		itemCounts[it.SourceID]++
	}

	counts := make(map[string]int)
	var order []string
	for _, r := range results {
		if _, seen := counts[r.ID]; !seen {
			order = append(order, r.ID)
		}
		counts[r.ID] += r.GenericCount
	}

	discrepancies := []Discrepancy{}
	for _, id := range order {
		if counts[id] != itemCounts[id] {
			discrepancies = append(discrepancies, Discrepancy{
				SourceID:     id,
				GenericCount: counts[id],
				ItemCount:    itemCounts[id],
			})
		}
	}
	return discrepancies
}
