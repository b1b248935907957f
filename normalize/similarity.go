package normalize

import "strings"

// LongInputThreshold is the operand length above which SimilarityRatio falls back to a
// containment check instead of the quadratic subsequence table.
const LongInputThreshold = 500

// SimilarityRatio returns 2*M/(len(a)+len(b)) where M is the length of the longest common
// subsequence of a and b, measured in runes. The result is in [0,1] and symmetric.
func SimilarityRatio(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 1
	}

	ra, rb := []rune(a), []rune(b)
	m, n := len(ra), len(rb)

	if m > LongInputThreshold || n > LongInputThreshold {
		shorter, longer := b, a
		if m < n {
			shorter, longer = a, b
		}
		if strings.Contains(longer, shorter) {
			return 2 * float64(min(m, n)) / float64(m+n)
		}
		return 0
	}

	prev := make([]int, n+1)
	curr := make([]int, n+1)
	for i := 1; i <= m; i++ {
		for j := 1; j <= n; j++ {
			if ra[i-1] == rb[j-1] {
				curr[j] = prev[j-1] + 1
			} else {
				curr[j] = max(prev[j], curr[j-1])
			}
		}
		prev, curr = curr, prev
		clear(curr)
	}
	return 2 * float64(prev[n]) / float64(m+n)
}
