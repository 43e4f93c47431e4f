package search

import "strings"

// Scoring constants. These are tunable defaults, not a wire format: the
// ordering they produce is what matters, and ties always fall back to
// original candidate order.
const (
	// matchWeight scales the fraction of the candidate covered by the
	// match, so shorter candidates win for equal match quality.
	matchWeight = 100.0

	// consecutiveBonus is granted per pair of adjacent query characters
	// that are also adjacent in the candidate.
	consecutiveBonus = 15.0

	// prefixBonus is granted when the match begins at position 0.
	prefixBonus = 10.0

	// emptyQueryScore is the uniform score for an empty query, which
	// matches every candidate; ordering then falls back to list order.
	emptyQueryScore = matchWeight
)

// Match scores a candidate against a query using case-insensitive
// subsequence matching: every query character must appear in the candidate
// in order, not necessarily contiguously. Returns ok=false when the query
// is not a subsequence; such candidates are excluded from ranking, not
// scored zero.
//
// The returned positions are the rune indices of the matched characters in
// the candidate, always ascending. Match is pure and safe for concurrent
// use.
func Match(query, candidate string) (score float64, positions []int, ok bool) {
	q := []rune(strings.ToLower(query))
	if len(q) == 0 {
		return emptyQueryScore, nil, true
	}

	c := []rune(strings.ToLower(candidate))
	if len(c) == 0 {
		return 0, nil, false
	}

	// Greedy leftmost subsequence scan
	positions = make([]int, 0, len(q))
	next := 0
	for _, qr := range q {
		found := -1
		for i := next; i < len(c); i++ {
			if c[i] == qr {
				found = i
				break
			}
		}
		if found < 0 {
			return 0, nil, false
		}
		positions = append(positions, found)
		next = found + 1
	}

	score = matchWeight * float64(len(q)) / float64(len(c))
	for i := 1; i < len(positions); i++ {
		if positions[i] == positions[i-1]+1 {
			score += consecutiveBonus
		}
	}
	if positions[0] == 0 {
		score += prefixBonus
	}

	return score, positions, true
}
