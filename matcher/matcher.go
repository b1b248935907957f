package matcher

import (
	"strings"

	"github.com/giygas/mfds-matcher/catalog"
	"github.com/giygas/mfds-matcher/index"
	"github.com/giygas/mfds-matcher/normalize"
)

const (
	// TopCandidates is how many preferred candidates are scored in the token tier.
	TopCandidates = 20
	// FuzzySampleSize caps the records scored by the broad fuzzy search.
	FuzzySampleSize = 500
	// FuzzyMinScore is the lowest score the broad fuzzy search accepts.
	FuzzyMinScore = 0.4
	// FuzzyMinLabelLen is the shortest normalized label the broad fuzzy search runs for.
	FuzzyMinLabelLen = 3
)

// Match is the outcome for one label. Pos is -1 when nothing matched.
type Match struct {
	Pos      int
	Tier     Tier
	Score    float64
	Strategy Strategy
}

// Found reports whether a record was matched.
func (m Match) Found() bool {
	return m.Pos >= 0
}

// Matcher runs the tier chain against one index. It holds no per-call state and is safe for
// concurrent use.
type Matcher struct {
	idx        *index.Index
	mappings   map[string]catalog.MappingEntry
	activeOnly bool
}

// New returns a matcher over idx. mappings may be nil.
func New(idx *index.Index, mappings map[string]catalog.MappingEntry, activeOnly bool) *Matcher {
	return &Matcher{idx: idx, mappings: mappings, activeOnly: activeOnly}
}

// query carries the derived forms of one label through the tiers.
type query struct {
	label     string
	norm      string
	codeToken string
}

type tierFunc func(m *Matcher, q query) (Match, bool)

// tiers run in order; the first that reports a match wins.
var tiers = []tierFunc{
	(*Matcher).matchMapping,
	(*Matcher).matchExact,
	(*Matcher).matchTokens,
	(*Matcher).matchFuzzy,
}

// Match links a raw source label to a reference record.
func (m *Matcher) Match(label string) Match {
	q := query{
		label:     label,
		norm:      normalize.Normalize(label),
		codeToken: normalize.CodeToken(label),
	}
	for _, tier := range tiers {
		if res, ok := tier(m, q); ok {
			return res
		}
	}
	return Match{Pos: -1, Tier: TierNotFound, Strategy: StrategyNone}
}

func (m *Matcher) matchMapping(q query) (Match, bool) {
	if len(m.mappings) == 0 || q.codeToken == "" {
		return Match{}, false
	}
	entry, ok := m.mappings[strings.ToUpper(q.codeToken)]
	if !ok {
		return Match{}, false
	}

	if entry.ItemCode != "" {
		if positions := m.idx.ItemCode[entry.ItemCode]; len(positions) > 0 {
			return Match{Pos: positions[0], Tier: TierMapItemCode, Score: 1}, true
		}
	}

	if entry.IngredientBase != "" {
		base := normalize.IngredientBaseKey(entry.IngredientBase)
		if positions := m.idx.IngredientBase[base]; len(positions) > 0 {
			if pos, score, ok := m.best(positions, q.norm); ok {
				return Match{Pos: pos, Tier: TierMapIngredientBase, Score: score}, true
			}
		}
	}

	if entry.ProductName != "" {
		name := normalize.Normalize(entry.ProductName)
		if bucket := m.idx.ExactEN[name]; len(bucket) > 0 {
			return Match{Pos: bucket[0], Tier: TierMapProductName, Score: 1}, true
		}
		if bucket := m.idx.ExactKO[name]; len(bucket) > 0 {
			return Match{Pos: bucket[0], Tier: TierMapProductName, Score: 1}, true
		}
	}

	return Match{}, false
}

func (m *Matcher) matchExact(q query) (Match, bool) {
	if q.norm == "" {
		return Match{}, false
	}
	if bucket := m.idx.ExactEN[q.norm]; len(bucket) > 0 {
		return Match{Pos: bucket[0], Tier: TierExactEN, Score: 1}, true
	}
	if bucket := m.idx.ExactKO[q.norm]; len(bucket) > 0 {
		return Match{Pos: bucket[0], Tier: TierExactKO, Score: 1}, true
	}
	return Match{}, false
}

func (m *Matcher) matchTokens(q query) (Match, bool) {
	positions, strategy := Candidates(m.idx, q.norm, q.codeToken)
	if len(positions) == 0 {
		return Match{}, false
	}

	pos, score, ok := m.best(positions, q.norm)
	if !ok {
		return Match{}, false
	}

	tier := TierTokenMultiIng
	switch {
	case strategy == StrategyPrefix || strategy == StrategySubstring:
		tier = TierPrefixMatch
	case m.converged(positions):
		tier = TierTokenConverged
	}
	return Match{Pos: pos, Tier: tier, Score: score, Strategy: strategy}, true
}

// converged reports whether the candidates share at most one non-empty ingredient base.
func (m *Matcher) converged(positions []int) bool {
	first := ""
	for _, p := range positions {
		base := m.idx.Record(p).IngredientBase
		if base == "" {
			continue
		}
		if first == "" {
			first = base
		} else if base != first {
			return false
		}
	}
	return true
}

func (m *Matcher) matchFuzzy(q query) (Match, bool) {
	if normalize.RuneLen(q.norm) < FuzzyMinLabelLen {
		return Match{}, false
	}

	pool := m.idx.Pool(m.activeOnly)
	step := 1
	if len(pool) > FuzzySampleSize {
		step = len(pool) / FuzzySampleSize
	}

	bestPos, bestScore := -1, 0.0
	sampled := 0
	for i := 0; i < len(pool) && sampled < FuzzySampleSize; i += step {
		sampled++
		if s := m.score(pool[i], q.norm); s > bestScore {
			bestPos, bestScore = pool[i], s
		}
	}

	if bestPos < 0 || bestScore < FuzzyMinScore {
		return Match{}, false
	}
	return Match{Pos: bestPos, Tier: TierFuzzyBroad, Score: bestScore}, true
}

// best restricts positions to active records when configured, ranks them by preference and
// scores the top TopCandidates. The first candidate with the highest score wins.
func (m *Matcher) best(positions []int, labelNorm string) (int, float64, bool) {
	cands := positions
	if m.activeOnly {
		cands = m.idx.FilterActive(cands)
	}
	cands = append([]int(nil), cands...)
	m.idx.SortByPreference(cands)
	if len(cands) > TopCandidates {
		cands = cands[:TopCandidates]
	}

	bestPos, bestScore := -1, -1.0
	for _, p := range cands {
		if s := m.score(p, labelNorm); s > bestScore {
			bestPos, bestScore = p, s
		}
	}
	return bestPos, bestScore, bestPos >= 0
}

func (m *Matcher) score(pos int, labelNorm string) float64 {
	r := m.idx.Record(pos)
	return max(
		normalize.SimilarityRatio(labelNorm, r.EnglishNameNorm),
		normalize.SimilarityRatio(labelNorm, r.NameNorm),
	)
}
