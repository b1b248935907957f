// Package index builds the immutable lookup structures over the reference catalog that the
// matcher and the generic aggregator query.
package index

import (
	"slices"
	"strings"
	"time"

	"github.com/giygas/mfds-matcher/catalog"
	"github.com/giygas/mfds-matcher/normalize"
)

// Minimum token lengths, in runes, for the any-token indexes.
const (
	MinTokenLenEN = 3
	MinTokenLenKO = 2
)

// FormKeySeparator joins an ingredient base and a dosage form in IngredientBaseForm keys.
const FormKeySeparator = "||"

// Index is the read-only bundle built once per catalog. Position lists refer to Records.
type Index struct {
	Records []catalog.ReferenceRecord

	// Exact name buckets, sorted active first then newest approval first.
	ExactEN map[string][]int
	ExactKO map[string][]int

	// Token buckets hold ascending, unique positions.
	FirstTokenEN map[string][]int
	FirstTokenKO map[string][]int
	AnyTokenEN   map[string][]int
	AnyTokenKO   map[string][]int

	ItemCode           map[string][]int
	IngredientBase     map[string][]int
	IngredientBaseForm map[string][]int

	ActivePositions []int
	BuiltAt         time.Time

	firstTokenKeysEN []string
	firstTokenKeysKO []string
}

// FormKey returns the IngredientBaseForm key for a base and a dosage form.
func FormKey(base, form string) string {
	return base + FormKeySeparator + form
}

// Build indexes records in a single pass and sets each record's Pos to its offset. The records
// slice is retained, not copied, and must not be modified afterwards.
func Build(records []catalog.ReferenceRecord) *Index {
	idx := &Index{
		Records:            records,
		ExactEN:            make(map[string][]int),
		ExactKO:            make(map[string][]int),
		FirstTokenEN:       make(map[string][]int),
		FirstTokenKO:       make(map[string][]int),
		AnyTokenEN:         make(map[string][]int),
		AnyTokenKO:         make(map[string][]int),
		ItemCode:           make(map[string][]int),
		IngredientBase:     make(map[string][]int),
		IngredientBaseForm: make(map[string][]int),
		BuiltAt:            time.Now(),
	}

	for pos := range records {
		r := &records[pos]
		r.Pos = pos

		if r.Active {
			idx.ActivePositions = append(idx.ActivePositions, pos)
		}
		if r.EnglishNameNorm != "" {
			idx.ExactEN[r.EnglishNameNorm] = append(idx.ExactEN[r.EnglishNameNorm], pos)
		}
		if r.NameNorm != "" {
			idx.ExactKO[r.NameNorm] = append(idx.ExactKO[r.NameNorm], pos)
		}
		if t := normalize.FirstToken(r.EnglishNameNorm); t != "" {
			addUnique(idx.FirstTokenEN, t, pos)
		}
		if t := normalize.FirstToken(r.NameNorm); t != "" {
			addUnique(idx.FirstTokenKO, t, pos)
		}
		for _, t := range normalize.Tokens(r.EnglishNameNorm) {
			if normalize.RuneLen(t) >= MinTokenLenEN {
				addUnique(idx.AnyTokenEN, t, pos)
			}
		}
		for _, t := range normalize.Tokens(r.NameNorm) {
			if normalize.RuneLen(t) >= MinTokenLenKO {
				addUnique(idx.AnyTokenKO, t, pos)
			}
		}
		if r.ItemCode != "" {
			idx.ItemCode[r.ItemCode] = append(idx.ItemCode[r.ItemCode], pos)
		}
		if r.IngredientBase != "" {
			idx.IngredientBase[r.IngredientBase] = append(idx.IngredientBase[r.IngredientBase], pos)
			key := FormKey(r.IngredientBase, r.FormKey)
			idx.IngredientBaseForm[key] = append(idx.IngredientBaseForm[key], pos)
		}
	}

	for _, bucket := range idx.ExactEN {
		idx.SortByPreference(bucket)
	}
	for _, bucket := range idx.ExactKO {
		idx.SortByPreference(bucket)
	}

	idx.firstTokenKeysEN = sortedKeys(idx.FirstTokenEN)
	idx.firstTokenKeysKO = sortedKeys(idx.FirstTokenKO)

	return idx
}

// addUnique appends pos to the bucket unless it is already its last element. Positions are
// visited in ascending order so buckets stay sorted and unique.
func addUnique(m map[string][]int, key string, pos int) {
	bucket := m[key]
	if n := len(bucket); n > 0 && bucket[n-1] == pos {
		return
	}
	m[key] = append(bucket, pos)
}

func sortedKeys(m map[string][]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Len returns the number of indexed records.
func (idx *Index) Len() int {
	return len(idx.Records)
}

// Record returns the record at pos.
func (idx *Index) Record(pos int) *catalog.ReferenceRecord {
	return &idx.Records[pos]
}

// Preferred reports whether the record at a should be ranked before the record at b: active
// before inactive, then newer approval first.
func (idx *Index) Preferred(a, b int) bool {
	ra, rb := &idx.Records[a], &idx.Records[b]
	if ra.Active != rb.Active {
		return ra.Active
	}
	return ra.ApprovedAt > rb.ApprovedAt
}

// SortByPreference sorts positions in place, active first then newest approval first. Equal
// records keep their relative order.
func (idx *Index) SortByPreference(positions []int) {
	slices.SortStableFunc(positions, func(a, b int) int {
		switch {
		case idx.Preferred(a, b):
			return -1
		case idx.Preferred(b, a):
			return 1
		}
		return 0
	})
}

// FilterActive returns the active subset of positions. When that subset is empty the input is
// returned unchanged.
func (idx *Index) FilterActive(positions []int) []int {
	active := make([]int, 0, len(positions))
	for _, p := range positions {
		if idx.Records[p].Active {
			active = append(active, p)
		}
	}
	if len(active) == 0 {
		return positions
	}
	return active
}

// Pool returns the positions the fuzzy search samples from: the active records when activeOnly
// is set and any exist, otherwise the whole catalog.
func (idx *Index) Pool(activeOnly bool) []int {
	if activeOnly && len(idx.ActivePositions) > 0 {
		return idx.ActivePositions
	}
	all := make([]int, len(idx.Records))
	for i := range all {
		all[i] = i
	}
	return all
}

// FirstTokensRelatedTo calls fn with the bucket of every first-token key (English and Korean)
// that starts with prefix or is itself a prefix of it.
func (idx *Index) FirstTokensRelatedTo(prefix string, fn func(positions []int)) {
	scan := func(keys []string, m map[string][]int) {
		start, _ := slices.BinarySearch(keys, prefix)
		for i := start; i < len(keys) && strings.HasPrefix(keys[i], prefix); i++ {
			fn(m[keys[i]])
		}
		// Keys that are proper prefixes of the search prefix.
		for end := range prefix {
			if end == 0 {
				continue
			}
			if bucket, ok := m[prefix[:end]]; ok {
				fn(bucket)
			}
		}
	}
	scan(idx.firstTokenKeysEN, idx.FirstTokenEN)
	scan(idx.firstTokenKeysKO, idx.FirstTokenKO)
}
