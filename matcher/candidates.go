package matcher

import (
	"slices"
	"strings"

	"github.com/giygas/mfds-matcher/index"
	"github.com/giygas/mfds-matcher/normalize"
)

// Strategy names the candidate generation tier that produced a candidate set.
type Strategy string

const (
	StrategyFirstToken Strategy = "first_token"
	StrategyAnyToken   Strategy = "any_token"
	StrategyPrefix     Strategy = "prefix"
	StrategySubstring  Strategy = "substring"
	StrategyNone       Strategy = "none"
)

// prefixLengths are tried longest first.
var prefixLengths = []int{6, 5, 4, 3}

const (
	minSubstringTokenLen = 3
	minReverseTokenLen   = 4
)

// positionSet collects unique positions and returns them in ascending order.
type positionSet map[int]struct{}

func (s positionSet) addAll(positions []int) {
	for _, p := range positions {
		s[p] = struct{}{}
	}
}

func (s positionSet) sorted() []int {
	out := make([]int, 0, len(s))
	for p := range s {
		out = append(out, p)
	}
	slices.Sort(out)
	return out
}

// Candidates returns the candidate positions for a normalized label, stopping at the first
// strategy that yields any. Positions are ascending.
func Candidates(idx *index.Index, labelNorm, codeToken string) ([]int, Strategy) {
	tokens := normalize.Tokens(labelNorm)
	firstToken := ""
	if len(tokens) > 0 {
		firstToken = tokens[0]
	}

	set := make(positionSet)

	if firstToken != "" {
		set.addAll(idx.FirstTokenEN[firstToken])
		set.addAll(idx.FirstTokenKO[firstToken])
	}
	if codeToken != "" && codeToken != firstToken {
		set.addAll(idx.FirstTokenEN[codeToken])
		set.addAll(idx.FirstTokenKO[codeToken])
	}
	if len(set) > 0 {
		return set.sorted(), StrategyFirstToken
	}

	for _, t := range tokens {
		n := normalize.RuneLen(t)
		if n >= index.MinTokenLenEN {
			set.addAll(idx.AnyTokenEN[t])
		}
		if n >= index.MinTokenLenKO {
			set.addAll(idx.AnyTokenKO[t])
		}
	}
	if len(set) > 0 {
		return set.sorted(), StrategyAnyToken
	}

	labelLen := normalize.RuneLen(labelNorm)
	for _, n := range prefixLengths {
		if labelLen < n {
			continue
		}
		idx.FirstTokensRelatedTo(normalize.Prefix(labelNorm, n), set.addAll)
		if len(set) > 0 {
			return set.sorted(), StrategyPrefix
		}
	}

	if ftLen := normalize.RuneLen(firstToken); ftLen >= minSubstringTokenLen {
		for pos := range idx.Records {
			r := idx.Record(pos)
			if strings.Contains(r.EnglishNameNorm, firstToken) || strings.Contains(r.NameNorm, firstToken) {
				set[pos] = struct{}{}
				continue
			}
			if ftLen >= minReverseTokenLen && tokenContainsRecordToken(firstToken, r.EnglishNameNorm, r.NameNorm) {
				set[pos] = struct{}{}
			}
		}
	}
	if len(set) > 0 {
		return set.sorted(), StrategySubstring
	}

	return nil, StrategyNone
}

// tokenContainsRecordToken reports whether token contains the record's English first token
// (at least 3 runes) or its Korean first token (at least 2 runes).
func tokenContainsRecordToken(token, englishNorm, nameNorm string) bool {
	if en := normalize.FirstToken(englishNorm); normalize.RuneLen(en) >= index.MinTokenLenEN && strings.Contains(token, en) {
		return true
	}
	if ko := normalize.FirstToken(nameNorm); normalize.RuneLen(ko) >= index.MinTokenLenKO && strings.Contains(token, ko) {
		return true
	}
	return false
}
