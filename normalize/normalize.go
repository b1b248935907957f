// Package normalize provides the text transforms shared by the catalog indexer and the matcher:
// canonical product names, label code tokens, ingredient base keys and a similarity ratio.
package normalize

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// Separator marks the end of the meaningful part of a label; anything after it is ignored.
const Separator = ">>"

// saltTerms are stripped from ingredient text so that salts and hydrates of the same active
// ingredient share a base key. Removal happens in list order.
var saltTerms = []string{
	"수화물", "무수물", "염산염", "황산염", "나트륨", "칼륨", "칼슘",
	"마그네슘", "인산염", "질산염", "초산염", "구연산염", "주석산염",
	"메실산염", "말레산염", "푸마르산염", "숙신산염", "베실산염",
	"HYDROCHLORIDE", "SULFATE", "SODIUM", "POTASSIUM", "CALCIUM",
	"MAGNESIUM", "PHOSPHATE", "NITRATE", "ACETATE", "CITRATE",
	"TARTRATE", "MESYLATE", "MALEATE", "FUMARATE", "SUCCINATE",
	"BESYLATE", "HYDRATE", "ANHYDROUS", "DIHYDRATE", "MONOHYDRATE",
	"TRIHYDRATE", "HEMIHYDRATE",
}

// Pre-compiled patterns, built once at package initialization
var (
	saltPatterns    = compileSaltPatterns()
	parenthesized   = regexp.MustCompile(`\([^)]*\)`)
	bracketed       = regexp.MustCompile(`\[[^\]]*\]`)
	namePunctuation = ".-_/\\,+&()[]{}<>:;'\"!@#$%^*=|~`"
	ingPunctuation  = ".-_/\\,+&;:'\""
)

func compileSaltPatterns() []*regexp.Regexp {
	patterns := make([]*regexp.Regexp, 0, len(saltTerms))
	for _, term := range saltTerms {
		patterns = append(patterns, regexp.MustCompile(`(?i)`+regexp.QuoteMeta(term)))
	}
	return patterns
}

// isHangul reports whether r is a Hangul syllable or a compatibility jamo.
func isHangul(r rune) bool {
	return (r >= 0xAC00 && r <= 0xD7AF) || (r >= 0x3131 && r <= 0x3163)
}

func isASCIIAlnum(r rune) bool {
	return (r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')
}

// cutSeparator returns the text before the first Separator.
func cutSeparator(s string) string {
	before, _, _ := strings.Cut(s, Separator)
	return before
}

// Normalize returns the canonical form of a product name. The result only contains Hangul,
// upper-case ASCII letters, digits and single spaces, and Normalize(Normalize(s)) == Normalize(s).
func Normalize(text string) string {
	if text == "" {
		return ""
	}
	s := norm.NFC.String(text)
	s = upper(strings.TrimSpace(cutSeparator(s)))

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case strings.ContainsRune(namePunctuation, r), unicode.IsSpace(r):
			b.WriteByte(' ')
		case isHangul(r), (r >= 'A' && r <= 'Z'), (r >= '0' && r <= '9'):
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// upper applies full Unicode case mapping, so "ß" becomes "SS". A Caser is not safe for
// concurrent use, hence one per non-ASCII call.
func upper(s string) string {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return cases.Upper(language.Und).String(s)
		}
	}
	return strings.ToUpper(s)
}

// CodeToken extracts the short product code from a raw label: the first token, cut at its
// first dot, stripped of symbols and trailing digits, upper-cased.
func CodeToken(label string) string {
	fields := strings.Fields(cutSeparator(label))
	if len(fields) == 0 {
		return ""
	}
	token, _, _ := strings.Cut(fields[0], ".")

	var b strings.Builder
	for _, r := range token {
		if isHangul(r) || isASCIIAlnum(r) {
			b.WriteRune(r)
		}
	}
	token = strings.TrimRight(b.String(), "0123456789")
	return strings.ToUpper(token)
}

// IngredientBaseKey groups an ingredient with its salts and hydrates. Parenthesized and
// bracketed text is removed before the salt terms are stripped.
func IngredientBaseKey(ingredient string) string {
	if ingredient == "" {
		return ""
	}
	s := parenthesized.ReplaceAllString(ingredient, "")
	s = bracketed.ReplaceAllString(s, "")
	s = strings.Map(func(r rune) rune {
		if strings.ContainsRune(ingPunctuation, r) {
			return ' '
		}
		return r
	}, s)
	s = upper(s)
	for _, p := range saltPatterns {
		s = p.ReplaceAllString(s, "")
	}
	return strings.Join(strings.Fields(s), " ")
}

// Tokens splits a normalized string on whitespace.
func Tokens(s string) []string {
	return strings.Fields(s)
}

// FirstToken returns the first whitespace-delimited token of s.
func FirstToken(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// Prefix returns the first n runes of s.
func Prefix(s string, n int) string {
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}

// RuneLen is the length of s in characters.
func RuneLen(s string) int {
	return len([]rune(s))
}
