package normalize

import (
	"math"
	"strings"
	"testing"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"empty", "", ""},
		{"upper-cases and trims", "  tylenol tab  ", "TYLENOL TAB"},
		{"punctuation becomes space", "Tylenol-ER/650mg", "TYLENOL ER 650MG"},
		{"cuts at separator", "Norvasc 5mg >> amlodipine", "NORVASC 5MG"},
		{"keeps hangul", "타이레놀정(아세트아미노펜)", "타이레놀정 아세트아미노펜"},
		{"drops other scripts", "Aspirin® 100mg ½", "ASPIRIN 100MG"},
		{"collapses whitespace", "A\t\tB\n C", "A B C"},
		{"composes decomposed hangul", "\u1110\u1161\u110b\u1175", "타이"},
		{"full case mapping", "straße 10mg", "STRASSE 10MG"},
		{"mixed hangul and latin", "애드빌 straße", "애드빌 STRASSE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Normalize(tt.input)
			if got != tt.expected {
				t.Errorf("Normalize(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{
		"", "  ", "Tylenol 500mg >> x", "타이레놀 8시간 이알 서방정", "a.b.c-d_e/f\\g",
		"ßtraße ı ſ", "ＡＢＣ 全角", "ㄱㄴㄷ 가나다", "Zyrtec-D (12 hr)", ">>", "x >> y >> z",
	}

	for _, in := range inputs {
		once := Normalize(in)
		twice := Normalize(once)
		if once != twice {
			t.Errorf("Normalize not idempotent for %q: %q then %q", in, once, twice)
		}
	}
}

func TestCodeToken(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"", ""},
		{"   ", ""},
		{"lipitor10 tab", "LIPITOR"},
		{"ABC123.5mg tablet", "ABC"},
		{"Norvasc-5 10mg", "NORVASC"},
		{"타이레놀500 정", "타이레놀"},
		{"1234 tab", ""},
		{"zocor >> simvastatin", "ZOCOR"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := CodeToken(tt.input)
			if got != tt.expected {
				t.Errorf("CodeToken(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestIngredientBaseKey(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"empty", "", ""},
		{"plain", "ibuprofen", "IBUPROFEN"},
		{"strips salt", "Amlodipine Besylate", "AMLODIPINE"},
		{"strips korean salt", "암로디핀베실산염", "암로디핀"},
		{"parentheses removed first", "Metformin (as hydrochloride) HCl", "METFORMIN HCL"},
		{"brackets removed", "Atorvastatin [calcium trihydrate]", "ATORVASTATIN"},
		{"punctuation", "sodium-valproate", "VALPROATE"},
		{"case insensitive", "Sertraline hydrochloride", "SERTRALINE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := IngredientBaseKey(tt.input)
			if got != tt.expected {
				t.Errorf("IngredientBaseKey(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestSimilarityRatio(t *testing.T) {
	tests := []struct {
		name     string
		a, b     string
		expected float64
	}{
		{"both empty", "", "", 0},
		{"empty left", "", "ABC", 0},
		{"empty right", "ABC", "", 0},
		{"identical", "TYLENOL", "TYLENOL", 1},
		{"disjoint", "ABC", "XYZ", 0},
		{"partial", "ABCD", "ABXD", 0.75},
		{"subsequence", "ABC", "AXBXC", 0.75},
		{"hangul", "타이레놀", "타이레놀정", 8.0 / 9.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SimilarityRatio(tt.a, tt.b)
			if math.Abs(got-tt.expected) > 1e-9 {
				t.Errorf("SimilarityRatio(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.expected)
			}
		})
	}
}

func TestSimilarityRatioSymmetric(t *testing.T) {
	pairs := [][2]string{
		{"TYLENOL ER", "TYLENOL"},
		{"XYZ999", "ZYX"},
		{"아스피린 프로텍트", "아스피린"},
		{"A", "AAAA"},
		{strings.Repeat("A", 600), strings.Repeat("A", 300)},
		{strings.Repeat("AB", 300), "BA"},
	}

	for _, p := range pairs {
		ab := SimilarityRatio(p[0], p[1])
		ba := SimilarityRatio(p[1], p[0])
		if ab != ba {
			t.Errorf("SimilarityRatio not symmetric for %q/%q: %v vs %v", p[0], p[1], ab, ba)
		}
		if ab < 0 || ab > 1 {
			t.Errorf("SimilarityRatio out of range: %v", ab)
		}
	}
}

func TestSimilarityRatioLongInputs(t *testing.T) {
	long := strings.Repeat("X", 550) + "IBUPROFEN"
	got := SimilarityRatio(long, "IBUPROFEN")
	want := 2 * 9.0 / float64(559+9)
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("Expected containment score %v, got %v", want, got)
	}

	if got := SimilarityRatio(long, "ASPIRIN"); got != 0 {
		t.Errorf("Expected 0 for non-contained long input, got %v", got)
	}
}

func TestPrefix(t *testing.T) {
	if got := Prefix("타이레놀정", 3); got != "타이레" {
		t.Errorf("Expected 타이레, got %q", got)
	}
	if got := Prefix("AB", 6); got != "AB" {
		t.Errorf("Expected AB, got %q", got)
	}
	if got := FirstToken("  ONE TWO"); got != "ONE" {
		t.Errorf("Expected ONE, got %q", got)
	}
}
