// Package matcher links a source label to one reference record through a fixed sequence of
// tiers: manual mapping, exact name, token candidates, broad fuzzy search.
package matcher

// Tier names the path that produced a match.
type Tier string

const (
	TierMapItemCode       Tier = "map_item_code"
	TierMapIngredientBase Tier = "map_ingredient_base"
	TierMapProductName    Tier = "map_product_name"
	TierExactEN           Tier = "exact_en"
	TierExactKO           Tier = "exact_ko"
	TierTokenConverged    Tier = "token_ing_converged"
	TierTokenMultiIng     Tier = "token_multi_ing"
	TierPrefixMatch       Tier = "prefix_match"
	TierFuzzyBroad        Tier = "fuzzy_broad"
	TierNotFound          Tier = "not_found"
)

// AllTiers lists every tier in fallback order.
var AllTiers = []Tier{
	TierMapItemCode, TierMapIngredientBase, TierMapProductName,
	TierExactEN, TierExactKO,
	TierTokenConverged, TierTokenMultiIng, TierPrefixMatch,
	TierFuzzyBroad, TierNotFound,
}

// IsMapping reports whether the tier comes from a manual mapping entry.
func (t Tier) IsMapping() bool {
	return t == TierMapItemCode || t == TierMapIngredientBase || t == TierMapProductName
}

// Confidence is the reviewer-facing grade of a match.
type Confidence string

const (
	ConfidenceHigh   Confidence = "HIGH"
	ConfidenceMedium Confidence = "MEDIUM"
	ConfidenceReview Confidence = "REVIEW"
)

// Review flag values.
const (
	ReviewYes = "Y"
	ReviewNo  = "N"
)

// Score thresholds of the confidence table.
const (
	highScoreThreshold   = 0.85
	prefixScoreThreshold = 0.70
	fuzzyScoreThreshold  = 0.75
)

// Classify maps a tier and its raw score to a confidence and a review flag. Unknown tiers are
// sent to review.
func Classify(tier Tier, score, reviewThreshold float64) (Confidence, string) {
	switch tier {
	case TierExactEN, TierExactKO, TierMapItemCode, TierMapProductName:
		return ConfidenceHigh, ReviewNo
	case TierMapIngredientBase, TierTokenConverged:
		if score >= highScoreThreshold {
			return ConfidenceHigh, ReviewNo
		}
		return ConfidenceMedium, ReviewNo
	case TierTokenMultiIng:
		if score < reviewThreshold {
			return ConfidenceReview, ReviewYes
		}
		return ConfidenceMedium, ReviewNo
	case TierPrefixMatch:
		if score >= prefixScoreThreshold {
			return ConfidenceMedium, ReviewNo
		}
		return ConfidenceReview, ReviewYes
	case TierFuzzyBroad:
		if score >= fuzzyScoreThreshold {
			return ConfidenceMedium, ReviewNo
		}
		return ConfidenceReview, ReviewYes
	default:
		return ConfidenceReview, ReviewYes
	}
}
