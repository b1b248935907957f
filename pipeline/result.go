package pipeline

import (
	"encoding/json"
	"time"

	"github.com/giygas/mfds-matcher/generics"
	"github.com/giygas/mfds-matcher/matcher"
)

// MaxGenericNamesLength caps GenericSummaryRow.GenericNames, in characters.
const MaxGenericNamesLength = 5000

// GenericNamesSeparator joins generic product names in GenericSummaryRow.GenericNames.
const GenericNamesSeparator = " | "

// MatchResult is the output row for one source record. Column names follow the review
// spreadsheet the results are exported to.
type MatchResult struct {
	ID             string             `json:"순번"`
	Label          string             `json:"Product"`
	Name           string             `json:"MFDS_제품명"`
	EnglishName    string             `json:"MFDS_제품영문명"`
	ItemCode       string             `json:"MFDS_품목기준코드"`
	DosageForm     string             `json:"MFDS_제형"`
	IngredientRaw  string             `json:"Ingredient_raw"`
	IngredientBase string             `json:"Ingredient_base"`
	Original       string             `json:"original_허가여부"`
	GenericCount   int                `json:"generic_제품수"`
	Tier           matcher.Tier       `json:"매칭상태"`
	Confidence     matcher.Confidence `json:"매칭신뢰도"`
	Score          float64            `json:"매칭점수"`
	Review         string             `json:"검토필요"`

	TotalByBase               int `json:"total_count_by_base"`
	TotalByBaseForm           int `json:"total_count_by_base_form"`
	OriginalByBase            int `json:"original_count_by_base"`
	GenericInclOriginalByBase int `json:"generic_incl_original_by_base"`
	GenericExclOriginalByBase int `json:"generic_excl_original_by_base"`

	// Extra holds the source record's passthrough columns.
	Extra map[string]any `json:"-"`
}

// MarshalJSON renders the result columns followed by every passthrough column whose name is
// not already a result column.
func (r MatchResult) MarshalJSON() ([]byte, error) {
	type plain MatchResult
	base, err := json.Marshal(plain(r))
	if err != nil {
		return nil, err
	}
	if len(r.Extra) == 0 {
		return base, nil
	}

	var merged map[string]json.RawMessage
	if err := json.Unmarshal(base, &merged); err != nil {
		return nil, err
	}
	for k, v := range r.Extra {
		if _, taken := merged[k]; taken {
			continue
		}
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		merged[k] = raw
	}
	return json.Marshal(merged)
}

// GenericSummaryRow is the compact per-source listing of generic product names.
type GenericSummaryRow struct {
	SourceID       string `json:"순번"`
	SourceLabel    string `json:"Product"`
	IngredientBase string `json:"Ingredient_base"`
	GenericCount   int    `json:"generic_count"`
	GenericNames   string `json:"generic_product_names_joined"`
}

// Summary aggregates one run.
type Summary struct {
	TotalRows               int     `json:"total_rows"`
	High                    int     `json:"high_count"`
	Medium                  int     `json:"medium_count"`
	Review                  int     `json:"review_count"`
	NotFound                int     `json:"not_found_count"`
	UsedMapItemCode         int     `json:"used_map_item_code"`
	UsedMapIngredient       int     `json:"used_map_ingredient"`
	UsedMapName             int     `json:"used_map_name"`
	TotalGenericItems       int     `json:"total_generic_item_rows"`
	MaxGenericPerSource     int     `json:"max_generic_per_source"`
	AverageGenericPerSource float64 `json:"average_generic_per_source"`
}

// Discrepancy is a source whose generic count disagrees with its itemized generics.
type Discrepancy struct {
	SourceID     string `json:"sourceId"`
	GenericCount int    `json:"genericCount"`
	ItemCount    int    `json:"itemCount"`
}

// Result is the output of one run.
type Result struct {
	RunID          string              `json:"runId"`
	Results        []MatchResult       `json:"results"`
	GenericItems   []generics.Item     `json:"genericItems"`
	GenericSummary []GenericSummaryRow `json:"genericSummary"`
	Summary        Summary             `json:"summary"`
	Discrepancies  []Discrepancy       `json:"discrepancies"`
	Duration       time.Duration       `json:"durationNs"`
}

// ReviewNeeded returns the results flagged for manual review, in input order.
func (r *Result) ReviewNeeded() []MatchResult {
	var review []MatchResult
	for _, res := range r.Results {
		if res.Review == matcher.ReviewYes {
			review = append(review, res)
		}
	}
	return review
}
