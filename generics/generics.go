// Package generics counts and itemizes the generic (non-original) catalog products sharing a
// matched record's ingredient base.
package generics

import (
	"github.com/giygas/mfds-matcher/catalog"
	"github.com/giygas/mfds-matcher/index"
)

// Matching criteria reported on itemized rows.
const (
	CriteriaBase     = "base"
	CriteriaBaseForm = "base+form"
)

// Counts is the aggregate view for one ingredient base.
type Counts struct {
	Count         int `json:"count"`
	TotalBase     int `json:"totalBase"`
	TotalBaseForm int `json:"totalBaseForm"`
	OrigBase      int `json:"origBase"`
}

// Item is one generic product counted for a source record.
type Item struct {
	SourceID       string `json:"source_순번"`
	SourceLabel    string `json:"source_Product"`
	IngredientBase string `json:"Ingredient_base"`
	ItemCode       string `json:"generic_품목기준코드"`
	Name           string `json:"generic_제품명"`
	EnglishName    string `json:"generic_제품영문명"`
	Company        string `json:"generic_업체명"`
	DosageForm     string `json:"generic_제형"`
	ApprovalDate   string `json:"generic_허가일"`
	Cancellation   string `json:"generic_취소/취하"`
	Criteria       string `json:"matching_criteria"`
}

// Aggregator answers generic queries against one index under fixed options.
type Aggregator struct {
	idx  *index.Index
	opts catalog.Options
}

// NewAggregator returns an aggregator over idx.
func NewAggregator(idx *index.Index, opts catalog.Options) *Aggregator {
	return &Aggregator{idx: idx, opts: opts}
}

// filtered applies the cancellation filter to a position set. An active-only filter that would
// empty a non-empty set leaves it unfiltered.
func (a *Aggregator) filtered(positions []int) []int {
	if !a.opts.ActiveOnly() {
		return positions
	}
	return a.idx.FilterActive(positions)
}

func (a *Aggregator) countOriginals(positions []int) int {
	n := 0
	for _, p := range positions {
		if a.idx.Record(p).IsOriginal() {
			n++
		}
	}
	return n
}

func (a *Aggregator) countNonOriginals(positions []int) int {
	return len(positions) - a.countOriginals(positions)
}

// Counts computes the generic count and its breakdown for a base and dosage form.
func (a *Aggregator) Counts(base, form string) Counts {
	if base == "" {
		return Counts{}
	}

	baseRows := a.filtered(a.idx.IngredientBase[base])
	formRows := a.filtered(a.idx.IngredientBaseForm[index.FormKey(base, form)])

	c := Counts{
		TotalBase:     len(baseRows),
		TotalBaseForm: len(formRows),
		OrigBase:      a.countOriginals(baseRows),
	}

	// excl_original counts the non-original rows of the selected index directly.
	// total_minus_original subtracts the originals of the whole base from the selected total, so
	// on base+form it can differ from the itemized list.
	rows, total := baseRows, c.TotalBase
	if a.opts.UseBaseForm() {
		rows, total = formRows, c.TotalBaseForm
	}
	if a.opts.GenericDefinition == catalog.DefinitionExclOriginal {
		c.Count = a.countNonOriginals(rows)
	} else {
		c.Count = total - c.OrigBase
	}
	return c
}

// Positions returns the filtered non-original positions for a base and form under the
// configured basis.
func (a *Aggregator) Positions(base, form string) []int {
	if base == "" {
		return nil
	}
	var positions []int
	if a.opts.UseBaseForm() {
		positions = a.idx.IngredientBaseForm[index.FormKey(base, form)]
	} else {
		positions = a.idx.IngredientBase[base]
	}

	var generics []int
	for _, p := range a.filtered(positions) {
		if !a.idx.Record(p).IsOriginal() {
			generics = append(generics, p)
		}
	}
	return generics
}

// Items itemizes the generics counted for one source record.
func (a *Aggregator) Items(base, form, sourceID, sourceLabel string) []Item {
	criteria := CriteriaBase
	if a.opts.UseBaseForm() {
		criteria = CriteriaBaseForm
	}

	positions := a.Positions(base, form)
	items := make([]Item, 0, len(positions))
	for _, p := range positions {
		r := a.idx.Record(p)
		items = append(items, Item{
			SourceID:       sourceID,
			SourceLabel:    sourceLabel,
			IngredientBase: base,
			ItemCode:       r.ItemCode,
			Name:           r.Name,
			EnglishName:    r.EnglishName,
			DosageForm:     r.DosageForm,
			ApprovalDate:   r.ApprovalDate,
			Cancellation:   r.Cancellation,
			Criteria:       criteria,
		})
	}
	return items
}
